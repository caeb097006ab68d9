package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/dexdepth/internal/domain"
)

const (
	jsonlContentType = "application/x-ndjson"
	// Monthly files above this size are uploaded in parts.
	multipartThreshold = 64 * 1024 * 1024
)

// SnapshotArchiveStore is the part of the snapshot store the archiver needs.
type SnapshotArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.DepthSnapshot, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type multipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// SnapshotArchiver implements domain.Archiver. Snapshots older than the
// cutoff are appended to archive/depth/YYYY-MM.jsonl (month of FetchedAt, UTC)
// and then deleted from the store. Callers must serialise runs, since each
// monthly file is rewritten with read-modify-write.
type SnapshotArchiver struct {
	store  SnapshotArchiveStore
	reader domain.BlobReader
	writer domain.BlobWriter
	logger *slog.Logger
}

// NewSnapshotArchiver creates a SnapshotArchiver.
func NewSnapshotArchiver(store SnapshotArchiveStore, reader domain.BlobReader, writer domain.BlobWriter, logger *slog.Logger) *SnapshotArchiver {
	return &SnapshotArchiver{
		store:  store,
		reader: reader,
		writer: writer,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveSnapshots archives every snapshot fetched before the cutoff and
// returns how many were archived. Rows are only deleted once every monthly
// file has been uploaded.
func (a *SnapshotArchiver) ArchiveSnapshots(ctx context.Context, before time.Time) (int64, error) {
	snaps, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive snapshots query: %w", err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}

	byMonth := make(map[string][]domain.DepthSnapshot)
	for _, s := range snaps {
		path := archivePath("depth", s.FetchedAt)
		byMonth[path] = append(byMonth[path], s)
	}
	paths := make([]string, 0, len(byMonth))
	for p := range byMonth {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := a.appendMonth(ctx, path, byMonth[path]); err != nil {
			return 0, err
		}
		a.logger.Info("archiver: uploaded snapshots",
			slog.String("path", path),
			slog.Int("count", len(byMonth[path])),
		)
	}

	deleted, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(snaps)), fmt.Errorf("s3blob: archive snapshots delete: %w", err)
	}
	if deleted != int64(len(snaps)) {
		a.logger.Warn("archiver: deleted row count differs from archived",
			slog.Int64("deleted", deleted),
			slog.Int("archived", len(snaps)),
		)
	}
	return int64(len(snaps)), nil
}

func (a *SnapshotArchiver) appendMonth(ctx context.Context, path string, snaps []domain.DepthSnapshot) error {
	var buf bytes.Buffer

	existing, err := a.reader.Get(ctx, path)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return fmt.Errorf("s3blob: archive read %s: %w", path, err)
	default:
		_, err = buf.ReadFrom(existing)
		existing.Close()
		if err != nil {
			return fmt.Errorf("s3blob: archive read %s: %w", path, err)
		}
		if n := buf.Len(); n > 0 && buf.Bytes()[n-1] != '\n' {
			buf.WriteByte('\n')
		}
	}

	if err := writeJSONL(&buf, snaps); err != nil {
		return fmt.Errorf("s3blob: archive marshal %s: %w", path, err)
	}

	if mw, ok := a.writer.(multipartWriter); ok && buf.Len() > multipartThreshold {
		err = mw.PutMultipart(ctx, path, &buf, jsonlContentType, 0)
	} else {
		err = a.writer.Put(ctx, path, &buf, jsonlContentType)
	}
	if err != nil {
		return fmt.Errorf("s3blob: archive upload %s: %w", path, err)
	}
	return nil
}

// archivePath builds the object key for a month partition, e.g.
// archive/depth/2025-01.jsonl.
func archivePath(kind string, t time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, t.UTC().Format("2006-01"))
}

// writeJSONL writes one compact JSON document per line.
func writeJSONL[T any](w io.Writer, records []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.Archiver = (*SnapshotArchiver)(nil)
