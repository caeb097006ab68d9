package domain

import (
	"context"
	"time"
)

// DepthSnapshotStore persists processed books for history and archival.
type DepthSnapshotStore interface {
	Insert(ctx context.Context, snap DepthSnapshot) error
	Latest(ctx context.Context, market Market) (DepthSnapshot, error)
	ListBefore(ctx context.Context, before time.Time) ([]DepthSnapshot, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
