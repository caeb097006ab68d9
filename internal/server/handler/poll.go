package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// PollHandler requests an out-of-schedule depth poll.
type PollHandler struct {
	triggerCh chan<- struct{}
	logger    *slog.Logger
}

// NewPollHandler creates a PollHandler that sends on triggerCh. The poller
// must receive from the same channel.
func NewPollHandler(triggerCh chan<- struct{}, logger *slog.Logger) *PollHandler {
	return &PollHandler{triggerCh: triggerCh, logger: logger}
}

// TriggerPoll enqueues one poll of every configured market. A request made
// while an earlier one is still queued is folded into it.
// POST /api/orderbook/poll
func (h *PollHandler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	queued := false
	select {
	case h.triggerCh <- struct{}{}:
		queued = true
	default:
	}
	h.logger.InfoContext(r.Context(), "handler: depth poll requested", slog.Bool("queued", queued))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"queued":       queued,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
