package sessions

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jab-consulting/portal/internal/models"
	"github.com/jab-consulting/portal/pkg/queue"
	"github.com/jab-consulting/portal/pkg/response"
)

// Lister fetches all session records with a server-side sort hint.
type Lister interface {
	ListAll(ctx context.Context, direction string) ([]models.Session, error)
}

// Handler handles session HTTP endpoints.
type Handler struct {
	store  Lister
	queue  *queue.Queue
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a sessions handler. The queue is optional; without it
// the sync trigger endpoint reports unavailable.
func NewHandler(store Lister, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, queue: q, logger: logger, now: time.Now}
}

// List handles GET /api/sessions?type=upcoming|past. Unlike registration
// this path fails hard on a store error: there is no partial result worth
// returning.
func (h *Handler) List(c *gin.Context) {
	listType := c.DefaultQuery("type", ListUpcoming)
	direction := "asc"
	if listType == ListPast {
		direction = "desc"
	}

	all, err := h.store.ListAll(c.Request.Context(), direction)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		response.Internal(c, "failed to fetch sessions")
		return
	}

	events := Partition(all, listType, h.now())
	response.OK(c, gin.H{"events": events})
}

// TriggerSync handles POST /api/sessions/sync by enqueueing a sync job for
// the worker.
func (h *Handler) TriggerSync(c *gin.Context) {
	if h.queue == nil {
		response.ServiceUnavailable(c, "sync queue not configured")
		return
	}
	var req struct {
		Query          string `json:"query"`
		WindowPastDays int    `json:"windowPastDays"`
	}
	_ = c.ShouldBindJSON(&req) // empty body is fine; defaults apply

	jobID, err := h.queue.EnqueueSessionSync(c.Request.Context(), queue.SessionSyncPayload{
		Query:          req.Query,
		WindowPastDays: req.WindowPastDays,
	})
	if err != nil {
		h.logger.Error("enqueue sync failed", zap.Error(err))
		response.Internal(c, "failed to enqueue sync")
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID})
}
