package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jab-consulting/portal/pkg/response"
)

// RegisterRequest is the body for POST /api/register.
type RegisterRequest struct {
	EventID       string `json:"eventId"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Name          string `json:"name"`
	IsWaitlist    bool   `json:"isWaitlist"`
	WaitlistTrack string `json:"waitlistTrack"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register handles POST /api/register. Responds 200 even when downstream
// writes failed; only invalid input is a client error.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	registrationID, err := h.svc.Register(c.Request.Context(), RegisterInput{
		EventID:       req.EventID,
		Email:         req.Email,
		Phone:         req.Phone,
		Name:          req.Name,
		Waitlist:      req.IsWaitlist,
		WaitlistTrack: req.WaitlistTrack,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}

	response.OK(c, gin.H{
		"message":         "Registration successful",
		"registration_id": registrationID,
	})
}

// Confirm handles GET /api/confirm?token=. Unlike registration this path is
// not best-effort: a store failure fails the request.
func (h *Handler) Confirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "no confirmation token provided")
		return
	}
	if err := h.svc.Confirm(c.Request.Context(), token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			response.NotFound(c, "Invalid or expired token.")
			return
		}
		h.logger.Error("confirm failed", zap.Error(err))
		response.Internal(c, "Internal system error during confirmation.")
		return
	}
	response.OK(c, gin.H{"message": "Registration confirmed"})
}
