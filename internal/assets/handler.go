package assets

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jab-consulting/portal/pkg/response"
	"github.com/jab-consulting/portal/pkg/storage"
)

// Handler handles asset HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an assets handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Get handles GET /api/assets?type=flyer|highlights|folder&eventId=.
func (h *Handler) Get(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		response.BadRequest(c, "missing eventId")
		return
	}

	ctx := c.Request.Context()
	switch c.Query("type") {
	case "flyer":
		flyer, err := h.svc.Flyer(ctx, eventID)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.OK(c, gin.H{"data": flyer})
	case "highlights":
		files, err := h.svc.Highlights(ctx, eventID)
		if err != nil {
			h.fail(c, err)
			return
		}
		if files == nil {
			files = []storage.File{}
		}
		response.OK(c, gin.H{"data": files})
	case "folder":
		folder, err := h.svc.EventFolder(ctx, eventID, "")
		if err != nil {
			h.fail(c, err)
			return
		}
		response.OK(c, gin.H{"data": folder})
	default:
		response.BadRequest(c, "invalid type")
	}
}

// Upload handles POST /api/assets (multipart: eventId, file). Operator use;
// publishes highlight photos into the event's public folder.
func (h *Handler) Upload(c *gin.Context) {
	eventID := c.PostForm("eventId")
	if eventID == "" {
		response.BadRequest(c, "missing eventId")
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if fileHeader.Size > storage.MaxImageSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateImageType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer file.Close()

	url, err := h.svc.UploadImage(c.Request.Context(), eventID, fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"src": url})
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrFolderNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	h.logger.Error("asset request failed", zap.Error(err))
	response.Internal(c, "asset lookup failed")
}
