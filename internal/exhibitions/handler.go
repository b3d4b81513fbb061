package exhibitions

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expo-directory/backend/internal/auth"
	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/apperr"
	"github.com/expo-directory/backend/pkg/response"
)

// multipartOverhead is the slack allowed on top of the image limit for multipart framing.
const multipartOverhead = 64 * 1024

// UseCases is the service surface the handler drives.
type UseCases interface {
	Create(ctx context.Context, exhibitorID uuid.UUID, in InformationInput) (*View, error)
	GetMine(ctx context.Context, exhibitorID uuid.UUID) (*View, error)
	Get(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error)
	UpdateInformation(ctx context.Context, exhibitorID, exhibitionID uuid.UUID, upd InformationUpdate) (*View, error)
	Publish(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error)
	Unpublish(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error)
	Draft(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error)
	Delete(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) error
	UploadImage(ctx context.Context, exhibitorID, exhibitionID uuid.UUID, data []byte) (*View, error)
	DeleteImage(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error)
	GetImage(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*Image, error)
	ListPublished(ctx context.Context, q PublishedQuery) (*Page[View], error)
	GetPublished(ctx context.Context, exhibitionID uuid.UUID) (*View, error)
	GetPublishedImage(ctx context.Context, exhibitionID uuid.UUID) (*Image, error)
	CategoryCounts(ctx context.Context) ([]models.CategoryCount, error)
}

// CreateRequest is the body for POST /me/exhibitions. Image is base64 in JSON.
type CreateRequest struct {
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	Location     string     `json:"location"`
	Price        *int       `json:"price"`
	RequiredTime *int       `json:"required_time"`
	Comment      *string    `json:"comment"`
	ArDesignID   *uuid.UUID `json:"ar_design_id"`
	Image        []byte     `json:"image"`
}

// Handler handles exhibition HTTP endpoints.
type Handler struct {
	svc           UseCases
	maxImageBytes int
	logger        *zap.Logger
}

// NewHandler creates an exhibition handler. maxImageBytes <= 0 uses MaxImageBytes.
func NewHandler(svc UseCases, maxImageBytes int, logger *zap.Logger) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = MaxImageBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, maxImageBytes: maxImageBytes, logger: logger}
}

// Create handles POST /me/exhibitions.
func (h *Handler) Create(c *gin.Context) {
	exhibitorID, ok := h.caller(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Image != nil {
		if err := CheckImage(req.Image, h.maxImageBytes); err != nil {
			h.fail(c, "create", err)
			return
		}
	}
	view, err := h.svc.Create(c.Request.Context(), exhibitorID, InformationInput{
		Title:        req.Title,
		Category:     models.Category(strings.TrimSpace(req.Category)),
		Location:     req.Location,
		Price:        req.Price,
		RequiredTime: req.RequiredTime,
		Comment:      req.Comment,
		ArDesignID:   req.ArDesignID,
		Image:        req.Image,
	})
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	response.Created(c, view)
}

// GetMine handles GET /me/exhibition.
func (h *Handler) GetMine(c *gin.Context) {
	exhibitorID, ok := h.caller(c)
	if !ok {
		return
	}
	view, err := h.svc.GetMine(c.Request.Context(), exhibitorID)
	if err != nil {
		h.fail(c, "get mine", err)
		return
	}
	response.OK(c, view)
}

// Get handles GET /me/exhibitions/:id.
func (h *Handler) Get(c *gin.Context) {
	h.owned(c, "get", h.svc.Get)
}

// Update handles PATCH /me/exhibitions/:id. Absent keys are kept and null clears.
func (h *Handler) Update(c *gin.Context) {
	exhibitorID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}
	var upd InformationUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if img, set := upd.Image.Value(); set {
		if err := CheckImage(img, h.maxImageBytes); err != nil {
			h.fail(c, "update", err)
			return
		}
	}
	view, err := h.svc.UpdateInformation(c.Request.Context(), exhibitorID, id, upd)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	response.OK(c, view)
}

// Delete handles DELETE /me/exhibitions/:id.
func (h *Handler) Delete(c *gin.Context) {
	exhibitorID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), exhibitorID, id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	response.NoContent(c)
}

// Publish handles POST /me/exhibitions/:id/publish.
func (h *Handler) Publish(c *gin.Context) {
	h.owned(c, "publish", h.svc.Publish)
}

// Unpublish handles POST /me/exhibitions/:id/unpublish.
func (h *Handler) Unpublish(c *gin.Context) {
	h.owned(c, "unpublish", h.svc.Unpublish)
}

// Draft handles POST /me/exhibitions/:id/draft.
func (h *Handler) Draft(c *gin.Context) {
	h.owned(c, "draft", h.svc.Draft)
}

// UploadImage handles PUT /me/exhibitions/:id/image. The image is the multipart
// field "image" or, for any other content type, the raw body.
func (h *Handler) UploadImage(c *gin.Context) {
	exhibitorID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}
	data, err := h.readImage(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c, "image exceeds the upload limit")
			return
		}
		h.fail(c, "upload image", err)
		return
	}
	if err := CheckImage(data, h.maxImageBytes); err != nil {
		h.fail(c, "upload image", err)
		return
	}
	view, err := h.svc.UploadImage(c.Request.Context(), exhibitorID, id, data)
	if err != nil {
		h.fail(c, "upload image", err)
		return
	}
	response.OK(c, view)
}

// GetImage handles GET /me/exhibitions/:id/image.
func (h *Handler) GetImage(c *gin.Context) {
	exhibitorID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}
	img, err := h.svc.GetImage(c.Request.Context(), exhibitorID, id)
	if err != nil {
		h.fail(c, "get image", err)
		return
	}
	c.Header("Cache-Control", "private, no-cache")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// DeleteImage handles DELETE /me/exhibitions/:id/image.
func (h *Handler) DeleteImage(c *gin.Context) {
	h.owned(c, "delete image", h.svc.DeleteImage)
}

// List handles GET /exhibitions.
func (h *Handler) List(c *gin.Context) {
	q := PublishedQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	fields := map[string]string{}
	q.Page = intQuery(c, "page", fields)
	q.PerPage = intQuery(c, "per_page", fields)
	if len(fields) > 0 {
		response.Invalid(c, "invalid query", fields)
		return
	}
	page, err := h.svc.ListPublished(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	response.OK(c, page)
}

// Categories handles GET /exhibitions/categories.
func (h *Handler) Categories(c *gin.Context) {
	counts, err := h.svc.CategoryCounts(c.Request.Context())
	if err != nil {
		h.fail(c, "category counts", err)
		return
	}
	response.OK(c, counts)
}

// GetPublished handles GET /exhibitions/:id.
func (h *Handler) GetPublished(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	view, err := h.svc.GetPublished(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get published", err)
		return
	}
	response.OK(c, view)
}

// GetPublishedImage handles GET /exhibitions/:id/image.
func (h *Handler) GetPublishedImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	img, err := h.svc.GetPublishedImage(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get published image", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

type ownedCall func(ctx context.Context, exhibitorID, exhibitionID uuid.UUID) (*View, error)

func (h *Handler) owned(c *gin.Context, action string, call ownedCall) {
	exhibitorID, id, ok := h.callerAndID(c)
	if !ok {
		return
	}
	view, err := call(c.Request.Context(), exhibitorID, id)
	if err != nil {
		h.fail(c, action, err)
		return
	}
	response.OK(c, view)
}

func (h *Handler) caller(c *gin.Context) (uuid.UUID, bool) {
	id, ok := auth.ExhibitorIDFrom(c)
	if !ok {
		response.Unauthorized(c, "missing exhibitor context")
	}
	return id, ok
}

func (h *Handler) callerAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	exhibitorID, ok := h.caller(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := pathID(c)
	return exhibitorID, id, ok
}

func (h *Handler) readImage(c *gin.Context) ([]byte, error) {
	limit := int64(h.maxImageBytes) + 1
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
		fh, err := c.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, apperr.Validation("exhibitions.UploadImage", map[string]string{"image": "multipart field is required"})
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, limit))
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(c.Request.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fail writes err through the shared error mapping; only unexpected errors are logged.
func (h *Handler) fail(c *gin.Context, action string, err error) {
	if response.Error(c, err) {
		h.logger.Error("exhibition request failed", zap.String("action", action), zap.Error(err))
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid exhibition id")
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, fields map[string]string) *int {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		fields[key] = "must be an integer"
		return nil
	}
	return &n
}
