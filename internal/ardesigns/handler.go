package ardesigns

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/response"
)

// Lister is the read side the handler needs.
type Lister interface {
	FindAll(ctx context.Context) ([]models.ArDesign, error)
}

// Handler serves the AR design catalogue.
type Handler struct {
	repo   Lister
	logger *zap.Logger
}

// NewHandler creates an AR design handler.
func NewHandler(repo Lister, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /ar-designs.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.FindAll(c.Request.Context())
	if err != nil {
		h.logger.Error("list ar designs", zap.Error(err))
		response.Internal(c, "failed to list ar designs")
		return
	}
	response.OK(c, list)
}
