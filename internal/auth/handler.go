package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/expo-directory/backend/internal/models"
	"github.com/expo-directory/backend/pkg/apperr"
	"github.com/expo-directory/backend/pkg/response"
	"github.com/expo-directory/backend/pkg/utils"
)

const (
	// ContextExhibitorID is the gin context key holding the authenticated exhibitor ID.
	ContextExhibitorID = "exhibitor_id"
	// ContextExhibitorName is the gin context key holding the authenticated exhibitor name.
	ContextExhibitorName = "exhibitor_name"

	maxNameLength     = 100
	minPasswordLength = 6
)

// ExhibitorIDFrom returns the exhibitor ID set by the JWT middleware.
func ExhibitorIDFrom(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextExhibitorID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// Accounts is the exhibitor persistence the handler needs.
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Exhibitor, error)
	GetByName(ctx context.Context, name string) (*models.Exhibitor, error)
	Create(ctx context.Context, name, passwordHash string) (*models.Exhibitor, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate implements validation.Validatable.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, maxNameLength)),
		validation.Field(&r.Password, validation.Required, validation.RuneLength(minPasswordLength, 0), validation.Length(0, utils.MaxPasswordBytes)),
	)
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate implements validation.Validatable.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token     string                 `json:"token"`
	Exhibitor models.ExhibitorPublic `json:"exhibitor"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   Accounts
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo Accounts, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		h.writeError(c, "auth.Register", validationError("auth.Register", err))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		response.Internal(c, "failed to hash password")
		return
	}
	exhibitor, err := h.repo.Create(c.Request.Context(), req.Name, hash)
	if err != nil {
		h.writeError(c, "auth.Register", err)
		return
	}

	token, err := h.jwt.Generate(exhibitor.ID, exhibitor.Name)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("exhibitor registered", zap.String("exhibitor_id", exhibitor.ID.String()))
	response.Created(c, TokenResponse{Token: token, Exhibitor: exhibitor.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		h.writeError(c, "auth.Login", validationError("auth.Login", err))
		return
	}

	exhibitor, err := h.repo.GetByName(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, "auth.Login", err)
		return
	}
	if exhibitor == nil || !utils.CheckPassword(req.Password, exhibitor.Password) {
		response.Unauthorized(c, "invalid name or password")
		return
	}

	token, err := h.jwt.Generate(exhibitor.ID, exhibitor.Name)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, Exhibitor: exhibitor.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	id, ok := ExhibitorIDFrom(c)
	if !ok {
		response.Unauthorized(c, "missing exhibitor context")
		return
	}
	exhibitor, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "auth.Me", err)
		return
	}
	if exhibitor == nil {
		response.Unauthorized(c, "exhibitor account not found")
		return
	}
	response.OK(c, exhibitor.ToPublic())
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	if response.Error(c, err) {
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	}
}

func validationError(op string, err error) error {
	fieldErrs, ok := err.(validation.Errors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for name, fe := range fieldErrs {
		fields[name] = fe.Error()
	}
	return apperr.Validation(op, fields)
}
