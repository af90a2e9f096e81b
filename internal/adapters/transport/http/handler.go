package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/dto"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/middleware"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/status"
	authsvc "github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/service"
	colsvc "github.com/vinylkeeper/vinylkeeper-back/internal/app/collection/service"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"go.uber.org/zap"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (model.Identity, error)
}

type HealthChecker interface {
	Check(ctx context.Context) error
}

type CookieConfig struct {
	Domain string
	Secure bool
}

type Handler struct {
	auth        authsvc.Service
	collections colsvc.Service
	resolver    Resolver
	health      HealthChecker
	cookies     CookieConfig
	log         *zap.Logger
}

func NewHandler(
	auth authsvc.Service,
	collections colsvc.Service,
	resolver Resolver,
	health HealthChecker,
	cookies CookieConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		auth:        auth,
		collections: collections,
		resolver:    resolver,
		health:      health,
		cookies:     cookies,
		log:         logger,
	}
}

/* ───────────────────────────── auth ───────────────────────────── */

func (h *Handler) register(c *gin.Context) {
	var body dto.RegisterDTO
	if !bind(c, &body) {
		return
	}
	h.log.Info("/auth/register", zap.String("user", authsvc.EmailFingerprint(body.Email)))

	pair, err := h.auth.Register(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	h.issueTokens(c, http.StatusCreated, pair)
}

func (h *Handler) login(c *gin.Context) {
	var body dto.LoginDTO
	if !bind(c, &body) {
		return
	}
	h.log.Info("/auth/login", zap.String("user", authsvc.EmailFingerprint(body.Email)))

	pair, err := h.auth.Login(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	h.issueTokens(c, http.StatusOK, pair)
}

// refresh reads the refresh token from its cookie only.
func (h *Handler) refresh(c *gin.Context) {
	raw, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || raw == "" {
		writeError(c, customErrors.Unauthorized(customErrors.ErrTokenMalformed))
		return
	}

	grant, err := h.auth.RefreshAccess(c.Request.Context(), dto.RefreshDTO{RefreshToken: raw})
	if err != nil {
		if customErrors.IsInvalidToken(err) {
			h.clearCookies(c)
		}
		writeError(c, err)
		return
	}

	h.setCookie(c, middleware.AccessCookie, grant.AccessToken, grant.AccessTTL, http.SameSiteLaxMode)
	c.JSON(http.StatusOK, dto.AccessResponse{
		AccessToken: grant.AccessToken,
		ExpiresIn:   int64(grant.AccessTTL.Seconds()),
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.clearCookies(c)
	c.Status(http.StatusNoContent)
}

// forgotPassword answers 202 whether or not the address is known and
// whether or not the mail went out.
func (h *Handler) forgotPassword(c *gin.Context) {
	var body dto.ForgotPasswordDTO
	if !bind(c, &body) {
		return
	}
	h.log.Info("/auth/forgot-password", zap.String("user", authsvc.EmailFingerprint(body.Email)))

	err := h.auth.RequestPasswordReset(c.Request.Context(), body)
	switch {
	case err == nil, customErrors.IsInvalidCredentials(err):
	case customErrors.IsNotification(err):
		h.log.Error("reset mail not delivered",
			zap.String("user", authsvc.EmailFingerprint(body.Email)), zap.Error(err))
	default:
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the address is registered, a reset link is on its way"})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var body dto.ResetPasswordDTO
	if !bind(c, &body) {
		return
	}
	if err := h.auth.CompletePasswordReset(c.Request.Context(), body); err != nil {
		writeError(c, err)
		return
	}
	h.clearCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) changePassword(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var body dto.ChangePasswordDTO
	if !bind(c, &body) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), id.UserID, body); err != nil {
		writeError(c, err)
		return
	}
	h.clearCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	user, err := h.auth.Me(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

/* ───────────────────────────── collections ───────────────────────────── */

func (h *Handler) createCollection(c *gin.Context) {
	var body dto.CreateCollectionDTO
	if !bind(c, &body) {
		return
	}
	col, err := h.collections.Create(c.Request.Context(), middleware.AccessToken(c), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCollectionResponse(col))
}

func (h *Handler) listMyCollections(c *gin.Context) {
	cols, err := h.collections.ListMine(c.Request.Context(), middleware.AccessToken(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCollectionList(cols))
}

func (h *Handler) listPublicCollections(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	cols, err := h.collections.ListPublic(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCollectionList(cols))
}

func (h *Handler) getCollection(c *gin.Context) {
	id, ok := collectionID(c)
	if !ok {
		return
	}
	col, err := h.collections.Get(c.Request.Context(), middleware.AccessToken(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCollectionResponse(col))
}

func (h *Handler) updateCollection(c *gin.Context) {
	id, ok := collectionID(c)
	if !ok {
		return
	}
	var body dto.UpdateCollectionDTO
	if !bind(c, &body) {
		return
	}
	col, err := h.collections.Update(c.Request.Context(), middleware.AccessToken(c), id, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCollectionResponse(col))
}

func (h *Handler) switchArea(c *gin.Context) {
	id, ok := collectionID(c)
	if !ok {
		return
	}
	var body dto.SwitchAreaDTO
	if !bind(c, &body) {
		return
	}
	col, err := h.collections.SwitchArea(c.Request.Context(), middleware.AccessToken(c), id, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCollectionResponse(col))
}

func (h *Handler) deleteCollection(c *gin.Context) {
	id, ok := collectionID(c)
	if !ok {
		return
	}
	if err := h.collections.Delete(c.Request.Context(), middleware.AccessToken(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

/* ───────────────────────────── misc ───────────────────────────── */

func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Check(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "time": time.Now().Unix()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}

/* ───────────────────────────── helpers ───────────────────────────── */

func (h *Handler) issueTokens(c *gin.Context, code int, pair model.TokenPair) {
	h.setCookie(c, middleware.AccessCookie, pair.AccessToken, pair.AccessTTL, http.SameSiteLaxMode)
	h.setCookie(c, middleware.RefreshCookie, pair.RefreshToken, pair.RefreshTTL, http.SameSiteStrictMode)
	c.JSON(code, dto.NewAuthResponse(pair))
}

func (h *Handler) setCookie(c *gin.Context, name, value string, ttl time.Duration, site http.SameSite) {
	c.SetSameSite(site)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *Handler) clearCookies(c *gin.Context) {
	h.setCookie(c, middleware.AccessCookie, "", -time.Second, http.SameSiteLaxMode)
	h.setCookie(c, middleware.RefreshCookie, "", -time.Second, http.SameSiteStrictMode)
}

func (h *Handler) identity(c *gin.Context) (model.Identity, bool) {
	id, err := h.resolver.Resolve(c.Request.Context(), middleware.AccessToken(c))
	if err != nil {
		writeError(c, err)
		return model.Identity{}, false
	}
	return id, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, customErrors.NewInvalidArgument("malformed request body"))
		return false
	}
	return true
}

func collectionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// an id that cannot exist is reported like a missing collection
		writeError(c, customErrors.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	e := status.Of(err)
	resp := dto.ErrorResponse{Error: e.Message, Retryable: e.Retryable}
	if e.HTTP == http.StatusBadRequest {
		resp.Details = err.Error()
	}
	if e.HTTP >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if e.Retryable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(e.HTTP, resp)
}
