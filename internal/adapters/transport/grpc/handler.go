package grpc

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/dto"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/status"
	authsvc "github.com/vinylkeeper/vinylkeeper-back/internal/app/auth/service"
	colsvc "github.com/vinylkeeper/vinylkeeper-back/internal/app/collection/service"
	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
	"github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/model"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (model.Identity, error)
}

type Handler struct {
	auth        authsvc.Service
	collections colsvc.Service
	resolver    Resolver
	log         *zap.Logger
}

var (
	_ AuthServer        = (*Handler)(nil)
	_ CollectionsServer = (*Handler)(nil)
)

func NewHandler(auth authsvc.Service, collections colsvc.Service, resolver Resolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{auth: auth, collections: collections, resolver: resolver, log: logger}
}

/* ───────────────────────────── auth ───────────────────────────── */

func (h *Handler) Register(ctx context.Context, req *dto.RegisterDTO) (*dto.AuthResponse, error) {
	h.log.Info("gRPC Register", zap.String("user", authsvc.EmailFingerprint(req.Email)))

	pair, err := h.auth.Register(ctx, *req)
	if err != nil {
		return nil, mapError(err)
	}
	return h.issue(ctx, pair)
}

func (h *Handler) Login(ctx context.Context, req *dto.LoginDTO) (*dto.AuthResponse, error) {
	h.log.Info("gRPC Login", zap.String("user", authsvc.EmailFingerprint(req.Email)))

	pair, err := h.auth.Login(ctx, *req)
	if err != nil {
		return nil, mapError(err)
	}
	return h.issue(ctx, pair)
}

func (h *Handler) Refresh(ctx context.Context, _ *Empty) (*dto.AccessResponse, error) {
	raw := firstMD(ctx, MDRefreshToken)
	if raw == "" {
		return nil, mapError(customErrors.Unauthorized(customErrors.ErrTokenMalformed))
	}
	grant, err := h.auth.RefreshAccess(ctx, dto.RefreshDTO{RefreshToken: raw})
	if err != nil {
		return nil, mapError(err)
	}
	return &dto.AccessResponse{
		AccessToken: grant.AccessToken,
		ExpiresIn:   int64(grant.AccessTTL.Seconds()),
	}, nil
}

// RequestPasswordReset succeeds for unknown addresses and failed deliveries
// alike.
func (h *Handler) RequestPasswordReset(ctx context.Context, req *dto.ForgotPasswordDTO) (*Empty, error) {
	h.log.Info("gRPC RequestPasswordReset", zap.String("user", authsvc.EmailFingerprint(req.Email)))

	err := h.auth.RequestPasswordReset(ctx, *req)
	switch {
	case err == nil, customErrors.IsInvalidCredentials(err):
	case customErrors.IsNotification(err):
		h.log.Error("reset mail not delivered",
			zap.String("user", authsvc.EmailFingerprint(req.Email)), zap.Error(err))
	default:
		return nil, mapError(err)
	}
	return &Empty{}, nil
}

func (h *Handler) CompletePasswordReset(ctx context.Context, req *dto.ResetPasswordDTO) (*Empty, error) {
	if err := h.auth.CompletePasswordReset(ctx, *req); err != nil {
		return nil, mapError(err)
	}
	return &Empty{}, nil
}

func (h *Handler) ChangePassword(ctx context.Context, req *dto.ChangePasswordDTO) (*Empty, error) {
	id, err := h.resolver.Resolve(ctx, bearer(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	if err := h.auth.ChangePassword(ctx, id.UserID, *req); err != nil {
		return nil, mapError(err)
	}
	return &Empty{}, nil
}

func (h *Handler) Me(ctx context.Context, _ *Empty) (*dto.UserResponse, error) {
	id, err := h.resolver.Resolve(ctx, bearer(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	user, err := h.auth.Me(ctx, id.UserID)
	if err != nil {
		return nil, mapError(err)
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// Validate lets other services check an access token without a key of
// their own.
func (h *Handler) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	id, err := h.resolver.Resolve(ctx, req.AccessToken)
	if err != nil {
		return nil, mapError(err)
	}
	return &ValidateResponse{UserID: id.UserID.String(), Role: id.Role.String()}, nil
}

/* ───────────────────────────── collections ───────────────────────────── */

func (h *Handler) CreateCollection(ctx context.Context, req *dto.CreateCollectionDTO) (*dto.CollectionResponse, error) {
	c, err := h.collections.Create(ctx, bearer(ctx), *req)
	if err != nil {
		return nil, mapError(err)
	}
	resp := dto.NewCollectionResponse(c)
	return &resp, nil
}

func (h *Handler) ListMyCollections(ctx context.Context, _ *Empty) (*CollectionList, error) {
	cs, err := h.collections.ListMine(ctx, bearer(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return &CollectionList{Collections: dto.NewCollectionList(cs)}, nil
}

func (h *Handler) ListPublicCollections(ctx context.Context, req *ListPublicRequest) (*CollectionList, error) {
	cs, err := h.collections.ListPublic(ctx, req.Limit, req.Offset)
	if err != nil {
		return nil, mapError(err)
	}
	return &CollectionList{Collections: dto.NewCollectionList(cs)}, nil
}

func (h *Handler) GetCollection(ctx context.Context, req *CollectionID) (*dto.CollectionResponse, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, mapError(err)
	}
	c, err := h.collections.Get(ctx, bearer(ctx), id)
	if err != nil {
		return nil, mapError(err)
	}
	resp := dto.NewCollectionResponse(c)
	return &resp, nil
}

func (h *Handler) UpdateCollection(ctx context.Context, req *UpdateCollectionRequest) (*dto.CollectionResponse, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, mapError(err)
	}
	c, err := h.collections.Update(ctx, bearer(ctx), id, req.UpdateCollectionDTO)
	if err != nil {
		return nil, mapError(err)
	}
	resp := dto.NewCollectionResponse(c)
	return &resp, nil
}

func (h *Handler) SwitchCollectionArea(ctx context.Context, req *SwitchAreaRequest) (*dto.CollectionResponse, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, mapError(err)
	}
	c, err := h.collections.SwitchArea(ctx, bearer(ctx), id, req.SwitchAreaDTO)
	if err != nil {
		return nil, mapError(err)
	}
	resp := dto.NewCollectionResponse(c)
	return &resp, nil
}

func (h *Handler) DeleteCollection(ctx context.Context, req *CollectionID) (*Empty, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, mapError(err)
	}
	if err := h.collections.Delete(ctx, bearer(ctx), id); err != nil {
		return nil, mapError(err)
	}
	return &Empty{}, nil
}

/* ───────────────────────────── helpers ───────────────────────────── */

// issue sends the refresh token back as header metadata and keeps it out
// of the response message.
func (h *Handler) issue(ctx context.Context, pair model.TokenPair) (*dto.AuthResponse, error) {
	if err := grpc.SetHeader(ctx, metadata.Pairs(MDRefreshToken, pair.RefreshToken)); err != nil {
		h.log.Warn("refresh token header not set", zap.Error(err))
	}
	resp := dto.NewAuthResponse(pair)
	return &resp, nil
}

func firstMD(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func bearer(ctx context.Context) string {
	scheme, token, ok := strings.Cut(firstMD(ctx, MDAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, customErrors.ErrNotFound
	}
	return id, nil
}

func mapError(err error) error {
	e := status.Of(err)
	return grpcstatus.Error(e.GRPC, e.Message)
}
