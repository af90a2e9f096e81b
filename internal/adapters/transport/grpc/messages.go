package grpc

import "github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/dto"

// Metadata keys. The refresh token travels in metadata, never in a message.
const (
	MDAuthorization = "authorization"
	MDRefreshToken  = "x-refresh-token"
)

type Empty struct{}

type ValidateRequest struct {
	AccessToken string `json:"access_token"`
}

type ValidateResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type CollectionID struct {
	ID string `json:"id"`
}

type ListPublicRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type CollectionList struct {
	Collections []dto.CollectionResponse `json:"collections"`
}

type UpdateCollectionRequest struct {
	ID string `json:"id"`
	dto.UpdateCollectionDTO
}

type SwitchAreaRequest struct {
	ID string `json:"id"`
	dto.SwitchAreaDTO
}
