package authapi

import (
	"time"

	"tasknest/internal/identity"
)

// Header names for credential exchange.
const (
	HeaderAccessToken  = "x-access-token"
	HeaderRefreshToken = "x-refresh-token"
	HeaderUserID       = "x-user-id"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse is the public projection of a user. It never carries
// the password hash or the session list.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
