package rpc

import (
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
)

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type LoginRequest struct {
	Username          string `json:"username"`
	VerifierCandidate []byte `json:"verifierCandidate"`
}

type TokenResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type FetchRequest struct {
	Collection models.Collection `json:"collection"`
}

type FetchResponse struct {
	Documents []models.Record `json:"documents"`
}

type CommitRequest struct {
	Writes []remote.Write `json:"writes"`
}

type CommitResponse struct {
	Applied int `json:"applied"`
}

type ClearRequest struct {
	Collection models.Collection `json:"collection"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}

type WatchRequest struct {
	Collection models.Collection `json:"collection"`
}

// ChangeBatch is one message of a Watch stream.
type ChangeBatch struct {
	Changes []remote.Change `json:"changes"`
}
