package handler

import (
	"time"

	"civicchain/internal/identity/models"
)

// AccountResponse is the public view of an account. It never carries the
// credential hash or the identity fingerprint.
type AccountResponse struct {
	ID        string                  `json:"id"`
	Email     string                  `json:"email"`
	Profile   ProfileResponse         `json:"profile"`
	Status    models.AccountStatus    `json:"status"`
	Verified  bool                    `json:"verified"`
	Binding   *models.IdentityBinding `json:"identity_binding,omitempty"`
	LastLogin *time.Time              `json:"last_login,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

type ProfileResponse struct {
	FullName    string         `json:"full_name"`
	DateOfBirth string         `json:"date_of_birth"`
	Phone       string         `json:"phone"`
	Address     models.Address `json:"address"`
}

type SessionResponse struct {
	Account     *AccountResponse `json:"account"`
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int              `json:"expires_in"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

func toAccountResponse(a *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:    a.ID.String(),
		Email: a.Email,
		Profile: ProfileResponse{
			FullName:    a.Profile.FullName,
			DateOfBirth: a.Profile.DateOfBirth.Format("2006-01-02"),
			Phone:       a.Profile.Phone,
			Address:     a.Profile.Address,
		},
		Status:    a.Status,
		Verified:  a.IsVerified(),
		Binding:   a.Binding,
		LastLogin: a.LastLogin,
		CreatedAt: a.CreatedAt,
	}
}
