package models

import (
	"time"

	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusInactive  AccountStatus = "inactive"
)

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusSuspended, AccountStatusInactive:
		return true
	}
	return false
}

type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type Profile struct {
	FullName    string    `json:"full_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Phone       string    `json:"phone"`
	Address     Address   `json:"address"`
}

// DisclosedAttributes are the facts a zero-knowledge identity proof reveals.
// They are recorded as presented; proof verification happens upstream.
type DisclosedAttributes struct {
	AgeOver18      bool      `json:"age_over_18"`
	Gender         string    `json:"gender,omitempty"`
	State          string    `json:"state"`
	Pincode        string    `json:"pincode"`
	SignalHash     string    `json:"signal_hash"`
	ProofTimestamp time.Time `json:"proof_timestamp"`
}

// IdentityBinding ties an account to one real-world identity fingerprint.
type IdentityBinding struct {
	Fingerprint string              `json:"-"`
	BoundAt     time.Time           `json:"bound_at"`
	Attributes  DisclosedAttributes `json:"attributes"`
}

// Account is a citizen credential record. CredentialHash never leaves the
// store layer in a response.
type Account struct {
	ID             id.AccountID
	Email          string
	CredentialHash string
	Profile        Profile
	Binding        *IdentityBinding
	Status         AccountStatus
	LastLogin      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAccount builds an active account. Email must already be normalized.
func NewAccount(accountID id.AccountID, email, credentialHash string, profile Profile, now time.Time) (*Account, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account id is required")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email is required")
	}
	if credentialHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credential hash is required")
	}
	return &Account{
		ID:             accountID,
		Email:          email,
		CredentialHash: credentialHash,
		Profile:        profile,
		Status:         AccountStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

func (a *Account) IsVerified() bool {
	return a.Binding != nil
}

// BindOutcome says what ApplyBinding did.
type BindOutcome int

const (
	BindApplied BindOutcome = iota
	// BindUnchanged means the account already carries this fingerprint.
	BindUnchanged
	// BindRejected means the account carries a different fingerprint.
	BindRejected
)

// ApplyBinding sets the binding once. It never replaces an existing one.
func (a *Account) ApplyBinding(fingerprint string, attrs DisclosedAttributes, now time.Time) BindOutcome {
	if a.Binding != nil {
		if a.Binding.Fingerprint == fingerprint {
			return BindUnchanged
		}
		return BindRejected
	}
	a.Binding = &IdentityBinding{Fingerprint: fingerprint, BoundAt: now, Attributes: attrs}
	a.UpdatedAt = now
	return BindApplied
}
