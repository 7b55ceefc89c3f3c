package models

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	dErrors "civicchain/pkg/domain-errors"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
	maxFingerprintLen = 256
	maxFieldLength    = 256
	dateOfBirthLayout = "2006-01-02"
)

var (
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
	phonePattern   = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FullName    string  `json:"full_name"`
	DateOfBirth string  `json:"date_of_birth"`
	Phone       string  `json:"phone"`
	Address     Address `json:"address"`

	parsedDOB time.Time
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address.Line1 = strings.TrimSpace(r.Address.Line1)
	r.Address.Line2 = strings.TrimSpace(r.Address.Line2)
	r.Address.City = strings.TrimSpace(r.Address.City)
	r.Address.State = strings.TrimSpace(r.Address.State)
	r.Address.Pincode = strings.TrimSpace(r.Address.Pincode)
}

func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if len(r.Password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if len(r.Password) > maxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
	}
	if r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	if len(r.FullName) > maxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "full_name is too long")
	}
	dob, err := time.Parse(dateOfBirthLayout, r.DateOfBirth)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "date_of_birth must be YYYY-MM-DD")
	}
	r.parsedDOB = dob
	if !phonePattern.MatchString(r.Phone) {
		return dErrors.New(dErrors.CodeValidation, "phone is invalid")
	}
	if r.Address.Line1 == "" || r.Address.City == "" || r.Address.State == "" {
		return dErrors.New(dErrors.CodeValidation, "address line1, city and state are required")
	}
	if !pincodePattern.MatchString(r.Address.Pincode) {
		return dErrors.New(dErrors.CodeValidation, "address pincode must be 6 digits")
	}
	return nil
}

// Profile returns the validated profile. Call after Validate.
func (r *RegisterRequest) Profile() Profile {
	return Profile{
		FullName:    r.FullName,
		DateOfBirth: r.parsedDOB,
		Phone:       r.Phone,
		Address:     r.Address,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	if r != nil {
		r.Email = NormalizeEmail(r.Email)
	}
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

// BindIdentityRequest carries the nullifier of an identity proof and the
// attributes it disclosed.
type BindIdentityRequest struct {
	Fingerprint string              `json:"fingerprint"`
	Attributes  DisclosedAttributes `json:"attributes"`
}

func (r *BindIdentityRequest) Normalize() {
	if r == nil {
		return
	}
	r.Fingerprint = strings.TrimSpace(r.Fingerprint)
	r.Attributes.Gender = strings.TrimSpace(r.Attributes.Gender)
	r.Attributes.State = strings.TrimSpace(r.Attributes.State)
	r.Attributes.Pincode = strings.TrimSpace(r.Attributes.Pincode)
	r.Attributes.SignalHash = strings.TrimSpace(r.Attributes.SignalHash)
}

func (r *BindIdentityRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Fingerprint == "" {
		return dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	if len(r.Fingerprint) > maxFingerprintLen {
		return dErrors.New(dErrors.CodeValidation, "fingerprint is too long")
	}
	if r.Attributes.SignalHash == "" {
		return dErrors.New(dErrors.CodeValidation, "attributes.signal_hash is required")
	}
	if r.Attributes.ProofTimestamp.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "attributes.proof_timestamp is required")
	}
	return nil
}

// NormalizeEmail is the canonical form used for uniqueness and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(email) > maxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return nil
}
