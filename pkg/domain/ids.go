// Package domain holds typed identifiers shared across modules.
//
// Identifiers are parsed once at trust boundaries (HTTP handlers, store
// scans) and passed around as distinct types so an AccountID can never be
// handed to something expecting an AdminSessionID.
package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "civicchain/pkg/domain-errors"
)

type (
	AccountID      uuid.UUID
	AdminSessionID uuid.UUID
	AuditEventID   uuid.UUID
)

func (id AccountID) String() string      { return uuid.UUID(id).String() }
func (id AdminSessionID) String() string { return uuid.UUID(id).String() }
func (id AuditEventID) String() string   { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AdminSessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func NewAccountID() AccountID           { return AccountID(uuid.New()) }
func NewAdminSessionID() AdminSessionID { return AdminSessionID(uuid.New()) }
func NewAuditEventID() AuditEventID     { return AuditEventID(uuid.New()) }

func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account ID")
	return AccountID(u), err
}

func ParseAdminSessionID(s string) (AdminSessionID, error) {
	u, err := parseUUID(s, "admin session ID")
	return AdminSessionID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// GrievanceID is the public reference of a grievance, shaped
// GRV-<year>-<serial>. New serials have 10 digits; 6-digit serials issued
// before the space was widened still parse.
type GrievanceID string

// grievanceSerialSpace keeps random collisions rare well past millions of
// grievances per year.
const grievanceSerialSpace = 10_000_000_000

var grievanceIDPattern = regexp.MustCompile(`^GRV-\d{4}-(\d{6}|\d{10})$`)

func (id GrievanceID) String() string { return string(id) }

// NewGrievanceID draws a random serial within the given year. Callers that
// need uniqueness must insert-if-absent and retry on collision.
func NewGrievanceID(now time.Time) GrievanceID {
	n, err := rand.Int(rand.Reader, big.NewInt(grievanceSerialSpace))
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(fmt.Sprintf("grievance id entropy: %v", err))
	}
	return GrievanceID(fmt.Sprintf("GRV-%04d-%010d", now.UTC().Year(), n.Int64()))
}

// ParseGrievanceID normalizes case and rejects anything not matching the
// public reference shape.
func ParseGrievanceID(s string) (GrievanceID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "grievance ID cannot be empty")
	}
	if !grievanceIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid grievance ID")
	}
	return GrievanceID(s), nil
}
