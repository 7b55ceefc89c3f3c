package models

import (
	"math"
	"net/mail"
	"regexp"
	"strings"

	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	pstrings "civicchain/pkg/platform/strings"
)

const (
	maxDescriptionLength = 5000
	maxFieldLength       = 256
	maxNoteLength        = 1000
)

var txHashPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{1,128}$`)

type ReporterInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CreateRequest struct {
	// GrievanceID is optional. A client retrying a submission may send the
	// id it was given earlier; a second create with that id conflicts.
	GrievanceID     string        `json:"grievance_id"`
	Description     string        `json:"description"`
	Department      string        `json:"department"`
	Region          string        `json:"region"`
	Category        string        `json:"category"`
	Priority        string        `json:"priority"`
	Reporter        ReporterInput `json:"reporter"`
	TransactionHash string        `json:"transaction_hash"`
	BlockNumber     *int64        `json:"block_number"`

	parsedID id.GrievanceID
}

func (r *CreateRequest) Normalize() {
	if r == nil {
		return
	}
	r.GrievanceID = strings.TrimSpace(r.GrievanceID)
	r.Description = strings.TrimSpace(r.Description)
	r.Department = strings.ToLower(strings.TrimSpace(r.Department))
	r.Region = strings.TrimSpace(r.Region)
	r.Category = strings.TrimSpace(r.Category)
	r.Priority = strings.ToLower(strings.TrimSpace(r.Priority))
	r.Reporter.Name = strings.TrimSpace(r.Reporter.Name)
	r.Reporter.Email = strings.ToLower(strings.TrimSpace(r.Reporter.Email))
	r.Reporter.Phone = strings.TrimSpace(r.Reporter.Phone)
	r.Reporter.Address = strings.TrimSpace(r.Reporter.Address)
	r.TransactionHash = strings.TrimSpace(r.TransactionHash)
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.GrievanceID != "" {
		parsed, err := id.ParseGrievanceID(r.GrievanceID)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "grievance_id is invalid")
		}
		r.parsedID = parsed
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if len(r.Description) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeValidation, "description is too long")
	}
	if r.Region == "" {
		return dErrors.New(dErrors.CodeValidation, "region is required")
	}
	for name, v := range map[string]string{
		"department": r.Department,
		"region":     r.Region,
		"category":   r.Category,
	} {
		if len(v) > maxFieldLength {
			return dErrors.Newf(dErrors.CodeValidation, "%s is too long", name)
		}
	}
	if r.Priority != "" && !Priority(r.Priority).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "priority must be one of low, medium, high, urgent")
	}
	if r.Reporter.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "reporter.name is required")
	}
	if r.Reporter.Email != "" {
		if addr, err := mail.ParseAddress(r.Reporter.Email); err != nil || addr.Address != r.Reporter.Email {
			return dErrors.New(dErrors.CodeValidation, "reporter.email is invalid")
		}
	}
	if r.TransactionHash != "" && !txHashPattern.MatchString(r.TransactionHash) {
		return dErrors.New(dErrors.CodeValidation, "transaction_hash must be hex")
	}
	if r.BlockNumber != nil && *r.BlockNumber < 0 {
		return dErrors.New(dErrors.CodeValidation, "block_number must not be negative")
	}
	return nil
}

// RequestedID returns the caller-supplied id, or "" when none was sent.
// Call after Validate.
func (r *CreateRequest) RequestedID() id.GrievanceID {
	return r.parsedID
}

type SetStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (r *SetStatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	r.Note = strings.TrimSpace(r.Note)
}

func (r *SetStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return validateStatusAndNote(r.Status, r.Note)
}

type BulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
	Note   string   `json:"note"`
}

func (r *BulkStatusRequest) Normalize() {
	if r == nil {
		return
	}
	r.IDs = pstrings.DedupeAndTrimUpper(r.IDs)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	r.Note = strings.TrimSpace(r.Note)
}

func (r *BulkStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids must not be empty")
	}
	return validateStatusAndNote(r.Status, r.Note)
}

func validateStatusAndNote(status, note string) error {
	if status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	if !Status(status).IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown status %q", status)
	}
	if len(note) > maxNoteLength {
		return dErrors.New(dErrors.CodeValidation, "note is too long")
	}
	return nil
}

// ListFilter narrows a listing. Empty fields match everything; set fields
// are combined with AND.
type ListFilter struct {
	Region     string
	Status     Status
	Department string
	Owner      id.AccountID
	Page       int
	Limit      int
}

// Offset is the zero-based index of the first item on the page. It
// saturates at math.MaxInt instead of wrapping.
func (f ListFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.Limit {
		return math.MaxInt
	}
	return (f.Page - 1) * f.Limit
}

// Matches reports whether g satisfies every set filter.
func (f ListFilter) Matches(g *Grievance) bool {
	if f.Region != "" && !strings.EqualFold(g.Region, f.Region) {
		return false
	}
	if f.Status != "" && g.Status != f.Status {
		return false
	}
	if f.Department != "" && !strings.EqualFold(g.Department, f.Department) {
		return false
	}
	if !f.Owner.IsNil() && g.OwnerAccountID != f.Owner {
		return false
	}
	return true
}
