package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"civicchain/internal/identity/models"
	"civicchain/internal/platform/postgres"
	id "civicchain/pkg/domain"
	"civicchain/pkg/platform/sentinel"
)

const (
	emailConstraint       = "accounts_email_lower_idx"
	fingerprintConstraint = "accounts_identity_fingerprint_key"
)

// Postgres persists accounts. Uniqueness of email and fingerprint is left
// to the database constraints so concurrent writers cannot race past them.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const accountColumns = `
	id, email, credential_hash, full_name, date_of_birth, phone,
	address_line1, address_line2, address_city, address_state, address_pincode,
	status, last_login, identity_fingerprint, identity_bound_at, identity_attrs,
	created_at, updated_at`

func (s *Postgres) CreateIfEmailAvailable(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL, NULL, NULL, NULL, $13, $14)
	`
	p := a.Profile
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Email, a.CredentialHash, p.FullName, p.DateOfBirth, p.Phone,
		p.Address.Line1, p.Address.Line2, p.Address.City, p.Address.State, p.Address.Pincode,
		string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, emailConstraint) {
			return fmt.Errorf("email %s: %w", a.Email, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, uuid.UUID(accountID))
	return scanAccount(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
	return scanAccount(row)
}

func (s *Postgres) RecordLogin(ctx context.Context, accountID id.AccountID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET last_login = $2, updated_at = $2 WHERE id = $1`,
		uuid.UUID(accountID), at,
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// BindIdentity is a single conditional UPDATE. The unique index on
// identity_fingerprint rejects a fingerprint held by another account even
// when two binds race.
// BindIdentity reports BindApplied only when this call's UPDATE wrote the
// binding; the stored bound_at is truncated to microseconds.
func (s *Postgres) BindIdentity(ctx context.Context, accountID id.AccountID, fingerprint string, attrs models.DisclosedAttributes, now time.Time) (*models.Account, models.BindOutcome, error) {
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		return nil, models.BindRejected, fmt.Errorf("marshal disclosed attributes: %w", err)
	}

	query := `
		UPDATE accounts
		SET identity_fingerprint = $2, identity_bound_at = $3, identity_attrs = $4, updated_at = $3
		WHERE id = $1 AND identity_fingerprint IS NULL
		RETURNING ` + accountColumns
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(accountID), fingerprint, now, attrsJSON)
	a, err := scanAccount(row)
	switch {
	case err == nil:
		return a, models.BindApplied, nil
	case postgres.IsUniqueViolation(err, fingerprintConstraint):
		return nil, models.BindRejected, fmt.Errorf("identity fingerprint: %w", sentinel.ErrAlreadyUsed)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, models.BindRejected, fmt.Errorf("bind identity: %w", err)
	}

	// No row updated: the account is missing or already bound.
	existing, err := s.FindByID(ctx, accountID)
	if err != nil {
		return nil, models.BindRejected, err
	}
	if existing.Binding != nil && existing.Binding.Fingerprint == fingerprint {
		return existing, models.BindUnchanged, nil
	}
	return nil, models.BindRejected, fmt.Errorf("account already bound: %w", sentinel.ErrInvalidState)
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		a           models.Account
		accountID   uuid.UUID
		status      string
		lastLogin   sql.NullTime
		fingerprint sql.NullString
		boundAt     sql.NullTime
		attrsJSON   []byte
	)
	err := row.Scan(
		&accountID, &a.Email, &a.CredentialHash, &a.Profile.FullName, &a.Profile.DateOfBirth, &a.Profile.Phone,
		&a.Profile.Address.Line1, &a.Profile.Address.Line2, &a.Profile.Address.City, &a.Profile.Address.State, &a.Profile.Address.Pincode,
		&status, &lastLogin, &fingerprint, &boundAt, &attrsJSON,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}

	a.ID = id.AccountID(accountID)
	a.Status = models.AccountStatus(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	if fingerprint.Valid {
		b := &models.IdentityBinding{Fingerprint: fingerprint.String, BoundAt: boundAt.Time}
		if len(attrsJSON) > 0 {
			if err := json.Unmarshal(attrsJSON, &b.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal disclosed attributes: %w", err)
			}
		}
		a.Binding = b
	}
	return &a, nil
}
