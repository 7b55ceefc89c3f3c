package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"civicchain/internal/identity/metrics"
	"civicchain/internal/identity/models"
	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/platform/audit"
	"civicchain/pkg/platform/secrets"
	"civicchain/pkg/platform/sentinel"
	"civicchain/pkg/requestcontext"
)

// AccountStore is the credential persistence port.
type AccountStore interface {
	CreateIfEmailAvailable(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	RecordLogin(ctx context.Context, accountID id.AccountID, at time.Time) error
	BindIdentity(ctx context.Context, accountID id.AccountID, fingerprint string, attrs models.DisclosedAttributes, now time.Time) (*models.Account, models.BindOutcome, error)
	Count(ctx context.Context) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns citizen credentials: registration, authentication and the
// one-time binding of a real-world identity.
type Service struct {
	accounts       AccountStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(accounts AccountStore, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	s := &Service{
		accounts: accounts,
		logger:   slog.Default(),
		tracer:   otel.Tracer("civicchain/identity"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an active account. Emails are unique case-insensitively.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Register")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := secrets.Hash(req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	account, err := models.NewAccount(id.NewAccountID(), req.Email, hash, req.Profile(), requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.accounts.CreateIfEmailAvailable(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	span.SetAttributes(attribute.String("account_id", account.ID.String()))
	s.emit(ctx, audit.EventAccountRegistered, account.ID.String(), "")
	s.metrics.IncRegistration()
	return account, nil
}

// Authenticate checks a password. Every failure is the same Unauthorized
// error so callers cannot tell unknown emails from wrong passwords.
func (s *Service) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Authenticate")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			span.RecordError(err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
		}
		secrets.BurnCompare(req.Password)
		return nil, s.authFailed(ctx, req.Email, "unknown_email")
	}

	ok, err := secrets.Verify(req.Password, account.CredentialHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored credential hash is malformed",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", account.ID.String(),
			"error", err,
		)
		return nil, s.authFailed(ctx, req.Email, "malformed_hash")
	}
	if !ok {
		return nil, s.authFailed(ctx, req.Email, "bad_password")
	}
	if !account.IsActive() {
		return nil, s.authFailed(ctx, req.Email, "account_"+string(account.Status))
	}

	now := requestcontext.Now(ctx)
	if err := s.accounts.RecordLogin(ctx, account.ID, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login")
	}
	account.LastLogin = &now

	s.emit(ctx, audit.EventLoggedIn, account.ID.String(), "")
	s.metrics.IncLogin("success")
	return account, nil
}

func (s *Service) authFailed(ctx context.Context, email, reason string) error {
	s.logger.InfoContext(ctx, "citizen authentication failed",
		"request_id", requestcontext.RequestID(ctx),
		"reason", reason,
	)
	s.emit(ctx, audit.EventAuthFailed, email, reason)
	s.metrics.IncLogin("failure")
	trace.SpanFromContext(ctx).SetStatus(codes.Error, "authentication failed")
	return dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
}

// BindIdentity attaches an identity fingerprint to the account once.
// Binding the same fingerprint again returns the account unchanged.
func (s *Service) BindIdentity(ctx context.Context, accountID id.AccountID, req *models.BindIdentityRequest) (*models.Account, error) {
	ctx, span := s.tracer.Start(ctx, "identity.BindIdentity",
		trace.WithAttributes(attribute.String("account_id", accountID.String())))
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	account, outcome, err := s.accounts.BindIdentity(ctx, accountID, req.Fingerprint, req.Attributes, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			s.metrics.IncBinding("conflict")
			return nil, dErrors.New(dErrors.CodeConflict, "identity is already bound to another account")
		case errors.Is(err, sentinel.ErrInvalidState):
			s.metrics.IncBinding("conflict")
			return nil, dErrors.New(dErrors.CodeConflict, "account is already bound to a different identity")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind identity")
	}

	if outcome == models.BindApplied {
		s.emit(ctx, audit.EventIdentityBound, accountID.String(), "")
		s.metrics.IncBinding("bound")
	} else {
		s.metrics.IncBinding("unchanged")
	}
	return account, nil
}

func (s *Service) Get(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return account, nil
}

// Count returns the number of registered accounts.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.accounts.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count accounts")
	}
	return n, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject, reason string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{Action: string(action), Subject: subject, Reason: reason}
	if actor := requestcontext.AccountID(ctx); !actor.IsNil() {
		event.ActorID = actor.String()
	}
	err := s.auditPublisher.Emit(ctx, event)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	}
}
