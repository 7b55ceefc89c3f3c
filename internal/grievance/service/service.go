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

	"civicchain/internal/grievance/metrics"
	"civicchain/internal/grievance/models"
	"civicchain/internal/platform/config"
	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/platform/audit"
	"civicchain/pkg/platform/sentinel"
	"civicchain/pkg/requestcontext"
)

// Store persists grievances. Transition must run fn and persist its result
// atomically with respect to other transitions of the same grievance.
type Store interface {
	CreateIfAbsent(ctx context.Context, g *models.Grievance) error
	FindByID(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error)
	Transition(ctx context.Context, grievanceID id.GrievanceID, fn func(*models.Grievance) error) (*models.Grievance, error)
	ExistingIDs(ctx context.Context, ids []id.GrievanceID) (map[id.GrievanceID]bool, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Grievance, int, error)
	Counts(ctx context.Context) (*models.Counts, error)
}

// Suggester fills in a department or priority the citizen left out.
type Suggester interface {
	SuggestDepartment(ctx context.Context, text string) (department, category string)
	SuggestPriority(ctx context.Context, text string) models.Priority
}

// AccountCounter reports the number of registered accounts.
type AccountCounter interface {
	Count(ctx context.Context) (int, error)
}

// EventPublisher delivers status-change notifications to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	maxIDAttempts = 5
	// maxPage keeps (page-1)*limit well inside int and Postgres OFFSET range.
	maxPage = 1_000_000
)

type Service struct {
	store          Store
	policy         models.TransitionPolicy
	cfg            config.GrievanceConfig
	suggester      Suggester
	accounts       AccountCounter
	events         EventPublisher
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	newID          func(time.Time) id.GrievanceID
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithSuggester(suggester Suggester) Option {
	return func(s *Service) {
		s.suggester = suggester
	}
}

func WithAccountCounter(counter AccountCounter) Option {
	return func(s *Service) {
		s.accounts = counter
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

// WithPolicy overrides the policy named by the configuration.
func WithPolicy(policy models.TransitionPolicy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithIDGenerator replaces the random id source, for tests.
func WithIDGenerator(fn func(time.Time) id.GrievanceID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(store Store, cfg config.GrievanceConfig, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("grievance store is required")
	}
	policy, err := models.PolicyByName(cfg.TransitionRule)
	if err != nil {
		return nil, err
	}
	if cfg.BulkConcurrency <= 0 {
		cfg.BulkConcurrency = 1
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}

	s := &Service{
		store:  store,
		policy: policy,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("civicchain/grievance"),
		newID:  id.NewGrievanceID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create raises a grievance for the authenticated citizen. A missing
// department or priority is filled from the suggester; the suggester never
// causes Create to fail.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.Grievance, error) {
	ctx, span := s.tracer.Start(ctx, "grievance.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fields := models.Fields{
		OwnerAccountID: requestcontext.AccountID(ctx),
		OwnerRef:       requestcontext.AccountEmail(ctx),
		Reporter: models.Reporter{
			Name:    req.Reporter.Name,
			Email:   req.Reporter.Email,
			Phone:   req.Reporter.Phone,
			Address: req.Reporter.Address,
		},
		Description:     req.Description,
		Department:      req.Department,
		Region:          req.Region,
		Category:        req.Category,
		Priority:        models.Priority(req.Priority),
		TransactionHash: req.TransactionHash,
		BlockNumber:     req.BlockNumber,
	}
	if fields.Reporter.Email == "" {
		fields.Reporter.Email = fields.OwnerRef
	}
	if fields.Reporter.Email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reporter.email is required")
	}
	if err := s.fillSuggestions(ctx, &fields); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	g, err := s.insert(ctx, req.RequestedID(), fields, now)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create failed")
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("grievance_id", g.ID.String()),
		attribute.String("department", g.Department),
	)
	s.emit(ctx, audit.EventGrievanceRaised, g.ID.String(), "")
	s.metrics.IncCreated()
	return g, nil
}

func (s *Service) fillSuggestions(ctx context.Context, fields *models.Fields) error {
	if fields.Department == "" {
		if s.suggester == nil {
			return dErrors.New(dErrors.CodeValidation, "department is required")
		}
		dept, category := s.suggester.SuggestDepartment(ctx, fields.Description)
		fields.Department = dept
		if fields.Category == "" {
			fields.Category = category
		}
	}
	if fields.Priority == "" {
		fields.Priority = models.PriorityMedium
		if s.suggester != nil {
			if p := s.suggester.SuggestPriority(ctx, fields.Description); p.IsValid() {
				fields.Priority = p
			}
		}
	}
	return nil
}

// insert stores a new grievance. A requested id is tried once; generated
// ids are redrawn on collision.
func (s *Service) insert(ctx context.Context, requested id.GrievanceID, fields models.Fields, now time.Time) (*models.Grievance, error) {
	attempts := maxIDAttempts
	if requested != "" {
		attempts = 1
	}
	for range attempts {
		gid := requested
		if gid == "" {
			gid = s.newID(now)
		}
		g, err := models.NewGrievance(gid, fields, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return nil, dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return nil, err
		}

		err = s.store.CreateIfAbsent(ctx, g)
		if err == nil {
			return g, nil
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create grievance")
		}
		if requested != "" {
			return nil, dErrors.Newf(dErrors.CodeConflict, "grievance %s already exists", requested)
		}
		s.logger.InfoContext(ctx, "grievance id collision, drawing another",
			"request_id", requestcontext.RequestID(ctx),
			"grievance_id", gid.String(),
		)
	}
	return nil, dErrors.New(dErrors.CodeInternal, "failed to allocate a grievance id")
}

func (s *Service) Get(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error) {
	g, err := s.store.FindByID(ctx, grievanceID)
	if err != nil {
		return nil, s.translateLookup(err, grievanceID, "failed to load grievance")
	}
	return g, nil
}

// SetStatus moves one grievance to a new status and appends a timeline
// entry. An empty note becomes "Status updated to <status>".
func (s *Service) SetStatus(ctx context.Context, grievanceID id.GrievanceID, req *models.SetStatusRequest) (*models.Grievance, error) {
	ctx, span := s.tracer.Start(ctx, "grievance.SetStatus", trace.WithAttributes(
		attribute.String("grievance_id", grievanceID.String()),
	))
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g, err := s.transition(ctx, grievanceID, models.Status(req.Status), req.Note)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transition failed")
		}
		return nil, err
	}
	return g, nil
}

func (s *Service) transition(ctx context.Context, grievanceID id.GrievanceID, status models.Status, note string) (*models.Grievance, error) {
	now := requestcontext.Now(ctx)
	var from models.Status
	g, err := s.store.Transition(ctx, grievanceID, func(g *models.Grievance) error {
		var applyErr error
		from, applyErr = g.ApplyStatus(s.policy, status, note, now)
		return applyErr
	})
	if err != nil {
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, coded
		}
		return nil, s.translateLookup(err, grievanceID, "failed to update grievance status")
	}

	s.afterTransition(ctx, g, from)
	return g, nil
}

func (s *Service) afterTransition(ctx context.Context, g *models.Grievance, from models.Status) {
	entry := g.LastEntry()
	s.emit(ctx, audit.EventGrievanceStatusChanged, g.ID.String(), string(from)+"->"+string(g.Status))
	s.metrics.IncTransition(string(g.Status))

	if s.events == nil {
		return
	}
	event := StatusChangedEvent{
		GrievanceID: g.ID.String(),
		From:        string(from),
		To:          string(g.Status),
		Note:        entry.Note,
		Department:  g.Department,
		Region:      g.Region,
		OccurredAt:  entry.Timestamp,
	}
	if err := s.events.Publish(ctx, RoutingKeyStatusChanged, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish status change",
			"request_id", requestcontext.RequestID(ctx),
			"grievance_id", g.ID.String(),
			"error", err,
		)
	}
}

func (s *Service) translateLookup(err error, grievanceID id.GrievanceID, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "grievance %s not found", grievanceID)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// List returns one page of grievances, newest first.
func (s *Service) List(ctx context.Context, filter models.ListFilter) (*models.Page, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", filter.Status)
	}
	if filter.Page < 0 || filter.Limit < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "page and limit must not be negative")
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = s.cfg.DefaultPageSize
	}
	filter.Limit = min(filter.Limit, s.cfg.MaxPageSize)
	if filter.Page > maxPage {
		return nil, dErrors.Newf(dErrors.CodeValidation, "page must be at most %d", maxPage)
	}

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list grievances")
	}
	return &models.Page{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Aggregate counts grievances by status, region and department. Order among
// equal counts is unspecified.
func (s *Service) Aggregate(ctx context.Context) (*models.Aggregate, error) {
	ctx, span := s.tracer.Start(ctx, "grievance.Aggregate")
	defer span.End()

	counts, err := s.store.Counts(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate grievances")
	}
	out := &models.Aggregate{Counts: *counts}
	if s.accounts != nil {
		n, err := s.accounts.Count(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count accounts")
		}
		out.TotalAccounts = n
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject, reason string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{Action: string(action), Subject: subject, Reason: reason}
	switch {
	case !requestcontext.AccountID(ctx).IsNil():
		event.ActorID = requestcontext.AccountID(ctx).String()
	case requestcontext.AdminEmail(ctx) != "":
		event.ActorID = requestcontext.AdminEmail(ctx)
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"error", err,
		)
	}
}
