package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"

	"dsnap/internal/platform/tracer"
	"dsnap/internal/policy"
	"dsnap/internal/registration/metrics"
	"dsnap/internal/registration/models"
	"dsnap/internal/registration/schema"
	"dsnap/internal/registration/search"
	"dsnap/internal/sentinel"
	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
	audit "dsnap/pkg/platform/audit"
	"dsnap/pkg/requestcontext"
)

// Store persists registration records.
// Error Contract:
//   - FindByID, Update and Delete return sentinel.ErrNotFound for unknown IDs
//   - Create returns sentinel.ErrAlreadyUsed for a duplicate ID
//   - Update returns mutate's error unchanged and stores nothing in that case
//   - List returns a non-nil slice ordered by created_at, then ID
type Store interface {
	Create(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, recordID id.RegistrationID) (*models.Record, error)
	List(ctx context.Context, filter search.Filter) ([]*models.Record, error)
	Update(ctx context.Context, recordID id.RegistrationID, mutate func(*models.Record) error) (*models.Record, error)
	Delete(ctx context.Context, recordID id.RegistrationID) error
}

type Option func(*Service)

// Service runs every registration operation: authorize, validate, persist, announce.
type Service struct {
	store   Store
	schema  *schema.Definition
	logger  *slog.Logger
	auditor audit.Emitter
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	newID   func() id.RegistrationID
}

func New(store Store, def *schema.Definition, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:  store,
		schema: def,
		logger: logger,
		tracer: tracer.NewNoop(),
		newID:  id.NewRegistrationID,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditor publishes a registration event after every successful write.
func WithAuditor(emitter audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = emitter
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithIDGenerator overrides record ID allocation.
func WithIDGenerator(fn func() id.RegistrationID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// SchemaVersion reports the active schema version.
func (s *Service) SchemaVersion() string {
	return s.schema.Version.String()
}

// Authorize checks the context actor against op without touching the store.
func (s *Service) Authorize(ctx context.Context, op policy.Operation) error {
	return policy.Authorize(op, requestcontext.Actor(ctx))
}

// Schema exports the active registration schema as a JSON Schema document.
func (s *Service) Schema(ctx context.Context) (*jsonschema.Schema, error) {
	if err := policy.Authorize(policy.OpReadSchema, requestcontext.Actor(ctx)); err != nil {
		return nil, err
	}
	return s.schema.Export(), nil
}

// Create validates a submission and stores it as a new record.
func (s *Service) Create(ctx context.Context, submission models.Document) (_ *models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "registration.create")
	defer func() { span.End(err) }()

	if err := policy.Authorize(policy.OpCreateRegistration, requestcontext.Actor(ctx)); err != nil {
		return nil, err
	}
	if err := s.validateRegistration(submission, "create"); err != nil {
		return nil, err
	}

	record, err := models.NewRecord(s.newID(), submission, now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, translateStoreError(err, "failed to save registration")
	}
	span.SetAttributes(tracer.String("registration_id", record.ID.String()))

	s.metrics.IncCreated()
	s.logger.InfoContext(ctx, "registration created",
		"registration_id", record.ID,
		"request_id", requestcontext.RequestID(ctx),
		"schema_version", s.SchemaVersion(),
	)
	s.emit(ctx, audit.EventRegistrationCreated, record.ID)
	return record, nil
}

// Get returns one record to authorized staff.
func (s *Service) Get(ctx context.Context, recordID id.RegistrationID) (_ *models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "registration.get", tracer.String("registration_id", recordID.String()))
	defer func() { span.End(err) }()

	if err := policy.Authorize(policy.OpGetRegistration, requestcontext.Actor(ctx)); err != nil {
		return nil, err
	}
	record, err := s.store.FindByID(ctx, recordID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load registration")
	}
	return record, nil
}

// Search lists records whose latest document matches every predicate in filter.
func (s *Service) Search(ctx context.Context, filter search.Filter) (_ []*models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "registration.search", tracer.Int("predicates", len(filter.Predicates)))
	defer func() { span.End(err) }()

	if err := policy.Authorize(policy.OpListRegistrations, requestcontext.Actor(ctx)); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, translateStoreError(err, "failed to search registrations")
	}
	span.SetAttributes(tracer.Int("results", len(records)))
	s.metrics.ObserveSearchResults(len(records))
	s.logger.DebugContext(ctx, "registration search",
		"params", filter.ParamNames(),
		"results", len(records),
	)
	return records, nil
}

// Update replaces latest_data wholesale. original_data never changes.
func (s *Service) Update(ctx context.Context, recordID id.RegistrationID, doc models.Document) (_ *models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "registration.update", tracer.String("registration_id", recordID.String()))
	defer func() { span.End(err) }()

	actor := requestcontext.Actor(ctx)
	if err := policy.Authorize(policy.OpUpdateRegistration, actor); err != nil {
		return nil, err
	}

	at := now(ctx)
	record, err := s.store.Update(ctx, recordID, func(r *models.Record) error {
		if err := s.validateRegistration(doc, "update"); err != nil {
			return err
		}
		r.ReplaceLatest(doc, actor.StaffID, at)
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, "failed to update registration")
	}

	s.metrics.IncUpdated()
	s.logger.InfoContext(ctx, "registration updated",
		"registration_id", record.ID,
		"staff_id", actor.StaffID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.EventRegistrationUpdated, record.ID)
	return record, nil
}

// UpdateStatus records an approval decision taken by the acting staff member.
func (s *Service) UpdateStatus(ctx context.Context, recordID id.RegistrationID, doc models.Document) (_ *models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "registration.status", tracer.String("registration_id", recordID.String()))
	defer func() { span.End(err) }()

	actor := requestcontext.Actor(ctx)
	if err := policy.Authorize(policy.OpUpdateStatus, actor); err != nil {
		return nil, err
	}

	at := now(ctx)
	var update models.StatusUpdate
	record, err := s.store.Update(ctx, recordID, func(r *models.Record) error {
		if violations := s.schema.ValidateStatus(doc); len(violations) > 0 {
			s.metrics.IncValidationFailure("status")
			return dErrors.NewValidation("invalid status", violations)
		}
		update = models.StatusUpdate{
			RulesServiceApproved: doc[schema.FieldRulesServiceApproved].(bool),
			UserApproved:         doc[schema.FieldUserApproved].(bool),
		}
		r.ApplyStatus(update, actor.StaffID, at)
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err, "failed to update registration status")
	}

	s.metrics.IncStatusTransition(update.UserApproved)
	s.logger.InfoContext(ctx, "registration status changed",
		"registration_id", record.ID,
		"staff_id", actor.StaffID,
		"rules_service_approved", update.RulesServiceApproved,
		"user_approved", update.UserApproved,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.EventRegistrationStatusChanged, record.ID)
	return record, nil
}

// Delete removes a record permanently.
func (s *Service) Delete(ctx context.Context, recordID id.RegistrationID) (err error) {
	ctx, span := s.tracer.Start(ctx, "registration.delete", tracer.String("registration_id", recordID.String()))
	defer func() { span.End(err) }()

	actor := requestcontext.Actor(ctx)
	if err := policy.Authorize(policy.OpDeleteRegistration, actor); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, recordID); err != nil {
		return translateStoreError(err, "failed to delete registration")
	}

	s.metrics.IncDeleted()
	s.logger.InfoContext(ctx, "registration deleted",
		"registration_id", recordID,
		"staff_id", actor.StaffID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.EventRegistrationDeleted, recordID)
	return nil
}

func (s *Service) validateRegistration(doc models.Document, operation string) error {
	if violations := s.schema.ValidateRegistration(doc); len(violations) > 0 {
		s.metrics.IncValidationFailure(operation)
		return dErrors.NewValidation("invalid registration", violations)
	}
	return nil
}

// emit never fails the request; a lost event is logged.
func (s *Service) emit(ctx context.Context, eventType audit.EventType, recordID id.RegistrationID) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.NewEvent(ctx, eventType, recordID)); err != nil {
		s.logger.WarnContext(ctx, "failed to emit registration event",
			"type", eventType,
			"registration_id", recordID,
			"error", err,
		)
	}
}

// now is the request time truncated to the microsecond precision Postgres keeps.
func now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
}

func translateStoreError(err error, msg string) error {
	var domainErr *dErrors.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
