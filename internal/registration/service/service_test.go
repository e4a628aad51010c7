package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dsnap/internal/policy"
	"dsnap/internal/registration/metrics"
	"dsnap/internal/registration/models"
	"dsnap/internal/registration/schema"
	"dsnap/internal/registration/search"
	"dsnap/internal/registration/service/mocks"
	"dsnap/internal/registration/store"
	"dsnap/internal/sentinel"
	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
	audit "dsnap/pkg/platform/audit"
	"dsnap/pkg/platform/audit/publisher"
	"dsnap/pkg/platform/audit/store/memory"
	"dsnap/pkg/requestcontext"
	fixtures "dsnap/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	events  *memory.InMemoryStore
	metrics *metrics.Metrics
	service *Service
	staff   id.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	def, err := schema.DefaultRegistry().Get("")
	s.Require().NoError(err)

	s.store = store.NewInMemory()
	s.events = memory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store, def, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithMetrics(s.metrics),
		WithAuditor(publisher.New(s.events)),
	)
	s.staff = id.Actor{StaffID: fixtures.TestIDs.Staff1, Username: "alice", Scopes: id.AllStaffScopes()}
}

func (s *ServiceSuite) anonCtx(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

func (s *ServiceSuite) staffCtx(at time.Time) context.Context {
	return requestcontext.WithActor(s.anonCtx(at), s.staff)
}

func (s *ServiceSuite) scopedCtx(at time.Time, scopes ...string) context.Context {
	actor := id.Actor{StaffID: fixtures.TestIDs.Staff2, Username: "bob", Scopes: scopes}
	return requestcontext.WithActor(s.anonCtx(at), actor)
}

func (s *ServiceSuite) create(doc models.Document) *models.Record {
	record, err := s.service.Create(s.anonCtx(fixtures.FixedTime), doc)
	s.Require().NoError(err)
	return record
}

func (s *ServiceSuite) eventTypes() []audit.EventType {
	events, err := s.events.ListAll(context.Background())
	s.Require().NoError(err)
	types := make([]audit.EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func (s *ServiceSuite) TestCreate() {
	record := s.create(fixtures.NewRegistration().Build())

	s.False(record.ID.IsNil())
	s.Equal(fixtures.FixedTime, record.CreatedAt)
	s.Equal(record.CreatedAt, record.ModifiedAt)
	s.Nil(record.ModifiedBy)
	s.Nil(record.ApprovedBy)
	s.Nil(record.ApprovedAt)
	s.Nil(record.RulesServiceApproved)
	s.Nil(record.UserApproved)

	s.Equal("5077123412341234", record.LatestData[models.FieldEBTCardNumber])
	ebt, present := record.OriginalData[models.FieldEBTCardNumber]
	s.True(present)
	s.Nil(ebt)

	stored, err := s.service.Get(s.staffCtx(fixtures.FixedTime), record.ID)
	s.Require().NoError(err)
	s.Equal(record, stored)

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.RegistrationsCreated))
	s.Equal([]audit.EventType{audit.EventRegistrationCreated}, s.eventTypes())
}

func (s *ServiceSuite) TestCreate_AddsNullCardWhenAbsent() {
	record := s.create(fixtures.NewRegistration().WithoutEBTCard().Build())
	_, inLatest := record.LatestData[models.FieldEBTCardNumber]
	s.False(inLatest)
	ebt, inOriginal := record.OriginalData[models.FieldEBTCardNumber]
	s.True(inOriginal)
	s.Nil(ebt)
}

func (s *ServiceSuite) TestCreate_ValidationFailureStoresNothing() {
	doc := fixtures.NewRegistration().
		With("disaster_id", "not-a-number").
		With("phone", "123").
		With("surprise", true).
		Build()

	_, err := s.service.Create(s.anonCtx(fixtures.FixedTime), doc)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Len(dErrors.ViolationsOf(err), 3)

	all, err := s.service.Search(s.anonCtx(fixtures.FixedTime), search.Filter{})
	s.Require().NoError(err)
	s.Empty(all)
	s.Empty(s.eventTypes())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ValidationFailures.WithLabelValues("create")))
}

func (s *ServiceSuite) TestGet_AccessChecksBeforeLookup() {
	missing := id.NewRegistrationID()

	_, err := s.service.Get(s.anonCtx(fixtures.FixedTime), missing)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.service.Get(s.scopedCtx(fixtures.FixedTime, id.ScopeRegistrationsWrite), missing)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Get(s.staffCtx(fixtures.FixedTime), missing)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSearch() {
	base := fixtures.FixedTime
	first, err := s.service.Create(s.anonCtx(base), fixtures.NewRegistration().
		WithRegistrant("Ana", "Rivera", "1980-01-02", "111111111").
		WithMember("Luis", "Rivera", "2010-05-05", "222222222").
		Build())
	s.Require().NoError(err)
	second, err := s.service.Create(s.anonCtx(base.Add(time.Second)), fixtures.NewRegistration().
		WithRegistrant("Bo", "McDonald", "1975-07-07", "333333333").
		Build())
	s.Require().NoError(err)

	ctx := s.anonCtx(base)
	all, err := s.service.Search(ctx, search.Build(url.Values{}))
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(first.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)

	bySSN, err := s.service.Search(ctx, search.Build(url.Values{"registrant_ssn": {"111111111"}}))
	s.Require().NoError(err)
	s.Require().Len(bySSN, 1)
	s.Equal(first.ID, bySSN[0].ID)

	memberSSN, err := s.service.Search(ctx, search.Build(url.Values{"registrant_ssn": {"222222222"}}))
	s.Require().NoError(err)
	s.Empty(memberSSN)

	byName, err := s.service.Search(ctx, search.Build(url.Values{"registrant_last_name": {"mcdonald"}}))
	s.Require().NoError(err)
	s.Require().Len(byName, 1)
	s.Equal(second.ID, byName[0].ID)
}

func (s *ServiceSuite) TestUpdate() {
	record := s.create(fixtures.NewRegistration().Build())
	later := fixtures.FixedTime.Add(time.Hour)

	replacement := fixtures.NewRegistration().WithStateID("NEW-1").WithEBTCard("999").Build()
	updated, err := s.service.Update(s.staffCtx(later), record.ID, replacement)
	s.Require().NoError(err)

	s.Equal(replacement, updated.LatestData)
	s.Equal(record.OriginalData, updated.OriginalData)
	s.Equal(fixtures.FixedTime, updated.CreatedAt)
	s.Equal(later, updated.ModifiedAt)
	s.Require().NotNil(updated.ModifiedBy)
	s.Equal(s.staff.StaffID, *updated.ModifiedBy)
	s.Nil(updated.ApprovedBy)

	s.Equal([]audit.EventType{audit.EventRegistrationCreated, audit.EventRegistrationUpdated}, s.eventTypes())
}

func (s *ServiceSuite) TestUpdate_Failures() {
	record := s.create(fixtures.NewRegistration().Build())
	valid := fixtures.NewRegistration().Build()
	invalid := fixtures.NewRegistration().With("disaster_id", -1).Build()

	_, err := s.service.Update(s.anonCtx(fixtures.FixedTime), record.ID, valid)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.service.Update(s.scopedCtx(fixtures.FixedTime, id.ScopeRegistrationsRead), record.ID, valid)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.service.Update(s.staffCtx(fixtures.FixedTime), id.NewRegistrationID(), invalid)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Update(s.staffCtx(fixtures.FixedTime), record.ID, invalid)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal([]string{"disaster_id: -1 is less than the minimum of 0"}, dErrors.ViolationsOf(err))

	stored, err := s.service.Get(s.staffCtx(fixtures.FixedTime), record.ID)
	s.Require().NoError(err)
	s.Equal(record, stored)
}

func (s *ServiceSuite) TestUpdateStatus() {
	record := s.create(fixtures.NewRegistration().Build())
	later := fixtures.FixedTime.Add(2 * time.Hour)

	updated, err := s.service.UpdateStatus(s.staffCtx(later), record.ID, models.Document{
		schema.FieldRulesServiceApproved: true,
		schema.FieldUserApproved:         false,
	})
	s.Require().NoError(err)

	s.Require().NotNil(updated.RulesServiceApproved)
	s.True(*updated.RulesServiceApproved)
	s.Require().NotNil(updated.UserApproved)
	s.False(*updated.UserApproved)
	s.Require().NotNil(updated.ApprovedBy)
	s.Equal(s.staff.StaffID, *updated.ApprovedBy)
	s.Require().NotNil(updated.ApprovedAt)
	s.Equal(later, *updated.ApprovedAt)
	s.Equal(later, updated.ModifiedAt)
	s.Nil(updated.ModifiedBy)
	s.Equal(record.LatestData, updated.LatestData)
	s.Equal(record.OriginalData, updated.OriginalData)

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.StatusTransitions.WithLabelValues("false")))
}

func (s *ServiceSuite) TestUpdateStatus_RequiresBothBooleans() {
	record := s.create(fixtures.NewRegistration().Build())

	tests := []struct {
		name string
		doc  models.Document
	}{
		{"missing user_approved", models.Document{schema.FieldRulesServiceApproved: true}},
		{"string instead of bool", models.Document{schema.FieldRulesServiceApproved: "yes", schema.FieldUserApproved: true}},
		{"extra field", models.Document{schema.FieldRulesServiceApproved: true, schema.FieldUserApproved: true, "note": "x"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.UpdateStatus(s.staffCtx(fixtures.FixedTime), record.ID, tt.doc)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.NotEmpty(dErrors.ViolationsOf(err))
		})
	}

	stored, err := s.service.Get(s.staffCtx(fixtures.FixedTime), record.ID)
	s.Require().NoError(err)
	s.Nil(stored.ApprovedAt)
}

func (s *ServiceSuite) TestUpdateStatus_NeedsApproveScope() {
	record := s.create(fixtures.NewRegistration().Build())
	doc := models.Document{schema.FieldRulesServiceApproved: true, schema.FieldUserApproved: true}

	_, err := s.service.UpdateStatus(s.scopedCtx(fixtures.FixedTime, id.ScopeRegistrationsRead, id.ScopeRegistrationsWrite), record.ID, doc)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestAuthorize() {
	anon := s.anonCtx(fixtures.FixedTime)
	s.True(dErrors.HasCode(s.service.Authorize(anon, policy.OpUpdateRegistration), dErrors.CodeUnauthorized))
	s.True(dErrors.HasCode(s.service.Authorize(anon, policy.OpUpdateStatus), dErrors.CodeUnauthorized))
	s.NoError(s.service.Authorize(anon, policy.OpCreateRegistration))

	writer := s.scopedCtx(fixtures.FixedTime, id.ScopeRegistrationsWrite)
	s.NoError(s.service.Authorize(writer, policy.OpUpdateRegistration))
	s.True(dErrors.HasCode(s.service.Authorize(writer, policy.OpUpdateStatus), dErrors.CodeForbidden))

	s.NoError(s.service.Authorize(s.staffCtx(fixtures.FixedTime), policy.OpUpdateStatus))
	s.Empty(s.eventTypes())
}

func (s *ServiceSuite) TestDelete() {
	record := s.create(fixtures.NewRegistration().Build())

	s.True(dErrors.HasCode(s.service.Delete(s.anonCtx(fixtures.FixedTime), record.ID), dErrors.CodeUnauthorized))

	s.Require().NoError(s.service.Delete(s.staffCtx(fixtures.FixedTime), record.ID))
	_, err := s.service.Get(s.staffCtx(fixtures.FixedTime), record.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.True(dErrors.HasCode(s.service.Delete(s.staffCtx(fixtures.FixedTime), record.ID), dErrors.CodeNotFound))

	s.Equal([]audit.EventType{audit.EventRegistrationCreated, audit.EventRegistrationDeleted}, s.eventTypes())
}

func (s *ServiceSuite) TestSchema() {
	exported, err := s.service.Schema(s.anonCtx(fixtures.FixedTime))
	s.Require().NoError(err)
	s.Equal("object", exported.Type)
	s.Equal("1.1.0", s.service.SchemaVersion())
}

func (s *ServiceSuite) TestEventsCarryRequestMetadata() {
	ctx := requestcontext.WithRequestID(s.staffCtx(fixtures.FixedTime), "req-42")
	ctx = requestcontext.WithDeviceClass(ctx, "mobile")
	record := s.create(fixtures.NewRegistration().Build())
	s.Require().NoError(s.service.Delete(ctx, record.ID))

	events, err := s.events.ListByRegistration(context.Background(), record.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Nil(events[0].ActorID)
	deleted := events[1]
	s.Equal("req-42", deleted.RequestID)
	s.Equal("mobile", deleted.DeviceClass)
	s.Require().NotNil(deleted.ActorID)
	s.Equal(s.staff.StaffID, *deleted.ActorID)
}

// StoreErrorSuite checks translation of store failures with a mocked store.
type StoreErrorSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	service *Service
	ctx     context.Context
}

func TestStoreErrorSuite(t *testing.T) {
	suite.Run(t, new(StoreErrorSuite))
}

func (s *StoreErrorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	def, err := schema.DefaultRegistry().Get("1.0.0")
	s.Require().NoError(err)
	fixedID := fixtures.TestIDs.Registration1
	s.service = New(s.store, def, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithIDGenerator(func() id.RegistrationID { return fixedID }),
	)
	actor := id.Actor{StaffID: fixtures.TestIDs.Staff1, Username: "alice", Scopes: id.AllStaffScopes()}
	s.ctx = requestcontext.WithActor(requestcontext.WithTime(context.Background(), fixtures.FixedTime), actor)
}

func (s *StoreErrorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *StoreErrorSuite) TestCreateUsesGeneratedID() {
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *models.Record) error {
		s.Equal(fixtures.TestIDs.Registration1, r.ID)
		return nil
	})
	record, err := s.service.Create(s.ctx, fixtures.NewRegistration().Build())
	s.Require().NoError(err)
	s.Equal(fixtures.TestIDs.Registration1, record.ID)
}

func (s *StoreErrorSuite) TestInfrastructureErrorsBecomeInternal() {
	boom := errors.New("connection reset")
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(boom)
	s.store.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, boom)
	s.store.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, boom)
	s.store.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)
	s.store.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(boom)

	doc := fixtures.NewRegistration().Build()
	_, err := s.service.Create(s.ctx, doc)
	s.assertInternal(err, boom)
	_, err = s.service.Get(s.ctx, fixtures.TestIDs.Registration1)
	s.assertInternal(err, boom)
	_, err = s.service.Search(s.ctx, search.Filter{})
	s.assertInternal(err, boom)
	_, err = s.service.Update(s.ctx, fixtures.TestIDs.Registration1, doc)
	s.assertInternal(err, boom)
	s.assertInternal(s.service.Delete(s.ctx, fixtures.TestIDs.Registration1), boom)
}

func (s *StoreErrorSuite) TestNotFoundTranslatedOnce() {
	s.store.EXPECT().Update(gomock.Any(), fixtures.TestIDs.Registration2, gomock.Any()).Return(nil, sentinel.ErrNotFound)
	_, err := s.service.UpdateStatus(s.ctx, fixtures.TestIDs.Registration2, models.Document{
		schema.FieldRulesServiceApproved: true,
		schema.FieldUserApproved:         true,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.NotErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreErrorSuite) TestDeniedCallsNeverReachStore() {
	anon := requestcontext.WithTime(context.Background(), fixtures.FixedTime)
	_, err := s.service.Get(anon, fixtures.TestIDs.Registration1)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.True(dErrors.HasCode(s.service.Delete(anon, fixtures.TestIDs.Registration1), dErrors.CodeUnauthorized))
}

func (s *StoreErrorSuite) assertInternal(err error, cause error) {
	s.T().Helper()
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.ErrorIs(err, cause)
}
