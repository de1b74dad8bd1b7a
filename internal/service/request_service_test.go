package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prestago/loans-api/internal/dto"
	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/internal/store"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

type backendStub struct {
	listResult []*models.Request
	listErr    error
	created    *models.Request
	createErr  error
	lastDraft  models.Draft
	listCalls  int
	creates    int
}

func (b *backendStub) List(ctx context.Context) ([]*models.Request, error) {
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.listResult, nil
}

func (b *backendStub) Create(ctx context.Context, draft models.Draft) (*models.Request, error) {
	b.creates++
	b.lastDraft = draft
	if b.createErr != nil {
		return nil, b.createErr
	}
	return b.created, nil
}

func newTestRequestService(t *testing.T, backend *backendStub, remote *remoteStub) (*RequestService, *store.Store) {
	t.Helper()
	st := store.New(nil)
	coordinator := NewCoordinator(st, remote, time.Second, nil, nil)
	sweeper := NewSweeper(st, coordinator, nil, nil)
	engine := NewFilterEngine(5)
	cache := NewCacheService(nil, nil, 0, nil, false)
	svc := NewRequestService(backend, st, engine, coordinator, sweeper, cache, nil, nil)
	return svc, st
}

func backendRequest(id, requesterID string, status models.Status, windowEnd time.Time) *models.Request {
	return &models.Request{
		ID:            id,
		RequesterID:   requesterID,
		RequesterName: "Ada Brook",
		Kind:          models.KindEquipment,
		ResourceRefs:  []string{"cam-1"},
		ResourceName:  "Camera",
		Quantity:      1,
		Category:      models.CategoryGeneral,
		Window: models.Window{
			Start: models.NewLocalTime(windowEnd.Add(-2 * time.Hour)),
			End:   models.NewLocalTime(windowEnd),
		},
		Environment:  "Lab 3",
		TicketNumber: "T-100",
		Status:       status,
		CreatedAt:    models.NewLocalTime(windowEnd.Add(-24 * time.Hour)),
	}
}

func instructorClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleInstructor, FullName: "Ada Brook"}
}

func technicianClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "tech-1", Role: models.RoleTechnician, FullName: "Sam Reyes"}
}

func TestRequestServiceListScopesInstructors(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.Local)
	future := now.Add(time.Hour)
	backend := &backendStub{listResult: []*models.Request{
		backendRequest("mine-1", "inst-1", models.StatusPending, future),
		backendRequest("mine-2", "inst-1", models.StatusApproved, future),
		backendRequest("other-1", "inst-2", models.StatusPending, future),
	}}
	svc, _ := newTestRequestService(t, backend, &remoteStub{})
	svc.now = func() time.Time { return now }

	items, pagination, err := svc.List(context.Background(), dto.RequestQuery{Page: 1}, instructorClaims("inst-1"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		require.Equal(t, "inst-1", item.RequesterID)
	}
	require.Equal(t, 2, pagination.TotalCount)

	// Reviewers see the full collection.
	items, _, err = svc.List(context.Background(), dto.RequestQuery{Page: 1}, technicianClaims())
	require.NoError(t, err)
	require.Len(t, items, 3)
}

func TestRequestServiceListSweepsExpiredOnLoad(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.Local)
	backend := &backendStub{listResult: []*models.Request{
		backendRequest("expired", "inst-1", models.StatusPending, now.Add(-time.Hour)),
		backendRequest("active", "inst-1", models.StatusPending, now.Add(time.Hour)),
	}}
	svc, st := newTestRequestService(t, backend, &remoteStub{})
	svc.now = func() time.Time { return now }

	items, _, err := svc.List(context.Background(), dto.RequestQuery{Page: 1}, instructorClaims("inst-1"))
	require.NoError(t, err)
	require.Len(t, items, 2)

	got, _ := st.Get("expired")
	require.Equal(t, models.StatusCancelled, got.Status)
	got, _ = st.Get("active")
	require.Equal(t, models.StatusPending, got.Status)
}

func TestRequestServiceListServesStaleOnRefreshFailure(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.Local)
	backend := &backendStub{listErr: errors.New("backend down")}
	svc, st := newTestRequestService(t, backend, &remoteStub{})
	svc.now = func() time.Time { return now }

	// Empty store and a failing backend is a hard error.
	_, _, err := svc.List(context.Background(), dto.RequestQuery{Page: 1}, technicianClaims())
	require.Error(t, err)

	// With local state the stale collection is served instead.
	st.Insert(backendRequest("req-1", "inst-1", models.StatusApproved, now.Add(time.Hour)), now)
	items, _, err := svc.List(context.Background(), dto.RequestQuery{Page: 1}, technicianClaims())
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestRequestServiceGetScope(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.Local)
	backend := &backendStub{}
	svc, st := newTestRequestService(t, backend, &remoteStub{})
	st.Insert(backendRequest("req-1", "inst-1", models.StatusPending, now.Add(time.Hour)), now)

	got, err := svc.Get(context.Background(), "req-1", instructorClaims("inst-1"))
	require.NoError(t, err)
	require.Equal(t, "req-1", got.ID)

	_, err = svc.Get(context.Background(), "req-1", instructorClaims("inst-2"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	_, err = svc.Get(context.Background(), "req-1", technicianClaims())
	require.NoError(t, err)
}

func TestRequestServiceGetRefreshesOnMiss(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.Local)
	backend := &backendStub{listResult: []*models.Request{
		backendRequest("req-1", "inst-1", models.StatusPending, now.Add(time.Hour)),
	}}
	svc, _ := newTestRequestService(t, backend, &remoteStub{})

	got, err := svc.Get(context.Background(), "req-1", instructorClaims("inst-1"))
	require.NoError(t, err)
	require.Equal(t, "req-1", got.ID)
	require.Equal(t, 1, backend.listCalls)

	_, err = svc.Get(context.Background(), "missing", instructorClaims("inst-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func validCreateInput() dto.CreateLoanRequest {
	return dto.CreateLoanRequest{
		Kind:         "EQUIPMENT",
		ResourceRefs: []string{"cam-1"},
		ResourceName: "Camera",
		Quantity:     1,
		Category:     "GENERAL",
		Start:        "2025-01-10T08:00",
		End:          "2025-01-10T12:00",
		Environment:  "Lab 3",
		TicketNumber: "T-100",
	}
}

func TestRequestServiceCreate(t *testing.T) {
	now := time.Date(2025, 1, 5, 12, 0, 0, 0, time.Local)
	created := backendRequest("req-new", "inst-1", models.StatusPending, now.Add(time.Hour))
	backend := &backendStub{created: created}
	svc, st := newTestRequestService(t, backend, &remoteStub{})
	svc.now = func() time.Time { return now }

	got, err := svc.Create(context.Background(), validCreateInput(), instructorClaims("inst-1"))
	require.NoError(t, err)
	require.Equal(t, "req-new", got.ID)
	require.Equal(t, "inst-1", backend.lastDraft.RequesterID)
	require.Equal(t, models.KindEquipment, backend.lastDraft.Kind)

	stored, ok := st.Get("req-new")
	require.True(t, ok)
	require.Equal(t, models.StatusPending, stored.Status)
}

func TestRequestServiceCreateRejectsOverCapBeforeBackend(t *testing.T) {
	backend := &backendStub{}
	svc, _ := newTestRequestService(t, backend, &remoteStub{})

	input := validCreateInput()
	input.Quantity = 3
	_, err := svc.Create(context.Background(), input, instructorClaims("inst-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidRequestDraft))
	require.Zero(t, backend.creates)

	// The laptop cap is higher.
	input.Category = "LAPTOP"
	backend.created = backendRequest("req-new", "inst-1", models.StatusPending, time.Now().Add(time.Hour))
	_, err = svc.Create(context.Background(), input, instructorClaims("inst-1"))
	require.NoError(t, err)
}

func TestRequestServiceCreateValidation(t *testing.T) {
	backend := &backendStub{}
	svc, _ := newTestRequestService(t, backend, &remoteStub{})
	claims := instructorClaims("inst-1")

	missing := validCreateInput()
	missing.TicketNumber = ""
	_, err := svc.Create(context.Background(), missing, claims)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	badKind := validCreateInput()
	badKind.Kind = "VEHICLE"
	_, err = svc.Create(context.Background(), badKind, claims)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	badStart := validCreateInput()
	badStart.Start = "10/01/2025 08:00"
	_, err = svc.Create(context.Background(), badStart, claims)
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	inverted := validCreateInput()
	inverted.End = inverted.Start
	_, err = svc.Create(context.Background(), inverted, claims)
	require.True(t, appErrors.HasCode(err, appErrors.ErrInvalidRequestDraft))

	require.Zero(t, backend.creates)
}

func TestRequestServiceTransitionNormalisesStatus(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.Local)
	remote := &remoteStub{}
	svc, st := newTestRequestService(t, &backendStub{}, remote)
	st.Insert(backendRequest("req-1", "inst-1", models.StatusPending, now.Add(time.Hour)), now)

	updated, err := svc.Transition(context.Background(), "req-1",
		dto.TransitionRequest{Status: "approved"}, technicianClaims())
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, updated.Status)
	require.Equal(t, 1, remote.calls)
}

func TestRequestServiceSweepRequiresReviewer(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.Local)
	backend := &backendStub{listResult: []*models.Request{
		backendRequest("expired", "inst-1", models.StatusPending, now.Add(-time.Hour)),
	}}
	svc, _ := newTestRequestService(t, backend, &remoteStub{})
	svc.now = func() time.Time { return now }

	_, err := svc.Sweep(context.Background(), instructorClaims("inst-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	report, err := svc.Sweep(context.Background(), technicianClaims())
	require.NoError(t, err)
	require.Equal(t, []string{"expired"}, report.Cancelled)
}

func TestRequestServiceExportDataset(t *testing.T) {
	now := time.Date(2025, 1, 20, 12, 0, 0, 0, time.Local)
	backend := &backendStub{listResult: []*models.Request{
		backendRequest("req-1", "inst-1", models.StatusApproved, now.Add(time.Hour)),
	}}
	svc, _ := newTestRequestService(t, backend, &remoteStub{})

	_, err := svc.ExportDataset(context.Background(), dto.RequestQuery{}, instructorClaims("inst-1"))
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	dataset, err := svc.ExportDataset(context.Background(), dto.RequestQuery{}, technicianClaims())
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 1)
	require.Equal(t, "req-1", dataset.Rows[0]["ID"])
	require.Equal(t, "APPROVED", dataset.Rows[0]["Status"])
	require.Equal(t, "Camera", dataset.Rows[0]["Resource"])
}

func TestBuildFilterClassValidation(t *testing.T) {
	filter, err := buildFilter(dto.RequestQuery{Class: "equipment"})
	require.NoError(t, err)
	require.Equal(t, models.ClassEquipment, filter.Class)

	filter, err = buildFilter(dto.RequestQuery{})
	require.NoError(t, err)
	require.Equal(t, models.ClassAll, filter.Class)

	_, err = buildFilter(dto.RequestQuery{Class: "VEHICLE"})
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestBuildFilterExtendsBareDateTo(t *testing.T) {
	filter, err := buildFilter(dto.RequestQuery{DateTo: "2025-01-31"})
	require.NoError(t, err)
	require.Equal(t, "2025-01-31T23:59:59", filter.DateTo.String())

	// A full timestamp is taken as given.
	filter, err = buildFilter(dto.RequestQuery{DateTo: "2025-01-31T12:00"})
	require.NoError(t, err)
	require.Equal(t, "2025-01-31T12:00:00", filter.DateTo.String())

	_, err = buildFilter(dto.RequestQuery{DateFrom: "31/01/2025"})
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestBuildFilterStatuses(t *testing.T) {
	filter, err := buildFilter(dto.RequestQuery{Status: "pending, approved"})
	require.NoError(t, err)
	require.Equal(t, []models.Status{models.StatusPending, models.StatusApproved}, filter.Statuses)

	_, err = buildFilter(dto.RequestQuery{Status: "ARCHIVED"})
	require.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
