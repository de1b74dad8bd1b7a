package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/prestago/loans-api/internal/dto"
	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/internal/store"
	appErrors "github.com/prestago/loans-api/pkg/errors"
	"github.com/prestago/loans-api/pkg/export"
)

// loansBackend is the read/create surface of the institutional backend.
// Transitions go through the coordinator's own collaborator.
type loansBackend interface {
	List(ctx context.Context) ([]*models.Request, error)
	Create(ctx context.Context, draft models.Draft) (*models.Request, error)
}

const snapshotCacheKey = "loans:snapshot"

// cachedSnapshot pairs a fetched collection with its fetch time so a cache
// hit carries the same staleness information as a live fetch.
type cachedSnapshot struct {
	FetchedAt time.Time         `json:"fetched_at"`
	Requests  []*models.Request `json:"requests"`
}

// RequestService orchestrates the loan request surface: refresh from the
// backend, scoped listing through the filter engine, creation, transitions
// through the coordinator, and the expiration sweep.
type RequestService struct {
	backend     loansBackend
	store       *store.Store
	engine      *FilterEngine
	coordinator *Coordinator
	sweeper     *Sweeper
	cache       *CacheService
	metrics     *MetricsService
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(
	backend loansBackend,
	st *store.Store,
	engine *FilterEngine,
	coordinator *Coordinator,
	sweeper *Sweeper,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		backend:     backend,
		store:       st,
		engine:      engine,
		coordinator: coordinator,
		sweeper:     sweeper,
		cache:       cache,
		metrics:     metrics,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
	}
}

// Refresh pulls the collection from the backend (or the snapshot cache) into
// the store. The fetch time travels with the data so stale refreshes cannot
// overwrite newer local mutations.
func (s *RequestService) Refresh(ctx context.Context) error {
	var snap cachedSnapshot
	if hit, _ := s.cache.Get(ctx, snapshotCacheKey, &snap); hit {
		s.store.ApplyRefresh(snap.Requests, snap.FetchedAt)
		return nil
	}

	fetchedAt := s.now()
	start := time.Now()
	list, err := s.backend.List(ctx)
	s.metrics.ObserveUpstream("list", time.Since(start))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh requests from backend")
	}

	s.store.ApplyRefresh(list, fetchedAt)
	_ = s.cache.Set(ctx, snapshotCacheKey, cachedSnapshot{FetchedAt: fetchedAt, Requests: list}, 0)
	return nil
}

// List refreshes, sweeps expired pending requests, then returns the filtered
// page for the caller. Instructors only ever see their own history.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, claims *models.JWTClaims) ([]*models.Request, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	if err := s.Refresh(ctx); err != nil {
		if s.store.Len() == 0 {
			return nil, nil, err
		}
		// Serve the last known state; the next refresh will converge.
		s.logger.Warn("refresh failed, serving stale collection", zap.Error(err))
	}

	// History views trigger the advisory sweep on every load.
	if _, err := s.sweeper.Sweep(ctx, s.now()); err != nil {
		s.logger.Warn("expiration sweep incomplete", zap.Error(err))
	}

	filter, err := buildFilter(query)
	if err != nil {
		return nil, nil, err
	}
	if claims.Role == models.RoleInstructor {
		filter.RequesterID = claims.UserID
	}

	items, pagination := s.engine.Query(claims.UserID, s.store.Snapshot(), filter, query.Page)
	return items, &pagination, nil
}

// Get returns one request, refreshing once on a local miss.
func (s *RequestService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Request, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, ok := s.store.Get(id)
	if !ok {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
		if req, ok = s.store.Get(id); !ok {
			return nil, appErrors.ErrNotFound
		}
	}
	if claims.Role == models.RoleInstructor && req.RequesterID != claims.UserID {
		return nil, appErrors.ErrForbidden
	}
	return req, nil
}

// Create validates the draft locally, submits it to the backend, and records
// the authoritative copy. The backend assigns the id.
func (s *RequestService) Create(ctx context.Context, input dto.CreateLoanRequest, claims *models.JWTClaims) (*models.Request, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid loan request payload")
	}

	startAt, err := models.ParseLocalTime(input.Start)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start timestamp")
	}
	endAt, err := models.ParseLocalTime(input.End)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end timestamp")
	}

	draft := models.Draft{
		RequesterID:   claims.UserID,
		RequesterName: claims.FullName,
		Kind:          models.Kind(strings.ToUpper(input.Kind)),
		ResourceRefs:  input.ResourceRefs,
		ResourceName:  input.ResourceName,
		Quantity:      input.Quantity,
		Category:      models.EquipmentCategory(strings.ToUpper(input.Category)),
		SubcategoryID: input.SubcategoryID,
		SpaceID:       input.SpaceID,
		SpaceName:     input.SpaceName,
		Window:        models.Window{Start: startAt, End: endAt},
		Environment:   input.Environment,
		TicketNumber:  input.TicketNumber,
	}

	// Construction enforces the draft invariants before the backend sees it.
	if _, err := models.NewRequest(draft, s.now()); err != nil {
		return nil, err
	}

	start := time.Now()
	created, err := s.backend.Create(ctx, draft)
	s.metrics.ObserveUpstream("create", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.store.Insert(created, s.now())
	_ = s.cache.Invalidate(ctx, snapshotCacheKey)
	return created, nil
}

// Transition applies a status change through the optimistic coordinator.
func (s *RequestService) Transition(ctx context.Context, id string, input dto.TransitionRequest, claims *models.JWTClaims) (*models.Request, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	status := models.Status(strings.ToUpper(strings.TrimSpace(input.Status)))

	actor := models.Actor{ID: claims.UserID, Name: claims.FullName, Role: claims.Role}
	updated, err := s.coordinator.ApplyTransition(ctx, id, status, actor)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Invalidate(ctx, snapshotCacheKey)
	return updated, nil
}

// Sweep refreshes and runs one expiration pass. Reviewers only.
func (s *RequestService) Sweep(ctx context.Context, claims *models.JWTClaims) (*SweepReport, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !claims.Role.Reviewer() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	report, err := s.sweeper.Sweep(ctx, s.now())
	if err == nil {
		_ = s.cache.Invalidate(ctx, snapshotCacheKey)
	}
	return report, err
}

// ExportDataset renders the caller's filtered history as a tabular dataset.
func (s *RequestService) ExportDataset(ctx context.Context, query dto.RequestQuery, claims *models.JWTClaims) (export.Dataset, error) {
	if claims == nil {
		return export.Dataset{}, appErrors.ErrUnauthorized
	}
	if !claims.Role.Reviewer() {
		return export.Dataset{}, appErrors.ErrForbidden
	}
	if err := s.Refresh(ctx); err != nil && s.store.Len() == 0 {
		return export.Dataset{}, err
	}

	filter, err := buildFilter(query)
	if err != nil {
		return export.Dataset{}, err
	}

	headers := []string{"ID", "Requester", "Kind", "Resource", "Quantity", "Start", "End", "Environment", "Ticket", "Status"}
	dataset := export.Dataset{Headers: headers}
	for _, req := range s.engine.Apply(s.store.Snapshot(), filter) {
		resource := req.ResourceName
		if req.Kind == models.KindSpace {
			resource = req.SpaceName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":          req.ID,
			"Requester":   req.RequesterName,
			"Kind":        string(req.Kind),
			"Resource":    resource,
			"Quantity":    strconv.Itoa(req.Quantity),
			"Start":       req.Window.Start.String(),
			"End":         req.Window.End.String(),
			"Environment": req.Environment,
			"Ticket":      req.TicketNumber,
			"Status":      string(req.Status),
		})
	}
	return dataset, nil
}

// buildFilter converts query parameters into the engine's filter. A bare
// date in DateTo extends to the end of that day so the bound stays inclusive.
func buildFilter(query dto.RequestQuery) (models.RequestFilter, error) {
	filter := models.RequestFilter{
		TextQuery:     query.Search,
		SubcategoryID: strings.TrimSpace(query.SubcategoryID),
	}

	switch strings.ToUpper(strings.TrimSpace(query.Class)) {
	case "", string(models.ClassAll):
		filter.Class = models.ClassAll
	case string(models.ClassEquipment):
		filter.Class = models.ClassEquipment
	case string(models.ClassSpace):
		filter.Class = models.ClassSpace
	default:
		return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown resource class %q", query.Class))
	}

	if raw := strings.TrimSpace(query.DateFrom); raw != "" {
		from, err := models.ParseLocalTime(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid date_from")
		}
		filter.DateFrom = from
	}
	if raw := strings.TrimSpace(query.DateTo); raw != "" {
		to, err := models.ParseLocalTime(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid date_to")
		}
		if len(raw) == len("2006-01-02") {
			to = models.NewLocalTime(to.Time().Add(24*time.Hour - time.Second))
		}
		filter.DateTo = to
	}

	if raw := strings.TrimSpace(query.Status); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			status := models.Status(part)
			if !status.Valid() {
				return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", part))
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	return filter, nil
}
