package store

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prestago/loans-api/internal/models"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

// Store owns the in-memory request collection. It is a projection of the
// backend, never a second durable copy: refreshes replace its contents and
// mutations flow through the coordinator or the sweeper.
//
// Every confirmed local mutation is stamped. ApplyRefresh compares those
// stamps against the fetch time so a slow full-collection refresh cannot
// clobber a newer optimistic write with pre-transition server state.
type Store struct {
	mu        sync.RWMutex
	requests  map[string]*models.Request
	mutatedAt map[string]time.Time
	logger    *zap.Logger
}

// New builds an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		requests:  make(map[string]*models.Request),
		mutatedAt: make(map[string]time.Time),
		logger:    logger,
	}
}

// Get returns a copy of the request, if present.
func (s *Store) Get(id string) (*models.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, false
	}
	return req.Clone(), true
}

// Snapshot returns copies of every request, newest first. The order is
// deterministic so pagination over successive snapshots stays stable.
func (s *Store) Snapshot() []*models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Time().Equal(out[j].CreatedAt.Time()) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Insert records a freshly created request.
func (s *Store) Insert(req *models.Request, at time.Time) {
	if req == nil || req.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req.Clone()
	s.mutatedAt[req.ID] = at
}

// ApplyRefresh merges an authoritative fetch into the store. Entries with a
// transition in flight, or locally confirmed after the fetch started, keep
// their local state; the next refresh will converge them.
func (s *Store) ApplyRefresh(list []*models.Request, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, incoming := range list {
		if incoming == nil || incoming.ID == "" {
			continue
		}
		current, exists := s.requests[incoming.ID]
		if exists {
			if current.Locked() {
				continue
			}
			if stamp, ok := s.mutatedAt[incoming.ID]; ok && stamp.After(fetchedAt) {
				s.logger.Debug("refresh older than local mutation, keeping local copy",
					zap.String("request_id", incoming.ID))
				continue
			}
		}
		s.requests[incoming.ID] = incoming.Clone()
	}
}

// BeginOp atomically validates and starts a transition: the validate callback
// runs under the store lock, then the pending-op token and the optimistic
// status are set. It returns the pre-transition status for rollback.
func (s *Store) BeginOp(id, token string, newStatus models.Status, validate func(*models.Request) error) (models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return "", appErrors.ErrNotFound
	}
	if req.Locked() {
		return "", appErrors.ErrOperationInProgress
	}
	if validate != nil {
		if err := validate(req.Clone()); err != nil {
			return "", err
		}
	}
	prev := req.Status
	req.PendingOp = token
	req.Status = newStatus
	return prev, nil
}

// CompleteOp confirms a transition with the authoritative server copy. The
// server wins on any disagreement with the optimistic write.
func (s *Store) CompleteOp(id, token string, authoritative *models.Request, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.PendingOp != token {
		return
	}
	if authoritative != nil {
		replacement := authoritative.Clone()
		replacement.PendingOp = ""
		s.requests[id] = replacement
	} else {
		req.PendingOp = ""
	}
	s.mutatedAt[id] = at
}

// RollbackOp restores the pre-transition status after a remote failure and
// releases the token.
func (s *Store) RollbackOp(id, token string, prev models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.PendingOp != token {
		return
	}
	req.Status = prev
	req.PendingOp = ""
}

// Len reports the number of requests held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}
