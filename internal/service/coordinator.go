package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/internal/store"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

// transitionApplier is the remote collaborator that makes a transition
// authoritative.
type transitionApplier interface {
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Request, error)
}

// Coordinator applies lifecycle transitions optimistically: the local store
// reflects the new status immediately under a fresh operation token, the
// backend call is awaited with a timeout, and the outcome either confirms the
// write from the server copy or rolls it back exactly.
//
// The token guarantees at most one in-flight transition per request. It says
// nothing about ordering between different requests.
type Coordinator struct {
	store    *store.Store
	remote   transitionApplier
	timeout  time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
	newToken func() string
}

// NewCoordinator constructs the coordinator.
func NewCoordinator(st *store.Store, remote transitionApplier, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		store:    st,
		remote:   remote,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// ApplyTransition moves a request to newStatus on behalf of the actor.
//
// Failure modes, in order: IllegalTransition or InvalidRequestDraft before
// anything is touched, OperationInProgress while another transition is in
// flight, RemoteTransitionFailed after the local write has been rolled back.
// A same-status re-apply returns the current copy without a remote call.
func (c *Coordinator) ApplyTransition(ctx context.Context, id string, newStatus models.Status, actor models.Actor) (*models.Request, error) {
	current, ok := c.store.Get(id)
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	if current.Status == newStatus {
		if current.Locked() {
			return nil, appErrors.ErrOperationInProgress
		}
		return current, nil
	}

	token := c.newToken()
	prev, err := c.store.BeginOp(id, token, newStatus, func(req *models.Request) error {
		if err := CheckTransition(req.Status, newStatus, actor.Role); err != nil {
			return err
		}
		if newStatus == models.StatusApproved {
			if err := CheckApproval(req); err != nil {
				return err
			}
		}
		if actor.Role == models.RoleInstructor && req.RequesterID != actor.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "instructors may only cancel their own requests")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	authoritative, remoteErr := c.remote.UpdateStatus(callCtx, id, newStatus)
	if remoteErr != nil {
		c.store.RollbackOp(id, token, prev)
		c.metrics.RecordTransition(newStatus, false)
		c.logger.Warn("transition rolled back",
			zap.String("request_id", id),
			zap.String("from", string(prev)),
			zap.String("to", string(newStatus)),
			zap.Error(remoteErr))
		return nil, appErrors.Wrap(remoteErr,
			appErrors.ErrRemoteTransitionFailed.Code,
			appErrors.ErrRemoteTransitionFailed.Status,
			appErrors.ErrRemoteTransitionFailed.Message)
	}

	c.store.CompleteOp(id, token, authoritative, c.now())
	c.metrics.RecordTransition(newStatus, true)

	confirmed, _ := c.store.Get(id)
	if confirmed == nil {
		confirmed = authoritative
	}
	return confirmed, nil
}
