package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prestago/loans-api/internal/models"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

func pendingRequest(id string, createdAt time.Time) *models.Request {
	return &models.Request{
		ID:           id,
		RequesterID:  "inst-1",
		Kind:         models.KindEquipment,
		ResourceRefs: []string{"cam-1"},
		Quantity:     1,
		Category:     models.CategoryGeneral,
		Status:       models.StatusPending,
		CreatedAt:    models.NewLocalTime(createdAt),
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := New(nil)
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.Local)
	s.Insert(pendingRequest("req-1", base), base)

	got, ok := s.Get("req-1")
	require.True(t, ok)
	got.Status = models.StatusApproved

	again, _ := s.Get("req-1")
	require.Equal(t, models.StatusPending, again.Status)
}

func TestStoreSnapshotOrderIsDeterministic(t *testing.T) {
	s := New(nil)
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.Local)
	s.Insert(pendingRequest("req-b", base), base)
	s.Insert(pendingRequest("req-a", base), base)
	s.Insert(pendingRequest("req-c", base.Add(time.Hour)), base)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "req-c", snap[0].ID)
	require.Equal(t, "req-a", snap[1].ID)
	require.Equal(t, "req-b", snap[2].ID)
}

func TestStoreBeginOpLocksAndValidates(t *testing.T) {
	s := New(nil)
	base := time.Now()
	s.Insert(pendingRequest("req-1", base), base)

	prev, err := s.BeginOp("req-1", "tok-1", models.StatusApproved, nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, prev)

	got, _ := s.Get("req-1")
	require.Equal(t, models.StatusApproved, got.Status)
	require.True(t, got.Locked())

	// Second transition must be refused while the first is in flight.
	_, err = s.BeginOp("req-1", "tok-2", models.StatusRejected, nil)
	require.True(t, appErrors.HasCode(err, appErrors.ErrOperationInProgress))
}

func TestStoreBeginOpValidationFailureLeavesEntryUntouched(t *testing.T) {
	s := New(nil)
	base := time.Now()
	s.Insert(pendingRequest("req-1", base), base)

	_, err := s.BeginOp("req-1", "tok-1", models.StatusApproved, func(req *models.Request) error {
		return appErrors.ErrForbidden
	})
	require.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	got, _ := s.Get("req-1")
	require.Equal(t, models.StatusPending, got.Status)
	require.False(t, got.Locked())
}

func TestStoreBeginOpUnknownID(t *testing.T) {
	s := New(nil)
	_, err := s.BeginOp("missing", "tok-1", models.StatusApproved, nil)
	require.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestStoreRollbackOpRestoresExactly(t *testing.T) {
	s := New(nil)
	base := time.Now()
	s.Insert(pendingRequest("req-1", base), base)

	prev, err := s.BeginOp("req-1", "tok-1", models.StatusApproved, nil)
	require.NoError(t, err)

	s.RollbackOp("req-1", "tok-1", prev)

	got, _ := s.Get("req-1")
	require.Equal(t, models.StatusPending, got.Status)
	require.False(t, got.Locked())
}

func TestStoreRollbackOpIgnoresStaleToken(t *testing.T) {
	s := New(nil)
	base := time.Now()
	s.Insert(pendingRequest("req-1", base), base)

	_, err := s.BeginOp("req-1", "tok-1", models.StatusApproved, nil)
	require.NoError(t, err)

	s.RollbackOp("req-1", "tok-other", models.StatusPending)

	got, _ := s.Get("req-1")
	require.Equal(t, models.StatusApproved, got.Status)
	require.True(t, got.Locked())
}

func TestStoreCompleteOpServerWins(t *testing.T) {
	s := New(nil)
	base := time.Now()
	s.Insert(pendingRequest("req-1", base), base)

	_, err := s.BeginOp("req-1", "tok-1", models.StatusApproved, nil)
	require.NoError(t, err)

	// The server disagrees with the optimistic write.
	authoritative := pendingRequest("req-1", base)
	authoritative.Status = models.StatusRejected
	s.CompleteOp("req-1", "tok-1", authoritative, base.Add(time.Second))

	got, _ := s.Get("req-1")
	require.Equal(t, models.StatusRejected, got.Status)
	require.False(t, got.Locked())
}

func TestStoreApplyRefreshSkipsLockedEntries(t *testing.T) {
	s := New(nil)
	base := time.Now()
	s.Insert(pendingRequest("req-1", base), base)

	_, err := s.BeginOp("req-1", "tok-1", models.StatusApproved, nil)
	require.NoError(t, err)

	stale := pendingRequest("req-1", base)
	s.ApplyRefresh([]*models.Request{stale}, base.Add(time.Minute))

	got, _ := s.Get("req-1")
	require.Equal(t, models.StatusApproved, got.Status)
	require.True(t, got.Locked())
}

func TestStoreApplyRefreshSkipsNewerLocalMutations(t *testing.T) {
	s := New(nil)
	base := time.Now()
	fetchedAt := base

	s.Insert(pendingRequest("req-1", base), base)
	_, err := s.BeginOp("req-1", "tok-1", models.StatusApproved, nil)
	require.NoError(t, err)

	confirmed := pendingRequest("req-1", base)
	confirmed.Status = models.StatusApproved
	s.CompleteOp("req-1", "tok-1", confirmed, base.Add(time.Second))

	// A slow refresh that started before the mutation must not clobber it.
	stale := pendingRequest("req-1", base)
	s.ApplyRefresh([]*models.Request{stale}, fetchedAt)

	got, _ := s.Get("req-1")
	require.Equal(t, models.StatusApproved, got.Status)

	// A refresh fetched after the mutation converges normally.
	fresh := pendingRequest("req-1", base)
	fresh.Status = models.StatusFinished
	s.ApplyRefresh([]*models.Request{fresh}, base.Add(time.Minute))

	got, _ = s.Get("req-1")
	require.Equal(t, models.StatusFinished, got.Status)
}

func TestStoreApplyRefreshAddsNewEntries(t *testing.T) {
	s := New(nil)
	base := time.Now()
	s.ApplyRefresh([]*models.Request{
		pendingRequest("req-1", base),
		pendingRequest("req-2", base),
		nil,
		{},
	}, base)
	require.Equal(t, 2, s.Len())
}
