package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prestago/loans-api/internal/models"
	"github.com/prestago/loans-api/internal/store"
	appErrors "github.com/prestago/loans-api/pkg/errors"
)

// SweepReport summarises one expiration pass.
type SweepReport struct {
	Scanned   int              `json:"scanned"`
	Expired   int              `json:"expired"`
	Cancelled []string         `json:"cancelled"`
	Failed    []string         `json:"failed"`
	SweptAt   models.LocalTime `json:"swept_at"`
}

// Sweeper cancels pending requests whose loan window has closed. It is
// advisory, not authoritative: the backend may reach the same conclusion on
// its own clock, so every cancellation goes through the coordinator and a
// remote refusal leaves the request pending.
type Sweeper struct {
	store       *store.Store
	coordinator *Coordinator
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSweeper constructs the sweeper.
func NewSweeper(st *store.Store, coordinator *Coordinator, metrics *MetricsService, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{store: st, coordinator: coordinator, metrics: metrics, logger: logger}
}

// Sweep runs one pass over the collection. A window ending exactly at now is
// expired (closed interval cutoff). Terminal requests are never touched.
// Failures are isolated per request; when any remain, the report is returned
// together with a SweepPartialFailure naming the ids.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	report := &SweepReport{SweptAt: models.NewLocalTime(now)}

	for _, req := range s.store.Snapshot() {
		report.Scanned++
		if req.Status != models.StatusPending {
			continue
		}
		if req.Window.End.Time().After(now) {
			continue
		}
		report.Expired++

		if _, err := s.coordinator.ApplyTransition(ctx, req.ID, models.StatusCancelled, models.SystemActor); err != nil {
			report.Failed = append(report.Failed, req.ID)
			s.logger.Warn("sweep could not cancel expired request",
				zap.String("request_id", req.ID),
				zap.Error(err))
			continue
		}
		report.Cancelled = append(report.Cancelled, req.ID)
	}

	s.metrics.RecordSweep(len(report.Cancelled), len(report.Failed))

	if len(report.Failed) > 0 {
		return report, appErrors.Clone(appErrors.ErrSweepPartialFailure,
			"sweep could not cancel: "+strings.Join(report.Failed, ", "))
	}
	return report, nil
}
