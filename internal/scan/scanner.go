package scan

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/trackaship/alarmsender/internal/domain"
	"github.com/trackaship/alarmsender/internal/geo"
	"github.com/trackaship/alarmsender/internal/metrics"
	"github.com/trackaship/alarmsender/internal/repo"
)

// ErrFullScan marks a failure to enumerate the owner collection at all.
// Unlike per-owner failures this aborts the run.
var ErrFullScan = errors.New("owner enumeration failed")

// Stats are the scan-phase counters. Dispatch counters live in RunSummary.
type Stats struct {
	UsersScanned         int
	AlertsScanned        int
	SkippedInvalid       int
	SkippedNoPosition    int
	SkippedOutOfGeofence int
	OwnersFailed         int
}

// Scanner walks every owner's alert collection, evaluates each alert's
// geofence against the target's latest position, and emits the jobs that
// should be dispatched.
type Scanner struct {
	alerts    repo.AlertStore
	positions repo.PositionStore
	log       *zap.Logger
}

func New(alerts repo.AlertStore, positions repo.PositionStore, log *zap.Logger) *Scanner {
	return &Scanner{alerts: alerts, positions: positions, log: log}
}

// Scan runs one full pass. priorityOwner, when non-empty, is processed first
// and deduplicated against the full enumeration; it exists so a known-good
// account shows up at the top of the logs.
func (s *Scanner) Scan(ctx context.Context, priorityOwner domain.OwnerID) ([]domain.NotificationJob, Stats, error) {
	var (
		jobs  []domain.NotificationJob
		stats Stats
	)
	seen := make(map[domain.OwnerID]struct{})

	if priorityOwner != "" {
		s.log.Info("scan_priority_owner", zap.String("owner", string(priorityOwner)))
		jobs = s.scanOwner(ctx, priorityOwner, jobs, &stats)
		stats.UsersScanned++
		seen[priorityOwner] = struct{}{}
	}

	it, err := s.alerts.Owners(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %v", ErrFullScan, err)
	}
	for {
		owner, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			// Any mid-stream enumeration error means we can no longer claim
			// a full scan, so the run aborts.
			return nil, stats, fmt.Errorf("%w: %v", ErrFullScan, err)
		}
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		stats.UsersScanned++
		jobs = s.scanOwner(ctx, owner, jobs, &stats)
	}

	s.log.Info("scan_done",
		zap.Int("users", stats.UsersScanned),
		zap.Int("alerts", stats.AlertsScanned),
		zap.Int("jobs", len(jobs)),
		zap.Int("skipped_invalid", stats.SkippedInvalid),
		zap.Int("skipped_no_position", stats.SkippedNoPosition),
		zap.Int("skipped_out_of_geofence", stats.SkippedOutOfGeofence),
	)
	return jobs, stats, nil
}

// scanOwner streams one owner's alerts. Subcollection access failures are
// non-fatal: they are counted and the scan moves on to the next owner.
func (s *Scanner) scanOwner(ctx context.Context, owner domain.OwnerID, jobs []domain.NotificationJob, stats *Stats) []domain.NotificationJob {
	it, err := s.alerts.Alerts(ctx, owner)
	if err != nil {
		stats.OwnersFailed++
		s.log.Warn("scan_owner_failed", zap.String("owner", string(owner)), zap.Error(err))
		return jobs
	}

	found := 0
	for {
		rec, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			stats.OwnersFailed++
			s.log.Warn("scan_owner_failed", zap.String("owner", string(owner)), zap.Error(err))
			return jobs
		}
		found++
		stats.AlertsScanned++
		metrics.AlertsScanned.Inc()

		if job, ok := s.evaluate(ctx, &rec, stats); ok {
			jobs = append(jobs, job)
		}
	}
	if found > 0 {
		s.log.Debug("scan_owner_done", zap.String("owner", string(owner)), zap.Int("alerts", found))
	}
	return jobs
}

func (s *Scanner) evaluate(ctx context.Context, rec *domain.AlertRecord, stats *Stats) (domain.NotificationJob, bool) {
	if !rec.Valid() {
		stats.SkippedInvalid++
		metrics.AlertsSkipped.WithLabelValues("invalid").Inc()
		s.log.Warn("alert_invalid",
			zap.String("owner", string(rec.Owner)),
			zap.String("alert", string(rec.ID)),
			zap.Strings("missing", rec.MissingFields()),
			zap.String("mode", rec.Mode.String()),
		)
		return domain.NotificationJob{}, false
	}

	pos, err := s.positions.Latest(ctx, rec.Target)
	if err != nil {
		// A position-store read failure for one target must not sink the
		// whole scan; treat it like the target never having reported.
		stats.SkippedNoPosition++
		metrics.AlertsSkipped.WithLabelValues("no_position").Inc()
		s.log.Warn("position_lookup_failed", zap.String("target", string(rec.Target)), zap.Error(err))
		return domain.NotificationJob{}, false
	}
	if pos == nil {
		// A target that never reported cannot satisfy or violate a geofence.
		stats.SkippedNoPosition++
		metrics.AlertsSkipped.WithLabelValues("no_position").Inc()
		s.log.Debug("no_position", zap.String("target", string(rec.Target)))
		return domain.NotificationJob{}, false
	}

	dist := geo.Distance(
		geo.Coordinate{Lat: rec.CenterLat, Lon: rec.CenterLon},
		geo.Coordinate{Lat: pos.Lat, Lon: pos.Lon},
	)
	if !geo.Satisfied(rec.Mode, dist, rec.RadiusMeters) {
		stats.SkippedOutOfGeofence++
		metrics.AlertsSkipped.WithLabelValues("out_of_geofence").Inc()
		s.log.Debug("geofence_not_satisfied",
			zap.String("alert", string(rec.ID)),
			zap.Float64("distance_m", dist),
			zap.Float64("radius_m", rec.RadiusMeters),
			zap.String("mode", rec.Mode.String()),
		)
		return domain.NotificationJob{}, false
	}

	s.log.Info("geofence_satisfied",
		zap.String("alert", string(rec.ID)),
		zap.String("target", string(rec.Target)),
		zap.Float64("distance_m", dist),
	)
	return domain.NotificationJob{
		AlertID:     rec.ID,
		Target:      rec.Target,
		TargetLabel: rec.TargetLabel,
		DeviceToken: rec.DeviceToken,
	}, true
}
