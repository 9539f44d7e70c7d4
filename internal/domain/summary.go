package domain

import (
	"fmt"
	"strings"
	"time"
)

// RunSummary aggregates the counters of one pipeline run. It is built
// incrementally while the run executes and immutable once returned.
type RunSummary struct {
	RunID string `json:"run_id"`

	UsersScanned         int `json:"users_scanned"`
	AlertsScanned        int `json:"alerts_scanned"`
	SkippedInvalid       int `json:"skipped_invalid"`
	SkippedNoPosition    int `json:"skipped_no_position"`
	SkippedOutOfGeofence int `json:"skipped_out_of_geofence"`
	OwnersFailed         int `json:"owners_failed"`

	JobsDispatched int `json:"jobs_dispatched"`
	Delivered      int `json:"delivered"`
	RejectedStale  int `json:"rejected_stale"`
	Failed         int `json:"failed"`

	Elapsed time.Duration `json:"elapsed"`
}

// AddOutcome folds one dispatch outcome into the counters. Accumulation is
// commutative: outcomes may arrive in any order.
func (s *RunSummary) AddOutcome(o Outcome) {
	switch o.Status {
	case StatusDelivered:
		s.Delivered++
	case StatusRejectedStale:
		s.RejectedStale++
	default:
		s.Failed++
	}
}

// String renders the human-readable end-of-run banner.
func (s *RunSummary) String() string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "--- Run Complete ---")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Users scanned:           %d\n", s.UsersScanned)
	fmt.Fprintf(&b, "Alerts scanned:          %d\n", s.AlertsScanned)
	fmt.Fprintf(&b, "Skipped (invalid data):  %d\n", s.SkippedInvalid)
	fmt.Fprintf(&b, "Skipped (no position):   %d\n", s.SkippedNoPosition)
	fmt.Fprintf(&b, "Skipped (out of fence):  %d\n", s.SkippedOutOfGeofence)
	if s.OwnersFailed > 0 {
		fmt.Fprintf(&b, "Owners failed:           %d\n", s.OwnersFailed)
	}
	fmt.Fprintf(&b, "Notifications sent:      %d\n", s.Delivered)
	fmt.Fprintf(&b, "Stale tokens:            %d\n", s.RejectedStale)
	fmt.Fprintf(&b, "Send failures:           %d\n", s.Failed)
	fmt.Fprintf(&b, "Elapsed:                 %.2fs\n", s.Elapsed.Seconds())
	fmt.Fprint(&b, rule)
	return b.String()
}
