package run

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/trackaship/alarmsender/internal/dispatch"
	"github.com/trackaship/alarmsender/internal/domain"
	"github.com/trackaship/alarmsender/internal/push"
	"github.com/trackaship/alarmsender/internal/repo"
	"github.com/trackaship/alarmsender/internal/repo/memory"
	"github.com/trackaship/alarmsender/internal/scan"
)

var testTemplates = dispatch.Templates{
	Title: "🚨 Ship Alert: %s Detected!",
	Body:  "Vessel MMSI: %s.",
}

type recordingTransport struct {
	mu   sync.Mutex
	errs map[string]error
	sent int
}

func (r *recordingTransport) Send(ctx context.Context, token string, n push.Notification) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent++
	if err := r.errs[token]; err != nil {
		return "", err
	}
	return "m", nil
}

func orchestrate(store *memory.Store, tr push.Transport, probe Probe) *Orchestrator {
	log := zap.NewNop()
	return New(
		store,
		scan.New(store, store, log),
		dispatch.New(tr, testTemplates, 2, log),
		probe,
		log,
	)
}

func seedValidAlert(store *memory.Store, owner, id, token string) {
	store.AddAlert(domain.AlertRecord{
		Owner:        domain.OwnerID(owner),
		ID:           domain.AlertID(id),
		Target:       "246571000",
		TargetLabel:  "Boaty",
		DeviceToken:  token,
		Mode:         domain.ModeInsideRadius,
		RadiusMeters: 13000,
		CenterLat:    55.757911,
		CenterLon:    12.453396,
	})
}

func TestRun_HappyPath(t *testing.T) {
	store := memory.New()
	seedValidAlert(store, "userA", "a1", "tok1")
	store.AddPosition(domain.Position{Target: "246571000", Lat: 55.69, Lon: 12.56, ObservedAt: time.Now()})

	tr := &recordingTransport{}
	o := orchestrate(store, tr, Probe{})

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if o.State() != StateSummarized {
		t.Fatalf("want summarized, got %v", o.State())
	}
	if sum.JobsDispatched != 1 || sum.Delivered != 1 || sum.Failed != 0 {
		t.Fatalf("summary wrong: %+v", sum)
	}
	if sum.RunID == "" || sum.Elapsed <= 0 {
		t.Fatalf("run metadata missing: %+v", sum)
	}
}

func TestRun_ProbeGateAbortsOnMissingDocument(t *testing.T) {
	store := memory.New()
	seedValidAlert(store, "userA", "a1", "tok1")

	tr := &recordingTransport{}
	o := orchestrate(store, tr, Probe{Owner: "userA", Alert: "no-such-alert"})

	sum, err := o.Run(context.Background())
	if !errors.Is(err, ErrDiagnosticFailed) {
		t.Fatalf("want ErrDiagnosticFailed, got %v", err)
	}
	if o.State() != StateAborted {
		t.Fatalf("want aborted, got %v", o.State())
	}
	if sum.AlertsScanned != 0 || tr.sent != 0 {
		t.Fatalf("abort must precede scanning and dispatch: %+v, sent=%d", sum, tr.sent)
	}
}

func TestRun_ProbeGateAbortsOnMissingFields(t *testing.T) {
	store := memory.New()
	store.AddAlert(domain.AlertRecord{Owner: "userA", ID: "a1", Target: "246571000"}) // no label, no token

	o := orchestrate(store, &recordingTransport{}, Probe{Owner: "userA", Alert: "a1"})
	_, err := o.Run(context.Background())
	if !errors.Is(err, ErrDiagnosticFailed) {
		t.Fatalf("want ErrDiagnosticFailed, got %v", err)
	}
}

func TestRun_ProbePassesAndDedupes(t *testing.T) {
	store := memory.New()
	seedValidAlert(store, "userA", "a1", "tok1")
	store.AddPosition(domain.Position{Target: "246571000", Lat: 55.69, Lon: 12.56, ObservedAt: time.Now()})

	tr := &recordingTransport{}
	o := orchestrate(store, tr, Probe{Owner: "userA", Alert: "a1"})

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// probe owner is also the only owner; it must be scanned exactly once
	if sum.UsersScanned != 1 || sum.JobsDispatched != 1 || tr.sent != 1 {
		t.Fatalf("probe owner double-processed: %+v, sent=%d", sum, tr.sent)
	}
}

func TestRun_EmptyScanStillSummarizes(t *testing.T) {
	store := memory.New()
	store.AddOwner("userA")

	tr := &recordingTransport{}
	o := orchestrate(store, tr, Probe{})

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if o.State() != StateSummarized {
		t.Fatalf("want summarized, got %v", o.State())
	}
	if sum.UsersScanned != 1 || sum.JobsDispatched != 0 || tr.sent != 0 {
		t.Fatalf("empty batch should be a no-op: %+v", sum)
	}
}

type deniedOwners struct{ *memory.Store }

func (d *deniedOwners) Owners(ctx context.Context) (repo.OwnerIterator, error) {
	return nil, repo.ErrAccessDenied
}

func TestRun_FullScanFailureAborts(t *testing.T) {
	store := memory.New()
	tr := &recordingTransport{}
	log := zap.NewNop()
	o := New(
		&deniedOwners{store},
		scan.New(&deniedOwners{store}, store, log),
		dispatch.New(tr, testTemplates, 2, log),
		Probe{},
		log,
	)

	sum, err := o.Run(context.Background())
	if !errors.Is(err, scan.ErrFullScan) {
		t.Fatalf("want ErrFullScan, got %v", err)
	}
	if o.State() != StateAborted {
		t.Fatalf("want aborted, got %v", o.State())
	}
	if sum.AlertsScanned != 0 || sum.JobsDispatched != 0 || tr.sent != 0 {
		t.Fatalf("aborted run must not dispatch: %+v, sent=%d", sum, tr.sent)
	}
}

func TestRunSummary_Banner(t *testing.T) {
	sum := &domain.RunSummary{UsersScanned: 3, AlertsScanned: 5, Delivered: 2, RejectedStale: 1}
	out := sum.String()
	for _, want := range []string{"Users scanned:", "Notifications sent:", "Stale tokens:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("banner missing %q:\n%s", want, out)
		}
	}
}
