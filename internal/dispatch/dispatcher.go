package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trackaship/alarmsender/internal/domain"
	"github.com/trackaship/alarmsender/internal/metrics"
	"github.com/trackaship/alarmsender/internal/push"
)

// DefaultConcurrency bounds in-flight sends when no limit is configured.
const DefaultConcurrency = 10

// Templates render the notification title and body. The single %s slots are
// filled with the alert's target label and target ID respectively.
type Templates struct {
	Title string
	Body  string
}

// Dispatcher fans a job batch out over a bounded worker pool, one send per
// job, and returns exactly one outcome per job.
type Dispatcher struct {
	transport   push.Transport
	templates   Templates
	concurrency int
	log         *zap.Logger
	now         func() time.Time
}

func New(transport push.Transport, templates Templates, concurrency int, log *zap.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Dispatcher{
		transport:   transport,
		templates:   templates,
		concurrency: concurrency,
		log:         log,
		now:         time.Now,
	}
}

// Dispatch delivers the batch. Outcomes arrive in completion order, not
// submission order. An empty batch is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, jobs []domain.NotificationJob) []domain.Outcome {
	if len(jobs) == 0 {
		return nil
	}
	d.log.Info("dispatch_start", zap.Int("jobs", len(jobs)), zap.Int("concurrency", d.concurrency))

	sem := make(chan struct{}, d.concurrency)
	results := make(chan domain.Outcome, len(jobs))
	var wg sync.WaitGroup

	for _, job := range jobs {
		j := job
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results <- d.sendOne(ctx, j)
		}()
	}

	wg.Wait()
	close(results)

	out := make([]domain.Outcome, 0, len(jobs))
	for o := range results {
		metrics.Outcomes.WithLabelValues(o.Status.String()).Inc()
		out = append(out, o)
	}
	d.log.Info("dispatch_done", zap.Int("outcomes", len(out)))
	return out
}

func (d *Dispatcher) sendOne(ctx context.Context, job domain.NotificationJob) (out domain.Outcome) {
	out = domain.Outcome{AlertID: job.AlertID}

	// A panicking transport must not take its sibling jobs down with it.
	defer func() {
		if r := recover(); r != nil {
			out.Status = domain.StatusTransportError
			out.Detail = fmt.Sprintf("transport panic: %v", r)
			d.log.Error("dispatch_panic", zap.String("alert", string(job.AlertID)), zap.Any("panic", r))
		}
	}()

	n := push.Notification{
		Title: fmt.Sprintf(d.templates.Title, job.TargetLabel),
		Body:  fmt.Sprintf(d.templates.Body, job.Target),
		Data: map[string]string{
			"vesselMMSI": string(job.Target),
			"alertName":  job.TargetLabel,
			"timestamp":  fmt.Sprintf("%d", d.now().Unix()),
		},
	}

	msgID, err := d.transport.Send(ctx, job.DeviceToken, n)
	if err != nil {
		out.Detail = err.Error()
		out.Status = classify(err)
		if out.Status == domain.StatusRejectedStale {
			d.log.Info("dispatch_stale_token", zap.String("alert", string(job.AlertID)))
		} else {
			d.log.Warn("dispatch_failed",
				zap.String("alert", string(job.AlertID)),
				zap.String("target", string(job.Target)),
				zap.Error(err),
			)
		}
		return out
	}

	out.Status = domain.StatusDelivered
	d.log.Debug("dispatch_delivered",
		zap.String("alert", string(job.AlertID)),
		zap.String("message_id", msgID),
	)
	return out
}

// classify decides whether a transport error means the device token is stale.
// The match is on error text because that is all FCM's legacy surface gives us.
func classify(err error) domain.OutcomeStatus {
	text := strings.ToLower(err.Error())
	if strings.Contains(text, "not registered") || strings.Contains(text, "invalid registration") {
		return domain.StatusRejectedStale
	}
	return domain.StatusTransportError
}
