package graphview

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/motorgraph/motorgraph/pkg/natsutil"
)

const (
	// FilterSubject carries Criteria messages from presentation collaborators.
	FilterSubject = "motorgraph.graph.filter"
	// VisibilitySubject carries the resulting Changes back out.
	VisibilitySubject = "motorgraph.graph.visibility"
)

// NATSRenderer pushes visibility changes to a rendering collaborator over a
// NATS subject.
type NATSRenderer struct {
	nc      *nats.Conn
	subject string
}

// NewNATSRenderer creates a renderer publishing to the given subject, or
// VisibilitySubject when empty.
func NewNATSRenderer(nc *nats.Conn, subject string) *NATSRenderer {
	if subject == "" {
		subject = VisibilitySubject
	}
	return &NATSRenderer{nc: nc, subject: subject}
}

// Apply publishes the change set.
func (r *NATSRenderer) Apply(ch Changes) error {
	return natsutil.Publish(context.Background(), r.nc, r.subject, ch)
}

// StartFilterWorker subscribes to FilterSubject and runs incoming criteria
// through the debounced scheduler, pushing the resulting changes at the
// renderer. Rapid criteria bursts collapse to one recomputation per quiet
// window.
func StartFilterWorker(nc *nats.Conn, view *View, r Renderer, window time.Duration, logger *slog.Logger) (*nats.Subscription, *Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sched := NewScheduler(window, func(c Criteria) {
		ch := view.Filter(c)
		if err := r.Apply(ch); err != nil {
			logger.Error("graphview: push visibility changes", "error", err)
		}
	})
	sub, err := natsutil.Subscribe(nc, FilterSubject, func(_ context.Context, c Criteria) {
		sched.Trigger(c)
	})
	if err != nil {
		sched.Stop()
		return nil, nil, err
	}
	return sub, sched, nil
}
