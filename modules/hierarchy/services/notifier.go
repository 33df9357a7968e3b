package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/eventbus"
)

// Notifier is told about the outcome of every reconciliation so callers can
// surface it to users.
type Notifier interface {
	Reconciled(ctx context.Context, res *Result)
	Failed(ctx context.Context, err error)
}

type Notifiers []Notifier

func (n Notifiers) Reconciled(ctx context.Context, res *Result) {
	for _, notifier := range n {
		notifier.Reconciled(ctx, res)
	}
}

func (n Notifiers) Failed(ctx context.Context, err error) {
	for _, notifier := range n {
		notifier.Failed(ctx, err)
	}
}

type LogNotifier struct {
	logger *logrus.Entry
}

// NewLogNotifier logs outcomes to logger, or to the request logger when logger is nil.
func NewLogNotifier(logger *logrus.Entry) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) entry(ctx context.Context) *logrus.Entry {
	if n.logger != nil {
		return n.logger
	}
	return composables.UseLogger(ctx)
}

func (n *LogNotifier) Reconciled(ctx context.Context, res *Result) {
	n.entry(ctx).WithFields(logrus.Fields{
		"created": len(res.Created),
		"aliased": len(res.Aliased),
		"updated": res.Updated,
		"skipped": len(res.Skipped),
	}).Info("hierarchy saved")
}

func (n *LogNotifier) Failed(ctx context.Context, err error) {
	n.entry(ctx).WithError(err).Error("failed to save hierarchy")
}

type ReconciledEvent struct {
	Result *Result
}

type ReconcileFailedEvent struct {
	Err error
}

type EventNotifier struct {
	publisher eventbus.EventBus
}

func NewEventNotifier(publisher eventbus.EventBus) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

// Reconciled publishes once the surrounding transaction commits.
func (n *EventNotifier) Reconciled(ctx context.Context, res *Result) {
	composables.AfterCommit(ctx, func() { n.publisher.Publish(&ReconciledEvent{Result: res}) })
}

func (n *EventNotifier) Failed(_ context.Context, err error) {
	n.publisher.Publish(&ReconcileFailedEvent{Err: err})
}
