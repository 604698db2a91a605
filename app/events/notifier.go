package events

import (
	"context"
	"time"

	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/models"
)

// Notifier publishes events after the transaction that stored them has
// committed. A publish failure is logged; the stored event stays the record.
type Notifier struct {
	publisher Publisher
	logger    logger.Logger
	timeout   time.Duration
}

func NewNotifier(publisher Publisher, log logger.Logger, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Notifier{publisher: publisher, logger: log, timeout: timeout}
}

// Notify is a no-op on a nil Notifier.
func (n *Notifier) Notify(ctx context.Context, events ...*models.Event) {
	if n == nil || n.publisher == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.publisher.Publish(ctx, events...); err != nil && n.logger != nil {
		n.logger.Error(err, map[string]interface{}{
			"action": "publish_events",
			"count":  len(events),
			"type":   string(events[0].Type),
		})
	}
}
