package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uizzuu/ddauction-project-sub000/internal/auctionerrors"
	"github.com/uizzuu/ddauction-project-sub000/internal/metrics"
	"github.com/uizzuu/ddauction-project-sub000/internal/models"
	"github.com/uizzuu/ddauction-project-sub000/internal/repository"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

// Deliverer pushes a persisted notification to a user's live connections.
// The hub satisfies this.
type Deliverer interface {
	NotifyUser(userID string, n models.Notification) bool
}

// Dispatcher persists notifications and attempts best-effort live delivery.
// Send never blocks and never fails its caller: a full queue drops the
// notification with a warning, storage errors are logged and swallowed.
type Dispatcher struct {
	store     repository.AuctionStore
	deliverer Deliverer
	metrics   *metrics.Metrics

	queue chan models.Notification
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a dispatcher with the given queue capacity.
func New(store repository.AuctionStore, deliverer Deliverer, m *metrics.Metrics, queueSize int) *Dispatcher {
	return &Dispatcher{
		store:     store,
		deliverer: deliverer,
		metrics:   m,
		queue:     make(chan models.Notification, queueSize),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop drains the queue and waits for the worker to finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send enqueues a notification for the recipient. Fire-and-forget: the
// caller never observes a failure.
func (d *Dispatcher) Send(recipientID string, category models.NotificationCategory, message string) {
	n := models.Notification{
		NotificationID: utils.GenerateID(),
		RecipientID:    recipientID,
		Category:       category,
		Message:        message,
		CreatedAt:      time.Now().UTC(),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		utils.Warn("dispatcher: send after stop, notification dropped", map[string]any{
			"recipient_id": recipientID,
			"category":     string(category),
		})
		return
	}

	select {
	case d.queue <- n:
	default:
		utils.Warn("dispatcher: queue full, notification dropped", map[string]any{
			"recipient_id": recipientID,
			"category":     string(category),
		})
	}
}

// run consumes the queue until Stop closes it.
func (d *Dispatcher) run() {
	defer d.wg.Done()

	for n := range d.queue {
		d.deliver(n)
	}
}

// deliver persists the record, then attempts live delivery. Both steps are
// best-effort.
func (d *Dispatcher) deliver(n models.Notification) {
	if err := d.store.InsertNotification(n); err != nil {
		utils.Error("dispatcher: failed to persist notification", map[string]any{
			"recipient_id": n.RecipientID,
			"category":     string(n.Category),
			"error":        err.Error(),
		})
		return
	}

	d.metrics.NotificationSent(string(n.Category))

	if d.deliverer != nil {
		// No open connection is not an error; the persisted record
		// allows later retrieval.
		d.deliverer.NotifyUser(n.RecipientID, n)
	}
}

// ListForRecipient returns a user's notifications, newest first.
func (d *Dispatcher) ListForRecipient(recipientID string) ([]models.Notification, error) {
	if recipientID == "" {
		return nil, fmt.Errorf("dispatcher: %w - empty recipient ID", auctionerrors.ErrInvalidBid)
	}
	out, err := d.store.GetNotificationsByRecipient(recipientID)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: failed to list notifications for %s: %w", recipientID, err)
	}
	return out, nil
}

// MarkRead flips the read flag on one notification.
func (d *Dispatcher) MarkRead(notificationID string) error {
	if notificationID == "" {
		return fmt.Errorf("dispatcher: %w - empty notification ID", auctionerrors.ErrInvalidBid)
	}
	if err := d.store.MarkNotificationRead(notificationID); err != nil {
		return fmt.Errorf("dispatcher: failed to mark notification %s read: %w", notificationID, err)
	}
	return nil
}
