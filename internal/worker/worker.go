package worker

import (
	"context"
	"sync"

	"pizza-service/internal/broker"
	"pizza-service/internal/models"
	"pizza-service/internal/util"

	"go.uber.org/zap"
)

// StatusPublisher pushes status updates to connected clients
type StatusPublisher interface {
	PublishStatus(ctx context.Context, update models.StatusUpdate) error
}

// StatusWorker forwards ORDER_STATUS_CHANGED events from Kafka to the
// real-time status hub.
type StatusWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	hub          StatusPublisher
	logger       *zap.Logger

	stopOnce sync.Once
}

// NewStatusWorker creates a new status worker
func NewStatusWorker(consumer *broker.Consumer, hub StatusPublisher) *StatusWorker {
	w := &StatusWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		hub:          hub,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnOrderStatusChanged(w.handleStatusChanged)
	return w
}

// Start consumes events until ctx is cancelled
func (w *StatusWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting status worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the underlying consumer
func (w *StatusWorker) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping status worker")
		err = w.consumer.Close()
	})
	return err
}

func (w *StatusWorker) handleStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	update := models.StatusUpdate{
		OrderID:   event.OrderID,
		Status:    event.Status,
		UpdatedAt: event.Timestamp,
	}
	if err := w.hub.PublishStatus(ctx, update); err != nil {
		w.logger.Warn("Failed to push status update",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
		return err
	}
	return nil
}

// DirectStatusPush feeds the status hub straight from the order workflow
// when no Kafka broker is configured.
type DirectStatusPush struct {
	hub StatusPublisher
}

// NewDirectStatusPush creates a publisher that writes to hub
func NewDirectStatusPush(hub StatusPublisher) *DirectStatusPush {
	return &DirectStatusPush{hub: hub}
}

// PublishOrderPlaced is a no-op; clients only follow status changes
func (p *DirectStatusPush) PublishOrderPlaced(context.Context, *models.OrderPlacedEvent) error {
	return nil
}

// PublishOrderStatusChanged pushes the change to the hub
func (p *DirectStatusPush) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return p.hub.PublishStatus(ctx, models.StatusUpdate{
		OrderID:   event.OrderID,
		Status:    event.Status,
		UpdatedAt: event.Timestamp,
	})
}
