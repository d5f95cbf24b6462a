package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"pizza-service/internal/apperr"
	"pizza-service/internal/models"
	"pizza-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CatalogReader resolves pizzas referenced by an order. Only ids that exist
// are returned.
type CatalogReader interface {
	GetPizzasByIDs(ctx context.Context, ids []int64) ([]models.Pizza, error)
}

// OrderRepository persists orders
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error
}

// Notifier sends a rendered order summary to the operator
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// OrderEventPublisher publishes order events
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// Dispatcher runs fire-and-forget tasks
type Dispatcher interface {
	Go(name string, task func(ctx context.Context) error)
}

// OrderOptions tunes the order workflow
type OrderOptions struct {
	// StrictTransitions rejects status changes that models.CanTransition forbids
	StrictTransitions bool
}

// OrderService handles order business logic
type OrderService struct {
	catalog    CatalogReader
	orders     OrderRepository
	notifier   Notifier
	events     OrderEventPublisher
	dispatcher Dispatcher
	opts       OrderOptions
	logger     *zap.Logger
	now        func() time.Time
}

// NewOrderService creates a new order service. notifier and events may be nil.
func NewOrderService(
	catalog CatalogReader,
	orders OrderRepository,
	notifier Notifier,
	events OrderEventPublisher,
	dispatcher Dispatcher,
	opts OrderOptions,
) *OrderService {
	return &OrderService{
		catalog:    catalog,
		orders:     orders,
		notifier:   notifier,
		events:     events,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// PlaceOrderRequest represents a request to place an order
type PlaceOrderRequest struct {
	CustomerName string             `json:"customerName" validate:"required,max=100"`
	Phone        string             `json:"phone" validate:"required,phone"`
	Address      string             `json:"address" validate:"required,max=200"`
	Items        []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	PizzaID  int64 `json:"pizzaId" validate:"gt=0"`
	Quantity int   `json:"quantity" validate:"min=1,max=100"`
}

func (r *PlaceOrderRequest) normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
}

// PlaceOrder validates req, snapshots current catalog prices into the order
// lines and persists the order with its lines as one unit. The operator is
// notified only after the write commits; notification failures never reach
// the caller.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	}()

	if req == nil {
		req = &PlaceOrderRequest{}
	}
	req.normalize()

	if err := validateStruct(req); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("invalid_request").Inc()
		util.RecordError(span, err)
		return nil, err
	}

	pizzas, err := s.resolvePizzas(ctx, req.Items)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	order := &models.Order{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Address:      req.Address,
		Status:       models.OrderStatusCreated,
		CreatedAt:    s.now().UTC(),
		Items:        make([]models.OrderItem, 0, len(req.Items)),
	}
	order.UpdatedAt = order.CreatedAt

	for _, item := range req.Items {
		pizza := pizzas[item.PizzaID]
		order.Items = append(order.Items, models.OrderItem{
			PizzaID:      pizza.ID,
			PizzaName:    pizza.Name,
			Quantity:     item.Quantity,
			PriceAtOrder: pizza.Price,
		})
	}
	order.TotalPrice = models.CalculateTotal(order.Items)

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("storage").Inc()
		err = apperr.Storage("create order", err)
		util.RecordError(span, err)
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalPrice.StringFixed(2)))

	s.notifyPlaced(order)
	s.publishPlaced(ctx, order)

	return order, nil
}

// resolvePizzas looks up the distinct pizza ids of items in one batch and
// fails with the sorted list of ids that do not exist.
func (s *OrderService) resolvePizzas(ctx context.Context, items []OrderItemRequest) (map[int64]models.Pizza, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.PizzaID]; ok {
			continue
		}
		seen[item.PizzaID] = struct{}{}
		ids = append(ids, item.PizzaID)
	}

	found, err := s.catalog.GetPizzasByIDs(ctx, ids)
	if err != nil {
		util.OrdersRejectedTotal.WithLabelValues("storage").Inc()
		return nil, apperr.Storage("resolve pizzas", err)
	}

	pizzas := make(map[int64]models.Pizza, len(found))
	for _, p := range found {
		pizzas[p.ID] = p
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := pizzas[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		util.OrdersRejectedTotal.WithLabelValues("missing_pizzas").Inc()
		return nil, &apperr.ValidationError{MissingPizzaIDs: missing}
	}

	return pizzas, nil
}

func (s *OrderService) notifyPlaced(order *models.Order) {
	if s.notifier == nil || s.dispatcher == nil {
		return
	}
	text := RenderOrderSummary(order)
	orderID := order.ID

	s.dispatcher.Go(fmt.Sprintf("notify-order-%d", orderID), func(ctx context.Context) error {
		if err := s.notifier.Send(ctx, text); err != nil {
			util.NotificationsFailedTotal.WithLabelValues(apperr.Kind(err)).Inc()
			s.logger.Warn("Failed to notify operator",
				zap.Int64("order_id", orderID),
				zap.Error(err))
			return nil
		}
		util.NotificationsSentTotal.Inc()
		return nil
	})
}

func (s *OrderService) publishPlaced(ctx context.Context, order *models.Order) {
	if s.events == nil {
		return
	}

	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			PizzaID:      item.PizzaID,
			Quantity:     item.Quantity,
			PriceAtOrder: item.PriceAtOrder,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent:  models.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:    order.ID,
		TotalPrice: order.TotalPrice,
		Items:      items,
	}
	orderID := order.ID
	s.background(ctx, fmt.Sprintf("publish-order-placed-%d", orderID), func(ctx context.Context) error {
		if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
			util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeOrderPlaced).Inc()
			s.logger.Error("Failed to publish OrderPlaced event", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return nil
	})
}

// background runs task on the dispatcher. Without one the task runs inline
// on ctx, which suits short-lived callers such as the CLI.
func (s *OrderService) background(ctx context.Context, name string, task func(ctx context.Context) error) {
	if s.dispatcher == nil {
		_ = task(ctx)
		return
	}
	s.dispatcher.Go(name, task)
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder", attribute.Int64("order.id", orderID))
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		err = apperr.Storage("get order", err)
		util.RecordError(span, err)
		return nil, err
	}
	return order, nil
}

// ListOrders returns all orders, newest first
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.orders.GetOrders(ctx)
	if err != nil {
		err = apperr.Storage("list orders", err)
		util.RecordError(span, err)
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus sets the status of an order. The target must be a
// recognized status; with StrictTransitions the move must also be allowed
// from the current status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus",
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", status))
	defer span.End()

	target, err := models.ParseOrderStatus(status)
	if err != nil {
		verr := apperr.NewValidation("status", err.Error())
		util.RecordError(span, verr)
		return verr
	}

	if s.opts.StrictTransitions {
		current, err := s.orders.GetOrderByID(ctx, orderID)
		if err != nil {
			err = apperr.Storage("get order", err)
			util.RecordError(span, err)
			return err
		}
		if !models.CanTransition(current.Status, target) {
			verr := apperr.NewValidation("status",
				fmt.Sprintf("cannot change status from %s to %s", current.Status, target))
			util.RecordError(span, verr)
			return verr
		}
	}

	if err := s.orders.UpdateOrderStatus(ctx, orderID, target); err != nil {
		err = apperr.Storage("update order status", err)
		util.RecordError(span, err)
		return err
	}

	util.OrderStatusUpdatesTotal.WithLabelValues(string(target)).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(target)))

	if s.events != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeOrderStatusChanged),
			OrderID:   orderID,
			Status:    target,
		}
		s.background(ctx, fmt.Sprintf("publish-status-%d", orderID), func(ctx context.Context) error {
			if err := s.events.PublishOrderStatusChanged(ctx, event); err != nil {
				util.EventsPublishFailedTotal.WithLabelValues(models.EventTypeOrderStatusChanged).Inc()
				s.logger.Error("Failed to publish OrderStatusChanged event", zap.Int64("order_id", orderID), zap.Error(err))
			}
			return nil
		})
	}

	return nil
}
