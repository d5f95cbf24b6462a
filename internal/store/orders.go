package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pizza-service/internal/apperr"
	"pizza-service/internal/models"
)

const orderColumns = `id, customer_name, phone, address, total_price, status, created_at, updated_at`

// pizza_id reads as 0 once the pizza has been deleted.
const orderItemQuery = `
	SELECT oi.id, oi.order_id, COALESCE(oi.pizza_id, 0) AS pizza_id, COALESCE(p.name, '') AS pizza_name,
		oi.quantity, oi.price_at_order
	FROM order_items oi
	LEFT JOIN pizzas p ON p.id = oi.pizza_id`

// CreateOrder writes the order and all of its items in one transaction.
// On success order.ID and every item's ID/OrderID are set.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Storage("begin order tx", err)
	}
	defer tx.Rollback()

	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	err = tx.GetContext(ctx, &order.ID, s.rebind(`
		INSERT INTO orders (customer_name, phone, address, total_price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		order.CustomerName, order.Phone, order.Address, order.TotalPrice, order.Status,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return apperr.Storage("insert order", err)
	}

	itemQuery := s.rebind(`
		INSERT INTO order_items (order_id, pizza_id, quantity, price_at_order)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.GetContext(ctx, &item.ID, itemQuery,
			item.OrderID, item.PizzaID, item.Quantity, item.PriceAtOrder); err != nil {
			return apperr.Storage("insert order item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Storage("commit order", err)
	}
	return nil
}

// GetOrderByID retrieves an order with its items
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, s.rebind("SELECT "+orderColumns+" FROM orders WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperr.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		return nil, apperr.Storage("get order", err)
	}

	items, err := s.GetOrderItemsByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// GetOrders retrieves all orders, newest first, with their items
func (s *Store) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, apperr.Storage("list orders", err)
	}
	if len(orders) == 0 {
		return []models.Order{}, nil
	}

	// No IN list of order ids: it would outgrow the driver's bind variable limit.
	var items []models.OrderItem
	if err := s.db.SelectContext(ctx, &items, orderItemQuery+" ORDER BY oi.order_id, oi.id"); err != nil {
		return nil, apperr.Storage("list order items", err)
	}

	byOrder := make(map[int64][]models.OrderItem, len(orders))
	for _, item := range fillNames(items) {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}
	return orders, nil
}

// CountOrders returns the number of stored orders
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM orders"); err != nil {
		return 0, apperr.Storage("count orders", err)
	}
	return n, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items, s.rebind(orderItemQuery+" WHERE oi.order_id = ? ORDER BY oi.id"), orderID)
	if err != nil {
		return nil, apperr.Storage("get order items", err)
	}
	return fillNames(items), nil
}

// UpdateOrderStatus sets the status of an existing order
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?"),
		status, time.Now().UTC(), orderID)
	if err != nil {
		return apperr.Storage("update order status", err)
	}
	return expectRow(res, "order", orderID)
}

func fillNames(items []models.OrderItem) []models.OrderItem {
	for i := range items {
		if items[i].PizzaName == "" {
			items[i].PizzaName = models.UnknownPizzaName
		}
	}
	return items
}
