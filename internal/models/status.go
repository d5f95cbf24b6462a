package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusCreated        OrderStatus = "Created"
	OrderStatusAccepted       OrderStatus = "Accepted"
	OrderStatusPreparing      OrderStatus = "Preparing"
	OrderStatusOutForDelivery OrderStatus = "OutForDelivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

// AllOrderStatuses lists the recognized statuses in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusAccepted,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus matches s against the recognized statuses, ignoring case.
func ParseOrderStatus(s string) (OrderStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range AllOrderStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// IsValid reports whether st is one of the recognized statuses.
func (st OrderStatus) IsValid() bool {
	return st.rank() >= 0
}

// IsTerminal reports whether no further transitions are expected.
func (st OrderStatus) IsTerminal() bool {
	return st == OrderStatusDelivered || st == OrderStatusCancelled
}

func (st OrderStatus) rank() int {
	for i, s := range AllOrderStatuses {
		if s == st {
			return i
		}
	}
	return -1
}

// CanTransition is the forward-only lifecycle: terminal states are final,
// any live order may be cancelled, otherwise the status may only move forward.
func CanTransition(from, to OrderStatus) bool {
	if !from.IsValid() || !to.IsValid() || from.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return to.rank() > from.rank()
}

// Value implements driver.Valuer
func (st OrderStatus) Value() (driver.Value, error) {
	return string(st), nil
}

// Scan implements sql.Scanner
func (st *OrderStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*st = OrderStatus(v)
	case []byte:
		*st = OrderStatus(v)
	default:
		return fmt.Errorf("order status: unsupported type %T", src)
	}
	return nil
}
