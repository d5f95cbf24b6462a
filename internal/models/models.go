package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// UnknownPizzaName is shown for order lines whose pizza was removed from the catalog.
const UnknownPizzaName = "Unknown"

// Pizza represents a catalog entry
type Pizza struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  Description     `json:"description"`
	Price        decimal.Decimal `json:"price"`
	IsVegetarian bool            `json:"isVegetarian"`
	PhotoPath    string          `json:"photoPath"`
}

// Description holds the descriptive part of a pizza
type Description struct {
	Text        string      `json:"text"`
	Ingredients Ingredients `json:"ingredients"`
	Weight      string      `json:"weight"`
}

// Ingredients is stored as a single comma-joined column.
type Ingredients []string

// Value implements driver.Valuer. An ingredient containing the separator
// could not be read back as written, so it is refused.
func (in Ingredients) Value() (driver.Value, error) {
	for _, ing := range in {
		if strings.Contains(ing, ",") {
			return nil, fmt.Errorf("ingredients: %q contains a comma", ing)
		}
	}
	return strings.Join(in, ","), nil
}

// Scan implements sql.Scanner
func (in *Ingredients) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*in = Ingredients{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("ingredients: unsupported type %T", src)
	}

	out := Ingredients{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*in = out
	return nil
}

// Order represents a placed customer order
type Order struct {
	ID           int64           `db:"id" json:"id"`
	CustomerName string          `db:"customer_name" json:"customerName"`
	Phone        string          `db:"phone" json:"phone"`
	Address      string          `db:"address" json:"address"`
	TotalPrice   decimal.Decimal `db:"total_price" json:"totalPrice"`
	Status       OrderStatus     `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
	Items        []OrderItem     `db:"-" json:"items"`
}

// OrderItem is a single order line. PriceAtOrder is copied from the catalog
// when the order is placed and never changes afterwards.
type OrderItem struct {
	ID           int64           `db:"id" json:"id"`
	OrderID      int64           `db:"order_id" json:"orderId"`
	PizzaID      int64           `db:"pizza_id" json:"pizzaId"`
	PizzaName    string          `db:"pizza_name" json:"pizzaName"`
	Quantity     int             `db:"quantity" json:"quantity"`
	PriceAtOrder decimal.Decimal `db:"price_at_order" json:"priceAtOrder"`
}

// LineTotal returns quantity x price-at-order.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtOrder.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CalculateTotal sums the line totals of items.
func CalculateTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
