package service

import (
	"fmt"
	"strings"

	"pizza-service/internal/models"
)

const summaryTimeLayout = "02.01.2006 15:04"

// RenderOrderSummary formats a placed order for the operator channel
func RenderOrderSummary(order *models.Order) string {
	var b strings.Builder

	fmt.Fprintf(&b, "New order #%d\n", order.ID)
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	fmt.Fprintf(&b, "Phone: %s\n", order.Phone)
	fmt.Fprintf(&b, "Address: %s\n", order.Address)
	b.WriteString("Items:\n")
	for _, item := range order.Items {
		name := item.PizzaName
		if name == "" {
			name = models.UnknownPizzaName
		}
		fmt.Fprintf(&b, "- %s x%d: %s\n", name, item.Quantity, item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", order.TotalPrice.StringFixed(2))
	fmt.Fprintf(&b, "Created: %s", order.CreatedAt.Format(summaryTimeLayout))

	return b.String()
}
