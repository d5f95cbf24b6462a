package cli

import (
	"fmt"
	"strings"

	"pizza-service/internal/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#D97706")
	fg      = lipgloss.Color("#E8E6E3")
	dim     = lipgloss.Color("#6B7280")
	faint   = lipgloss.Color("#3F3F46")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
	info    = lipgloss.Color("#60A5FA")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(fg)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	faintStyle  = lipgloss.NewStyle().Foreground(faint)
	passStyle   = lipgloss.NewStyle().Foreground(success)
	skipStyle   = lipgloss.NewStyle().Foreground(dim)

	statusColors = map[models.OrderStatus]lipgloss.Color{
		models.OrderStatusCreated:        info,
		models.OrderStatusAccepted:       info,
		models.OrderStatusPreparing:      warning,
		models.OrderStatusOutForDelivery: warning,
		models.OrderStatusDelivered:      success,
		models.OrderStatusCancelled:      danger,
	}
)

func statusStyle(st models.OrderStatus) lipgloss.Style {
	c, ok := statusColors[st]
	if !ok {
		c = fg
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c)
}

// renderOrders prints one block per order: a header line with id, status
// and total, followed by the customer and the order lines.
func renderOrders(orders []models.Order) string {
	if len(orders) == 0 {
		return dimStyle.Render("no orders yet") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%d orders", len(orders))))
	b.WriteString("\n")
	b.WriteString(faintStyle.Render(strings.Repeat("─", 56)))
	b.WriteString("\n")

	for _, o := range orders {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			titleStyle.Render(fmt.Sprintf("#%-5d", o.ID)),
			statusStyle(o.Status).Render(fmt.Sprintf("%-14s", o.Status)),
			titleStyle.Render(o.TotalPrice.StringFixed(2)),
			dimStyle.Render(o.CreatedAt.Local().Format("02.01.2006 15:04")))
		fmt.Fprintf(&b, "       %s %s\n", o.CustomerName, dimStyle.Render(o.Phone+", "+o.Address))
		for _, item := range o.Items {
			fmt.Fprintf(&b, "       %s %s x%d\n", dimStyle.Render("·"), item.PizzaName, item.Quantity)
		}
	}
	return b.String()
}
