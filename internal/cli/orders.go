package cli

import (
	"fmt"
	"strconv"

	"pizza-service/config"
	"pizza-service/internal/broker"
	"pizza-service/internal/service"

	"github.com/spf13/cobra"
)

func newOrdersCmd(opts *globalOptions, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and manage orders",
	}
	cmd.AddCommand(newOrdersListCmd(opts))
	cmd.AddCommand(newOrdersStatusCmd(opts, cfg))
	return cmd
}

func newOrdersListCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			orders := service.NewOrderService(db, db, nil, nil, nil, service.OrderOptions{})
			list, err := orders.ListOrders(ctx)
			if err != nil {
				return err
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}

			fmt.Fprint(cmd.OutOrStdout(), renderOrders(list))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n orders")
	return cmd
}

func newOrdersStatusCmd(opts *globalOptions, cfg *config.Config) *cobra.Command {
	var (
		strict  bool
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Change the status of an order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid order id %q", args[0])
			}

			ctx := cmd.Context()
			db, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			var events service.OrderEventPublisher
			if publish && len(cfg.Kafka.Brokers) > 0 {
				producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
				defer producer.Close()
				events = broker.NewEventPublisher(producer)
			}

			orders := service.NewOrderService(db, db, nil, events, nil, service.OrderOptions{StrictTransitions: strict})
			if err := orders.UpdateOrderStatus(ctx, id, args[1]); err != nil {
				return err
			}

			order, err := orders.GetOrder(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s order #%d is now %s\n",
				passStyle.Render("✓"), order.ID, statusStyle(order.Status).Render(string(order.Status)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", cfg.Business.StrictStatusTransitions, "only allow forward lifecycle moves")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish ORDER_STATUS_CHANGED to Kafka")
	return cmd
}
