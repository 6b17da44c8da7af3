package main

import (
	"encoding/json"
	"fmt"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/spf13/cobra"
)

func settleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle <tx_ref>",
		Short: "Confirm a payment with the gateway and settle its order",
		Long: `Settle re-runs reconciliation for one transaction reference, as if its
webhook had just arrived. Use it when a notification was lost.

Examples:
  storectl settle tx-3f2c9a6e-7f0b-4d55-9c1e-2b8a4f6d0e11-1772366400000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := config.NewLogger(cfg.Logger)

			pool, err := database.NewPool(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer pool.Close()

			reconciler := service.NewReconciler(
				repository.NewOrderRepository(pool, logger),
				repository.NewProductRepository(pool, logger),
				payment.NewPayChanguClient(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey, cfg.Gateway.Timeout, logger),
				events.NopPublisher{},
				cfg.Gateway.WebhookSecret,
				logger,
			)

			result, err := reconciler.Settle(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
