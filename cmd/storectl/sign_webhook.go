package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"storefront/internal/model"
	"storefront/internal/payment"

	"github.com/spf13/cobra"
)

func signWebhookCmd() *cobra.Command {
	var (
		txRef  string
		status string
		secret string
	)

	cmd := &cobra.Command{
		Use:   "sign-webhook",
		Short: "Print a signed payment notification for local testing",
		Long: `Sign-webhook prints a notification body and the signature header the
gateway would send for it. The secret defaults to GATEWAY_WEBHOOK_SECRET,
then GATEWAY_SECRET_KEY.

Examples:
  storectl sign-webhook --tx-ref tx-abc-1 --status successful`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("GATEWAY_WEBHOOK_SECRET")
			}
			if secret == "" {
				secret = os.Getenv("GATEWAY_SECRET_KEY")
			}
			if secret == "" {
				return errors.New("no webhook secret: pass --secret or set GATEWAY_WEBHOOK_SECRET")
			}

			body, err := json.Marshal(model.WebhookPayload{TxRef: txRef, Status: status})
			if err != nil {
				return fmt.Errorf("failed to encode payload: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", payment.SignatureHeader, payment.Sign(body, []byte(secret)))
			fmt.Fprintf(out, "%s\n", body)
			return nil
		},
	}

	cmd.Flags().StringVar(&txRef, "tx-ref", "", "transaction reference to notify about")
	cmd.Flags().StringVar(&status, "status", model.PaymentStatusSuccessful, "payment status")
	cmd.Flags().StringVar(&secret, "secret", "", "webhook signing secret")
	_ = cmd.MarkFlagRequired("tx-ref")

	return cmd
}
