package model

import "github.com/google/uuid"

// WebhookPayload is the subset of the gateway notification the service reads.
// Only trusted after the signature has been verified.
type WebhookPayload struct {
	TxRef  string `json:"tx_ref"`
	Status string `json:"status"`
}

// PaymentStatusSuccessful is the gateway's sentinel for a completed payment.
const PaymentStatusSuccessful = "successful"

// ReconcileOutcome describes what reconciliation did with a notification.
type ReconcileOutcome string

const (
	OutcomePaid          ReconcileOutcome = "paid"
	OutcomeAlreadyPaid   ReconcileOutcome = "already_paid"
	OutcomeIgnored       ReconcileOutcome = "ignored"
	OutcomeUnconfirmed   ReconcileOutcome = "unconfirmed"
	OutcomeOrderNotFound ReconcileOutcome = "order_not_found"
	OutcomeNotPayable    ReconcileOutcome = "not_payable"
)

// ReconcileResult is the result of reconciling one payment reference.
type ReconcileResult struct {
	Outcome ReconcileOutcome `json:"outcome"`
	TxRef   string           `json:"txRef,omitempty"`
	OrderID uuid.UUID        `json:"orderId,omitempty"`
}

// WebhookAck is the body returned to the gateway for every accepted notification.
type WebhookAck struct {
	Received bool `json:"received"`
}
