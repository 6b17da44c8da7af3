package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Gateway opens hosted payment sessions and confirms payments out-of-band.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	Verify(ctx context.Context, txRef string) (*Verification, error)
}

// InitiateRequest describes a payment session to open.
type InitiateRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Email         string          `json:"email"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	CallbackURL   string          `json:"callback_url"`
	ReturnURL     string          `json:"return_url"`
	TxRef         string          `json:"tx_ref"`
	Customization Customization   `json:"customization"`
}

// Customization is shown on the hosted payment page.
type Customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// InitiateResponse is the gateway's answer to a session request.
type InitiateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// Accepted reports whether the gateway opened a session.
func (r *InitiateResponse) Accepted() bool {
	return (r.Status == "success" || r.Status == "initiated") && r.Data.CheckoutURL != ""
}

// Verification is the gateway's authoritative view of a payment.
type Verification struct {
	Status string `json:"status"`
	Data   struct {
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		TxRef    string          `json:"tx_ref"`
	} `json:"data"`
}

// Successful reports whether the gateway confirms the payment completed.
func (v *Verification) Successful() bool {
	return v.Status == "success" && v.Data.Status == "successful"
}

// GatewayError wraps transport failures, non-2xx responses and undecodable bodies.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("gateway %s: status %d", e.Op, e.StatusCode)
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
