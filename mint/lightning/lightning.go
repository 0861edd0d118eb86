package lightning

import "context"

// Client interface to interact with a Lightning backend
type Client interface {
	CreateInvoice(amount uint64) (Invoice, error)
	InvoiceStatus(hash string) (Invoice, error)
	FeeReserve(amount uint64) uint64
	SendPayment(ctx context.Context, request string, amount uint64) (PaymentStatus, error)
	OutgoingPaymentStatus(ctx context.Context, hash string) (PaymentStatus, error)
	SubscribeInvoice(ctx context.Context, hash string) (InvoiceSubscriptionClient, error)
}

type Invoice struct {
	PaymentRequest string
	PaymentHash    string
	Settled        bool
	Amount         uint64
	Expiry         uint64
}

// State is the outcome of an outgoing Lightning payment attempt.
type State int

const (
	Pending State = iota
	Succeeded
	Failed
)

type PaymentStatus struct {
	PaymentStatus State
	Preimage      string
}

// InvoiceSubscriptionClient streams settlement updates for a single invoice.
type InvoiceSubscriptionClient interface {
	Recv() (Invoice, error)
}
