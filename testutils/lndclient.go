package testutils

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/cashuhub/ecash-core/mint/lightning"
)

// lndRPCClient implements mint/lightning.Client directly over lnd's gRPC
// API, for driving a dockerized lnd node as a mint's Lightning backend in
// integration tests.
type lndRPCClient struct {
	conn      *grpc.ClientConn
	lightning lnrpc.LightningClient
	invoices  invoicesrpc.InvoicesClient
}

func newLndRPCClient(host string, creds credentials.TransportCredentials, macCreds credentials.PerRPCCredentials) (*lndRPCClient, error) {
	conn, err := grpc.Dial(
		host,
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(macCreds),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to lnd: %v", err)
	}

	return &lndRPCClient{
		conn:      conn,
		lightning: lnrpc.NewLightningClient(conn),
		invoices:  invoicesrpc.NewInvoicesClient(conn),
	}, nil
}

func (c *lndRPCClient) CreateInvoice(amount uint64) (lightning.Invoice, error) {
	ctx := context.Background()
	res, err := c.lightning.AddInvoice(ctx, &lnrpc.Invoice{Value: int64(amount)})
	if err != nil {
		return lightning.Invoice{}, err
	}
	return lightning.Invoice{
		PaymentRequest: res.PaymentRequest,
		PaymentHash:    hex.EncodeToString(res.RHash),
		Amount:         amount,
	}, nil
}

func (c *lndRPCClient) InvoiceStatus(hash string) (lightning.Invoice, error) {
	hashBytes, err := hex.DecodeString(hash)
	if err != nil {
		return lightning.Invoice{}, err
	}

	ctx := context.Background()
	invoice, err := c.lightning.LookupInvoice(ctx, &lnrpc.PaymentHash{RHash: hashBytes})
	if err != nil {
		return lightning.Invoice{}, err
	}

	return lightning.Invoice{
		PaymentRequest: invoice.PaymentRequest,
		PaymentHash:    hash,
		Settled:        invoice.State == lnrpc.Invoice_SETTLED,
		Amount:         uint64(invoice.Value),
		Expiry:         uint64(invoice.Expiry),
	}, nil
}

func (c *lndRPCClient) FeeReserve(amount uint64) uint64 {
	return (amount / 100) + 1
}

func (c *lndRPCClient) SendPayment(ctx context.Context, request string, amount uint64) (lightning.PaymentStatus, error) {
	res, err := c.lightning.SendPaymentSync(ctx, &lnrpc.SendRequest{PaymentRequest: request})
	if err != nil {
		return lightning.PaymentStatus{PaymentStatus: lightning.Failed}, err
	}
	if len(res.PaymentError) > 0 {
		return lightning.PaymentStatus{PaymentStatus: lightning.Failed}, fmt.Errorf("%s", res.PaymentError)
	}

	return lightning.PaymentStatus{
		PaymentStatus: lightning.Succeeded,
		Preimage:      hex.EncodeToString(res.PaymentPreimage),
	}, nil
}

func (c *lndRPCClient) OutgoingPaymentStatus(ctx context.Context, hash string) (lightning.PaymentStatus, error) {
	res, err := c.lightning.ListPayments(ctx, &lnrpc.ListPaymentsRequest{IncludeIncomplete: true})
	if err != nil {
		return lightning.PaymentStatus{}, err
	}

	for _, payment := range res.Payments {
		if payment.PaymentHash != hash {
			continue
		}
		status := lightning.Pending
		switch payment.Status {
		case lnrpc.Payment_SUCCEEDED:
			status = lightning.Succeeded
		case lnrpc.Payment_FAILED:
			status = lightning.Failed
		}
		return lightning.PaymentStatus{PaymentStatus: status, Preimage: payment.PaymentPreimage}, nil
	}

	return lightning.PaymentStatus{}, fmt.Errorf("payment not found")
}

func (c *lndRPCClient) SubscribeInvoice(ctx context.Context, hash string) (lightning.InvoiceSubscriptionClient, error) {
	hashBytes, err := hex.DecodeString(hash)
	if err != nil {
		return nil, err
	}

	stream, err := c.invoices.SubscribeSingleInvoice(ctx, &invoicesrpc.SubscribeSingleInvoiceRequest{RHash: hashBytes})
	if err != nil {
		return nil, err
	}

	return &lndInvoiceSubscription{stream: stream}, nil
}

type lndInvoiceSubscription struct {
	stream invoicesrpc.Invoices_SubscribeSingleInvoiceClient
}

func (s *lndInvoiceSubscription) Recv() (lightning.Invoice, error) {
	update, err := s.stream.Recv()
	if err != nil {
		return lightning.Invoice{}, err
	}
	return lightning.Invoice{
		PaymentRequest: update.PaymentRequest,
		PaymentHash:    hex.EncodeToString(update.RHash),
		Settled:        update.State == lnrpc.Invoice_SETTLED,
		Amount:         uint64(update.Value),
		Expiry:         uint64(update.Expiry),
	}, nil
}
