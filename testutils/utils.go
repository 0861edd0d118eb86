// Package testutils drives real lnd/CLN nodes inside Docker containers
// (via btc-docker-test) for the integration suites in mint/ and wallet/.
// It is test-only scaffolding: nothing outside _test.go files imports it.
package testutils

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"net/http"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	btcdocker "github.com/elnosh/btc-docker-test"
	"github.com/elnosh/btc-docker-test/cln"
	"github.com/elnosh/btc-docker-test/lnd"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/macaroons"
	"google.golang.org/grpc/credentials"
	"gopkg.in/macaroon.v2"

	"github.com/cashuhub/ecash-core/cashu"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut10"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut11"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut14"
	"github.com/cashuhub/ecash-core/crypto"
	"github.com/cashuhub/ecash-core/mint"
	"github.com/cashuhub/ecash-core/mint/lightning"
)

const numBlocks int64 = 110

// LightningBackend is the subset of node behavior the integration suites
// drive against a real lnd or CLN container.
type LightningBackend interface {
	Info() (*NodeInfo, error)
	Synced() (bool, error)
	NewAddress() (btcutil.Address, error)
	ConnectToPeer(peer *Peer) error
	OpenChannel(to *Peer, amount uint64) error
	PayInvoice(request string) error
	CreateInvoice(amount uint64) (*Invoice, error)
	LookupInvoice(hash string) (*Invoice, error)
	CreateHodlInvoice(amount uint64, hash string) (*Invoice, error)
	// CLN has no native HODL invoice support, so payer stands in for the
	// counterparty that actually settles the held payment.
	SettleHodlInvoice(preimage string, invoice string, payer *CLNBackend) error
}

type Peer struct {
	Pubkey string
	Addr   string
}

type NodeInfo struct {
	Pubkey string
	Addr   string
}

type Invoice struct {
	PaymentRequest string
	Hash           string
	Preimage       string
}

// LndBackend adapts a dockerized lnd node to LightningBackend.
type LndBackend struct {
	*lnd.Lnd
}

func (n *LndBackend) Info() (*NodeInfo, error) {
	ctx := context.Background()
	info, err := n.Client.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return nil, err
	}
	return &NodeInfo{
		Pubkey: info.IdentityPubkey,
		Addr:   n.ContainerIP + ":" + lnd.LND_P2P_PORT,
	}, nil
}

func (n *LndBackend) Synced() (bool, error) {
	ctx := context.Background()
	info, err := n.Client.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return false, err
	}
	return info.SyncedToChain, nil
}

func (n *LndBackend) NewAddress() (btcutil.Address, error) {
	ctx := context.Background()
	res, err := n.Client.NewAddress(ctx, &lnrpc.NewAddressRequest{Type: 0})
	if err != nil {
		return nil, err
	}
	return btcutil.DecodeAddress(res.Address, &chaincfg.RegressionNetParams)
}

func (n *LndBackend) ConnectToPeer(peer *Peer) error {
	ctx := context.Background()
	_, err := n.Client.ConnectPeer(ctx, &lnrpc.ConnectPeerRequest{
		Addr: &lnrpc.LightningAddress{Pubkey: peer.Pubkey, Host: peer.Addr},
		Perm: false,
	})
	return err
}

func (n *LndBackend) OpenChannel(to *Peer, amount uint64) error {
	pubkeyBytes, err := hex.DecodeString(to.Pubkey)
	if err != nil {
		return err
	}
	ctx := context.Background()
	_, err = n.Client.OpenChannelSync(ctx, &lnrpc.OpenChannelRequest{
		NodePubkey:         pubkeyBytes,
		LocalFundingAmount: int64(amount),
		PushSat:            int64(amount / 2),
	})
	return err
}

func (n *LndBackend) PayInvoice(request string) error {
	ctx := context.Background()
	res, _ := n.Client.SendPaymentSync(ctx, &lnrpc.SendRequest{PaymentRequest: request})
	if len(res.PaymentError) > 0 {
		return errors.New(res.PaymentError)
	}
	return nil
}

func (n *LndBackend) CreateInvoice(amount uint64) (*Invoice, error) {
	ctx := context.Background()
	res, err := n.Client.AddInvoice(ctx, &lnrpc.Invoice{Value: int64(amount)})
	if err != nil {
		return nil, err
	}
	return &Invoice{
		PaymentRequest: res.PaymentRequest,
		Hash:           hex.EncodeToString(res.RHash),
	}, nil
}

func (n *LndBackend) CreateHodlInvoice(amount uint64, hash string) (*Invoice, error) {
	paymentHash, err := hex.DecodeString(hash)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	res, err := n.InvoicesClient.AddHoldInvoice(ctx, &invoicesrpc.AddHoldInvoiceRequest{
		Hash:  paymentHash,
		Value: int64(amount),
	})
	if err != nil {
		return nil, err
	}
	return &Invoice{PaymentRequest: res.PaymentRequest, Hash: hash}, nil
}

// invoice and payer go unused for lnd; they only matter for CLNBackend's
// implementation of the same method.
func (n *LndBackend) SettleHodlInvoice(preimage string, invoice string, payer *CLNBackend) error {
	preimageBytes, err := hex.DecodeString(preimage)
	if err != nil {
		return err
	}
	ctx := context.Background()
	_, err = n.InvoicesClient.SettleInvoice(ctx, &invoicesrpc.SettleInvoiceMsg{Preimage: preimageBytes})
	return err
}

func (n *LndBackend) LookupInvoice(hash string) (*Invoice, error) {
	paymentHash, err := hex.DecodeString(hash)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	invoice, err := n.Client.LookupInvoice(ctx, &lnrpc.PaymentHash{RHash: paymentHash})
	if err != nil {
		return nil, err
	}
	return &Invoice{
		PaymentRequest: invoice.PaymentRequest,
		Hash:           hex.EncodeToString(invoice.RHash),
		Preimage:       hex.EncodeToString(invoice.RPreimage),
	}, nil
}

// CLNBackend adapts a dockerized Core Lightning node to LightningBackend
// via its REST API, authenticated with the node's Rune.
type CLNBackend struct {
	*cln.CLN
	client *http.Client
	url    string
}

func NewCLNBackend(node *cln.CLN) *CLNBackend {
	return &CLNBackend{
		CLN:    node,
		client: &http.Client{},
		url:    "http://" + node.Host + ":" + node.RestPort + "/v1",
	}
}

func (n *CLNBackend) post(path string, body any) ([]byte, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, n.url+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Rune", n.Rune)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	res, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

func (n *CLNBackend) Info() (*NodeInfo, error) {
	body, err := n.post("/getinfo", nil)
	if err != nil {
		return nil, err
	}
	var res struct {
		Id                 string `json:"id"`
		BitcoindSyncWarn   string `json:"warning_bitcoind_sync"`
		LightningdSyncWarn string `json:"warning_lightningd_sync"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	return &NodeInfo{Pubkey: res.Id, Addr: n.ContainerIP + ":" + cln.CLN_P2P_PORT}, nil
}

func (n *CLNBackend) Synced() (bool, error) {
	body, err := n.post("/getinfo", nil)
	if err != nil {
		return false, err
	}
	var res struct {
		BitcoindSyncWarn   string `json:"warning_bitcoind_sync"`
		LightningdSyncWarn string `json:"warning_lightningd_sync"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return false, err
	}
	return len(res.BitcoindSyncWarn) == 0 && len(res.LightningdSyncWarn) == 0, nil
}

func (n *CLNBackend) NewAddress() (btcutil.Address, error) {
	body, err := n.post("/newaddr", map[string]string{"addresstype": "bech32"})
	if err != nil {
		return nil, err
	}
	var res struct {
		Bech32 string `json:"bech32"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	return btcutil.DecodeAddress(res.Bech32, &chaincfg.RegressionNetParams)
}

func (n *CLNBackend) ConnectToPeer(peer *Peer) error {
	body, err := n.post("/connect", map[string]string{"id": fmt.Sprintf("%s@%s", peer.Pubkey, peer.Addr)})
	if err != nil {
		return err
	}
	var res struct {
		Id string `json:"id"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return err
	}
	if len(res.Id) == 0 {
		return errors.New("could not connect to peer")
	}
	return nil
}

func (n *CLNBackend) OpenChannel(to *Peer, amount uint64) error {
	body, err := n.post("/fundchannel", map[string]any{"id": to.Pubkey, "amount": amount})
	if err != nil {
		return err
	}
	var res struct {
		Tx string `json:"tx"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return err
	}
	if len(res.Tx) == 0 {
		return errors.New("could not open channel")
	}
	return nil
}

func (n *CLNBackend) PayInvoice(request string) error {
	body, err := n.post("/pay", map[string]string{"bolt11": request})
	if err != nil {
		return err
	}
	var res struct {
		PaymentPreimage string `json:"payment_preimage"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return err
	}
	if len(res.PaymentPreimage) == 0 {
		return errors.New("payment failed")
	}
	return nil
}

func (n *CLNBackend) CreateInvoice(amount uint64) (*Invoice, error) {
	body, err := n.post("/invoice", map[string]any{
		"amount":      amount * 1000,
		"label":       generateRandomString(16),
		"description": "testutils invoice",
	})
	if err != nil {
		return nil, err
	}
	var res struct {
		Bolt11      string `json:"bolt11"`
		PaymentHash string `json:"payment_hash"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	if len(res.Bolt11) == 0 {
		return nil, errors.New("could not create invoice")
	}
	return &Invoice{PaymentRequest: res.Bolt11, Hash: res.PaymentHash}, nil
}

// CLN has no HODL invoice primitive without a plugin; a regular invoice
// stands in, and SettleHodlInvoice pays it through payer instead of
// settling held HTLCs.
func (n *CLNBackend) CreateHodlInvoice(amount uint64, hash string) (*Invoice, error) {
	return n.CreateInvoice(amount)
}

func (n *CLNBackend) SettleHodlInvoice(preimage string, invoice string, payer *CLNBackend) error {
	return payer.PayInvoice(invoice)
}

func (n *CLNBackend) LookupInvoice(hash string) (*Invoice, error) {
	body, err := n.post("/listinvoices", map[string]string{"payment_hash": hash})
	if err != nil {
		return nil, err
	}
	var res struct {
		Invoices []struct {
			Bolt11      string `json:"bolt11"`
			PaymentHash string `json:"payment_hash"`
			Preimage    string `json:"payment_preimage"`
		} `json:"invoices"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	if len(res.Invoices) == 0 {
		return nil, errors.New("could not lookup invoice")
	}
	return &Invoice{
		PaymentRequest: res.Invoices[0].Bolt11,
		Hash:           res.Invoices[0].PaymentHash,
		Preimage:       res.Invoices[0].Preimage,
	}, nil
}

func MineBlocks(bitcoind *btcdocker.Bitcoind, count int64) error {
	address, err := bitcoind.Client.GetNewAddress("")
	if err != nil {
		return fmt.Errorf("error getting new address: %v", err)
	}
	_, err = bitcoind.Client.GenerateToAddress(count, address, nil)
	return err
}

// FundNode mines blocks to a fresh address on node and waits for it to
// catch up to the new chain tip.
func FundNode(ctx context.Context, bitcoind *btcdocker.Bitcoind, node LightningBackend) error {
	address, err := node.NewAddress()
	if err != nil {
		return fmt.Errorf("error generating address: %v", err)
	}
	if _, err := bitcoind.Client.GenerateToAddress(numBlocks, address, nil); err != nil {
		return err
	}
	time.Sleep(time.Second * 2)
	return SyncNode(node)
}

// FundLndNode is a convenience wrapper around FundNode for callers that
// only have the raw *btcdocker.Lnd handle, not a LightningBackend.
func FundLndNode(ctx context.Context, bitcoind *btcdocker.Bitcoind, node *lnd.Lnd) error {
	return FundNode(ctx, bitcoind, &LndBackend{Lnd: node})
}

func OpenChannel(ctx context.Context, bitcoind *btcdocker.Bitcoind, from, to LightningBackend, amount uint64) error {
	toInfo, err := to.Info()
	if err != nil {
		return fmt.Errorf("error getting node info: %v", err)
	}
	peer := &Peer{Pubkey: toInfo.Pubkey, Addr: toInfo.Addr}

	if err := from.ConnectToPeer(peer); err != nil {
		return fmt.Errorf("error connecting to peer: %v", err)
	}
	if err := from.OpenChannel(peer, amount); err != nil {
		return fmt.Errorf("error opening channel: %v", err)
	}
	if err := MineBlocks(bitcoind, 6); err != nil {
		return fmt.Errorf("error generating new blocks: %v", err)
	}
	time.Sleep(time.Second * 2)
	return SyncNode(from)
}

func SyncNode(node LightningBackend) error {
	for range 50 {
		synced, err := node.Synced()
		if err != nil {
			return fmt.Errorf("could not get node info: %v", err)
		}
		if synced {
			return nil
		}
		time.Sleep(time.Millisecond * 500)
	}
	return errors.New("could not sync node")
}

// LndClient builds a mint/lightning.Client backed by a direct lnrpc
// connection to a dockerized lnd node, using its TLS cert and admin
// macaroon for credentials.
func LndClient(node *lnd.Lnd) (lightning.Client, error) {
	creds, err := credentials.NewClientTLSFromFile(filepath.Join(node.LndDir, "tls.cert"), "")
	if err != nil {
		return nil, err
	}

	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(node.AdminMacaroon); err != nil {
		return nil, fmt.Errorf("unable to decode macaroon: %v", err)
	}
	macCreds, err := macaroons.NewMacaroonCredential(mac)
	if err != nil {
		return nil, fmt.Errorf("error setting macaroon creds: %v", err)
	}

	return newLndRPCClient(node.Host+":"+node.GrpcPort, creds, macCreds)
}

// CreateTestMint builds a mint backed by backend, persisted under dbpath,
// with the given fee and balance/velocity limits.
func CreateTestMint(backend lightning.Client, dbpath string, inputFeePpk uint, limits mint.MintLimits) (*mint.Mint, error) {
	config := mint.Config{
		DerivationPathIdx: 0,
		MintPath:          dbpath,
		DBPath:            dbpath,
		DBMigrationPath:   filepath.Join("storage", "sqlite", "migrations"),
		InputFeePpk:       inputFeePpk,
		Limits:            limits,
		LogLevel:          mint.Disable,
		LightningClient:   backend,
		MintInfo:          mint.MintInfo{Name: "test mint"},
	}
	return mint.LoadMint(config)
}

// CreateTestMintServer builds a mint and wraps it with its REST transport,
// listening on port.
func CreateTestMintServer(backend lightning.Client, port, dbpath string, inputFeePpk uint) (*mint.MintServer, error) {
	config := mint.Config{
		DerivationPathIdx: 0,
		Port:              port,
		MintPath:          dbpath,
		DBPath:            dbpath,
		DBMigrationPath:   filepath.Join("storage", "sqlite", "migrations"),
		InputFeePpk:       inputFeePpk,
		LogLevel:          mint.Disable,
		LightningClient:   backend,
		MintInfo:          mint.MintInfo{Name: "test mint"},
	}
	return mint.SetupMintServer(config)
}

func newBlindedMessage(keysetId string, amount uint64, B_ *secp256k1.PublicKey) cashu.BlindedMessage {
	return cashu.NewBlindedMessage(keysetId, amount, B_)
}

// CreateBlindedMessages splits amount and blinds a fresh random secret for
// each resulting denomination under keysetId.
func CreateBlindedMessages(amount uint64, keysetId string) (cashu.BlindedMessages, []string, []*secp256k1.PrivateKey, error) {
	splitAmounts := cashu.AmountSplit(amount)

	blindedMessages := make(cashu.BlindedMessages, len(splitAmounts))
	secrets := make([]string, len(splitAmounts))
	rs := make([]*secp256k1.PrivateKey, len(splitAmounts))

	for i, amt := range splitAmounts {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return nil, nil, nil, err
		}
		secret := hex.EncodeToString(secretBytes)

		B_, r, err := crypto.BlindMessage(secretBytes, nil)
		if err != nil {
			return nil, nil, nil, err
		}

		blindedMessages[i] = newBlindedMessage(keysetId, amt, B_)
		secrets[i] = secret
		rs[i] = r
	}

	return blindedMessages, secrets, rs, nil
}

// ConstructProofs unblinds a mint's signatures into spendable proofs
// against the given keyset's public keys.
func ConstructProofs(
	blindedSignatures cashu.BlindedSignatures,
	secrets []string,
	rs []*secp256k1.PrivateKey,
	keyset crypto.MintKeyset,
) (cashu.Proofs, error) {
	if len(blindedSignatures) != len(secrets) || len(blindedSignatures) != len(rs) {
		return nil, errors.New("lengths do not match")
	}

	proofs := make(cashu.Proofs, len(blindedSignatures))
	for i, sig := range blindedSignatures {
		C_bytes, err := hex.DecodeString(sig.C_)
		if err != nil {
			return nil, err
		}
		C_, err := secp256k1.ParsePubKey(C_bytes)
		if err != nil {
			return nil, err
		}

		keyPair, ok := keyset.Keys[sig.Amount]
		if !ok {
			return nil, errors.New("key not found")
		}

		C := crypto.UnblindSignature(C_, rs[i], keyPair.PublicKey)
		r := hex.EncodeToString(rs[i].Serialize())

		proofs[i] = cashu.Proof{
			Amount: sig.Amount,
			Secret: secrets[i],
			C:      hex.EncodeToString(C.SerializeCompressed()),
			Id:     sig.Id,
			DLEQ: &cashu.DLEQProof{
				E: sig.DLEQ.E,
				S: sig.DLEQ.S,
				R: r,
			},
		}
	}

	return proofs, nil
}

// GetBlindedSignatures requests a mint quote for amount, pays it through
// payer, then mints blinded signatures for freshly blinded outputs.
func GetBlindedSignatures(amount uint64, m *mint.Mint, payer LightningBackend) (
	cashu.BlindedMessages,
	[]string,
	[]*secp256k1.PrivateKey,
	cashu.BlindedSignatures,
	error,
) {
	quote, err := m.RequestMintQuote("bolt11", amount, cashu.Sat.String())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("error requesting mint quote: %v", err)
	}

	keyset := m.GetActiveKeyset()
	blindedMessages, secrets, rs, err := CreateBlindedMessages(amount, keyset.Id)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("error creating blinded message: %v", err)
	}

	if err := payer.PayInvoice(quote.PaymentRequest); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("error paying invoice: %v", err)
	}

	blindedSignatures, err := m.MintTokens("bolt11", quote.Id, blindedMessages)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("got unexpected error minting tokens: %v", err)
	}

	return blindedMessages, secrets, rs, blindedSignatures, nil
}

// GetValidProofsForAmount mints and unblinds amount worth of spendable
// proofs from m, paid for through payer.
func GetValidProofsForAmount(amount uint64, m *mint.Mint, payer LightningBackend) (cashu.Proofs, error) {
	keyset := m.GetActiveKeyset()
	_, secrets, rs, blindedSignatures, err := GetBlindedSignatures(amount, m, payer)
	if err != nil {
		return nil, fmt.Errorf("error generating blinded signatures: %v", err)
	}

	proofs, err := ConstructProofs(blindedSignatures, secrets, rs, keyset)
	if err != nil {
		return nil, fmt.Errorf("error constructing proofs: %v", err)
	}

	return proofs, nil
}

func blindedMessagesFromSpendingCondition(
	splitAmounts []uint64,
	keysetId string,
	spendingCondition nut10.SpendingCondition,
) (cashu.BlindedMessages, []string, []*secp256k1.PrivateKey, error) {
	blindedMessages := make(cashu.BlindedMessages, len(splitAmounts))
	secrets := make([]string, len(splitAmounts))
	rs := make([]*secp256k1.PrivateKey, len(splitAmounts))

	for i, amt := range splitAmounts {
		secret, err := nut10.NewSecretFromSpendingCondition(spendingCondition)
		if err != nil {
			return nil, nil, nil, err
		}

		B_, r, err := crypto.BlindMessage([]byte(secret), nil)
		if err != nil {
			return nil, nil, nil, err
		}

		blindedMessages[i] = newBlindedMessage(keysetId, amt, B_)
		secrets[i] = secret
		rs[i] = r
	}

	return blindedMessages, secrets, rs, nil
}

// GetProofsWithSpendingCondition mints proofs locked under spendingCondition
// (P2PK, HTLC, ...) instead of plain random secrets.
func GetProofsWithSpendingCondition(
	amount uint64,
	spendingCondition nut10.SpendingCondition,
	m *mint.Mint,
	payer LightningBackend,
) (cashu.Proofs, error) {
	quote, err := m.RequestMintQuote("bolt11", amount, cashu.Sat.String())
	if err != nil {
		return nil, fmt.Errorf("error requesting mint quote: %v", err)
	}

	keyset := m.GetActiveKeyset()
	blindedMessages, secrets, rs, err := blindedMessagesFromSpendingCondition(
		cashu.AmountSplit(amount), keyset.Id, spendingCondition,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating blinded message: %v", err)
	}

	if err := payer.PayInvoice(quote.PaymentRequest); err != nil {
		return nil, fmt.Errorf("error paying invoice: %v", err)
	}

	blindedSignatures, err := m.MintTokens("bolt11", quote.Id, blindedMessages)
	if err != nil {
		return nil, fmt.Errorf("got unexpected error minting tokens: %v", err)
	}

	proofs, err := ConstructProofs(blindedSignatures, secrets, rs, keyset)
	if err != nil {
		return nil, fmt.Errorf("error constructing proofs: %v", err)
	}

	return proofs, nil
}

func AddP2PKWitnessToInputs(inputs cashu.Proofs, signingKeys []*btcec.PrivateKey) (cashu.Proofs, error) {
	for i, proof := range inputs {
		hash := sha256.Sum256([]byte(proof.Secret))
		signatures := make([]string, len(signingKeys))
		for j, key := range signingKeys {
			sig, err := schnorr.Sign(key, hash[:])
			if err != nil {
				return nil, err
			}
			signatures[j] = hex.EncodeToString(sig.Serialize())
		}

		witness, err := json.Marshal(nut11.P2PKWitness{Signatures: signatures})
		if err != nil {
			return nil, err
		}
		proof.Witness = string(witness)
		inputs[i] = proof
	}
	return inputs, nil
}

func AddP2PKWitnessToOutputs(outputs cashu.BlindedMessages, signingKeys []*btcec.PrivateKey) (cashu.BlindedMessages, error) {
	for i, output := range outputs {
		msg, err := hex.DecodeString(output.B_)
		if err != nil {
			return nil, err
		}
		hash := sha256.Sum256(msg)
		signatures := make([]string, len(signingKeys))
		for j, key := range signingKeys {
			sig, err := schnorr.Sign(key, hash[:])
			if err != nil {
				return nil, err
			}
			signatures[j] = hex.EncodeToString(sig.Serialize())
		}

		witness, err := json.Marshal(nut11.P2PKWitness{Signatures: signatures})
		if err != nil {
			return nil, err
		}
		output.Witness = string(witness)
		outputs[i] = output
	}
	return outputs, nil
}

// AddHTLCWitnessToInputs attaches preimage (and, if signingKey is set, a
// signature over the proof's secret) as each input's witness.
func AddHTLCWitnessToInputs(inputs cashu.Proofs, preimage string, signingKey *btcec.PrivateKey) (cashu.Proofs, error) {
	for i, proof := range inputs {
		htlcWitness := nut14.HTLCWitness{Preimage: preimage}

		if signingKey != nil {
			hash := sha256.Sum256([]byte(proof.Secret))
			sig, err := schnorr.Sign(signingKey, hash[:])
			if err != nil {
				return nil, err
			}
			htlcWitness.Signatures = []string{hex.EncodeToString(sig.Serialize())}
		}

		witness, err := json.Marshal(htlcWitness)
		if err != nil {
			return nil, err
		}
		proof.Witness = string(witness)
		inputs[i] = proof
	}
	return inputs, nil
}

func AddHTLCWitnessToOutputs(outputs cashu.BlindedMessages, preimage string, signingKey *btcec.PrivateKey) (cashu.BlindedMessages, error) {
	for i, output := range outputs {
		htlcWitness := nut14.HTLCWitness{Preimage: preimage}

		if signingKey != nil {
			msg, err := hex.DecodeString(output.B_)
			if err != nil {
				return nil, err
			}
			hash := sha256.Sum256(msg)
			sig, err := schnorr.Sign(signingKey, hash[:])
			if err != nil {
				return nil, err
			}
			htlcWitness.Signatures = []string{hex.EncodeToString(sig.Serialize())}
		}

		witness, err := json.Marshal(htlcWitness)
		if err != nil {
			return nil, err
		}
		output.Witness = string(witness)
		outputs[i] = output
	}
	return outputs, nil
}

func generateRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[mathrand.IntN(len(charset))]
	}
	return string(b)
}

// GenerateRandomBytes returns 32 cryptographically random bytes, used by
// the integration suites to derive HODL invoice preimages/hashes.
func GenerateRandomBytes() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
