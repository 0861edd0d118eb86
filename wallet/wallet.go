package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip39"

	"github.com/cashuhub/ecash-core/cashu"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut03"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut04"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut05"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut12"
	"github.com/cashuhub/ecash-core/crypto"
	"github.com/cashuhub/ecash-core/wallet/storage"
)

var (
	ErrMintNotExist            = errors.New("mint is not trusted by wallet")
	ErrInsufficientMintBalance = errors.New("insufficient balance in mint")
	ErrQuoteNotPaid            = errors.New("mint quote has not been paid")
)

// Config configures which on-disk wallet to load and which mint new
// quotes and sends default to.
type Config struct {
	WalletPath     string
	CurrentMintURL string
}

// walletMint is the set of keysets the wallet currently trusts for a
// single mint.
type walletMint struct {
	mintURL         string
	activeKeyset    crypto.WalletKeyset
	inactiveKeysets map[string]crypto.WalletKeyset
}

// Wallet holds proofs across one or more trusted mints, all denominated
// in the same unit.
type Wallet struct {
	masterKey *hdkeychain.ExtendedKey
	db        storage.WalletDB

	mints       map[string]walletMint
	defaultMint string
	unit        cashu.Unit
}

// MeltResponse reports the outcome of paying a lightning invoice by
// melting proofs at a mint.
type MeltResponse struct {
	Paid     bool
	Preimage string
	Amount   uint64
}

func InitStorage(path string) (storage.WalletDB, error) {
	return storage.InitBolt(path)
}

func LoadWallet(config Config) (*Wallet, error) {
	db, err := InitStorage(config.WalletPath)
	if err != nil {
		return nil, fmt.Errorf("InitStorage: %v", err)
	}

	mintURL, err := url.Parse(config.CurrentMintURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mint url: %v", err)
	}

	wallet := &Wallet{
		db:          db,
		mints:       make(map[string]walletMint),
		defaultMint: mintURL.String(),
		unit:        cashu.Sat,
	}

	seed := db.GetSeed()
	if len(seed) == 0 {
		entropy, err := bip39.NewEntropy(128)
		if err != nil {
			return nil, fmt.Errorf("error generating seed entropy: %v", err)
		}
		mnemonic, err := bip39.NewMnemonic(entropy)
		if err != nil {
			return nil, fmt.Errorf("error generating mnemonic: %v", err)
		}
		seed = bip39.NewSeed(mnemonic, "")
		db.SaveMnemonicSeed(mnemonic, seed)
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("error deriving wallet master key: %v", err)
	}
	wallet.masterKey = master

	storedKeysets := db.GetKeysets()
	if _, ok := storedKeysets[wallet.defaultMint]; !ok {
		if _, err := wallet.trustMint(wallet.defaultMint); err != nil {
			return nil, fmt.Errorf("error adding mint '%v': %v", wallet.defaultMint, err)
		}
		storedKeysets = db.GetKeysets()
	}

	for trustedMintURL := range storedKeysets {
		if err := wallet.loadMintFromDB(trustedMintURL); err != nil {
			return nil, fmt.Errorf("error loading mint '%v': %v", trustedMintURL, err)
		}
	}

	return wallet, nil
}

// trustMint fetches a mint's active and inactive keysets, persists them,
// and registers the mint so the wallet will hold proofs from it.
func (w *Wallet) trustMint(mintURL string) (walletMint, error) {
	activeKeyset, err := GetMintActiveKeyset(mintURL, w.unit)
	if err != nil {
		return walletMint{}, fmt.Errorf("error getting active keyset from mint: %v", err)
	}
	if err := w.db.SaveKeyset(activeKeyset); err != nil {
		return walletMint{}, fmt.Errorf("error saving keyset: %v", err)
	}

	inactiveKeysets, err := GetMintInactiveKeysets(mintURL, w.unit)
	if err != nil {
		return walletMint{}, fmt.Errorf("error getting inactive keysets from mint: %v", err)
	}
	for id, keyset := range inactiveKeysets {
		if w.db.GetKeyset(id) != nil {
			continue
		}
		keyset := keyset
		if err := w.db.SaveKeyset(&keyset); err != nil {
			return walletMint{}, fmt.Errorf("error saving keyset: %v", err)
		}
	}

	wm := walletMint{mintURL: mintURL, activeKeyset: *activeKeyset, inactiveKeysets: inactiveKeysets}
	w.mints[mintURL] = wm
	return wm, nil
}

// loadMintFromDB rebuilds a walletMint entry from the keysets already
// stored on disk for mintURL.
func (w *Wallet) loadMintFromDB(mintURL string) error {
	keysets, ok := w.db.GetKeysets()[mintURL]
	if !ok {
		return fmt.Errorf("no keysets stored for mint '%v'", mintURL)
	}

	wm := walletMint{mintURL: mintURL, inactiveKeysets: make(map[string]crypto.WalletKeyset)}
	for _, keyset := range keysets {
		if keyset.Unit != w.unit.String() {
			continue
		}
		if keyset.Active {
			wm.activeKeyset = keyset
		} else {
			wm.inactiveKeysets[keyset.Id] = keyset
		}
	}
	if wm.activeKeyset.Id == "" {
		return fmt.Errorf("no active keyset for mint '%v'", mintURL)
	}

	w.mints[mintURL] = wm
	return nil
}

func (w *Wallet) GetBalance() uint64 {
	return w.db.GetProofs().Amount()
}

// TrustedMints lists the mint URLs the wallet currently holds keysets for.
func (w *Wallet) TrustedMints() []string {
	mints := make([]string, 0, len(w.mints))
	for mintURL := range w.mints {
		mints = append(mints, mintURL)
	}
	sort.Strings(mints)
	return mints
}

func (w *Wallet) RequestMint(amount uint64) (*nut04.PostMintQuoteBolt11Response, error) {
	mintRequest := nut04.PostMintQuoteBolt11Request{Amount: amount, Unit: w.unit.String()}
	mintResponse, err := PostMintQuoteBolt11(w.defaultMint, mintRequest)
	if err != nil {
		return nil, err
	}

	quote := storage.MintQuote{
		QuoteId:        mintResponse.Quote,
		Mint:           w.defaultMint,
		Method:         cashu.BOLT11_METHOD,
		State:          mintResponse.State,
		Unit:           w.unit.String(),
		PaymentRequest: mintResponse.Request,
		Amount:         amount,
		QuoteExpiry:    uint64(mintResponse.Expiry),
	}
	if err := w.db.SaveMintQuote(quote); err != nil {
		return nil, fmt.Errorf("error saving mint quote: %v", err)
	}

	invoice := storage.Invoice{
		TransactionType: storage.Mint,
		Id:              mintResponse.Quote,
		Mint:            w.defaultMint,
		QuoteAmount:     amount,
		InvoiceAmount:   amount,
		PaymentRequest:  mintResponse.Request,
		QuoteExpiry:     uint64(mintResponse.Expiry),
	}
	if err := w.db.SaveInvoice(invoice); err != nil {
		return nil, fmt.Errorf("error saving invoice: %v", err)
	}

	return mintResponse, nil
}

// GetInvoiceByPaymentRequest looks up a previously requested mint invoice
// by its bolt11 payment request string.
func (w *Wallet) GetInvoiceByPaymentRequest(paymentRequest string) (*storage.Invoice, error) {
	for _, invoice := range w.db.GetInvoices() {
		if invoice.PaymentRequest == paymentRequest {
			return &invoice, nil
		}
	}
	return nil, nil
}

func (w *Wallet) MintTokens(quoteId string) (cashu.Proofs, error) {
	quote := w.db.GetMintQuoteById(quoteId)
	if quote == nil {
		return nil, fmt.Errorf("mint quote '%v' does not exist", quoteId)
	}

	mintQuoteState, err := GetMintQuoteState(quote.Mint, quoteId)
	if err != nil {
		return nil, fmt.Errorf("error checking mint quote state: %v", err)
	}
	if mintQuoteState.State != cashu.MintQuotePaid {
		return nil, ErrQuoteNotPaid
	}

	proofs, err := w.mintFromQuote(quoteId, quote.Mint, quote.Amount)
	if err != nil {
		return nil, err
	}

	quote.State = cashu.MintQuoteIssued
	if err := w.db.SaveMintQuote(*quote); err != nil {
		return nil, fmt.Errorf("error updating mint quote: %v", err)
	}

	return proofs, nil
}

// mintFromQuote blinds and requests signatures for amount worth of new
// proofs at mintURL under an already-paid quoteId.
func (w *Wallet) mintFromQuote(quoteId, mintURL string, amount uint64) (cashu.Proofs, error) {
	if _, ok := w.mints[mintURL]; !ok {
		return nil, ErrMintNotExist
	}
	activeKeyset, err := w.getActiveKeyset(mintURL)
	if err != nil {
		return nil, fmt.Errorf("error getting active keyset: %v", err)
	}
	keysetId := activeKeyset.Id

	counter := w.db.GetKeysetCounter(keysetId)
	split := cashu.AmountSplit(amount)
	blindedMessages, secrets, rs, err := w.createBlindedMessages(split, keysetId, &counter)
	if err != nil {
		return nil, fmt.Errorf("error creating blinded messages: %v", err)
	}

	mintResponse, err := PostMintBolt11(mintURL, nut04.PostMintBolt11Request{Quote: quoteId, Outputs: blindedMessages})
	if err != nil {
		return nil, err
	}

	proofs, err := constructProofs(mintResponse.Signatures, blindedMessages, secrets, rs, activeKeyset)
	if err != nil {
		return nil, fmt.Errorf("error constructing proofs: %v", err)
	}

	if err := w.db.IncrementKeysetCounter(keysetId, uint32(len(blindedMessages))); err != nil {
		return nil, fmt.Errorf("error incrementing keyset counter: %v", err)
	}
	if err := w.db.SaveProofs(proofs); err != nil {
		return nil, fmt.Errorf("error storing proofs: %v", err)
	}

	return proofs, nil
}

func (w *Wallet) Send(amount uint64, mintURL string) (*cashu.TokenV4, error) {
	if _, ok := w.mints[mintURL]; !ok {
		return nil, ErrMintNotExist
	}

	proofsToSend, err := w.selectProofsForAmount(amount, mintURL)
	if err != nil {
		return nil, err
	}

	token, err := cashu.NewTokenV4(proofsToSend, mintURL, w.unit, false)
	if err != nil {
		return nil, fmt.Errorf("error creating token: %v", err)
	}

	return &token, nil
}

// selectProofsForAmount greedily selects stored proofs for mintURL,
// preferring proofs from inactive keysets so they retire first, and
// swaps for exact change at the mint when the selection overshoots.
func (w *Wallet) selectProofsForAmount(amount uint64, mintURL string) (cashu.Proofs, error) {
	wm, ok := w.mints[mintURL]
	if !ok {
		return nil, ErrMintNotExist
	}

	proofs := w.mintProofs(mintURL)
	if proofs.Amount() < amount {
		return nil, ErrInsufficientMintBalance
	}

	var inactive, active cashu.Proofs
	for _, proof := range proofs {
		if _, ok := wm.inactiveKeysets[proof.Id]; ok {
			inactive = append(inactive, proof)
		} else {
			active = append(active, proof)
		}
	}

	var selected cashu.Proofs
	var selectedAmount uint64
	addProofs := func(pool cashu.Proofs) {
		for _, proof := range pool {
			if selectedAmount >= amount {
				return
			}
			selected = append(selected, proof)
			selectedAmount += proof.Amount
		}
	}
	addProofs(inactive)
	addProofs(active)

	if selectedAmount == amount {
		if err := w.removeProofs(selected); err != nil {
			return nil, err
		}
		return selected, nil
	}

	activeKeyset, err := w.getActiveKeyset(mintURL)
	if err != nil {
		return nil, fmt.Errorf("error getting active keyset: %v", err)
	}

	changeAmount := selectedAmount - amount
	counter := w.db.GetKeysetCounter(activeKeyset.Id)

	sendMessages, sendSecrets, sendRs, err := w.createBlindedMessages(cashu.AmountSplit(amount), activeKeyset.Id, &counter)
	if err != nil {
		return nil, fmt.Errorf("error creating blinded messages: %v", err)
	}
	changeMessages, changeSecrets, changeRs, err := w.createBlindedMessages(cashu.AmountSplit(changeAmount), activeKeyset.Id, &counter)
	if err != nil {
		return nil, fmt.Errorf("error creating blinded messages: %v", err)
	}

	blindedMessages := make(cashu.BlindedMessages, 0, len(sendMessages)+len(changeMessages))
	blindedMessages = append(blindedMessages, sendMessages...)
	blindedMessages = append(blindedMessages, changeMessages...)
	secrets := append(append([]string{}, sendSecrets...), changeSecrets...)
	rs := append(append([]*secp256k1.PrivateKey{}, sendRs...), changeRs...)
	cashu.SortBlindedMessages(blindedMessages, secrets, rs)

	swapRequest := nut03.PostSwapRequest{Inputs: selected, Outputs: blindedMessages}
	swapResponse, err := PostSwap(mintURL, swapRequest)
	if err != nil {
		return nil, err
	}

	if err := w.removeProofs(selected); err != nil {
		return nil, err
	}
	if err := w.db.IncrementKeysetCounter(activeKeyset.Id, uint32(len(blindedMessages))); err != nil {
		return nil, fmt.Errorf("error incrementing keyset counter: %v", err)
	}

	newProofs, err := constructProofs(swapResponse.Signatures, blindedMessages, secrets, rs, activeKeyset)
	if err != nil {
		return nil, fmt.Errorf("error constructing proofs: %v", err)
	}

	remainingSend := make(map[uint64]int, len(sendMessages))
	for _, m := range sendMessages {
		remainingSend[m.Amount]++
	}

	var proofsToSend, changeProofs cashu.Proofs
	for _, proof := range newProofs {
		if remainingSend[proof.Amount] > 0 {
			proofsToSend = append(proofsToSend, proof)
			remainingSend[proof.Amount]--
		} else {
			changeProofs = append(changeProofs, proof)
		}
	}

	if err := w.db.SaveProofs(changeProofs); err != nil {
		return nil, fmt.Errorf("error storing change proofs: %v", err)
	}

	return proofsToSend, nil
}

// mintProofs returns all stored proofs belonging to mintURL's keysets.
func (w *Wallet) mintProofs(mintURL string) cashu.Proofs {
	wm, ok := w.mints[mintURL]
	if !ok {
		return cashu.Proofs{}
	}

	proofs := w.db.GetProofsByKeysetId(wm.activeKeyset.Id)
	for id := range wm.inactiveKeysets {
		proofs = append(proofs, w.db.GetProofsByKeysetId(id)...)
	}
	return proofs
}

func (w *Wallet) removeProofs(proofs cashu.Proofs) error {
	for _, proof := range proofs {
		if err := w.db.DeleteProof(proof.Secret); err != nil {
			return err
		}
	}
	return nil
}

func (w *Wallet) Receive(token cashu.TokenV4, swap bool) (cashu.Proofs, error) {
	mintURL := token.Mint()
	tokenProofs := token.Proofs()

	if swap {
		return w.multiMintSwap(mintURL, tokenProofs)
	}
	return w.receiveSameMint(mintURL, tokenProofs)
}

// receiveSameMint swaps proofs for fresh ones at the mint that issued
// them, trusting that mint if it is not already known.
func (w *Wallet) receiveSameMint(mintURL string, tokenProofs cashu.Proofs) (cashu.Proofs, error) {
	if _, ok := w.mints[mintURL]; !ok {
		if _, err := w.trustMint(mintURL); err != nil {
			return nil, fmt.Errorf("error trusting mint '%v': %v", mintURL, err)
		}
	}

	activeKeyset, err := w.getActiveKeyset(mintURL)
	if err != nil {
		return nil, fmt.Errorf("error getting active keyset: %v", err)
	}

	counter := w.db.GetKeysetCounter(activeKeyset.Id)
	blindedMessages, secrets, rs, err := w.createBlindedMessages(cashu.AmountSplit(tokenProofs.Amount()), activeKeyset.Id, &counter)
	if err != nil {
		return nil, fmt.Errorf("error creating blinded messages: %v", err)
	}

	swapResponse, err := PostSwap(mintURL, nut03.PostSwapRequest{Inputs: tokenProofs, Outputs: blindedMessages})
	if err != nil {
		return nil, err
	}

	proofs, err := constructProofs(swapResponse.Signatures, blindedMessages, secrets, rs, activeKeyset)
	if err != nil {
		return nil, fmt.Errorf("error constructing proofs: %v", err)
	}

	if err := w.db.IncrementKeysetCounter(activeKeyset.Id, uint32(len(blindedMessages))); err != nil {
		return nil, fmt.Errorf("error incrementing keyset counter: %v", err)
	}
	if err := w.db.SaveProofs(proofs); err != nil {
		return nil, fmt.Errorf("error storing proofs: %v", err)
	}

	return proofs, nil
}

// multiMintSwap redeems proofs from a foreign mint by melting them to pay
// a lightning invoice for a mint quote opened at the wallet's default
// mint, atomically moving the value there instead of trusting the
// foreign mint.
func (w *Wallet) multiMintSwap(tokenMintURL string, tokenProofs cashu.Proofs) (cashu.Proofs, error) {
	amount := tokenProofs.Amount()

	mintQuote, err := PostMintQuoteBolt11(w.defaultMint, nut04.PostMintQuoteBolt11Request{
		Amount: amount,
		Unit:   w.unit.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("error requesting mint quote: %v", err)
	}

	meltQuote, err := PostMeltQuoteBolt11(tokenMintURL, nut05.PostMeltQuoteBolt11Request{
		Request: mintQuote.Request,
		Unit:    w.unit.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("error requesting melt quote: %v", err)
	}

	if amount < meltQuote.Amount+meltQuote.FeeReserve {
		return nil, ErrInsufficientMintBalance
	}

	meltResponse, err := PostMeltBolt11(tokenMintURL, nut05.PostMeltBolt11Request{
		Quote:  meltQuote.Quote,
		Inputs: tokenProofs,
	})
	if err != nil {
		return nil, fmt.Errorf("error melting token proofs: %v", err)
	}
	if meltResponse.State != cashu.MeltQuotePaid {
		return nil, fmt.Errorf("multi-mint swap: melt did not settle, state '%v'", meltResponse.State)
	}

	return w.mintFromQuote(mintQuote.Quote, w.defaultMint, amount)
}

func (w *Wallet) Melt(invoice string, mintURL string) (*MeltResponse, error) {
	if _, ok := w.mints[mintURL]; !ok {
		return nil, ErrMintNotExist
	}

	meltQuote, err := PostMeltQuoteBolt11(mintURL, nut05.PostMeltQuoteBolt11Request{
		Request: invoice,
		Unit:    w.unit.String(),
	})
	if err != nil {
		return nil, err
	}

	amountNeeded := meltQuote.Amount + meltQuote.FeeReserve
	proofs, err := w.selectProofsForAmount(amountNeeded, mintURL)
	if err != nil {
		return nil, err
	}

	meltResponse, err := PostMeltBolt11(mintURL, nut05.PostMeltBolt11Request{
		Quote:  meltQuote.Quote,
		Inputs: proofs,
	})
	if err != nil {
		w.db.SaveProofs(proofs)
		return nil, err
	}

	if meltResponse.State != cashu.MeltQuotePaid {
		if err := w.db.SaveProofs(proofs); err != nil {
			return nil, fmt.Errorf("error restoring unused proofs: %v", err)
		}
		return nil, fmt.Errorf("lightning payment did not settle, quote state '%v'", meltResponse.State)
	}

	return &MeltResponse{
		Paid:     true,
		Preimage: meltResponse.Preimage,
		Amount:   meltQuote.Amount,
	}, nil
}

func (w *Wallet) UpdateMintURL(oldURL, newURL string) error {
	wm, ok := w.mints[oldURL]
	if !ok {
		return ErrMintNotExist
	}

	if err := w.db.UpdateKeysetMintURL(oldURL, newURL); err != nil {
		return fmt.Errorf("error updating keyset mint url: %v", err)
	}

	wm.mintURL = newURL
	wm.activeKeyset.MintURL = newURL
	for id, keyset := range wm.inactiveKeysets {
		keyset.MintURL = newURL
		wm.inactiveKeysets[id] = keyset
	}

	delete(w.mints, oldURL)
	w.mints[newURL] = wm

	if w.defaultMint == oldURL {
		w.defaultMint = newURL
	}

	return nil
}

// createBlindedMessages derives split's worth of deterministic
// (secret, blinding factor) pairs starting at *counter, advancing it as
// it goes, and blinds each one for keysetId.
func (w *Wallet) createBlindedMessages(split []uint64, keysetId string, counter *uint32) (
	cashu.BlindedMessages, []string, []*secp256k1.PrivateKey, error) {

	secretPath, err := crypto.DeriveSecretPath(w.masterKey, keysetId)
	if err != nil {
		return nil, nil, nil, err
	}

	blindedMessages := make(cashu.BlindedMessages, len(split))
	secrets := make([]string, len(split))
	rs := make([]*secp256k1.PrivateKey, len(split))

	for i, amt := range split {
		secret, err := crypto.DeriveSecret(secretPath, *counter)
		if err != nil {
			return nil, nil, nil, err
		}
		blindingFactor, err := crypto.DeriveBlindingFactor(secretPath, *counter)
		if err != nil {
			return nil, nil, nil, err
		}

		B_, r, err := crypto.BlindMessage([]byte(secret), blindingFactor.Serialize())
		if err != nil {
			return nil, nil, nil, err
		}

		blindedMessages[i] = cashu.NewBlindedMessage(keysetId, amt, B_)
		secrets[i] = secret
		rs[i] = r
		*counter++
	}

	return blindedMessages, secrets, rs, nil
}

// constructProofs unblinds a mint's signatures into proofs and, when the
// mint attached a NUT-12 DLEQ proof, verifies and carries it over so it
// can be re-checked later without the original blinded messages.
func constructProofs(signatures cashu.BlindedSignatures, blindedMessages cashu.BlindedMessages,
	secrets []string, rs []*secp256k1.PrivateKey, keyset *crypto.WalletKeyset) (cashu.Proofs, error) {

	if len(signatures) != len(secrets) || len(signatures) != len(rs) {
		return nil, errors.New("lengths of signatures, secrets and rs do not match")
	}

	proofs := make(cashu.Proofs, len(signatures))
	for i, sig := range signatures {
		C_bytes, err := hex.DecodeString(sig.C_)
		if err != nil {
			return nil, err
		}
		C_, err := secp256k1.ParsePubKey(C_bytes)
		if err != nil {
			return nil, err
		}

		pubkey, ok := keyset.PublicKeys[sig.Amount]
		if !ok {
			return nil, fmt.Errorf("keyset '%v' has no key for amount %v", keyset.Id, sig.Amount)
		}

		C := crypto.UnblindSignature(C_, rs[i], pubkey)
		proof := cashu.Proof{
			Amount: sig.Amount,
			Id:     sig.Id,
			Secret: secrets[i],
			C:      hex.EncodeToString(C.SerializeCompressed()),
		}

		if sig.DLEQ != nil && i < len(blindedMessages) {
			if nut12.VerifyBlindSignatureDLEQ(*sig.DLEQ, pubkey, blindedMessages[i].B_, sig.C_) {
				proof.DLEQ = &cashu.DLEQProof{
					E: sig.DLEQ.E,
					S: sig.DLEQ.S,
					R: hex.EncodeToString(rs[i].Serialize()),
				}
			}
		}

		proofs[i] = proof
	}

	return proofs, nil
}
