package auth

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cashuhub/ecash-core/cashu"
	"github.com/cashuhub/ecash-core/crypto"
)

func decodePoint(hexPoint string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(hexPoint)
	if err != nil {
		return nil, err
	}
	return secp256k1.ParsePubKey(b)
}

func encodePoint(point *secp256k1.PublicKey) string {
	return hex.EncodeToString(point.SerializeCompressed())
}

// Unit is the dedicated currency unit blind-auth tokens are minted
// under; it is never mixed with a regular-balance keyset.
const Unit = "auth"

// Store tracks redeemed blind-auth tokens by Y, the same spent-secret
// mechanics the mint uses for ordinary proofs (§4.11).
type Store interface {
	IsAuthTokenSpent(y string) (bool, error)
	MarkAuthTokenSpent(y string) error
}

// Redeemer verifies and single-use-redeems blind-auth tokens against
// the mint's Auth-unit keyset.
type Redeemer struct {
	store  Store
	keyset *crypto.MintKeyset
}

func NewRedeemer(store Store, keyset *crypto.MintKeyset) (*Redeemer, error) {
	if keyset.Unit != Unit {
		return nil, fmt.Errorf("auth: keyset %s is not on the %s unit", keyset.Id, Unit)
	}
	return &Redeemer{store: store, keyset: keyset}, nil
}

// Redeem decodes token, verifies its BDHKE signature against the
// amount-1 key of the configured Auth keyset, and marks it spent. A
// token whose Y already appears in the spent set fails with
// AuthTokenAlreadyUsedErr, mirroring ordinary double-spend rejection.
func (r *Redeemer) Redeem(token string) error {
	proof, err := Decode(token)
	if err != nil {
		return err
	}
	if proof.Id != r.keyset.Id {
		return cashu.BlindAuthInsufficientErr
	}

	keyPair, ok := r.keyset.Keys[1]
	if !ok {
		return fmt.Errorf("auth: keyset %s has no amount-1 key", r.keyset.Id)
	}

	C, err := decodePoint(proof.C)
	if err != nil {
		return cashu.BlindAuthInsufficientErr
	}
	if !crypto.Verify([]byte(proof.Secret), keyPair.PrivateKey, C) {
		return cashu.BlindAuthInsufficientErr
	}

	y, err := proof.Y()
	if err != nil {
		return cashu.BlindAuthInsufficientErr
	}

	spent, err := r.store.IsAuthTokenSpent(y)
	if err != nil {
		return err
	}
	if spent {
		return cashu.AuthTokenAlreadyUsedErr
	}

	return r.store.MarkAuthTokenSpent(y)
}

// Issue mints a fresh blind-auth token for a caller that has already
// satisfied clear-auth: it blind-signs a freshly generated secret at
// amount 1 and returns the wire token. Callers obtain blind-auth
// tokens this way once, then spend them one at a time against
// protected endpoints.
func Issue(keyset *crypto.MintKeyset, secret string) (string, error) {
	keyPair, ok := keyset.Keys[1]
	if !ok {
		return "", fmt.Errorf("auth: keyset %s has no amount-1 key", keyset.Id)
	}

	Y := crypto.HashToCurve([]byte(secret))
	C := crypto.SignBlindedMessage(Y, keyPair.PrivateKey)

	return Encode(AuthProof{
		Id:     keyset.Id,
		Secret: secret,
		C:      encodePoint(C),
	})
}
