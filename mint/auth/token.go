package auth

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cashuhub/ecash-core/crypto"
)

const tokenPrefix = "authA"

// AuthProof is a Cashu proof of amount 1 issued on the mint's
// dedicated Auth-unit keyset (§4.11). It carries no amount field on
// the wire: every blind-auth token is worth exactly one redemption.
type AuthProof struct {
	Id     string `json:"id"`
	Secret string `json:"secret"`
	C      string `json:"C"`
}

// Y is the same spent-set key used for ordinary proofs: HashToCurve
// of the proof's secret, so blind-auth redemption shares the regular
// proof's single-use mechanics exactly.
func (p AuthProof) Y() (string, error) {
	Y, err := hashToCurveHex(p.Secret)
	if err != nil {
		return "", err
	}
	return Y, nil
}

func hashToCurveHex(secret string) (string, error) {
	Y := crypto.HashToCurve([]byte(secret))
	if Y == nil {
		return "", fmt.Errorf("invalid secret")
	}
	return hex.EncodeToString(Y.SerializeCompressed()), nil
}

// Encode renders an AuthProof as the wire token format: "authA" ||
// base64url(JSON(AuthProof)).
func Encode(proof AuthProof) (string, error) {
	jsonProof, err := json.Marshal(proof)
	if err != nil {
		return "", err
	}
	return tokenPrefix + base64.URLEncoding.EncodeToString(jsonProof), nil
}

// Decode parses a wire blind-auth token back into an AuthProof.
func Decode(token string) (*AuthProof, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, fmt.Errorf("invalid auth token prefix")
	}

	jsonProof, err := base64.URLEncoding.DecodeString(strings.TrimPrefix(token, tokenPrefix))
	if err != nil {
		// tolerate missing padding, as the cashuA/cashuB decoders do
		jsonProof, err = base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, tokenPrefix))
		if err != nil {
			return nil, fmt.Errorf("invalid auth token encoding: %v", err)
		}
	}

	var proof AuthProof
	if err := json.Unmarshal(jsonProof, &proof); err != nil {
		return nil, fmt.Errorf("invalid auth token payload: %v", err)
	}
	return &proof, nil
}

