package ctf

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cashuhub/ecash-core/crypto"
)

// identity is the all-zero outcome-collection id representing the
// root of a condition's outcome tree (no parent collection).
var identity [32]byte

// OutcomeCollectionId derives the x-only identifier for one outcome
// string under conditionId, optionally nested under a parent
// collection (pass the zero value for a top-level collection):
//
//	P = hash_to_curve(tagged_hash("Cashu_outcome_collection_id", condition_id || oc_string))
//	id = x_only(P)                      if parent == identity
//	id = x_only(lift_x(parent) + P)      otherwise
func OutcomeCollectionId(conditionId [32]byte, outcomeString string, parent [32]byte) ([32]byte, error) {
	msg := make([]byte, 0, len(conditionId)+len(outcomeString))
	msg = append(msg, conditionId[:]...)
	msg = append(msg, outcomeString...)
	h := crypto.TaggedHash(outcomeCollectionIdTag, msg)

	P := crypto.HashToCurve(h[:])
	if parent == identity {
		return xOnly(P), nil
	}

	parentPoint, err := liftX(parent)
	if err != nil {
		return [32]byte{}, fmt.Errorf("ctf: invalid parent outcome collection: %v", err)
	}
	return xOnly(addPoints(parentPoint, P)), nil
}

// liftX recovers the even-y point for an x-only coordinate, per
// BIP-340: the same 0x02-prefix trick crypto.HashToCurve uses to parse
// a candidate compressed point.
func liftX(x [32]byte) (*secp256k1.PublicKey, error) {
	compressed := append([]byte{0x02}, x[:]...)
	return secp256k1.ParsePubKey(compressed)
}

// xOnly drops a point's compressed-encoding parity byte, keeping only
// its x coordinate.
func xOnly(p *secp256k1.PublicKey) [32]byte {
	var out [32]byte
	copy(out[:], p.SerializeCompressed()[1:])
	return out
}

func addPoints(a, b *secp256k1.PublicKey) *secp256k1.PublicKey {
	var aJ, bJ, sum secp256k1.JacobianPoint
	a.AsJacobian(&aJ)
	b.AsJacobian(&bJ)
	secp256k1.AddNonConst(&aJ, &bJ, &sum)
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y)
}
