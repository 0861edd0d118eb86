package crypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// DLEQProof is a Schnorr-style proof that C_ = a*B_ for the same scalar a
// whose public counterpart A = a*G is known to the verifier.
type DLEQProof struct {
	E *secp256k1.PrivateKey
	S *secp256k1.PrivateKey
}

// GenerateDLEQ produces a proof that C_ = a*B_, given the mint's private
// key a, public key A, the blinded message B_ and blind signature C_.
func GenerateDLEQ(a *secp256k1.PrivateKey, A, B_, C_ *secp256k1.PublicKey) (*DLEQProof, error) {
	r, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	R1 := scalarMultBase(r)
	R2 := scalarMultPoint(r, B_)

	e := HashE(R1, R2, A, C_)
	eScalar := new(secp256k1.ModNScalar)
	eScalar.SetBytes(&e)

	var sScalar secp256k1.ModNScalar
	sScalar.Mul2(eScalar, &a.Key).Add(&r.Key)

	return &DLEQProof{
		E: secp256k1.NewPrivateKey(eScalar),
		S: secp256k1.NewPrivateKey(&sScalar),
	}, nil
}

// VerifyDLEQ checks a DLEQ proof (e, s) against A, B_ and C_ by
// reconstructing R1' = s*G - e*A and R2' = s*B_ - e*C_ and comparing the
// recomputed challenge to e.
func VerifyDLEQ(e, s *secp256k1.PrivateKey, A, B_, C_ *secp256k1.PublicKey) bool {
	R1 := pointSub(scalarMultBase(s), scalarMultPoint(e, A))
	R2 := pointSub(scalarMultPoint(s, B_), scalarMultPoint(e, C_))

	recomputed := HashE(R1, R2, A, C_)

	var eScalar secp256k1.ModNScalar
	eScalar.SetBytes(&recomputed)

	return eScalar.Equals(&e.Key)
}

func scalarMultBase(k *secp256k1.PrivateKey) *secp256k1.PublicKey {
	return k.PubKey()
}

func scalarMultPoint(k *secp256k1.PrivateKey, p *secp256k1.PublicKey) *secp256k1.PublicKey {
	var pj, rj secp256k1.JacobianPoint
	p.AsJacobian(&pj)
	secp256k1.ScalarMultNonConst(&k.Key, &pj, &rj)
	rj.ToAffine()
	return secp256k1.NewPublicKey(&rj.X, &rj.Y)
}

func pointSub(p1, p2 *secp256k1.PublicKey) *secp256k1.PublicKey {
	var p1j, sumj secp256k1.JacobianPoint
	p1.AsJacobian(&p1j)

	var negP2 secp256k1.JacobianPoint
	p2.AsJacobian(&negP2)
	negP2.Y.Negate(1)
	negP2.Y.Normalize()

	secp256k1.AddNonConst(&p1j, &negP2, &sumj)
	sumj.ToAffine()
	return secp256k1.NewPublicKey(&sumj.X, &sumj.Y)
}
