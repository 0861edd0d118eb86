package ctf

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/cashuhub/ecash-core/cashu"
	"github.com/cashuhub/ecash-core/crypto"
)

const attestationTag = "Cashu_outcome_attestation"

// Attestation is one oracle's Schnorr signature over an attested
// outcome.
type Attestation struct {
	Pubkey    OraclePubkey
	Signature []byte // 64-byte BIP-340 signature
}

func attestationMessage(conditionId [32]byte, outcome string) [32]byte {
	msg := make([]byte, 0, len(conditionId)+len(outcome))
	msg = append(msg, conditionId[:]...)
	msg = append(msg, outcome...)
	return crypto.TaggedHash(attestationTag, msg)
}

// VerifyOutcome reports whether at least condition.Threshold distinct
// registered oracles validly signed outcome.
func VerifyOutcome(condition Condition, outcome string, attestations []Attestation) error {
	oracleSet := make(map[OraclePubkey]bool, len(condition.OraclePubkeys))
	for _, pk := range condition.OraclePubkeys {
		oracleSet[pk] = true
	}

	msg := attestationMessage(condition.Id(), outcome)
	valid := make(map[OraclePubkey]bool)
	for _, a := range attestations {
		if !oracleSet[a.Pubkey] {
			continue
		}
		pubKey, err := schnorr.ParsePubKey(a.Pubkey[:])
		if err != nil {
			continue
		}
		sig, err := schnorr.ParseSignature(a.Signature)
		if err != nil {
			continue
		}
		if sig.Verify(msg[:], pubKey) {
			valid[a.Pubkey] = true
		}
	}

	if len(valid) < condition.Threshold {
		return cashu.OracleThresholdNotMetErr
	}
	return nil
}

// ResolveOutcome checks every candidate outcome's attestations and
// returns the single one that reaches condition.Threshold. Zero
// candidates reaching threshold is OracleThresholdNotMetErr; more than
// one (oracle equivocation, or a misconfigured overlapping candidate
// set) is ConflictingOracleAttestationsErr.
func ResolveOutcome(condition Condition, attestationsByOutcome map[string][]Attestation) (string, error) {
	var winner string
	count := 0
	for outcome, attestations := range attestationsByOutcome {
		if err := VerifyOutcome(condition, outcome, attestations); err == nil {
			winner = outcome
			count++
		}
	}

	switch {
	case count == 0:
		return "", cashu.OracleThresholdNotMetErr
	case count > 1:
		return "", cashu.ConflictingOracleAttestationsErr
	default:
		return winner, nil
	}
}

// DecomposeDigits splits value into its big-endian bit sequence of the
// given precision, the wire shape a numeric condition's per-digit
// oracle attestations sign over.
func DecomposeDigits(value uint64, precision uint8) []byte {
	bits := make([]byte, precision)
	for i := range bits {
		shift := uint(int(precision) - 1 - i)
		bits[i] = byte((value >> shift) & 1)
	}
	return bits
}

// RecomposeDigits inverts DecomposeDigits.
func RecomposeDigits(bits []byte) uint64 {
	var v uint64
	for _, b := range bits {
		v = (v << 1) | uint64(b&1)
	}
	return v
}

// VerifyNumericAttestation resolves a numeric condition's attested
// value from per-digit attestations (outcome strings "digit_<i>_<bit>")
// and confirms the recomposed value falls within the condition's
// range.
func VerifyNumericAttestation(condition Condition, digitAttestations map[int][]Attestation) (uint64, error) {
	if condition.Numeric == nil {
		return 0, fmt.Errorf("ctf: condition is not numeric")
	}

	bits := make([]byte, condition.Numeric.Precision)
	for i := 0; i < int(condition.Numeric.Precision); i++ {
		atts, ok := digitAttestations[i]
		if !ok {
			return 0, cashu.OracleThresholdNotMetErr
		}

		byOutcome := map[string][]Attestation{
			fmt.Sprintf("digit_%d_0", i): atts,
			fmt.Sprintf("digit_%d_1", i): atts,
		}

		outcome, err := ResolveOutcome(condition, byOutcome)
		if err != nil {
			return 0, err
		}
		if outcome == fmt.Sprintf("digit_%d_1", i) {
			bits[i] = 1
		}
	}

	value := RecomposeDigits(bits)
	if value < condition.Numeric.Lo || value >= condition.Numeric.Hi {
		return 0, cashu.InvalidConditionIdErr
	}
	return value, nil
}

// NumericPayout splits amount proportionally between the HI and LO
// branches of a numeric condition's range [lo, hi) given the attested
// value v: hi = floor(amount * (v - lo) / (hi - lo)), lo = amount -
// hi, which conserves the total.
func NumericPayout(amount, lo, hi, v uint64) (hiPayout, loPayout uint64) {
	switch {
	case v <= lo:
		return 0, amount
	case v >= hi:
		return amount, 0
	default:
		hiPayout = amount * (v - lo) / (hi - lo)
		return hiPayout, amount - hiPayout
	}
}
