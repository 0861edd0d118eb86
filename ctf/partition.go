package ctf

import "github.com/cashuhub/ecash-core/cashu"

// PartitionElement is one outcome-collection in a registered
// partition: the set of outcome indices (into a Condition's outcome
// space) it covers, and the collection id trading proofs are minted
// against.
type PartitionElement struct {
	Outcomes     []uint32
	CollectionId [32]byte
}

// Partition is a set of outcome-collections over a single condition.
// A valid partition is non-empty, disjoint (no outcome index appears
// in more than one element) and covers every outcome of the
// condition.
type Partition struct {
	ConditionId [32]byte
	Elements    []PartitionElement
}

// Validate checks (i) non-empty, (ii) disjoint, (iii) covers all
// outcomes 0..totalOutcomes-1.
func (p Partition) Validate(totalOutcomes uint32) error {
	if len(p.Elements) == 0 {
		return cashu.IncompletePartitionErr
	}

	seen := make(map[uint32]bool, totalOutcomes)
	for _, el := range p.Elements {
		if len(el.Outcomes) == 0 {
			return cashu.IncompletePartitionErr
		}
		for _, outcome := range el.Outcomes {
			if outcome >= totalOutcomes {
				return cashu.InvalidConditionIdErr
			}
			if seen[outcome] {
				return cashu.OverlappingOutcomeCollectionsErr
			}
			seen[outcome] = true
		}
	}

	if uint32(len(seen)) != totalOutcomes {
		return cashu.IncompletePartitionErr
	}
	return nil
}

// ElementFor returns the partition element covering outcome, if any.
func (p Partition) ElementFor(outcome uint32) (PartitionElement, bool) {
	for _, el := range p.Elements {
		for _, o := range el.Outcomes {
			if o == outcome {
				return el, true
			}
		}
	}
	return PartitionElement{}, false
}

// ConservesAmount checks that a split/merge between a parent
// collection and this partition's children preserves the total
// amount: the sum of per-element amounts must equal the parent
// amount, per §4.12's split/merge conservation rule.
func ConservesAmount(parentAmount uint64, elementAmounts []uint64) bool {
	var sum uint64
	for _, a := range elementAmounts {
		sum += a
	}
	return sum == parentAmount
}
