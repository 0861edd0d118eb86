// Package nut07 contains structs and state codec as defined in [NUT-07].
//
// [NUT-07]: https://github.com/cashubtc/nuts/blob/main/07.md
package nut07

import (
	"encoding/json"
	"errors"
)

// State is a proof's spend status as reported by the mint's
// /v1/checkstate endpoint.
type State int

const (
	Unspent State = iota
	Pending
	Spent
	Unknown
)

func (state State) String() string {
	switch state {
	case Unspent:
		return "UNSPENT"
	case Pending:
		return "PENDING"
	case Spent:
		return "SPENT"
	default:
		return "unknown"
	}
}

func StringToState(s string) State {
	switch s {
	case "UNSPENT":
		return Unspent
	case "PENDING":
		return Pending
	case "SPENT":
		return Spent
	default:
		return Unknown
	}
}

type PostCheckStateRequest struct {
	Ys []string `json:"Ys"`
}

type PostCheckStateResponse struct {
	States []ProofState `json:"states"`
}

type ProofState struct {
	Y       string `json:"Y"`
	State   State  `json:"state"`
	Witness string `json:"witness"`
}

// UnmarshalJSON decodes the wire's string state ("UNSPENT"/"PENDING"/
// "SPENT") into the State enum, rejecting anything else.
func (ps *ProofState) UnmarshalJSON(data []byte) error {
	var wire struct {
		Y       string `json:"Y"`
		State   string `json:"state"`
		Witness string `json:"witness"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	state := StringToState(wire.State)
	if state == Unknown {
		return errors.New("invalid state")
	}

	ps.Y = wire.Y
	ps.State = state
	ps.Witness = wire.Witness

	return nil
}
