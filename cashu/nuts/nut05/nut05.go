// Package nut05 contains structs as defined in [NUT-05]
//
// [NUT-05]: https://github.com/cashubtc/nuts/blob/main/05.md
package nut05

import (
	"encoding/json"

	"github.com/cashuhub/ecash-core/cashu"
)

// MppOption carries the NUT-15 multi-path payment amount (in millisats) for
// a single partial melt quote.
type MppOption struct {
	AmountMsat uint64 `json:"amount"`
}

type PostMeltQuoteBolt11Request struct {
	Request string               `json:"request"`
	Unit    string               `json:"unit"`
	Options map[string]MppOption `json:"options,omitempty"`
}

type PostMeltQuoteBolt11Response struct {
	Quote      string              `json:"quote"`
	Amount     uint64              `json:"amount"`
	FeeReserve uint64              `json:"fee_reserve"`
	State      cashu.MeltQuoteState `json:"state"`
	Expiry     int64               `json:"expiry"`
}

func (r PostMeltQuoteBolt11Response) MarshalJSON() ([]byte, error) {
	type alias struct {
		Quote      string `json:"quote"`
		Amount     uint64 `json:"amount"`
		FeeReserve uint64 `json:"fee_reserve"`
		State      string `json:"state"`
		Expiry     int64  `json:"expiry"`
	}
	return json.Marshal(alias{
		Quote:      r.Quote,
		Amount:     r.Amount,
		FeeReserve: r.FeeReserve,
		State:      r.State.String(),
		Expiry:     r.Expiry,
	})
}

func (r *PostMeltQuoteBolt11Response) UnmarshalJSON(data []byte) error {
	var alias struct {
		Quote      string `json:"quote"`
		Amount     uint64 `json:"amount"`
		FeeReserve uint64 `json:"fee_reserve"`
		State      string `json:"state"`
		Expiry     int64  `json:"expiry"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	r.Quote = alias.Quote
	r.Amount = alias.Amount
	r.FeeReserve = alias.FeeReserve
	r.State = cashu.MeltQuoteStateFromString(alias.State)
	r.Expiry = alias.Expiry
	return nil
}

type PostMeltBolt11Request struct {
	Quote  string       `json:"quote"`
	Inputs cashu.Proofs `json:"inputs"`
}

type PostMeltBolt11Response struct {
	State    cashu.MeltQuoteState `json:"state"`
	Preimage string              `json:"payment_preimage"`
}

func (r PostMeltBolt11Response) MarshalJSON() ([]byte, error) {
	type alias struct {
		State    string `json:"state"`
		Preimage string `json:"payment_preimage"`
	}
	return json.Marshal(alias{State: r.State.String(), Preimage: r.Preimage})
}

func (r *PostMeltBolt11Response) UnmarshalJSON(data []byte) error {
	var alias struct {
		State    string `json:"state"`
		Preimage string `json:"payment_preimage"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	r.State = cashu.MeltQuoteStateFromString(alias.State)
	r.Preimage = alias.Preimage
	return nil
}
