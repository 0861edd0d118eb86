// Package nut04 contains structs as defined in [NUT-04]
//
// [NUT-04]: https://github.com/cashubtc/nuts/blob/main/04.md
package nut04

import (
	"encoding/json"

	"github.com/cashuhub/ecash-core/cashu"
)

type PostMintQuoteBolt11Request struct {
	Amount uint64 `json:"amount"`
	Unit   string `json:"unit"`
}

type PostMintQuoteBolt11Response struct {
	Quote   string                `json:"quote"`
	Request string                `json:"request"`
	State   cashu.MintQuoteState  `json:"state"`
	Expiry  int64                 `json:"expiry"`
}

func (r PostMintQuoteBolt11Response) MarshalJSON() ([]byte, error) {
	type alias struct {
		Quote   string `json:"quote"`
		Request string `json:"request"`
		State   string `json:"state"`
		Expiry  int64  `json:"expiry"`
	}
	return json.Marshal(alias{Quote: r.Quote, Request: r.Request, State: r.State.String(), Expiry: r.Expiry})
}

func (r *PostMintQuoteBolt11Response) UnmarshalJSON(data []byte) error {
	var alias struct {
		Quote   string `json:"quote"`
		Request string `json:"request"`
		State   string `json:"state"`
		Expiry  int64  `json:"expiry"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	r.Quote = alias.Quote
	r.Request = alias.Request
	r.State = cashu.MintQuoteStateFromString(alias.State)
	r.Expiry = alias.Expiry
	return nil
}

type PostMintBolt11Request struct {
	Quote   string                `json:"quote"`
	Outputs cashu.BlindedMessages `json:"outputs"`
}

type PostMintBolt11Response struct {
	Signatures cashu.BlindedSignatures `json:"signatures"`
}
