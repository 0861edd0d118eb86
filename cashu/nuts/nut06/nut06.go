// Package nut06 contains structs as defined in [NUT-06]
//
// [NUT-06]: https://github.com/cashubtc/nuts/blob/main/06.md
package nut06

import (
	"bytes"
	"encoding/json"
	"slices"
)

// MintInfo is the body of the mint's /v1/info response: static
// operator-supplied fields plus the protocol-derived Pubkey/Nuts/Version.
type MintInfo struct {
	Name            string        `json:"name"`
	Pubkey          string        `json:"pubkey"`
	Version         string        `json:"version"`
	Description     string        `json:"description"`
	LongDescription string        `json:"description_long,omitempty"`
	Contact         []ContactInfo `json:"contact,omitempty"`
	Motd            string        `json:"motd,omitempty"`
	Nuts            NutsMap       `json:"nuts"`
}

type ContactInfo struct {
	Method string `json:"method"`
	Info   string `json:"info"`
}

// UnmarshalJSON tolerates mints still on the pre-contact-array info
// format by decoding Contact through a RawMessage and discarding it on
// mismatch instead of failing the whole response.
func (mi *MintInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name            string          `json:"name"`
		Pubkey          string          `json:"pubkey"`
		Version         string          `json:"version"`
		Description     string          `json:"description"`
		LongDescription string          `json:"description_long,omitempty"`
		Contact         json.RawMessage `json:"contact,omitempty"`
		Motd            string          `json:"motd,omitempty"`
		Nuts            NutsMap         `json:"nuts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	mi.Name = raw.Name
	mi.Pubkey = raw.Pubkey
	mi.Version = raw.Version
	mi.Description = raw.Description
	mi.LongDescription = raw.LongDescription
	mi.Motd = raw.Motd
	mi.Nuts = raw.Nuts
	// best-effort: an incompatible contact shape just leaves Contact empty
	json.Unmarshal(raw.Contact, &mi.Contact)

	return nil
}

type NutSetting struct {
	Methods  []MethodSetting `json:"methods"`
	Disabled bool            `json:"disabled"`
}

type MethodSetting struct {
	Method    string `json:"method"`
	Unit      string `json:"unit"`
	MinAmount uint64 `json:"min_amount,omitempty"`
	MaxAmount uint64 `json:"max_amount,omitempty"`
}

// NutsMap keys a mint's advertised NUT numbers to their per-NUT settings.
type NutsMap map[int]any

// MarshalJSON renders nuts in ascending numeric order so the /v1/info
// response is stable across requests, since Go map iteration is not.
func (nm NutsMap) MarshalJSON() ([]byte, error) {
	nutNumbers := make([]int, 0, len(nm))
	for n := range nm {
		nutNumbers = append(nutNumbers, n)
	}
	slices.Sort(nutNumbers)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range nutNumbers {
		if i != 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.WriteByte('"')
		buf.Write(key)
		buf.WriteByte('"')
		buf.WriteByte(':')

		val, err := json.Marshal(nm[n])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}
