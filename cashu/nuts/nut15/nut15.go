// Package nut15 contains structs and errors as defined in [NUT-15].
// Mint-support detection lives in the wallet package, since it needs the
// HTTP client and a dependency from here would cycle back into wallet.
//
// [NUT-15]: https://github.com/cashubtc/nuts/blob/main/15.md
package nut15

import "errors"

var (
	ErrSplitTooShort = errors.New("length of split too short")
)
