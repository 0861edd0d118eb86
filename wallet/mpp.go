package wallet

import "fmt"

// IsMppSupported returns whether the mint supports NUT-15 multi-path payments.
func IsMppSupported(mintURL string) (bool, error) {
	mintInfo, err := GetMintInfo(mintURL)
	if err != nil {
		return false, fmt.Errorf("error getting info from mint: %v", err)
	}

	_, ok := mintInfo.Nuts[15]
	return ok, nil
}
