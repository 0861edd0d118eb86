package mint

import (
	"encoding/json"
	"log"
	"os"
	"strconv"

	"github.com/cashuhub/ecash-core/cashu/nuts/nut06"
	"github.com/cashuhub/ecash-core/mint/lightning"
)

// LogLevel controls the verbosity of the mint's slog logger.
type LogLevel int

const (
	Info LogLevel = iota
	Debug
	Disable
)

// MintInfo holds the operator-supplied fields of NUT-06 mint info;
// LoadMint fills in the protocol-derived fields (Pubkey, Nuts, Version).
type MintInfo struct {
	Name            string
	Description     string
	LongDescription string
	Contact         []nut06.ContactInfo
	Motd            string
}

type Config struct {
	MintPath          string
	DerivationPathIdx uint32
	Port              string
	DBPath            string
	DBMigrationPath   string
	InputFeePpk       uint
	Limits            MintLimits
	LogLevel          LogLevel
	LightningClient   lightning.Client
	MintInfo          MintInfo
}

type MintMethodSettings struct {
	MinAmount uint64
	MaxAmount uint64
}

type MeltMethodSettings struct {
	MinAmount uint64
	MaxAmount uint64
}

type MintLimits struct {
	MaxBalance      uint64
	MintingSettings MintMethodSettings
	MeltingSettings MeltMethodSettings
}

func GetConfig() Config {
	var inputFeePpk uint = 0
	if inputFeeEnv, ok := os.LookupEnv("INPUT_FEE_PPK"); ok {
		fee, err := strconv.ParseUint(inputFeeEnv, 10, 16)
		if err != nil {
			log.Fatalf("invalid INPUT_FEE_PPK: %v", err)
		}
		inputFeePpk = uint(fee)
	}

	derivationPathIdx, err := strconv.ParseUint(os.Getenv("DERIVATION_PATH_IDX"), 10, 32)
	if err != nil {
		log.Fatalf("invalid DERIVATION_PATH_IDX: %v", err)
	}

	mintLimits := MintLimits{}
	if maxBalanceEnv, ok := os.LookupEnv("MAX_BALANCE"); ok {
		maxBalance, err := strconv.ParseUint(maxBalanceEnv, 10, 64)
		if err != nil {
			log.Fatalf("invalid MAX_BALANCE: %v", err)
		}
		mintLimits.MaxBalance = maxBalance
	}

	if maxMintEnv, ok := os.LookupEnv("MINTING_MAX_AMOUNT"); ok {
		maxMint, err := strconv.ParseUint(maxMintEnv, 10, 64)
		if err != nil {
			log.Fatalf("invalid MINTING_MAX_AMOUNT: %v", err)
		}
		mintLimits.MintingSettings = MintMethodSettings{MaxAmount: maxMint}
	}

	if maxMeltEnv, ok := os.LookupEnv("MELTING_MAX_AMOUNT"); ok {
		maxMelt, err := strconv.ParseUint(maxMeltEnv, 10, 64)
		if err != nil {
			log.Fatalf("invalid MELTING_MAX_AMOUNT: %v", err)
		}
		mintLimits.MeltingSettings = MeltMethodSettings{MaxAmount: maxMelt}
	}

	logLevel := Info
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		logLevel = Debug
	case "disable":
		logLevel = Disable
	}

	var mintContactInfo []nut06.ContactInfo
	if contact := os.Getenv("MINT_CONTACT_INFO"); len(contact) > 0 {
		var infoArr [][]string
		if err := json.Unmarshal([]byte(contact), &infoArr); err != nil {
			log.Fatalf("error parsing contact info: %v", err)
		}
		for _, info := range infoArr {
			mintContactInfo = append(mintContactInfo, nut06.ContactInfo{Method: info[0], Info: info[1]})
		}
	}

	return Config{
		MintPath:          os.Getenv("MINT_PATH"),
		DerivationPathIdx: uint32(derivationPathIdx),
		Port:              os.Getenv("MINT_PORT"),
		DBPath:            os.Getenv("MINT_DB_PATH"),
		DBMigrationPath:   "../../mint/storage/sqlite/migrations",
		InputFeePpk:       inputFeePpk,
		Limits:            mintLimits,
		LogLevel:          logLevel,
		MintInfo: MintInfo{
			Name:            os.Getenv("MINT_NAME"),
			Description:     os.Getenv("MINT_DESCRIPTION"),
			LongDescription: os.Getenv("MINT_DESCRIPTION_LONG"),
			Contact:         mintContactInfo,
			Motd:            os.Getenv("MINT_MOTD"),
		},
	}
}
