package sale

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// AccountRecord is the per-participant ledger entry. Amounts are decimal
// strings; ClaimedAmount is written exactly once, when Claimed flips to true.
type AccountRecord struct {
	ContributedAmount string `json:"contributedAmount"`
	Claimed           bool   `json:"claimed"`
	ClaimedAmount     string `json:"claimedAmount"`
}

// SaleConfig is set at Initialize and mutable only by the admin while the
// phase is NotStarted. A zero ClaimEnd means the claim window never closes.
type SaleConfig struct {
	SaleStart         uint64 `json:"saleStart"`
	SaleEnd           uint64 `json:"saleEnd"`
	ClaimStart        uint64 `json:"claimStart"`
	ClaimEnd          uint64 `json:"claimEnd"`
	RateNumerator     uint64 `json:"rateNumerator"`
	RateDenominator   uint64 `json:"rateDenominator"`
	WhitelistDuration uint64 `json:"whitelistDuration"`
	PullCollateral    bool   `json:"pullCollateral"`
}

type Totals struct {
	TotalContributed string `json:"totalContributed"`
	TotalClaimed     string `json:"totalClaimed"`
}

func GetAccountRecord(ctx kalpsdk.TransactionContextInterface, account string) (*AccountRecord, error) {
	accountKey := fmt.Sprintf("%s%s", accountKeyPrefix, account)
	recordAsBytes, err := ctx.GetState(accountKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get account record with Key %s", accountKey), err)
	}
	if recordAsBytes == nil {
		return nil, nil
	}

	var record AccountRecord
	err = json.Unmarshal(recordAsBytes, &record)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to unmarshal account record", err)
	}

	return &record, nil
}

func SetAccountRecord(ctx kalpsdk.TransactionContextInterface, account string, record *AccountRecord) error {
	accountKey := fmt.Sprintf("%s%s", accountKeyPrefix, account)
	recordAsBytes, err := json.Marshal(record)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal account record", err)
	}

	err = ctx.PutStateWithoutKYC(accountKey, recordAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set account record with Key %s", accountKey), err)
	}

	return nil
}

func GetSaleConfig(ctx kalpsdk.TransactionContextInterface) (*SaleConfig, error) {
	configAsBytes, err := ctx.GetState(SaleConfigKey)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to get sale config", err)
	}
	if configAsBytes == nil {
		return nil, ErrNotInitialized
	}

	var config SaleConfig
	err = json.Unmarshal(configAsBytes, &config)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, "failed to unmarshal sale config", err)
	}

	return &config, nil
}

func SetSaleConfig(ctx kalpsdk.TransactionContextInterface, config *SaleConfig) error {
	configAsBytes, err := json.Marshal(config)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to marshal sale config", err)
	}

	err = ctx.PutStateWithoutKYC(SaleConfigKey, configAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set sale config", err)
	}

	return nil
}

func GetTotals(ctx kalpsdk.TransactionContextInterface) (*Totals, error) {
	totalContributed, err := getStateAmount(ctx, TotalContributedKey)
	if err != nil {
		return nil, err
	}

	totalClaimed, err := getStateAmount(ctx, TotalClaimedKey)
	if err != nil {
		return nil, err
	}

	return &Totals{
		TotalContributed: totalContributed.String(),
		TotalClaimed:     totalClaimed.String(),
	}, nil
}

func getStateAmount(ctx kalpsdk.TransactionContextInterface, key string) (*big.Int, error) {
	amountAsBytes, err := ctx.GetState(key)
	if err != nil {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get amount with Key %s", key), err)
	}

	amount := big.NewInt(0)
	if amountAsBytes != nil {
		_, success := amount.SetString(string(amountAsBytes), 10)
		if !success {
			return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse amount with Key %s", key), nil)
		}
	}

	return amount, nil
}

func setStateAmount(ctx kalpsdk.TransactionContextInterface, key string, amount *big.Int) error {
	amountAsBytes, err := amount.MarshalText()
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal amount for Key %s", key), err)
	}

	err = ctx.PutStateWithoutKYC(key, amountAsBytes)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set amount with Key %s", key), err)
	}

	return nil
}

func GetAdmin(ctx kalpsdk.TransactionContextInterface) (string, error) {
	adminAsBytes, err := ctx.GetState(AdminKey)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, "failed to get admin", err)
	}
	if adminAsBytes == nil {
		return "", ErrNotInitialized
	}

	return string(adminAsBytes), nil
}

func IsPaused(ctx kalpsdk.TransactionContextInterface) (bool, error) {
	pausedAsBytes, err := ctx.GetState(PausedKey)
	if err != nil {
		return false, NewCustomError(http.StatusInternalServerError, "failed to get paused flag", err)
	}

	return pausedAsBytes != nil && string(pausedAsBytes) == "1", nil
}

func setFlag(ctx kalpsdk.TransactionContextInterface, key string, on bool) error {
	value := "0"
	if on {
		value = "1"
	}

	err := ctx.PutStateWithoutKYC(key, []byte(value))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set flag with Key %s", key), err)
	}

	return nil
}

func getFlag(ctx kalpsdk.TransactionContextInterface, key string) (bool, error) {
	flagAsBytes, err := ctx.GetState(key)
	if err != nil {
		return false, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get flag with Key %s", key), err)
	}

	return flagAsBytes != nil && string(flagAsBytes) == "1", nil
}

func IsWhitelisted(ctx kalpsdk.TransactionContextInterface, account string) (bool, error) {
	return getFlag(ctx, fmt.Sprintf("%s%s", whitelistKeyPrefix, account))
}

func IsAuthorizedRecorder(ctx kalpsdk.TransactionContextInterface, address string) (bool, error) {
	return getFlag(ctx, fmt.Sprintf("%s%s", recorderKeyPrefix, address))
}

// GetAirdropTokenAddress returns the Token Ledger chaincode address, empty if
// not yet set.
func GetAirdropTokenAddress(ctx kalpsdk.TransactionContextInterface) (string, error) {
	tokenAsBytes, err := ctx.GetState(AirdropTokenKey)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get token address with Key %s", AirdropTokenKey), err)
	}

	return string(tokenAsBytes), nil
}

// GetDistributorAddress returns the Airdrop Distributor chaincode address,
// empty if claims are delivered through the Token Ledger directly.
func GetDistributorAddress(ctx kalpsdk.TransactionContextInterface) (string, error) {
	distributorAsBytes, err := ctx.GetState(DistributorKey)
	if err != nil {
		return "", NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get distributor address with Key %s", DistributorKey), err)
	}

	return string(distributorAsBytes), nil
}

func setContractAddress(ctx kalpsdk.TransactionContextInterface, key, address string) error {
	if !IsContractAddressValid(address) {
		return InvalidContractAddressError(address)
	}

	existingAddress, err := ctx.GetState(key)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get address with Key %s", key), err)
	}
	if existingAddress != nil && string(existingAddress) != "" {
		return NewCustomError(http.StatusConflict, fmt.Sprintf("%s: %s", ErrAddressAlreadySet, key), nil)
	}

	err = ctx.PutStateWithoutKYC(key, []byte(address))
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set address with Key %s", key), err)
	}

	return nil
}
