package sale

import (
	"fmt"
	"math/big"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

type SmartContract struct {
	kalpsdk.Contract
}

// Initialize deploys the conversion ledger. The signer becomes the admin of
// the access gate. Configuration is immutable afterwards except through the
// admin operations below, and only while the phase is still NotStarted.
func (s *SmartContract) Initialize(
	ctx kalpsdk.TransactionContextInterface,
	saleStart, saleEnd, claimStart, claimEnd uint64,
	rateNumerator, rateDenominator uint64,
	whitelistDuration uint64,
	pullCollateral bool,
) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	existingAdmin, err := ctx.GetState(AdminKey)
	if err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to get admin", err)
	}
	if existingAdmin != nil {
		return ErrAlreadyInitialized
	}

	if err := validateTimestamps(saleStart, saleEnd, claimStart, claimEnd); err != nil {
		return err
	}
	if rateDenominator == 0 {
		return ErrCannotBeZero
	}
	if whitelistDuration > saleEnd-saleStart {
		return NewCustomError(http.StatusBadRequest, "whitelist duration exceeds sale window", nil)
	}

	config := &SaleConfig{
		SaleStart:         saleStart,
		SaleEnd:           saleEnd,
		ClaimStart:        claimStart,
		ClaimEnd:          claimEnd,
		RateNumerator:     rateNumerator,
		RateDenominator:   rateDenominator,
		WhitelistDuration: whitelistDuration,
		PullCollateral:    pullCollateral,
	}
	if err := SetSaleConfig(ctx, config); err != nil {
		return err
	}

	if err := ctx.PutStateWithoutKYC(AdminKey, []byte(signer)); err != nil {
		return NewCustomError(http.StatusInternalServerError, "failed to set admin", err)
	}

	if err := setStateAmount(ctx, TotalContributedKey, big.NewInt(0)); err != nil {
		return err
	}
	if err := setStateAmount(ctx, TotalClaimedKey, big.NewInt(0)); err != nil {
		return err
	}

	return EmitInitialized(ctx, signer, config)
}

// RecordContribution accrues a sale contribution for account. The caller
// must be the participant itself, an authorized upstream sale contract
// identity, or the admin. When the sale collects collateral through this
// ledger, the amount is pulled from the participant after the bookkeeping is
// written; any pull failure reverts the whole call.
func (s *SmartContract) RecordContribution(ctx kalpsdk.TransactionContextInterface, account string, amount string) error {
	config, err := GetSaleConfig(ctx)
	if err != nil {
		return err
	}

	if err := requireNotPaused(ctx); err != nil {
		return err
	}

	timestamp, err := TxTimestamp(ctx)
	if err != nil {
		return err
	}

	phase := PhaseAt(config, timestamp)
	if phase != SaleOpen {
		return PhaseError("RecordContribution", phase)
	}

	amountInInt, err := parseAmount("contribution", amount)
	if err != nil {
		return err
	}

	if !IsUserAddressValid(account) {
		return InvalidUserAddressError(account)
	}

	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}
	if signer != account {
		admin, err := GetAdmin(ctx)
		if err != nil {
			return err
		}
		authorized, err := IsAuthorizedRecorder(ctx, signer)
		if err != nil {
			return err
		}
		if signer != admin && !authorized {
			return ErrUnauthorized
		}
	}

	if config.WhitelistDuration > 0 && timestamp < config.SaleStart+config.WhitelistDuration {
		whitelisted, err := IsWhitelisted(ctx, account)
		if err != nil {
			return err
		}
		if !whitelisted {
			return ErrNotWhitelisted
		}
	}

	record, err := accrueContribution(ctx, account, amountInInt)
	if err != nil {
		return err
	}

	if config.PullCollateral {
		tokenAddress, err := GetAirdropTokenAddress(ctx)
		if err != nil {
			return err
		}
		if tokenAddress == "" {
			return NewCustomError(http.StatusInternalServerError, "no token address configured for collateral pull", nil)
		}
		if err := invokeTransferFrom(ctx, tokenAddress, account, amountInInt); err != nil {
			return err
		}
	}

	return EmitContributionRecorded(ctx, account, amountInInt.String(), record.ContributedAmount, signer)
}

// Claim settles the airdrop entitlement for account exactly once. State is
// flipped before the delivery call leaves the contract; an error from the
// Token Ledger or Airdrop Distributor reverts the flip along with the rest
// of the transaction, so a failed claim can simply be resubmitted.
func (s *SmartContract) Claim(ctx kalpsdk.TransactionContextInterface, account string) error {
	config, err := GetSaleConfig(ctx)
	if err != nil {
		return err
	}

	if err := requireNotPaused(ctx); err != nil {
		return err
	}

	timestamp, err := TxTimestamp(ctx)
	if err != nil {
		return err
	}

	phase := PhaseAt(config, timestamp)
	if phase != ClaimOpen {
		return PhaseError("Claim", phase)
	}

	signer, err := GetUserId(ctx)
	if err != nil {
		return NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}
	if signer != account {
		admin, err := GetAdmin(ctx)
		if err != nil {
			return err
		}
		if signer != admin {
			return ErrUnauthorized
		}
	}

	record, err := GetAccountRecord(ctx, account)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrNothingToClaim
	}
	if record.Claimed {
		return ErrAlreadyClaimed
	}

	contributed, ok := new(big.Int).SetString(record.ContributedAmount, 10)
	if !ok {
		return InvalidAmountError("account record", record.ContributedAmount)
	}
	if contributed.Sign() == 0 {
		return ErrNothingToClaim
	}

	entitlement, err := ComputeEntitlement(contributed, config.RateNumerator, config.RateDenominator)
	if err != nil {
		return err
	}

	totalContributed, err := getStateAmount(ctx, TotalContributedKey)
	if err != nil {
		return err
	}
	totalClaimed, err := getStateAmount(ctx, TotalClaimedKey)
	if err != nil {
		return err
	}
	totalClaimed.Add(totalClaimed, entitlement)

	maxDistributable, err := ComputeEntitlement(totalContributed, config.RateNumerator, config.RateDenominator)
	if err != nil {
		return err
	}
	if totalClaimed.Cmp(maxDistributable) > 0 {
		return NewCustomError(http.StatusInternalServerError,
			fmt.Sprintf("claim would over-distribute: totalClaimed=%s max=%s", totalClaimed, maxDistributable), nil)
	}

	record.Claimed = true
	record.ClaimedAmount = entitlement.String()
	if err := SetAccountRecord(ctx, account, record); err != nil {
		return err
	}
	if err := setStateAmount(ctx, TotalClaimedKey, totalClaimed); err != nil {
		return err
	}

	if entitlement.Sign() > 0 {
		if err := deliverEntitlement(ctx, account, entitlement); err != nil {
			return err
		}
	}

	return EmitClaim(ctx, account, entitlement.String(), timestamp)
}

// SetConversionRate updates the conversion policy. Economic terms are frozen
// once the sale has started.
func (s *SmartContract) SetConversionRate(ctx kalpsdk.TransactionContextInterface, rateNumerator, rateDenominator uint64) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	config, err := GetSaleConfig(ctx)
	if err != nil {
		return err
	}

	timestamp, err := TxTimestamp(ctx)
	if err != nil {
		return err
	}
	phase := PhaseAt(config, timestamp)
	if phase != NotStarted {
		return PhaseError("SetConversionRate", phase)
	}

	if rateDenominator == 0 {
		return ErrCannotBeZero
	}

	config.RateNumerator = rateNumerator
	config.RateDenominator = rateDenominator
	if err := SetSaleConfig(ctx, config); err != nil {
		return err
	}

	return EmitConversionRateUpdated(ctx, rateNumerator, rateDenominator)
}

// SetPhaseTimestamps moves the sale and claim windows. Only allowed before
// the (current) sale start has been reached.
func (s *SmartContract) SetPhaseTimestamps(ctx kalpsdk.TransactionContextInterface, saleStart, saleEnd, claimStart, claimEnd uint64) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	config, err := GetSaleConfig(ctx)
	if err != nil {
		return err
	}

	timestamp, err := TxTimestamp(ctx)
	if err != nil {
		return err
	}
	phase := PhaseAt(config, timestamp)
	if phase != NotStarted {
		return PhaseError("SetPhaseTimestamps", phase)
	}

	if err := validateTimestamps(saleStart, saleEnd, claimStart, claimEnd); err != nil {
		return err
	}
	if timestamp >= saleStart {
		return NewCustomError(http.StatusBadRequest, "new sale start must be in the future", nil)
	}
	if config.WhitelistDuration > saleEnd-saleStart {
		return NewCustomError(http.StatusBadRequest, "whitelist duration exceeds sale window", nil)
	}

	config.SaleStart = saleStart
	config.SaleEnd = saleEnd
	config.ClaimStart = claimStart
	config.ClaimEnd = claimEnd
	if err := SetSaleConfig(ctx, config); err != nil {
		return err
	}

	return EmitPhaseTimestampsUpdated(ctx, saleStart, saleEnd, claimStart, claimEnd)
}

func (s *SmartContract) Pause(ctx kalpsdk.TransactionContextInterface) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	if err := setFlag(ctx, PausedKey, true); err != nil {
		return err
	}

	return EmitPaused(ctx, true)
}

func (s *SmartContract) Unpause(ctx kalpsdk.TransactionContextInterface) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	if err := setFlag(ctx, PausedKey, false); err != nil {
		return err
	}

	return EmitPaused(ctx, false)
}

// SetAirdropToken wires the Token Ledger chaincode address. Set once, before
// the sale starts.
func (s *SmartContract) SetAirdropToken(ctx kalpsdk.TransactionContextInterface, tokenAddress string) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	if err := s.requireNotStarted(ctx, "SetAirdropToken"); err != nil {
		return err
	}

	if err := setContractAddress(ctx, AirdropTokenKey, tokenAddress); err != nil {
		return err
	}

	return EmitAddressSet(ctx, AirdropTokenSetEvent, tokenAddress)
}

// SetAirdropDistributor wires the Airdrop Distributor chaincode address. Set
// once, before the sale starts; when absent, claims are delivered through
// the Token Ledger directly.
func (s *SmartContract) SetAirdropDistributor(ctx kalpsdk.TransactionContextInterface, distributorAddress string) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	if err := s.requireNotStarted(ctx, "SetAirdropDistributor"); err != nil {
		return err
	}

	if err := setContractAddress(ctx, DistributorKey, distributorAddress); err != nil {
		return err
	}

	return EmitAddressSet(ctx, DistributorSetEvent, distributorAddress)
}

// AddAuthorizedRecorder allows an upstream sale contract identity to record
// contributions on behalf of participants.
func (s *SmartContract) AddAuthorizedRecorder(ctx kalpsdk.TransactionContextInterface, address string) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	if !IsUserAddressValid(address) {
		return InvalidUserAddressError(address)
	}

	if err := setFlag(ctx, fmt.Sprintf("%s%s", recorderKeyPrefix, address), true); err != nil {
		return err
	}

	return EmitRecorderUpdated(ctx, address, true)
}

func (s *SmartContract) RemoveAuthorizedRecorder(ctx kalpsdk.TransactionContextInterface, address string) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	if err := setFlag(ctx, fmt.Sprintf("%s%s", recorderKeyPrefix, address), false); err != nil {
		return err
	}

	return EmitRecorderUpdated(ctx, address, false)
}

// AddToWhitelist marks accounts as eligible during the whitelist window at
// the head of the sale.
func (s *SmartContract) AddToWhitelist(ctx kalpsdk.TransactionContextInterface, accounts []string) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	config, err := GetSaleConfig(ctx)
	if err != nil {
		return err
	}
	timestamp, err := TxTimestamp(ctx)
	if err != nil {
		return err
	}
	if phase := PhaseAt(config, timestamp); phase != NotStarted && phase != SaleOpen {
		return PhaseError("AddToWhitelist", phase)
	}

	for _, account := range accounts {
		if !IsUserAddressValid(account) {
			return InvalidUserAddressError(account)
		}
		if err := setFlag(ctx, fmt.Sprintf("%s%s", whitelistKeyPrefix, account), true); err != nil {
			return err
		}
		if err := EmitWhitelistUpdated(ctx, account, true); err != nil {
			return err
		}
	}

	return nil
}

func (s *SmartContract) RemoveFromWhitelist(ctx kalpsdk.TransactionContextInterface, account string) error {
	if _, err := requireOwner(ctx); err != nil {
		return err
	}

	if err := setFlag(ctx, fmt.Sprintf("%s%s", whitelistKeyPrefix, account), false); err != nil {
		return err
	}

	return EmitWhitelistUpdated(ctx, account, false)
}

// WithdrawRemainder sweeps the undistributed entitlement to the admin once
// the claim window has closed.
func (s *SmartContract) WithdrawRemainder(ctx kalpsdk.TransactionContextInterface) error {
	signer, err := requireOwner(ctx)
	if err != nil {
		return err
	}

	config, err := GetSaleConfig(ctx)
	if err != nil {
		return err
	}
	timestamp, err := TxTimestamp(ctx)
	if err != nil {
		return err
	}
	if phase := PhaseAt(config, timestamp); phase != ClaimClosed {
		return PhaseError("WithdrawRemainder", phase)
	}

	withdrawn, err := getFlag(ctx, RemainderWithdrawnKey)
	if err != nil {
		return err
	}
	if withdrawn {
		return ErrAlreadyClaimed
	}

	totalContributed, err := getStateAmount(ctx, TotalContributedKey)
	if err != nil {
		return err
	}
	totalClaimed, err := getStateAmount(ctx, TotalClaimedKey)
	if err != nil {
		return err
	}

	maxDistributable, err := ComputeEntitlement(totalContributed, config.RateNumerator, config.RateDenominator)
	if err != nil {
		return err
	}

	remainder := new(big.Int).Sub(maxDistributable, totalClaimed)
	if remainder.Sign() <= 0 {
		return ErrNothingToClaim
	}

	if err := setFlag(ctx, RemainderWithdrawnKey, true); err != nil {
		return err
	}

	tokenAddress, err := GetAirdropTokenAddress(ctx)
	if err != nil {
		return err
	}
	if tokenAddress == "" {
		return NewCustomError(http.StatusInternalServerError, "no token address configured for withdrawal", nil)
	}
	if err := invokeTransfer(ctx, tokenAddress, signer, remainder); err != nil {
		return err
	}

	return EmitRemainderWithdrawn(ctx, signer, remainder.String())
}

// GetAccountRecord returns the ledger entry for account, or an empty record
// if it never contributed.
func (s *SmartContract) GetAccountRecord(ctx kalpsdk.TransactionContextInterface, account string) (*AccountRecord, error) {
	record, err := GetAccountRecord(ctx, account)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &AccountRecord{
			ContributedAmount: "0",
			Claimed:           false,
			ClaimedAmount:     "0",
		}, nil
	}

	return record, nil
}

func (s *SmartContract) GetTotals(ctx kalpsdk.TransactionContextInterface) (*Totals, error) {
	return GetTotals(ctx)
}

func (s *SmartContract) GetSaleConfig(ctx kalpsdk.TransactionContextInterface) (*SaleConfig, error) {
	return GetSaleConfig(ctx)
}

// GetPhase derives the current lifecycle phase from the transaction
// timestamp.
func (s *SmartContract) GetPhase(ctx kalpsdk.TransactionContextInterface) (string, error) {
	config, err := GetSaleConfig(ctx)
	if err != nil {
		return "", err
	}

	timestamp, err := TxTimestamp(ctx)
	if err != nil {
		return "", err
	}

	return PhaseAt(config, timestamp).String(), nil
}

// GetClaimableAmount previews the entitlement account would receive from a
// claim, without mutating anything. Returns "0" for claimed or unknown
// accounts.
func (s *SmartContract) GetClaimableAmount(ctx kalpsdk.TransactionContextInterface, account string) (string, error) {
	config, err := GetSaleConfig(ctx)
	if err != nil {
		return "0", err
	}

	record, err := GetAccountRecord(ctx, account)
	if err != nil {
		return "0", err
	}
	if record == nil || record.Claimed {
		return "0", nil
	}

	contributed, ok := new(big.Int).SetString(record.ContributedAmount, 10)
	if !ok {
		return "0", InvalidAmountError("account record", record.ContributedAmount)
	}

	entitlement, err := ComputeEntitlement(contributed, config.RateNumerator, config.RateDenominator)
	if err != nil {
		return "0", err
	}

	return entitlement.String(), nil
}

func (s *SmartContract) requireNotStarted(ctx kalpsdk.TransactionContextInterface, op string) error {
	config, err := GetSaleConfig(ctx)
	if err != nil {
		return err
	}

	timestamp, err := TxTimestamp(ctx)
	if err != nil {
		return err
	}

	if phase := PhaseAt(config, timestamp); phase != NotStarted {
		return PhaseError(op, phase)
	}

	return nil
}
