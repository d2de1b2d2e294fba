package sale

import (
	"math/big"
	"net/http"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// External-call adapters. These are the only points where control leaves
// this contract; every caller writes its own state before invoking one of
// them, and a failure reverts the whole transaction.

func invokeTransferFrom(ctx kalpsdk.TransactionContextInterface, tokenAddress, payer string, amount *big.Int) error {
	output := ctx.InvokeChaincode(tokenAddress, [][]byte{
		[]byte(tokenTransferFromFn),
		[]byte(payer),
		[]byte(amount.String()),
	}, "")
	if output.Status != http.StatusOK {
		return TransferFailedError(tokenTransferFromFn, output.Status, output.Message)
	}

	return nil
}

func invokeTransfer(ctx kalpsdk.TransactionContextInterface, tokenAddress, recipient string, amount *big.Int) error {
	output := ctx.InvokeChaincode(tokenAddress, [][]byte{
		[]byte(tokenTransferFn),
		[]byte(recipient),
		[]byte(amount.String()),
	}, "")
	if output.Status != http.StatusOK {
		return TransferFailedError(tokenTransferFn, output.Status, output.Message)
	}

	return nil
}

func invokeQueueOrSend(ctx kalpsdk.TransactionContextInterface, distributorAddress, recipient string, amount *big.Int) error {
	output := ctx.InvokeChaincode(distributorAddress, [][]byte{
		[]byte(distributorQueueFn),
		[]byte(recipient),
		[]byte(amount.String()),
	}, "")
	if output.Status != http.StatusOK {
		return TransferFailedError(distributorQueueFn, output.Status, output.Message)
	}

	return nil
}

// deliverEntitlement routes a settled claim to the Airdrop Distributor when
// one is configured, otherwise straight through the Token Ledger.
func deliverEntitlement(ctx kalpsdk.TransactionContextInterface, account string, amount *big.Int) error {
	distributorAddress, err := GetDistributorAddress(ctx)
	if err != nil {
		return err
	}
	if distributorAddress != "" {
		return invokeQueueOrSend(ctx, distributorAddress, account, amount)
	}

	tokenAddress, err := GetAirdropTokenAddress(ctx)
	if err != nil {
		return err
	}
	if tokenAddress == "" {
		return NewCustomError(http.StatusInternalServerError, "no token or distributor address configured for delivery", nil)
	}

	return invokeTransfer(ctx, tokenAddress, account, amount)
}

// accrueContribution applies a validated contribution to the account record
// and the running total. Records are created lazily on first contribution.
func accrueContribution(ctx kalpsdk.TransactionContextInterface, account string, amount *big.Int) (*AccountRecord, error) {
	record, err := GetAccountRecord(ctx, account)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &AccountRecord{
			ContributedAmount: "0",
			Claimed:           false,
			ClaimedAmount:     "0",
		}
	}

	contributed, ok := new(big.Int).SetString(record.ContributedAmount, 10)
	if !ok {
		return nil, InvalidAmountError("account record", record.ContributedAmount)
	}

	contributed.Add(contributed, amount)
	if contributed.Cmp(maxAmount) > 0 {
		return nil, ErrArithmeticOverflow
	}
	record.ContributedAmount = contributed.String()

	totalContributed, err := getStateAmount(ctx, TotalContributedKey)
	if err != nil {
		return nil, err
	}
	totalContributed.Add(totalContributed, amount)
	if totalContributed.Cmp(maxAmount) > 0 {
		return nil, ErrArithmeticOverflow
	}

	if err := SetAccountRecord(ctx, account, record); err != nil {
		return nil, err
	}
	if err := setStateAmount(ctx, TotalContributedKey, totalContributed); err != nil {
		return nil, err
	}

	return record, nil
}
