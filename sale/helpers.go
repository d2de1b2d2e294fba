package sale

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

// maxAmount bounds every amount handled by the ledger to 128 bits, matching
// the balance width of the token contracts this ledger settles against.
var maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

func GetUserId(ctx kalpsdk.TransactionContextInterface) (string, error) {
	b64ID, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to read clientID: %v", err)
	}

	decodeID, err := base64.StdEncoding.DecodeString(b64ID)
	if err != nil {
		return "", fmt.Errorf("failed to base64 decode clientID: %v", err)
	}

	completeId := string(decodeID)
	userId := completeId[(strings.Index(completeId, "x509::CN=") + 9):strings.Index(completeId, ",")]

	if !IsUserAddressValid(userId) {
		return "", InvalidUserAddressError(userId)
	}

	return userId, nil
}

func IsContractAddressValid(address string) bool {
	if address == "" {
		return false
	}

	isValid, _ := regexp.MatchString(contractAddressRegex, address)
	return isValid
}

func IsUserAddressValid(address string) bool {
	if address == "" {
		return false
	}

	isValid, _ := regexp.MatchString(hexAddressRegex, address)
	return isValid
}

// TxTimestamp returns the chain timestamp of the current transaction in
// seconds. Phase derivation always starts here.
func TxTimestamp(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	ts, err := ctx.GetTxTimestamp()
	if err != nil {
		return 0, NewCustomError(http.StatusInternalServerError, "failed to get transaction timestamp", err)
	}

	return uint64(ts.Seconds), nil
}

// ComputeEntitlement converts a contributed amount into an airdrop
// entitlement by the rational rate num/den, rounding down. The
// multiplication fails closed once the product leaves the 128-bit amount
// range, since contributions are caller-influenced inputs.
func ComputeEntitlement(contributed *big.Int, num, den uint64) (*big.Int, error) {
	if den == 0 {
		return nil, ErrCannotBeZero
	}

	product := new(big.Int).Mul(contributed, new(big.Int).SetUint64(num))
	if product.Cmp(maxAmount) > 0 {
		return nil, ErrArithmeticOverflow
	}

	return product.Div(product, new(big.Int).SetUint64(den)), nil
}

// parseAmount parses a positive decimal amount within the 128-bit range.
func parseAmount(entity, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, InvalidAmountError(entity, value)
	}

	if amount.Sign() < 0 {
		return nil, InvalidAmountError(entity, value)
	}
	if amount.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	if amount.Cmp(maxAmount) > 0 {
		return nil, ErrArithmeticOverflow
	}

	return amount, nil
}

func requireOwner(ctx kalpsdk.TransactionContextInterface) (string, error) {
	signer, err := GetUserId(ctx)
	if err != nil {
		return "", NewCustomError(http.StatusBadRequest, "failed to get client id", err)
	}

	admin, err := GetAdmin(ctx)
	if err != nil {
		return "", err
	}

	if signer != admin {
		return "", ErrUnauthorized
	}

	return signer, nil
}

func requireNotPaused(ctx kalpsdk.TransactionContextInterface) error {
	paused, err := IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}

	return nil
}

// validateTimestamps enforces saleStart < saleEnd <= claimStart < claimEnd,
// with claimEnd == 0 standing for an unbounded claim window.
func validateTimestamps(saleStart, saleEnd, claimStart, claimEnd uint64) error {
	if saleStart == 0 {
		return ErrCannotBeZero
	}
	if saleStart >= saleEnd || saleEnd > claimStart {
		return InvalidTimestampsError(saleStart, saleEnd, claimStart, claimEnd)
	}
	if claimEnd != 0 && claimStart >= claimEnd {
		return InvalidTimestampsError(saleStart, saleEnd, claimStart, claimEnd)
	}

	return nil
}
