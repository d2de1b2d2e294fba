package sale

import (
	"errors"
	"fmt"
)

var (
	ErrZeroAmount         = errors.New("ZeroAmount")
	ErrPaused             = errors.New("Paused")
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrAlreadyClaimed     = errors.New("AlreadyClaimed")
	ErrNothingToClaim     = errors.New("NothingToClaim")
	ErrArithmeticOverflow = errors.New("ArithmeticOverflow")
	ErrNotInitialized     = errors.New("NotInitialized")
	ErrAlreadyInitialized = errors.New("AlreadyInitialized")
	ErrNotWhitelisted     = errors.New("NotWhitelisted")
	ErrAddressAlreadySet  = errors.New("AddressAlreadySet")
	ErrCannotBeZero       = errors.New("CannotBeZero")
)

type CustomError struct {
	Code    int
	Message string
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewCustomError(code int, message string, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func PhaseError(op string, phase Phase) error {
	return fmt.Errorf("PhaseError: %s is not allowed in phase %s", op, phase)
}

func TransferFailedError(fn string, status int32, message string) error {
	return fmt.Errorf("TransferFailed: %s returned status %d: %s", fn, status, message)
}

func InvalidAmountError(entity, value string) error {
	return fmt.Errorf("InvalidAmount for %s with value %s", entity, value)
}

func InvalidUserAddressError(address string) error {
	return fmt.Errorf("InvalidUserAddress: %s", address)
}

func InvalidContractAddressError(address string) error {
	return fmt.Errorf("InvalidContractAddress: %s", address)
}

func InvalidTimestampsError(saleStart, saleEnd, claimStart, claimEnd uint64) error {
	return fmt.Errorf("InvalidTimestamps: saleStart=%d saleEnd=%d claimStart=%d claimEnd=%d",
		saleStart, saleEnd, claimStart, claimEnd)
}
