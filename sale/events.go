package sale

import (
	"encoding/json"
	"fmt"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
)

type InitializedEventPayload struct {
	Admin             string `json:"admin"`
	SaleStart         uint64 `json:"saleStart"`
	SaleEnd           uint64 `json:"saleEnd"`
	ClaimStart        uint64 `json:"claimStart"`
	ClaimEnd          uint64 `json:"claimEnd"`
	RateNumerator     uint64 `json:"rateNumerator"`
	RateDenominator   uint64 `json:"rateDenominator"`
	WhitelistDuration uint64 `json:"whitelistDuration"`
	PullCollateral    bool   `json:"pullCollateral"`
}

type ContributionRecordedEventPayload struct {
	Account          string `json:"account"`
	Amount           string `json:"amount"`
	ContributedTotal string `json:"contributedTotal"`
	Recorder         string `json:"recorder"`
}

type ClaimEventPayload struct {
	Account   string `json:"account"`
	Amount    string `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
}

type ConversionRateUpdatedEventPayload struct {
	RateNumerator   uint64 `json:"rateNumerator"`
	RateDenominator uint64 `json:"rateDenominator"`
}

type PhaseTimestampsUpdatedEventPayload struct {
	SaleStart  uint64 `json:"saleStart"`
	SaleEnd    uint64 `json:"saleEnd"`
	ClaimStart uint64 `json:"claimStart"`
	ClaimEnd   uint64 `json:"claimEnd"`
}

type AddressSetEventPayload struct {
	Address string `json:"address"`
}

type WhitelistUpdatedEventPayload struct {
	Account     string `json:"account"`
	Whitelisted bool   `json:"whitelisted"`
}

type RecorderUpdatedEventPayload struct {
	Address    string `json:"address"`
	Authorized bool   `json:"authorized"`
}

type RemainderWithdrawnEventPayload struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

func emitEvent(ctx kalpsdk.TransactionContextInterface, name string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to obtain JSON encoding: %v", err)
	}

	err = ctx.SetEvent(name, payloadJSON)
	if err != nil {
		return fmt.Errorf("failed to set event: %v", err)
	}

	return nil
}

func EmitInitialized(ctx kalpsdk.TransactionContextInterface, admin string, config *SaleConfig) error {
	return emitEvent(ctx, InitializedEvent, InitializedEventPayload{
		Admin:             admin,
		SaleStart:         config.SaleStart,
		SaleEnd:           config.SaleEnd,
		ClaimStart:        config.ClaimStart,
		ClaimEnd:          config.ClaimEnd,
		RateNumerator:     config.RateNumerator,
		RateDenominator:   config.RateDenominator,
		WhitelistDuration: config.WhitelistDuration,
		PullCollateral:    config.PullCollateral,
	})
}

func EmitContributionRecorded(ctx kalpsdk.TransactionContextInterface, account, amount, contributedTotal, recorder string) error {
	return emitEvent(ctx, ContributionRecordedEvent, ContributionRecordedEventPayload{
		Account:          account,
		Amount:           amount,
		ContributedTotal: contributedTotal,
		Recorder:         recorder,
	})
}

func EmitClaim(ctx kalpsdk.TransactionContextInterface, account, amount string, timestamp uint64) error {
	return emitEvent(ctx, ClaimEvent, ClaimEventPayload{
		Account:   account,
		Amount:    amount,
		Timestamp: timestamp,
	})
}

func EmitConversionRateUpdated(ctx kalpsdk.TransactionContextInterface, num, den uint64) error {
	return emitEvent(ctx, ConversionRateUpdatedEvent, ConversionRateUpdatedEventPayload{
		RateNumerator:   num,
		RateDenominator: den,
	})
}

func EmitPhaseTimestampsUpdated(ctx kalpsdk.TransactionContextInterface, saleStart, saleEnd, claimStart, claimEnd uint64) error {
	return emitEvent(ctx, PhaseTimestampsUpdatedEvent, PhaseTimestampsUpdatedEventPayload{
		SaleStart:  saleStart,
		SaleEnd:    saleEnd,
		ClaimStart: claimStart,
		ClaimEnd:   claimEnd,
	})
}

func EmitPaused(ctx kalpsdk.TransactionContextInterface, paused bool) error {
	name := PausedEvent
	if !paused {
		name = UnpausedEvent
	}
	return emitEvent(ctx, name, struct{}{})
}

func EmitAddressSet(ctx kalpsdk.TransactionContextInterface, name, address string) error {
	return emitEvent(ctx, name, AddressSetEventPayload{Address: address})
}

func EmitWhitelistUpdated(ctx kalpsdk.TransactionContextInterface, account string, whitelisted bool) error {
	return emitEvent(ctx, WhitelistUpdatedEvent, WhitelistUpdatedEventPayload{
		Account:     account,
		Whitelisted: whitelisted,
	})
}

func EmitRecorderUpdated(ctx kalpsdk.TransactionContextInterface, address string, authorized bool) error {
	return emitEvent(ctx, RecorderUpdatedEvent, RecorderUpdatedEventPayload{
		Address:    address,
		Authorized: authorized,
	})
}

func EmitRemainderWithdrawn(ctx kalpsdk.TransactionContextInterface, recipient, amount string) error {
	return emitEvent(ctx, RemainderWithdrawnEvent, RemainderWithdrawnEventPayload{
		Recipient: recipient,
		Amount:    amount,
	})
}
