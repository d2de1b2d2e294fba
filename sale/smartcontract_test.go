package sale_test

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/buythedibs/az-token-sale-to-airdrop/sale"
	"github.com/buythedibs/az-token-sale-to-airdrop/sale/mocks"
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"
	"github.com/p2eengineering/kalp-sdk-public/response"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	Admin    = "0b87970433b22494faff1cc7a819e71bddc7880c"
	UserX    = "a44ab3e25f1f6e785c9f90b52f0e0a37de1d0c91"
	UserY    = "b55bc4f36a2a7f896dafa1c63f1f1b48ef2e1da2"
	Recorder = "c66cd5a47b3b8a9a7eba2d74a2a2c59fa3f2eb13"

	TokenAddress       = "klp-6b616c70746f6b656e-cc"
	DistributorAddress = "klp-646973747269627574-cc"
)

//go:generate counterfeiter -o mocks/transactioncontext.go -fake-name TransactionContext . transactionContext
type transactionContext interface {
	kalpsdk.TransactionContextInterface
}

//go:generate counterfeiter -o mocks/clientidentity.go -fake-name ClientIdentity . clientIdentity
type clientIdentity interface {
	cid.ClientIdentity
}

//go:generate counterfeiter -o mocks/statequeryiterator.go -fake-name StateQueryIterator . stateQueryIterator
type stateQueryIterator interface {
	kalpsdk.StateQueryIteratorInterface
}

func SetUserID(transactionContext *mocks.TransactionContext, userID string) {
	completeId := fmt.Sprintf("x509::CN=%s,O=Organization,L=City,ST=State,C=Country", userID)
	b64ID := base64.StdEncoding.EncodeToString([]byte(completeId))

	clientIdentity := &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns(b64ID, nil)
	transactionContext.GetClientIdentityReturns(clientIdentity)
}

func SetTxTime(transactionContext *mocks.TransactionContext, seconds int64) {
	transactionContext.GetTxTimestampReturns(timestamppb.New(time.Unix(seconds, 0)), nil)
}

func setupTestContext() (*mocks.TransactionContext, map[string][]byte) {
	transactionContext := &mocks.TransactionContext{}
	worldState := map[string][]byte{}

	transactionContext.PutStateWithoutKYCStub = func(key string, value []byte) error {
		worldState[key] = value
		return nil
	}
	transactionContext.GetStateStub = func(key string) ([]byte, error) {
		return worldState[key], nil
	}
	transactionContext.DelStateWithoutKYCStub = func(key string) error {
		delete(worldState, key)
		return nil
	}

	return transactionContext, worldState
}

// initializeSale sets up the default fixture: sale window [100, 200), claim
// window [200, 300], rate 2:1, no whitelist window, no collateral pull.
func initializeSale(t *testing.T, transactionContext *mocks.TransactionContext) *sale.SmartContract {
	t.Helper()

	saleContract := &sale.SmartContract{}
	SetUserID(transactionContext, Admin)
	SetTxTime(transactionContext, 50)

	err := saleContract.Initialize(transactionContext, 100, 200, 200, 300, 2, 1, 0, false)
	require.NoError(t, err)

	err = saleContract.SetAirdropToken(transactionContext, TokenAddress)
	require.NoError(t, err)

	return saleContract
}

func eventPayload(t *testing.T, transactionContext *mocks.TransactionContext, name string) []byte {
	t.Helper()

	for i := 0; i < transactionContext.SetEventCallCount(); i++ {
		eventName, payload := transactionContext.SetEventArgsForCall(i)
		if eventName == name {
			return payload
		}
	}

	t.Fatalf("event %s was not emitted", name)
	return nil
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	transactionContext, worldState := setupTestContext()
	saleContract := &sale.SmartContract{}
	SetUserID(transactionContext, Admin)
	SetTxTime(transactionContext, 50)

	err := saleContract.Initialize(transactionContext, 100, 200, 200, 300, 2, 1, 0, false)
	require.NoError(t, err)

	require.Equal(t, []byte(Admin), worldState[sale.AdminKey])
	require.Equal(t, []byte("0"), worldState[sale.TotalContributedKey])
	require.Equal(t, []byte("0"), worldState[sale.TotalClaimedKey])

	var config sale.SaleConfig
	require.NoError(t, json.Unmarshal(worldState[sale.SaleConfigKey], &config))
	require.Equal(t, uint64(100), config.SaleStart)
	require.Equal(t, uint64(300), config.ClaimEnd)
	require.Equal(t, uint64(2), config.RateNumerator)

	eventPayload(t, transactionContext, sale.InitializedEvent)

	// Second initialization is rejected.
	err = saleContract.Initialize(transactionContext, 100, 200, 200, 300, 2, 1, 0, false)
	require.ErrorIs(t, err, sale.ErrAlreadyInitialized)
}

func TestInitializeValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		saleStart   uint64
		saleEnd     uint64
		claimStart  uint64
		claimEnd    uint64
		rateNum     uint64
		rateDen     uint64
		whitelist   uint64
		expectedErr string
	}{
		{"zero sale start", 0, 200, 200, 300, 2, 1, 0, "CannotBeZero"},
		{"sale start after end", 200, 100, 200, 300, 2, 1, 0, "InvalidTimestamps"},
		{"sale start equals end", 100, 100, 200, 300, 2, 1, 0, "InvalidTimestamps"},
		{"claim start before sale end", 100, 200, 150, 300, 2, 1, 0, "InvalidTimestamps"},
		{"claim end before claim start", 100, 200, 200, 150, 2, 1, 0, "InvalidTimestamps"},
		{"zero rate denominator", 100, 200, 200, 300, 2, 0, 0, "CannotBeZero"},
		{"whitelist longer than sale", 100, 200, 200, 300, 2, 1, 150, "whitelist duration exceeds sale window"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transactionContext, _ := setupTestContext()
			saleContract := &sale.SmartContract{}
			SetUserID(transactionContext, Admin)
			SetTxTime(transactionContext, 50)

			err := saleContract.Initialize(transactionContext,
				tt.saleStart, tt.saleEnd, tt.claimStart, tt.claimEnd,
				tt.rateNum, tt.rateDen, tt.whitelist, false)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestInitializeUnboundedClaimWindow(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := &sale.SmartContract{}
	SetUserID(transactionContext, Admin)
	SetTxTime(transactionContext, 50)

	err := saleContract.Initialize(transactionContext, 100, 200, 200, 0, 1, 1, 0, false)
	require.NoError(t, err)

	SetTxTime(transactionContext, 1<<40)
	phase, err := saleContract.GetPhase(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "ClaimOpen", phase)
}

func TestRecordContribution(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)

	err := saleContract.RecordContribution(transactionContext, UserX, "50")
	require.NoError(t, err)

	record, err := saleContract.GetAccountRecord(transactionContext, UserX)
	require.NoError(t, err)
	require.Equal(t, "50", record.ContributedAmount)
	require.False(t, record.Claimed)
	require.Equal(t, "0", record.ClaimedAmount)

	// Contributions accrue.
	err = saleContract.RecordContribution(transactionContext, UserX, "25")
	require.NoError(t, err)

	record, err = saleContract.GetAccountRecord(transactionContext, UserX)
	require.NoError(t, err)
	require.Equal(t, "75", record.ContributedAmount)

	totals, err := saleContract.GetTotals(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "75", totals.TotalContributed)
	require.Equal(t, "0", totals.TotalClaimed)

	var payload sale.ContributionRecordedEventPayload
	require.NoError(t, json.Unmarshal(eventPayload(t, transactionContext, sale.ContributionRecordedEvent), &payload))
	require.Equal(t, UserX, payload.Account)
	require.Equal(t, "50", payload.Amount)
}

func TestRecordContributionPhaseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		timestamp int64
	}{
		{"before sale start", 50},
		{"at sale end", 200},
		{"after sale end", 210},
		{"after claim end", 350},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transactionContext, _ := setupTestContext()
			saleContract := initializeSale(t, transactionContext)

			SetUserID(transactionContext, UserX)
			SetTxTime(transactionContext, tt.timestamp)

			err := saleContract.RecordContribution(transactionContext, UserX, "50")
			require.Error(t, err)
			require.Contains(t, err.Error(), "PhaseError")

			totals, err := saleContract.GetTotals(transactionContext)
			require.NoError(t, err)
			require.Equal(t, "0", totals.TotalContributed)
		})
	}
}

func TestRecordContributionValidation(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)

	err := saleContract.RecordContribution(transactionContext, UserX, "0")
	require.ErrorIs(t, err, sale.ErrZeroAmount)

	err = saleContract.RecordContribution(transactionContext, UserX, "-5")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidAmount")

	err = saleContract.RecordContribution(transactionContext, UserX, "fifty")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidAmount")

	err = saleContract.RecordContribution(transactionContext, "not-an-address", "50")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidUserAddress")
}

func TestRecordContributionAuthorization(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	// A stranger cannot record for someone else.
	SetUserID(transactionContext, UserY)
	SetTxTime(transactionContext, 150)
	err := saleContract.RecordContribution(transactionContext, UserX, "50")
	require.ErrorIs(t, err, sale.ErrUnauthorized)

	// The admin can.
	SetUserID(transactionContext, Admin)
	err = saleContract.RecordContribution(transactionContext, UserX, "50")
	require.NoError(t, err)

	// An authorized recorder (the upstream sale contract identity) can.
	err = saleContract.AddAuthorizedRecorder(transactionContext, Recorder)
	require.NoError(t, err)

	SetUserID(transactionContext, Recorder)
	err = saleContract.RecordContribution(transactionContext, UserX, "10")
	require.NoError(t, err)

	// Authorization is revocable.
	SetUserID(transactionContext, Admin)
	err = saleContract.RemoveAuthorizedRecorder(transactionContext, Recorder)
	require.NoError(t, err)

	SetUserID(transactionContext, Recorder)
	err = saleContract.RecordContribution(transactionContext, UserX, "10")
	require.ErrorIs(t, err, sale.ErrUnauthorized)
}

func TestRecordContributionPaused(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	require.NoError(t, saleContract.Pause(transactionContext))

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	err := saleContract.RecordContribution(transactionContext, UserX, "50")
	require.ErrorIs(t, err, sale.ErrPaused)

	SetUserID(transactionContext, Admin)
	require.NoError(t, saleContract.Unpause(transactionContext))

	SetUserID(transactionContext, UserX)
	err = saleContract.RecordContribution(transactionContext, UserX, "50")
	require.NoError(t, err)
}

func TestRecordContributionWhitelistWindow(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := &sale.SmartContract{}
	SetUserID(transactionContext, Admin)
	SetTxTime(transactionContext, 50)

	// Whitelist window covers [100, 130).
	err := saleContract.Initialize(transactionContext, 100, 200, 200, 300, 2, 1, 30, false)
	require.NoError(t, err)

	require.NoError(t, saleContract.AddToWhitelist(transactionContext, []string{UserY}))

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 110)
	err = saleContract.RecordContribution(transactionContext, UserX, "50")
	require.ErrorIs(t, err, sale.ErrNotWhitelisted)

	SetUserID(transactionContext, UserY)
	err = saleContract.RecordContribution(transactionContext, UserY, "50")
	require.NoError(t, err)

	// After the window everyone may contribute.
	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 130)
	err = saleContract.RecordContribution(transactionContext, UserX, "50")
	require.NoError(t, err)

	// Removal takes effect within the window.
	SetUserID(transactionContext, Admin)
	require.NoError(t, saleContract.RemoveFromWhitelist(transactionContext, UserY))

	SetUserID(transactionContext, UserY)
	SetTxTime(transactionContext, 120)
	err = saleContract.RecordContribution(transactionContext, UserY, "50")
	require.ErrorIs(t, err, sale.ErrNotWhitelisted)
}

func TestRecordContributionPullsCollateral(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := &sale.SmartContract{}
	SetUserID(transactionContext, Admin)
	SetTxTime(transactionContext, 50)

	err := saleContract.Initialize(transactionContext, 100, 200, 200, 300, 2, 1, 0, true)
	require.NoError(t, err)
	require.NoError(t, saleContract.SetAirdropToken(transactionContext, TokenAddress))

	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{Status: http.StatusOK}})

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	err = saleContract.RecordContribution(transactionContext, UserX, "50")
	require.NoError(t, err)

	require.Equal(t, 1, transactionContext.InvokeChaincodeCallCount())
	chaincodeName, args, _ := transactionContext.InvokeChaincodeArgsForCall(0)
	require.Equal(t, TokenAddress, chaincodeName)
	require.Equal(t, "TransferFrom", string(args[0]))
	require.Equal(t, UserX, string(args[1]))
	require.Equal(t, "50", string(args[2]))

	// A failed pull surfaces as TransferFailed and reverts the call.
	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{
		Status:  http.StatusInternalServerError,
		Message: "insufficient balance",
	}})
	err = saleContract.RecordContribution(transactionContext, UserX, "50")
	require.Error(t, err)
	require.Contains(t, err.Error(), "TransferFailed")
	require.Contains(t, err.Error(), "insufficient balance")
}

// The end-to-end scenario: sale window [100, 200), claim window [200, 300],
// rate 1:2. X contributes 50 at t=150, claims 100 at t=250, and a second
// claim at t=260 fails AlreadyClaimed.
func TestClaim(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	require.NoError(t, saleContract.RecordContribution(transactionContext, UserX, "50"))

	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{Status: http.StatusOK}})

	SetTxTime(transactionContext, 250)
	err := saleContract.Claim(transactionContext, UserX)
	require.NoError(t, err)

	record, err := saleContract.GetAccountRecord(transactionContext, UserX)
	require.NoError(t, err)
	require.True(t, record.Claimed)
	require.Equal(t, "100", record.ClaimedAmount)
	require.Equal(t, "50", record.ContributedAmount)

	totals, err := saleContract.GetTotals(transactionContext)
	require.NoError(t, err)
	require.Equal(t, "50", totals.TotalContributed)
	require.Equal(t, "100", totals.TotalClaimed)

	require.Equal(t, 1, transactionContext.InvokeChaincodeCallCount())
	chaincodeName, args, _ := transactionContext.InvokeChaincodeArgsForCall(0)
	require.Equal(t, TokenAddress, chaincodeName)
	require.Equal(t, "Transfer", string(args[0]))
	require.Equal(t, UserX, string(args[1]))
	require.Equal(t, "100", string(args[2]))

	var payload sale.ClaimEventPayload
	require.NoError(t, json.Unmarshal(eventPayload(t, transactionContext, sale.ClaimEvent), &payload))
	require.Equal(t, UserX, payload.Account)
	require.Equal(t, "100", payload.Amount)
	require.Equal(t, uint64(250), payload.Timestamp)

	SetTxTime(transactionContext, 260)
	err = saleContract.Claim(transactionContext, UserX)
	require.ErrorIs(t, err, sale.ErrAlreadyClaimed)
}

func TestClaimThroughDistributor(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)
	require.NoError(t, saleContract.SetAirdropDistributor(transactionContext, DistributorAddress))

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	require.NoError(t, saleContract.RecordContribution(transactionContext, UserX, "40"))

	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{Status: http.StatusOK}})

	SetTxTime(transactionContext, 250)
	require.NoError(t, saleContract.Claim(transactionContext, UserX))

	chaincodeName, args, _ := transactionContext.InvokeChaincodeArgsForCall(0)
	require.Equal(t, DistributorAddress, chaincodeName)
	require.Equal(t, "QueueOrSend", string(args[0]))
	require.Equal(t, UserX, string(args[1]))
	require.Equal(t, "80", string(args[2]))
}

func TestClaimPhaseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		timestamp int64
	}{
		{"before sale start", 50},
		{"mid sale", 150},
		{"after claim end", 310},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transactionContext, _ := setupTestContext()
			saleContract := initializeSale(t, transactionContext)

			SetUserID(transactionContext, UserX)
			SetTxTime(transactionContext, tt.timestamp)

			err := saleContract.Claim(transactionContext, UserX)
			require.Error(t, err)
			require.Contains(t, err.Error(), "PhaseError")
		})
	}
}

func TestClaimErrors(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	// Nothing to claim without a contribution record.
	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 250)
	err := saleContract.Claim(transactionContext, UserX)
	require.ErrorIs(t, err, sale.ErrNothingToClaim)

	// A third party cannot trigger someone else's claim.
	SetUserID(transactionContext, UserY)
	err = saleContract.Claim(transactionContext, UserX)
	require.ErrorIs(t, err, sale.ErrUnauthorized)

	// Paused gate applies to claims.
	SetUserID(transactionContext, Admin)
	require.NoError(t, saleContract.Pause(transactionContext))
	SetUserID(transactionContext, UserX)
	err = saleContract.Claim(transactionContext, UserX)
	require.ErrorIs(t, err, sale.ErrPaused)
}

func TestClaimDeliveryFailure(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	require.NoError(t, saleContract.RecordContribution(transactionContext, UserX, "50"))

	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{
		Status:  http.StatusInternalServerError,
		Message: "token ledger unavailable",
	}})

	SetTxTime(transactionContext, 250)
	err := saleContract.Claim(transactionContext, UserX)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TransferFailed")
}

func TestClaimByAdminForAccount(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	require.NoError(t, saleContract.RecordContribution(transactionContext, UserX, "50"))

	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{Status: http.StatusOK}})

	SetUserID(transactionContext, Admin)
	SetTxTime(transactionContext, 250)
	require.NoError(t, saleContract.Claim(transactionContext, UserX))

	// Delivery goes to the account, not the caller.
	_, args, _ := transactionContext.InvokeChaincodeArgsForCall(0)
	require.Equal(t, UserX, string(args[1]))
}

func TestSetConversionRate(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	// Before the sale starts the rate may change.
	SetTxTime(transactionContext, 50)
	err := saleContract.SetConversionRate(transactionContext, 3, 1)
	require.NoError(t, err)

	config, err := saleContract.GetSaleConfig(transactionContext)
	require.NoError(t, err)
	require.Equal(t, uint64(3), config.RateNumerator)

	// Mid-sale the economic terms are frozen.
	SetTxTime(transactionContext, 150)
	err = saleContract.SetConversionRate(transactionContext, 4, 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PhaseError")

	// Zero denominator is rejected.
	SetTxTime(transactionContext, 50)
	err = saleContract.SetConversionRate(transactionContext, 1, 0)
	require.ErrorIs(t, err, sale.ErrCannotBeZero)

	// Only the owner may change it.
	SetUserID(transactionContext, UserX)
	err = saleContract.SetConversionRate(transactionContext, 3, 1)
	require.ErrorIs(t, err, sale.ErrUnauthorized)
}

func TestSetPhaseTimestamps(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	SetTxTime(transactionContext, 50)
	err := saleContract.SetPhaseTimestamps(transactionContext, 120, 220, 220, 320)
	require.NoError(t, err)

	config, err := saleContract.GetSaleConfig(transactionContext)
	require.NoError(t, err)
	require.Equal(t, uint64(120), config.SaleStart)
	require.Equal(t, uint64(320), config.ClaimEnd)

	// The new sale start must still be in the future.
	err = saleContract.SetPhaseTimestamps(transactionContext, 40, 220, 220, 320)
	require.Error(t, err)
	require.Contains(t, err.Error(), "future")

	// Once the sale is open the windows are frozen.
	SetTxTime(transactionContext, 150)
	err = saleContract.SetPhaseTimestamps(transactionContext, 400, 500, 500, 600)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PhaseError")

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 50)
	err = saleContract.SetPhaseTimestamps(transactionContext, 120, 220, 220, 320)
	require.ErrorIs(t, err, sale.ErrUnauthorized)
}

func TestPauseRequiresOwner(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	SetUserID(transactionContext, UserX)
	require.ErrorIs(t, saleContract.Pause(transactionContext), sale.ErrUnauthorized)
	require.ErrorIs(t, saleContract.Unpause(transactionContext), sale.ErrUnauthorized)
}

func TestSetAirdropTokenIsSetOnce(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	err := saleContract.SetAirdropToken(transactionContext, TokenAddress)
	require.Error(t, err)
	require.Contains(t, err.Error(), "AddressAlreadySet")

	err = saleContract.SetAirdropDistributor(transactionContext, "not-a-contract")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidContractAddress")

	// Addresses are frozen once the sale has started.
	SetTxTime(transactionContext, 150)
	err = saleContract.SetAirdropDistributor(transactionContext, DistributorAddress)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PhaseError")
}

func TestWithdrawRemainder(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	require.NoError(t, saleContract.RecordContribution(transactionContext, UserX, "50"))

	// Too early: claim window still open.
	SetUserID(transactionContext, Admin)
	SetTxTime(transactionContext, 250)
	err := saleContract.WithdrawRemainder(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PhaseError")

	// Nobody claimed; the whole entitlement is spare.
	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{Status: http.StatusOK}})
	SetTxTime(transactionContext, 350)
	require.NoError(t, saleContract.WithdrawRemainder(transactionContext))

	chaincodeName, args, _ := transactionContext.InvokeChaincodeArgsForCall(0)
	require.Equal(t, TokenAddress, chaincodeName)
	require.Equal(t, "Transfer", string(args[0]))
	require.Equal(t, Admin, string(args[1]))
	require.Equal(t, "100", string(args[2]))

	// The sweep happens once.
	err = saleContract.WithdrawRemainder(transactionContext)
	require.ErrorIs(t, err, sale.ErrAlreadyClaimed)
}

func TestTotalsMatchAccountSums(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	accounts := []string{UserX, UserY, Recorder}
	amounts := []int64{13, 29, 41}

	SetTxTime(transactionContext, 150)
	expectedTotal := big.NewInt(0)
	for round := 0; round < 3; round++ {
		for i, account := range accounts {
			SetUserID(transactionContext, account)
			amount := big.NewInt(amounts[i] + int64(round))
			require.NoError(t, saleContract.RecordContribution(transactionContext, account, amount.String()))
			expectedTotal.Add(expectedTotal, amount)
		}
	}

	totals, err := saleContract.GetTotals(transactionContext)
	require.NoError(t, err)
	require.Equal(t, expectedTotal.String(), totals.TotalContributed)

	perAccountSum := big.NewInt(0)
	for _, account := range accounts {
		record, err := saleContract.GetAccountRecord(transactionContext, account)
		require.NoError(t, err)
		contributed, ok := new(big.Int).SetString(record.ContributedAmount, 10)
		require.True(t, ok)
		perAccountSum.Add(perAccountSum, contributed)
	}
	require.Equal(t, expectedTotal.String(), perAccountSum.String())

	// Solvency: after every claim, totalClaimed stays within the converted
	// total contribution.
	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{Status: http.StatusOK}})
	SetTxTime(transactionContext, 250)
	maxDistributable, err := sale.ComputeEntitlement(expectedTotal, 2, 1)
	require.NoError(t, err)

	for _, account := range accounts {
		SetUserID(transactionContext, account)
		require.NoError(t, saleContract.Claim(transactionContext, account))

		totals, err := saleContract.GetTotals(transactionContext)
		require.NoError(t, err)
		totalClaimed, ok := new(big.Int).SetString(totals.TotalClaimed, 10)
		require.True(t, ok)
		require.True(t, totalClaimed.Cmp(maxDistributable) <= 0)
	}
}

func TestClaimOverflowFailsClosed(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	maxAmount := "340282366920938463463374607431768211455"

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	require.NoError(t, saleContract.RecordContribution(transactionContext, UserX, maxAmount))

	SetTxTime(transactionContext, 250)
	err := saleContract.Claim(transactionContext, UserX)
	require.ErrorIs(t, err, sale.ErrArithmeticOverflow)

	record, err := saleContract.GetAccountRecord(transactionContext, UserX)
	require.NoError(t, err)
	require.False(t, record.Claimed)
}

func TestGetPhase(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	for _, tt := range []struct {
		timestamp int64
		expected  string
	}{
		{50, "NotStarted"},
		{150, "SaleOpen"},
		{250, "ClaimOpen"},
		{350, "ClaimClosed"},
	} {
		SetTxTime(transactionContext, tt.timestamp)
		phase, err := saleContract.GetPhase(transactionContext)
		require.NoError(t, err)
		require.Equal(t, tt.expected, phase)
	}
}

func TestGetClaimableAmount(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := initializeSale(t, transactionContext)

	// Unknown accounts preview to zero.
	claimable, err := saleContract.GetClaimableAmount(transactionContext, UserX)
	require.NoError(t, err)
	require.Equal(t, "0", claimable)

	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)
	require.NoError(t, saleContract.RecordContribution(transactionContext, UserX, "50"))

	claimable, err = saleContract.GetClaimableAmount(transactionContext, UserX)
	require.NoError(t, err)
	require.Equal(t, "100", claimable)

	transactionContext.InvokeChaincodeReturns(response.Response{Response: peer.Response{Status: http.StatusOK}})
	SetTxTime(transactionContext, 250)
	require.NoError(t, saleContract.Claim(transactionContext, UserX))

	claimable, err = saleContract.GetClaimableAmount(transactionContext, UserX)
	require.NoError(t, err)
	require.Equal(t, "0", claimable)
}

func TestOperationsBeforeInitialize(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()
	saleContract := &sale.SmartContract{}
	SetUserID(transactionContext, UserX)
	SetTxTime(transactionContext, 150)

	err := saleContract.RecordContribution(transactionContext, UserX, "50")
	require.ErrorIs(t, err, sale.ErrNotInitialized)

	err = saleContract.Claim(transactionContext, UserX)
	require.ErrorIs(t, err, sale.ErrNotInitialized)

	_, err = saleContract.GetTotals(transactionContext)
	require.NoError(t, err)

	_, err = saleContract.GetPhase(transactionContext)
	require.ErrorIs(t, err, sale.ErrNotInitialized)
}

func TestGetUserIdErrors(t *testing.T) {
	t.Parallel()

	transactionContext, _ := setupTestContext()

	clientIdentity := &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns("", fmt.Errorf("cert unavailable"))
	transactionContext.GetClientIdentityReturns(clientIdentity)

	_, err := sale.GetUserId(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read clientID")

	// A CN that is not a ledger address is rejected.
	completeId := "x509::CN=not-a-ledger-address,O=Organization,L=City,ST=State,C=Country"
	clientIdentity = &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns(base64.StdEncoding.EncodeToString([]byte(completeId)), nil)
	transactionContext.GetClientIdentityReturns(clientIdentity)

	_, err = sale.GetUserId(transactionContext)
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidUserAddress")
}
