package sale

const (
	SaleConfigKey         = "saleconfig"
	AdminKey              = "admin"
	PausedKey             = "paused"
	AirdropTokenKey       = "airdropToken"
	DistributorKey        = "airdropDistributor"
	TotalContributedKey   = "total_contributed"
	TotalClaimedKey       = "total_claimed"
	RemainderWithdrawnKey = "remainder_withdrawn"

	accountKeyPrefix   = "account_"
	whitelistKeyPrefix = "whitelist_"
	recorderKeyPrefix  = "recorder_"

	contractAddressRegex = `^klp-[a-fA-F0-9]+-cc$`
	hexAddressRegex      = `^[0-9a-fA-F]{40}$`

	// Token Ledger / Airdrop Distributor function names, see the
	// collaborator chaincode surfaces.
	tokenTransferFromFn = "TransferFrom"
	tokenTransferFn     = "Transfer"
	distributorQueueFn  = "QueueOrSend"

	// Event names
	InitializedEvent            = "Initialized"
	ContributionRecordedEvent   = "ContributionRecorded"
	ClaimEvent                  = "Claim"
	ConversionRateUpdatedEvent  = "ConversionRateUpdated"
	PhaseTimestampsUpdatedEvent = "PhaseTimestampsUpdated"
	PausedEvent                 = "Paused"
	UnpausedEvent               = "Unpaused"
	AirdropTokenSetEvent        = "AirdropTokenSet"
	DistributorSetEvent         = "AirdropDistributorSet"
	WhitelistUpdatedEvent       = "WhitelistUpdated"
	RecorderUpdatedEvent        = "RecorderUpdated"
	RemainderWithdrawnEvent     = "RemainderWithdrawn"
)
