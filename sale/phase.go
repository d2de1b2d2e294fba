package sale

// Phase is a stage of the sale/claim lifecycle. It is never stored; every
// operation derives it from the transaction timestamp so that no call can
// observe a stale phase.
type Phase int

const (
	NotStarted Phase = iota
	SaleOpen
	SaleClosedPreClaim
	ClaimOpen
	ClaimClosed
)

func (p Phase) String() string {
	return [...]string{
		"NotStarted",
		"SaleOpen",
		"SaleClosedPreClaim",
		"ClaimOpen",
		"ClaimClosed",
	}[p]
}

// PhaseAt maps a chain timestamp onto the lifecycle. The sale window is
// [SaleStart, SaleEnd), the claim window is [ClaimStart, ClaimEnd], and a
// zero ClaimEnd leaves the claim phase open forever.
func PhaseAt(cfg *SaleConfig, timestamp uint64) Phase {
	switch {
	case timestamp < cfg.SaleStart:
		return NotStarted
	case timestamp < cfg.SaleEnd:
		return SaleOpen
	case timestamp < cfg.ClaimStart:
		return SaleClosedPreClaim
	case cfg.ClaimEnd == 0 || timestamp <= cfg.ClaimEnd:
		return ClaimOpen
	default:
		return ClaimClosed
	}
}
