package sale_test

import (
	"testing"

	"github.com/buythedibs/az-token-sale-to-airdrop/sale"
	"github.com/stretchr/testify/require"
)

func TestPhaseAt(t *testing.T) {
	t.Parallel()

	config := &sale.SaleConfig{
		SaleStart:  100,
		SaleEnd:    200,
		ClaimStart: 200,
		ClaimEnd:   300,
	}

	tests := []struct {
		name      string
		timestamp uint64
		expected  sale.Phase
	}{
		{"before sale start", 50, sale.NotStarted},
		{"just before sale start", 99, sale.NotStarted},
		{"at sale start", 100, sale.SaleOpen},
		{"mid sale", 150, sale.SaleOpen},
		{"just before sale end", 199, sale.SaleOpen},
		{"at sale end equals claim start", 200, sale.ClaimOpen},
		{"mid claim", 250, sale.ClaimOpen},
		{"at claim end", 300, sale.ClaimOpen},
		{"after claim end", 301, sale.ClaimClosed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, sale.PhaseAt(config, tt.timestamp))
		})
	}
}

func TestPhaseAtWithGapAndUnboundedClaim(t *testing.T) {
	t.Parallel()

	gapped := &sale.SaleConfig{
		SaleStart:  100,
		SaleEnd:    200,
		ClaimStart: 400,
		ClaimEnd:   0,
	}

	require.Equal(t, sale.SaleClosedPreClaim, sale.PhaseAt(gapped, 200))
	require.Equal(t, sale.SaleClosedPreClaim, sale.PhaseAt(gapped, 399))
	require.Equal(t, sale.ClaimOpen, sale.PhaseAt(gapped, 400))
	require.Equal(t, sale.ClaimOpen, sale.PhaseAt(gapped, 1<<40))
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "NotStarted", sale.NotStarted.String())
	require.Equal(t, "SaleOpen", sale.SaleOpen.String())
	require.Equal(t, "SaleClosedPreClaim", sale.SaleClosedPreClaim.String())
	require.Equal(t, "ClaimOpen", sale.ClaimOpen.String())
	require.Equal(t, "ClaimClosed", sale.ClaimClosed.String())
}
