package sale_test

import (
	"math/big"
	"testing"

	"github.com/buythedibs/az-token-sale-to-airdrop/sale"
	"github.com/stretchr/testify/require"
)

func TestComputeEntitlement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contributed string
		num         uint64
		den         uint64
		expected    string
	}{
		{"one to two", "50", 2, 1, "100"},
		{"one to one", "50", 1, 1, "50"},
		{"round down half", "3", 1, 2, "1"},
		{"round down thirds", "100", 1, 3, "33"},
		{"zero contribution", "0", 2, 1, "0"},
		{"floors to zero", "1", 1, 2, "0"},
		{"large amount", "340282366920938463463374607431768211455", 1, 1, "340282366920938463463374607431768211455"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			contributed, ok := new(big.Int).SetString(tt.contributed, 10)
			require.True(t, ok)

			entitlement, err := sale.ComputeEntitlement(contributed, tt.num, tt.den)
			require.NoError(t, err)
			require.Equal(t, tt.expected, entitlement.String())
		})
	}
}

func TestComputeEntitlementOverflow(t *testing.T) {
	t.Parallel()

	maxAmount, ok := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	require.True(t, ok)

	_, err := sale.ComputeEntitlement(maxAmount, 2, 1)
	require.ErrorIs(t, err, sale.ErrArithmeticOverflow)

	// One over the midpoint overflows, the midpoint itself does not.
	half := new(big.Int).Rsh(maxAmount, 1)
	_, err = sale.ComputeEntitlement(half, 2, 1)
	require.NoError(t, err)

	_, err = sale.ComputeEntitlement(new(big.Int).Add(half, big.NewInt(1)), 2, 1)
	require.ErrorIs(t, err, sale.ErrArithmeticOverflow)
}

func TestComputeEntitlementZeroDenominator(t *testing.T) {
	t.Parallel()

	_, err := sale.ComputeEntitlement(big.NewInt(10), 1, 0)
	require.ErrorIs(t, err, sale.ErrCannotBeZero)
}

func TestComputeEntitlementMonotonic(t *testing.T) {
	t.Parallel()

	previous := big.NewInt(0)
	for contributed := int64(0); contributed <= 1000; contributed += 7 {
		entitlement, err := sale.ComputeEntitlement(big.NewInt(contributed), 3, 7)
		require.NoError(t, err)
		require.True(t, entitlement.Cmp(previous) >= 0,
			"entitlement decreased at contribution %d", contributed)
		previous = entitlement
	}
}

func TestIsUserAddressValid(t *testing.T) {
	t.Parallel()

	require.True(t, sale.IsUserAddressValid("0b87970433b22494faff1cc7a819e71bddc7880c"))
	require.False(t, sale.IsUserAddressValid(""))
	require.False(t, sale.IsUserAddressValid("0b87970433b22494faff1cc7a819e71bddc7880"))
	require.False(t, sale.IsUserAddressValid("zz87970433b22494faff1cc7a819e71bddc7880c"))
}

func TestIsContractAddressValid(t *testing.T) {
	t.Parallel()

	require.True(t, sale.IsContractAddressValid("klp-6b616c70-cc"))
	require.False(t, sale.IsContractAddressValid(""))
	require.False(t, sale.IsContractAddressValid("klp--cc"))
	require.False(t, sale.IsContractAddressValid("6b616c70"))
}
