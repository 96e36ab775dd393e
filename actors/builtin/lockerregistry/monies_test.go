package lockerregistry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/builtin/lockerregistry"
)

func TestCollateralValueBTC(t *testing.T) {
	nativeLocked := big.NewInt(1_000_000_000_000_000_000) // 1e18
	price := big.NewInt(100_000_000)                      // 1e8
	assert.Equal(t, big.NewInt(100_000_000), lockerregistry.CollateralValueBTC(nativeLocked, price))

	// Tiny collateral at the same price floors to zero rather than going negative.
	assert.Equal(t, big.Zero(), lockerregistry.CollateralValueBTC(big.NewInt(1), price))
}

func TestCapacity(t *testing.T) {
	collateralValueBTC := big.NewInt(100_000_000)
	t.Run("room to mint", func(t *testing.T) {
		capacity := lockerregistry.Capacity(collateralValueBTC, big.NewInt(1_000), 15_000)
		// max = 100_000_000 * 10_000 / 15_000 = 66,666,666
		assert.Equal(t, big.NewInt(66_666_666-1_000), capacity)
	})
	t.Run("already over capacity goes negative", func(t *testing.T) {
		capacity := lockerregistry.Capacity(collateralValueBTC, big.NewInt(100_000_000), 15_000)
		assert.True(t, capacity.LessThan(big.Zero()))
	})
}

func TestHealthFactor(t *testing.T) {
	t.Run("no outstanding mint is unconditionally healthy", func(t *testing.T) {
		hf := lockerregistry.HealthFactor(big.Zero(), big.Zero(), 13_000)
		assert.False(t, lockerregistry.Liquidatable(hf))
	})
	t.Run("well collateralized", func(t *testing.T) {
		// collateralValueBTC 100, netMinted 10, liquidationRatio 130%:
		// hf = 100*10_000*10_000/(10*13_000) = 769,230 >> 10_000.
		hf := lockerregistry.HealthFactor(big.NewInt(100), big.NewInt(10), 13_000)
		assert.False(t, lockerregistry.Liquidatable(hf))
	})
	t.Run("under the liquidation ratio", func(t *testing.T) {
		// collateralValueBTC 6,000, netMinted 10,000, liquidationRatio 130%:
		// hf = 6,000*10_000*10_000/(10_000*13_000) = 4,615 < 10_000.
		hf := lockerregistry.HealthFactor(big.NewInt(6_000), big.NewInt(10_000), 13_000)
		assert.True(t, lockerregistry.Liquidatable(hf))
	})
}

func TestDiscountedPrice(t *testing.T) {
	assert.Equal(t, big.NewInt(5_400), lockerregistry.DiscountedPrice(big.NewInt(6_000), 9_000))
	assert.Equal(t, big.NewInt(6_000), lockerregistry.DiscountedPrice(big.NewInt(6_000), 10_000))
}

func TestGetMaximumBuyableCollateral(t *testing.T) {
	liquidationRatio := uint64(13_000)
	discountRatio := uint64(9_000)

	t.Run("healthy locker has nothing to buy", func(t *testing.T) {
		nativeLocked := big.NewInt(1_000_000_000_000_000_000)
		netMinted := big.NewInt(10)
		price := big.NewInt(100_000_000)
		v := lockerregistry.GetMaximumBuyableCollateral(nativeLocked, netMinted, price, liquidationRatio, discountRatio)
		assert.True(t, v.IsZero())
	})

	t.Run("no outstanding mint has nothing to buy", func(t *testing.T) {
		nativeLocked := big.NewInt(1_000_000_000_000_000_000)
		price := big.NewInt(100_000_000)
		v := lockerregistry.GetMaximumBuyableCollateral(nativeLocked, big.Zero(), price, liquidationRatio, discountRatio)
		assert.True(t, v.IsZero())
	})

	t.Run("zero price has nothing to buy", func(t *testing.T) {
		nativeLocked := big.NewInt(1_000_000_000_000_000_000)
		netMinted := big.NewInt(10)
		v := lockerregistry.GetMaximumBuyableCollateral(nativeLocked, netMinted, big.Zero(), liquidationRatio, discountRatio)
		assert.True(t, v.IsZero())
	})

	t.Run("liquidatable locker returns a positive, bounded amount", func(t *testing.T) {
		nativeLocked := big.NewInt(1_000_000_000_000_000_000)
		netMinted := big.NewInt(10_000)
		price := big.NewInt(6_000) // collateralValueBTC == price when nativeLocked == 1e18
		v := lockerregistry.GetMaximumBuyableCollateral(nativeLocked, netMinted, price, liquidationRatio, discountRatio)
		assert.True(t, v.GreaterThan(big.Zero()))
		assert.True(t, v.LessThanEqual(nativeLocked))
	})

	t.Run("result never exceeds nativeTokenLockedAmount", func(t *testing.T) {
		// A thin discount relative to liquidationRatio can make the
		// closed-form solution overshoot; it must clamp to the full
		// collateral rather than return more than is actually locked.
		nativeLocked := big.NewInt(1_000)
		netMinted := big.NewInt(10_000)
		price := big.NewInt(6_000)
		v := lockerregistry.GetMaximumBuyableCollateral(nativeLocked, netMinted, price, liquidationRatio, discountRatio)
		assert.True(t, v.Equals(nativeLocked))
	})
}
