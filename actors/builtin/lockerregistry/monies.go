package lockerregistry

import (
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/builtin"
)

// pow10NativeDecimals is 10^NATIVE_DECIMALS, the fixed-point base
// nativeTokenLockedAmount is denominated in (spec §3).
var pow10NativeDecimals = func() big.Int {
	v := big.NewInt(1)
	ten := big.NewInt(10)
	for i := 0; i < builtin.NativeDecimals; i++ {
		v = big.Mul(v, ten)
	}
	return v
}()

func basisPoints(n uint64) big.Int { return big.NewInt(int64(n)) }

// CollateralValueBTC converts a locker's native collateral to wrapped-BTC
// units at the oracle price P (native units per wrapped-BTC unit, spec
// §4.2): collateralValueBTC = nativeTokenLockedAmount * P / 10^NATIVE_DECIMALS.
func CollateralValueBTC(nativeLocked, price big.Int) big.Int {
	return big.Div(big.Mul(nativeLocked, price), pow10NativeDecimals)
}

// Capacity is the remaining wrapped-BTC a locker may mint against its
// current collateral at the configured collateral ratio (spec §4.2):
// capacity = collateralValueBTC * 10_000 / collateralRatio - netMinted.
// A negative result means the locker is already over capacity.
func Capacity(collateralValueBTC, netMinted big.Int, collateralRatio uint64) big.Int {
	max := big.Div(big.Mul(collateralValueBTC, basisPoints(builtin.MaxProtocolFee)), basisPoints(collateralRatio))
	return big.Sub(max, netMinted)
}

// HealthFactor implements spec §4.2's dimensionless collateralization
// ratio: healthFactor = collateralValueBTC * 10_000 * UPPER_HEALTH_FACTOR
// / (netMinted * liquidationRatio). A locker with no outstanding mint is
// unconditionally healthy regardless of collateral; this returns a large
// sentinel rather than dividing by zero.
func HealthFactor(collateralValueBTC, netMinted big.Int, liquidationRatio uint64) big.Int {
	if netMinted.IsZero() {
		return big.NewInt(1 << 62)
	}
	num := big.Mul(big.Mul(collateralValueBTC, basisPoints(builtin.MaxProtocolFee)), basisPoints(builtin.UpperHealthFactor))
	denom := big.Mul(netMinted, basisPoints(liquidationRatio))
	return big.Div(num, denom)
}

// Liquidatable reports whether a healthFactor falls below HEALTH_FACTOR.
func Liquidatable(healthFactor big.Int) bool {
	return healthFactor.LessThan(basisPoints(builtin.HealthFactor))
}

// DiscountedPrice applies the slashed-collateral sale discount to the
// oracle price (spec §4.2): discountedPrice = P * priceWithDiscountRatio
// / 10_000.
func DiscountedPrice(price big.Int, priceWithDiscountRatio uint64) big.Int {
	return big.Div(big.Mul(price, basisPoints(priceWithDiscountRatio)), basisPoints(builtin.MaxDiscountRatio))
}

// GetMaximumBuyableCollateral bounds liquidateLocker (spec §4.2). Buying
// collateralAmount c simultaneously removes c native from the locker and
// burns neededCoreBTC = c * discountedPrice / 10^NATIVE_DECIMALS from its
// netMinted (liquidateLocker burns that amount on the Ledger and subtracts
// it from netMinted directly, with no locker fee), so both sides of
// healthFactor move together. Solving
// healthFactor(nativeLocked - c, netMinted - neededCoreBTC(c)) ==
// HEALTH_FACTOR for c (HEALTH_FACTOR == UPPER_HEALTH_FACTOR cancels the
// 10_000 scaling) gives the closed form below:
//
//	c = 10^NATIVE_DECIMALS * (netMinted*liquidationRatio - collateralValueBTC*10_000)
//	    / (discountedPrice*liquidationRatio - price*10_000)
//
// The numerator is positive exactly when the locker is liquidatable. The
// denominator can be zero or negative when priceWithDiscountRatio isn't
// steep enough relative to liquidationRatio to ever restore health by
// itself — in that degenerate case the whole locker is sellable, clamped
// to nativeTokenLockedAmount as before.
func GetMaximumBuyableCollateral(nativeLocked, netMinted, price big.Int, liquidationRatio, priceWithDiscountRatio uint64) big.Int {
	if netMinted.IsZero() || price.IsZero() {
		return big.Zero()
	}
	collateralValueBTC := CollateralValueBTC(nativeLocked, price)
	lr := basisPoints(liquidationRatio)
	healthBasis := basisPoints(builtin.HealthFactor)
	numerator := big.Sub(big.Mul(netMinted, lr), big.Mul(collateralValueBTC, healthBasis))
	if numerator.LessThanEqual(big.Zero()) {
		return big.Zero() // already healthy; nothing to buy
	}
	discounted := DiscountedPrice(price, priceWithDiscountRatio)
	denominator := big.Sub(big.Mul(discounted, lr), big.Mul(price, healthBasis))
	if denominator.LessThanEqual(big.Zero()) {
		return nativeLocked
	}
	c := big.Div(big.Mul(pow10NativeDecimals, numerator), denominator)
	if c.GreaterThan(nativeLocked) {
		return nativeLocked
	}
	return c
}
