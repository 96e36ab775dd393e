package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/builtin/ledger"
	"github.com/btcpeg/bridge-core/actors/runtime/exitcode"
	"github.com/btcpeg/bridge-core/support/mock"
	tutil "github.com/btcpeg/bridge-core/support/testing"
)

func TestExports(t *testing.T) {
	mock.CheckActorExports(t, ledger.Actor{})
}

func construct(t *testing.T, owner abi.Address, maxMintLimit big.Int, epochLength abi.ChainEpoch) *mock.Runtime {
	receiver := tutil.NewAddr(t, 1)
	rt := mock.NewBuilder(context.Background(), receiver).WithCaller(owner).Build(t)
	rt.Call(ledger.Actor{}.Constructor, &ledger.ConstructorParams{
		Owner:        owner,
		MaxMintLimit: maxMintLimit,
		EpochLength:  epochLength,
	})
	return rt
}

func TestConstructor(t *testing.T) {
	owner := tutil.NewAddr(t, 100)
	rt := construct(t, owner, big.NewInt(1_000_000), 100)

	var st ledger.State
	rt.GetState(&st)
	assert.Equal(t, owner, st.Owner)
	assert.True(t, st.TotalSupply.IsZero())
	assert.True(t, st.Epoch.MaxMintLimit.Equals(big.NewInt(1_000_000)))
	assert.True(t, st.Epoch.LastMintLimit.Equals(big.NewInt(1_000_000)))
}

func TestMintRoleGate(t *testing.T) {
	actor := ledger.Actor{}
	owner := tutil.NewAddr(t, 1)
	minter := tutil.NewAddr(t, 2)
	other := tutil.NewAddr(t, 3)
	to := tutil.NewAddr(t, 4)
	rt := construct(t, owner, big.NewInt(1_000_000), 100)

	rt.WithCaller(owner)
	rt.Call(actor.AddMinter, &ledger.AddressParams{Address: minter})

	rt.WithCaller(other)
	mock.ExpectAbort(t, exitcode.ErrForbidden, func() {
		rt.Call(actor.Mint, &ledger.MintParams{To: to, Amount: big.NewInt(10)})
	})

	rt.WithCaller(minter)
	rt.Call(actor.Mint, &ledger.MintParams{To: to, Amount: big.NewInt(10)})

	bal := rt.Call(actor.BalanceOf, &ledger.AddressParams{Address: to}).(*big.Int)
	assert.True(t, bal.Equals(big.NewInt(10)))
}

// TestMintEpochWindow exercises the sliding-window epoch cap of spec §4.1:
// two mints within the same epoch share the same budget; crossing into a
// new epoch resets the budget to the full cap, discarding whatever was
// unused.
func TestMintEpochWindow(t *testing.T) {
	actor := ledger.Actor{}
	owner := tutil.NewAddr(t, 1)
	minter := tutil.NewAddr(t, 2)
	to := tutil.NewAddr(t, 3)
	epochLength := abi.ChainEpoch(100)
	rt := construct(t, owner, big.NewInt(1_000), epochLength)
	rt.WithCaller(owner)
	rt.Call(actor.AddMinter, &ledger.AddressParams{Address: minter})
	rt.WithCaller(minter)

	rt.WithEpoch(10)
	rt.Call(actor.Mint, &ledger.MintParams{To: to, Amount: big.NewInt(700)})

	rt.WithEpoch(50) // still epoch 0 (50/100 == 10/100)
	mock.ExpectAbort(t, exitcode.ErrIllegalState, func() {
		rt.Call(actor.Mint, &ledger.MintParams{To: to, Amount: big.NewInt(400)})
	})
	rt.Call(actor.Mint, &ledger.MintParams{To: to, Amount: big.NewInt(300)}) // exactly the remaining budget

	rt.WithEpoch(150) // epoch 1: budget resets to the full cap
	rt.Call(actor.Mint, &ledger.MintParams{To: to, Amount: big.NewInt(1_000)})

	bal := rt.Call(actor.BalanceOf, &ledger.AddressParams{Address: to}).(*big.Int)
	assert.True(t, bal.Equals(big.NewInt(2_000)))
}

func TestMintRejectsOverCap(t *testing.T) {
	actor := ledger.Actor{}
	owner := tutil.NewAddr(t, 1)
	minter := tutil.NewAddr(t, 2)
	to := tutil.NewAddr(t, 3)
	rt := construct(t, owner, big.NewInt(100), 100)
	rt.WithCaller(owner)
	rt.Call(actor.AddMinter, &ledger.AddressParams{Address: minter})
	rt.WithCaller(minter)

	mock.ExpectAbort(t, exitcode.ErrIllegalState, func() {
		rt.Call(actor.Mint, &ledger.MintParams{To: to, Amount: big.NewInt(101)})
	})
}

func TestBurnAndOwnerBurn(t *testing.T) {
	actor := ledger.Actor{}
	owner := tutil.NewAddr(t, 1)
	minter := tutil.NewAddr(t, 2)
	burner := tutil.NewAddr(t, 3)
	user := tutil.NewAddr(t, 4)
	rt := construct(t, owner, big.NewInt(1_000_000), 100)
	rt.WithCaller(owner)
	rt.Call(actor.AddMinter, &ledger.AddressParams{Address: minter})
	rt.Call(actor.AddBurner, &ledger.AddressParams{Address: burner})

	rt.WithCaller(minter)
	rt.Call(actor.Mint, &ledger.MintParams{To: user, Amount: big.NewInt(500)})

	// burner can only burn from itself, not from user.
	rt.Call(actor.Mint, &ledger.MintParams{To: burner, Amount: big.NewInt(100)})
	rt.WithCaller(burner)
	rt.Call(actor.Burn, &ledger.BurnParams{Amount: big.NewInt(40)})
	bal := rt.Call(actor.BalanceOf, &ledger.AddressParams{Address: burner}).(*big.Int)
	assert.True(t, bal.Equals(big.NewInt(60)))

	// ownerBurn can retire from any account, including user, owner-only.
	rt.WithCaller(owner)
	rt.Call(actor.OwnerBurn, &ledger.OwnerBurnParams{User: user, Amount: big.NewInt(200)})
	bal = rt.Call(actor.BalanceOf, &ledger.AddressParams{Address: user}).(*big.Int)
	assert.True(t, bal.Equals(big.NewInt(300)))
}

func TestBlacklistBlocksTransferButNotOwnerBurn(t *testing.T) {
	actor := ledger.Actor{}
	owner := tutil.NewAddr(t, 1)
	minter := tutil.NewAddr(t, 2)
	blacklister := tutil.NewAddr(t, 3)
	user := tutil.NewAddr(t, 4)
	recipient := tutil.NewAddr(t, 5)
	rt := construct(t, owner, big.NewInt(1_000_000), 100)
	rt.WithCaller(owner)
	rt.Call(actor.AddMinter, &ledger.AddressParams{Address: minter})
	rt.Call(actor.AddBlacklister, &ledger.AddressParams{Address: blacklister})

	rt.WithCaller(minter)
	rt.Call(actor.Mint, &ledger.MintParams{To: user, Amount: big.NewInt(500)})

	rt.WithCaller(blacklister)
	rt.Call(actor.Blacklist, &ledger.AddressParams{Address: user})

	isBlacklisted := rt.Call(actor.IsBlacklisted, &ledger.AddressParams{Address: user}).(*ledger.BoolValue)
	assert.True(t, isBlacklisted.Value)

	rt.WithCaller(user)
	mock.ExpectAbort(t, exitcode.ErrForbidden, func() {
		rt.Call(actor.Transfer, &ledger.TransferParams{To: recipient, Amount: big.NewInt(50)})
	})

	// ownerBurn still works against the blacklisted account.
	rt.WithCaller(owner)
	rt.Call(actor.OwnerBurn, &ledger.OwnerBurnParams{User: user, Amount: big.NewInt(500)})
	bal := rt.Call(actor.BalanceOf, &ledger.AddressParams{Address: user}).(*big.Int)
	assert.True(t, bal.IsZero())
}

// TestIsBlacklistedZeroAddressAsymmetry locks in the resolved Open
// Question: IsBlacklisted never aborts on the zero address (it reports
// false), while IsMinter/IsBurner/IsBlacklister do abort on it.
func TestIsBlacklistedZeroAddressAsymmetry(t *testing.T) {
	actor := ledger.Actor{}
	owner := tutil.NewAddr(t, 1)
	rt := construct(t, owner, big.NewInt(1_000_000), 100)

	isBlacklisted := rt.Call(actor.IsBlacklisted, &ledger.AddressParams{Address: abi.UndefAddress}).(*ledger.BoolValue)
	assert.False(t, isBlacklisted.Value)

	mock.ExpectAbort(t, exitcode.ErrIllegalArgument, func() {
		rt.Call(actor.IsMinter, &ledger.AddressParams{Address: abi.UndefAddress})
	})
}

func TestRoleGrantIsIdempotencyChecked(t *testing.T) {
	actor := ledger.Actor{}
	owner := tutil.NewAddr(t, 1)
	minter := tutil.NewAddr(t, 2)
	rt := construct(t, owner, big.NewInt(1_000_000), 100)
	rt.WithCaller(owner)

	rt.Call(actor.AddMinter, &ledger.AddressParams{Address: minter})
	mock.ExpectAbort(t, exitcode.ErrIllegalState, func() {
		rt.Call(actor.AddMinter, &ledger.AddressParams{Address: minter})
	})

	rt.Call(actor.RemoveMinter, &ledger.AddressParams{Address: minter})
	mock.ExpectAbort(t, exitcode.ErrIllegalState, func() {
		rt.Call(actor.RemoveMinter, &ledger.AddressParams{Address: minter})
	})
}

func TestTransferFromRequiresNeitherPartyBlacklisted(t *testing.T) {
	actor := ledger.Actor{}
	owner := tutil.NewAddr(t, 1)
	minter := tutil.NewAddr(t, 2)
	blacklister := tutil.NewAddr(t, 3)
	from := tutil.NewAddr(t, 4)
	to := tutil.NewAddr(t, 5)
	caller := tutil.NewAddr(t, 6) // e.g. the BurnRouter actor, in real deployment
	rt := construct(t, owner, big.NewInt(1_000_000), 100)
	rt.WithCaller(owner)
	rt.Call(actor.AddMinter, &ledger.AddressParams{Address: minter})
	rt.Call(actor.AddBlacklister, &ledger.AddressParams{Address: blacklister})

	rt.WithCaller(minter)
	rt.Call(actor.Mint, &ledger.MintParams{To: from, Amount: big.NewInt(100)})

	rt.WithCaller(blacklister)
	rt.Call(actor.Blacklist, &ledger.AddressParams{Address: to})

	rt.WithCaller(caller)
	mock.ExpectAbort(t, exitcode.ErrForbidden, func() {
		rt.Call(actor.TransferFrom, &ledger.TransferFromParams{From: from, To: to, Amount: big.NewInt(10)})
	})

	rt.WithCaller(blacklister)
	rt.Call(actor.UnBlacklist, &ledger.AddressParams{Address: to})

	rt.WithCaller(caller)
	rt.Call(actor.TransferFrom, &ledger.TransferFromParams{From: from, To: to, Amount: big.NewInt(10)})

	bal := rt.Call(actor.BalanceOf, &ledger.AddressParams{Address: to}).(*big.Int)
	require.True(t, bal.Equals(big.NewInt(10)))
}
