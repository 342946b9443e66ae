package derive

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

var testProgramID = solana.MustPublicKeyFromBase58("FMrnRTKyLZPFK5BgZB7aGA95RVa3pVyvCtbR8oMov2n9")

func TestTipjar_Program_Derive_Config(t *testing.T) {
	t.Parallel()

	addr, bump, err := Config(testProgramID)
	require.NoError(t, err)
	require.False(t, addr.IsZero())

	// Deterministic: same inputs, same result.
	addr2, bump2, err := Config(testProgramID)
	require.NoError(t, err)
	require.Equal(t, addr, addr2)
	require.Equal(t, bump, bump2)
}

func TestTipjar_Program_Derive_Streamer(t *testing.T) {
	t.Parallel()

	walletA := solana.NewWallet().PublicKey()
	walletB := solana.NewWallet().PublicKey()

	addrA, _, err := Streamer(testProgramID, walletA)
	require.NoError(t, err)
	addrB, _, err := Streamer(testProgramID, walletB)
	require.NoError(t, err)

	// Unique per wallet, never an externally-controlled identity.
	require.NotEqual(t, addrA, addrB)
	require.NotEqual(t, walletA, addrA)

	again, _, err := Streamer(testProgramID, walletA)
	require.NoError(t, err)
	require.Equal(t, addrA, again)
}

func TestTipjar_Program_Derive_Donation(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet().PublicKey()

	seen := make(map[solana.PublicKey]uint64)
	for id := uint64(0); id < 16; id++ {
		addr, _, err := Donation(testProgramID, wallet, id)
		require.NoError(t, err)
		if prev, dup := seen[addr]; dup {
			t.Fatalf("donation address collision between ids %d and %d", prev, id)
		}
		seen[addr] = id
	}

	// Distinct streamer wallets never share donation addresses.
	other := solana.NewWallet().PublicKey()
	addr0, _, err := Donation(testProgramID, wallet, 0)
	require.NoError(t, err)
	addrOther, _, err := Donation(testProgramID, other, 0)
	require.NoError(t, err)
	require.NotEqual(t, addr0, addrOther)
}

func TestTipjar_Program_Derive_DistinctKindsDistinctAddresses(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet().PublicKey()

	cfgAddr, _, err := Config(testProgramID)
	require.NoError(t, err)
	strAddr, _, err := Streamer(testProgramID, wallet)
	require.NoError(t, err)
	donAddr, _, err := Donation(testProgramID, wallet, 0)
	require.NoError(t, err)

	require.NotEqual(t, cfgAddr, strAddr)
	require.NotEqual(t, strAddr, donAddr)
	require.NotEqual(t, cfgAddr, donAddr)
}
