package state

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestTipjar_Program_State_ConfigRoundTrip(t *testing.T) {
	t.Parallel()

	authority := solana.NewWallet().PublicKey()
	collector := solana.NewWallet().PublicKey()

	cfg := &Config{
		Authority:    authority,
		FeeCollector: collector,
		Paused:       true,
		Bump:         254,
	}
	data, err := cfg.Marshal()
	require.NoError(t, err)

	var got Config
	require.NoError(t, got.Unmarshal(data))
	require.Equal(t, *cfg, got)
}

func TestTipjar_Program_State_DonationRoundTrip(t *testing.T) {
	t.Parallel()

	d := &Donation{
		Donor:      solana.NewWallet().PublicKey(),
		Streamer:   solana.NewWallet().PublicKey(),
		Amount:     1_000_000,
		Message:    "gg wp 🎉",
		Timestamp:  1_700_000_000,
		DonationID: 7,
		TokenMint:  NativeMint,
		Bump:       253,
	}
	data, err := d.Marshal()
	require.NoError(t, err)

	var got Donation
	require.NoError(t, got.Unmarshal(data))
	require.Equal(t, *d, got)
	require.True(t, got.IsNative())
}

func TestTipjar_Program_State_DiscriminatorMismatch(t *testing.T) {
	t.Parallel()

	s := &Streamer{Wallet: solana.NewWallet().PublicKey(), DonationCount: 3, Bump: 252}
	data, err := s.Marshal()
	require.NoError(t, err)

	var cfg Config
	err = cfg.Unmarshal(data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "discriminator mismatch")

	var short Config
	require.Error(t, short.Unmarshal([]byte{1, 2, 3}))
}

func TestTipjar_Program_State_TokenMintSentinel(t *testing.T) {
	t.Parallel()

	d := &Donation{TokenMint: solana.NewWallet().PublicKey()}
	require.False(t, d.IsNative())

	d.TokenMint = NativeMint
	require.True(t, d.IsNative())
}
