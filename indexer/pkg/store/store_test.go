package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solstream/tipjar/program/pkg/prog"
	tiptesting "github.com/solstream/tipjar/utils/pkg/testing"
	"github.com/stretchr/testify/require"
)

// testStore connects to the database named by TIPJAR_TEST_DATABASE_URL and
// runs migrations. Tests are skipped when the variable is unset.
func testStore(t *testing.T) *Store {
	t.Helper()

	connStr := os.Getenv("TIPJAR_TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TIPJAR_TEST_DATABASE_URL not set")
	}

	log := tiptesting.NewLogger()
	require.NoError(t, RunMigrations(log, connStr))

	pool, err := pgxpool.New(context.Background(), connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s, err := New(Config{Logger: log, Pool: pool})
	require.NoError(t, err)
	return s
}

func TestTipjar_Indexer_Store_New(t *testing.T) {
	t.Parallel()

	t.Run("missing logger", func(t *testing.T) {
		t.Parallel()
		s, err := New(Config{})
		require.Error(t, err)
		require.Nil(t, s)
		require.Contains(t, err.Error(), "logger is required")
	})

	t.Run("missing pool", func(t *testing.T) {
		t.Parallel()
		s, err := New(Config{Logger: tiptesting.NewLogger()})
		require.Error(t, err)
		require.Nil(t, s)
		require.Contains(t, err.Error(), "postgres pool is required")
	})
}

func TestTipjar_Indexer_Store_RecordAndQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	wallet := solana.NewWallet().PublicKey()
	donor := solana.NewWallet().PublicKey()
	now := time.Now().Unix()

	require.NoError(t, s.RecordStreamer(ctx, prog.StreamerRegistered{Streamer: wallet, Timestamp: now}))

	// Replayed registrations are idempotent.
	require.NoError(t, s.RecordStreamer(ctx, prog.StreamerRegistered{Streamer: wallet, Timestamp: now + 100}))
	got, err := s.GetStreamer(ctx, wallet.String())
	require.NoError(t, err)
	require.Equal(t, wallet.String(), got.Wallet)
	require.Equal(t, time.Unix(now, 0).UTC(), got.RegisteredAt.UTC())

	mint := solana.NewWallet().PublicKey()
	for id := uint64(0); id < 3; id++ {
		ev := prog.DonationReceived{
			DonationID: id,
			Streamer:   wallet,
			Donor:      donor,
			Amount:     1_000_000 * (id + 1),
			Fee:        50_000 * (id + 1),
			Message:    "hi",
			Timestamp:  now + int64(id),
		}
		if id == 2 {
			ev.TokenMint = mint
		}
		require.NoError(t, s.RecordDonation(ctx, ev))
	}

	// Replayed donation events are idempotent on (streamer, donation_id).
	require.NoError(t, s.RecordDonation(ctx, prog.DonationReceived{
		DonationID: 0, Streamer: wallet, Donor: donor, Amount: 999, Timestamp: now,
	}))

	count, err := s.CountDonations(ctx, wallet.String())
	require.NoError(t, err)
	require.Equal(t, 3, count)

	rows, err := s.ListDonationsByStreamer(ctx, wallet.String(), 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Newest first.
	require.Equal(t, uint64(2), rows[0].DonationID)
	require.NotNil(t, rows[0].TokenMint)
	require.Equal(t, mint.String(), *rows[0].TokenMint)
	require.Nil(t, rows[1].TokenMint)
	require.Equal(t, uint64(1_000_000), rows[2].Amount)

	// Pagination.
	rows, err = s.ListDonationsByStreamer(ctx, wallet.String(), 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(0), rows[0].DonationID)
}

func TestTipjar_Indexer_Store_GetStreamerNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetStreamer(context.Background(), solana.NewWallet().PublicKey().String())
	require.ErrorIs(t, err, ErrNotFound)
}
