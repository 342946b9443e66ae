package server_test

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/solstream/tipjar/api/handlers"
	"github.com/solstream/tipjar/api/server"
	"github.com/solstream/tipjar/program/pkg/prog"
	"github.com/solstream/tipjar/program/pkg/runtime"
	"github.com/solstream/tipjar/program/pkg/state"
	tiptesting "github.com/solstream/tipjar/utils/pkg/testing"
)

type fixture struct {
	ledger    *runtime.Ledger
	program   *prog.Program
	handler   http.Handler
	authority *solana.Wallet
}

func newFixture(t *testing.T, dev bool) *fixture {
	t.Helper()

	log := tiptesting.NewLogger()
	ledger, err := runtime.NewLedger(runtime.Config{
		Logger: log,
		Clock:  clockwork.NewFakeClock(),
	})
	require.NoError(t, err)

	program, err := prog.New(prog.Config{
		Logger: log,
		Ledger: ledger,
	})
	require.NoError(t, err)

	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		HandlersConfig: handlers.Config{
			Logger:  log,
			Program: program,
			Ledger:  ledger,
			Dev:     dev,
		},
	})
	require.NoError(t, err)

	return &fixture{
		ledger:    ledger,
		program:   program,
		handler:   srv.Handler(),
		authority: solana.NewWallet(),
	}
}

// sign produces the signer/signature fields for a canonical message.
func sign(wallet *solana.Wallet, canonical string) (signer, signature string) {
	sig := ed25519.Sign(ed25519.PrivateKey(wallet.PrivateKey), []byte(canonical))
	return wallet.PublicKey().String(), base64.StdEncoding.EncodeToString(sig)
}

func (f *fixture) post(t *testing.T, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) initialize(t *testing.T) {
	t.Helper()
	signer, sig := sign(f.authority, "tipjar:initialize")
	rec := f.post(t, "/v1/initialize", map[string]any{"signer": signer, "signature": sig})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (f *fixture) registerStreamer(t *testing.T) *solana.Wallet {
	t.Helper()
	streamer := solana.NewWallet()
	signer, sig := sign(streamer, "tipjar:register_streamer")
	rec := f.post(t, "/v1/streamers", map[string]any{"signer": signer, "signature": sig})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return streamer
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestTipjar_API_Server_Probes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	require.Equal(t, http.StatusOK, f.get(t, "/healthz").Code)
	require.Equal(t, http.StatusOK, f.get(t, "/readyz").Code)
	require.Equal(t, http.StatusOK, f.get(t, "/version").Code)
	require.Equal(t, http.StatusOK, f.get(t, "/metrics").Code)
}

func TestTipjar_API_Server_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("creates config with signer as authority", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)

		rec := f.get(t, "/v1/config")
		require.Equal(t, http.StatusOK, rec.Code)
		var cfg struct {
			Authority    string `json:"authority"`
			FeeCollector string `json:"fee_collector"`
			Paused       bool   `json:"paused"`
			FeePercent   uint64 `json:"fee_percent"`
		}
		decodeBody(t, rec, &cfg)
		require.Equal(t, f.authority.PublicKey().String(), cfg.Authority)
		require.Equal(t, f.authority.PublicKey().String(), cfg.FeeCollector)
		require.False(t, cfg.Paused)
		require.Equal(t, uint64(state.FeePercent), cfg.FeePercent)
	})

	t.Run("double initialize conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)

		signer, sig := sign(solana.NewWallet(), "tipjar:initialize")
		rec := f.post(t, "/v1/initialize", map[string]any{"signer": signer, "signature": sig})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad signature unauthorized", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		signer, sig := sign(f.authority, "tipjar:unpause")
		rec := f.post(t, "/v1/initialize", map[string]any{"signer": signer, "signature": sig})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("config before initialize not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		require.Equal(t, http.StatusNotFound, f.get(t, "/v1/config").Code)
	})
}

func TestTipjar_API_Server_Streamers(t *testing.T) {
	t.Parallel()

	t.Run("register and fetch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		streamer := f.registerStreamer(t)

		rec := f.get(t, "/v1/streamers/"+streamer.PublicKey().String())
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Wallet        string `json:"wallet"`
			DonationCount uint64 `json:"donation_count"`
		}
		decodeBody(t, rec, &resp)
		require.Equal(t, streamer.PublicKey().String(), resp.Wallet)
		require.Zero(t, resp.DonationCount)
	})

	t.Run("double registration conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		streamer := f.registerStreamer(t)

		signer, sig := sign(streamer, "tipjar:register_streamer")
		rec := f.post(t, "/v1/streamers", map[string]any{"signer": signer, "signature": sig})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown streamer not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		rec := f.get(t, "/v1/streamers/"+solana.NewWallet().PublicKey().String())
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed wallet rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		require.Equal(t, http.StatusBadRequest, f.get(t, "/v1/streamers/zzz!!").Code)
	})
}

func TestTipjar_API_Server_Donate(t *testing.T) {
	t.Parallel()

	t.Run("native donation splits fee and records", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		streamer := f.registerStreamer(t)

		donor := solana.NewWallet()
		f.ledger.Airdrop(donor.PublicKey(), 5_000_000)

		amount := uint64(2_000_000)
		canonical := fmt.Sprintf("tipjar:donate|%s|%d|%s", streamer.PublicKey(), amount, "great stream")
		signer, sig := sign(donor, canonical)
		rec := f.post(t, "/v1/donations", map[string]any{
			"signer":    signer,
			"signature": sig,
			"streamer":  streamer.PublicKey().String(),
			"amount":    amount,
			"message":   "great stream",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var donation struct {
			DonationID uint64 `json:"donation_id"`
			Donor      string `json:"donor"`
			Amount     uint64 `json:"amount"`
			Message    string `json:"message"`
			TokenMint  string `json:"token_mint"`
		}
		decodeBody(t, rec, &donation)
		require.Zero(t, donation.DonationID)
		require.Equal(t, donor.PublicKey().String(), donation.Donor)
		require.Equal(t, amount, donation.Amount)
		require.Equal(t, "great stream", donation.Message)
		require.Empty(t, donation.TokenMint)

		// 5% fee to the collector, remainder to the streamer.
		require.Equal(t, uint64(100_000), f.ledger.Balance(f.authority.PublicKey()))
		require.Equal(t, uint64(1_900_000), f.ledger.Balance(streamer.PublicKey()))
		require.Equal(t, uint64(3_000_000), f.ledger.Balance(donor.PublicKey()))

		rec = f.get(t, "/v1/streamers/"+streamer.PublicKey().String()+"/donations/0")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("amount must be signed over", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		streamer := f.registerStreamer(t)

		donor := solana.NewWallet()
		f.ledger.Airdrop(donor.PublicKey(), 5_000_000)

		canonical := fmt.Sprintf("tipjar:donate|%s|%d|%s", streamer.PublicKey(), 1_000_000, "")
		signer, sig := sign(donor, canonical)
		rec := f.post(t, "/v1/donations", map[string]any{
			"signer":    signer,
			"signature": sig,
			"streamer":  streamer.PublicKey().String(),
			"amount":    2_000_000, // differs from the signed amount
			"message":   "",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, uint64(5_000_000), f.ledger.Balance(donor.PublicKey()))
	})

	t.Run("below minimum rejected with program code", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		streamer := f.registerStreamer(t)

		donor := solana.NewWallet()
		f.ledger.Airdrop(donor.PublicKey(), 5_000_000)

		amount := state.MinDonationLamports - 1
		canonical := fmt.Sprintf("tipjar:donate|%s|%d|%s", streamer.PublicKey(), amount, "")
		signer, sig := sign(donor, canonical)
		rec := f.post(t, "/v1/donations", map[string]any{
			"signer":    signer,
			"signature": sig,
			"streamer":  streamer.PublicKey().String(),
			"amount":    amount,
			"message":   "",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp struct {
			Code *uint32 `json:"code"`
		}
		decodeBody(t, rec, &resp)
		require.NotNil(t, resp.Code)
	})

	t.Run("paused program conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		streamer := f.registerStreamer(t)

		signer, sig := sign(f.authority, "tipjar:pause")
		rec := f.post(t, "/v1/pause", map[string]any{"signer": signer, "signature": sig})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		donor := solana.NewWallet()
		f.ledger.Airdrop(donor.PublicKey(), 5_000_000)
		canonical := fmt.Sprintf("tipjar:donate|%s|%d|%s", streamer.PublicKey(), 1_000_000, "")
		dSigner, dSig := sign(donor, canonical)
		rec = f.post(t, "/v1/donations", map[string]any{
			"signer":    dSigner,
			"signature": dSig,
			"streamer":  streamer.PublicKey().String(),
			"amount":    1_000_000,
			"message":   "",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("pause requires authority", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)

		impostor := solana.NewWallet()
		signer, sig := sign(impostor, "tipjar:pause")
		rec := f.post(t, "/v1/pause", map[string]any{"signer": signer, "signature": sig})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("history unavailable without database", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.initialize(t)
		streamer := f.registerStreamer(t)

		rec := f.get(t, "/v1/streamers/"+streamer.PublicKey().String()+"/donations")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestTipjar_API_Server_DevFaucet(t *testing.T) {
	t.Parallel()

	t.Run("disabled by default", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		rec := f.post(t, "/v1/dev/airdrop", map[string]any{
			"address":  solana.NewWallet().PublicKey().String(),
			"lamports": 100,
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("token donation end to end", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		f.initialize(t)
		streamer := f.registerStreamer(t)
		donor := solana.NewWallet()

		// Mint setup through the faucet.
		mintAuthority := solana.NewWallet()
		rec := f.post(t, "/v1/dev/mints", map[string]any{
			"authority": mintAuthority.PublicKey().String(),
			"decimals":  6,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var mint struct {
			Mint string `json:"mint"`
		}
		decodeBody(t, rec, &mint)

		createTA := func(wallet solana.PublicKey) string {
			rec := f.post(t, "/v1/dev/token-accounts", map[string]any{
				"wallet": wallet.String(),
				"mint":   mint.Mint,
			})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var ta struct {
				Address string `json:"address"`
			}
			decodeBody(t, rec, &ta)
			return ta.Address
		}

		donorTA := createTA(donor.PublicKey())
		streamerTA := createTA(streamer.PublicKey())
		feeTA := createTA(f.authority.PublicKey())

		rec = f.post(t, "/v1/dev/mint-to", map[string]any{
			"mint":        mint.Mint,
			"destination": donorTA,
			"amount":      10_000_000,
			"authority":   mintAuthority.PublicKey().String(),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		amount := uint64(2_000_000)
		canonical := fmt.Sprintf("tipjar:donate_token|%s|%s|%d|%s", streamer.PublicKey(), mint.Mint, amount, "gg")
		signer, sig := sign(donor, canonical)
		rec = f.post(t, "/v1/donations/token", map[string]any{
			"signer":                      signer,
			"signature":                   sig,
			"streamer":                    streamer.PublicKey().String(),
			"amount":                      amount,
			"message":                     "gg",
			"mint":                        mint.Mint,
			"donor_token_account":         donorTA,
			"streamer_token_account":      streamerTA,
			"fee_collector_token_account": feeTA,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var donation struct {
			TokenMint string `json:"token_mint"`
		}
		decodeBody(t, rec, &donation)
		require.Equal(t, mint.Mint, donation.TokenMint)

		// Balances via the query surface.
		rec = f.get(t, "/v1/token-accounts/"+streamerTA)
		require.Equal(t, http.StatusOK, rec.Code)
		var ta struct {
			Balance uint64 `json:"balance"`
		}
		decodeBody(t, rec, &ta)
		require.Equal(t, uint64(1_900_000), ta.Balance)

		rec = f.get(t, "/v1/token-accounts/"+feeTA)
		require.Equal(t, http.StatusOK, rec.Code)
		decodeBody(t, rec, &ta)
		require.Equal(t, uint64(100_000), ta.Balance)
	})

	t.Run("airdrop and balance query", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		addr := solana.NewWallet().PublicKey()

		rec := f.post(t, "/v1/dev/airdrop", map[string]any{
			"address":  addr.String(),
			"lamports": 750,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.get(t, "/v1/balances/"+addr.String())
		require.Equal(t, http.StatusOK, rec.Code)
		var balance struct {
			Lamports uint64 `json:"lamports"`
		}
		decodeBody(t, rec, &balance)
		require.Equal(t, uint64(750), balance.Lamports)
	})
}

func TestTipjar_API_Server_RateLimit(t *testing.T) {
	t.Parallel()

	log := tiptesting.NewLogger()
	ledger, err := runtime.NewLedger(runtime.Config{
		Logger: log,
		Clock:  clockwork.NewFakeClock(),
	})
	require.NoError(t, err)
	program, err := prog.New(prog.Config{Logger: log, Ledger: ledger})
	require.NoError(t, err)

	srv, err := server.New(server.Config{
		ListenAddr:     "127.0.0.1:0",
		OperationRate:  1,
		OperationBurst: 2,
		HandlersConfig: handlers.Config{Logger: log, Program: program, Ledger: ledger},
	})
	require.NoError(t, err)

	// Burst allows the first two, then 429 with Retry-After.
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/v1/streamers", bytes.NewReader([]byte("{}")))
		req.RemoteAddr = "192.0.2.1:1234"
		last = httptest.NewRecorder()
		srv.Handler().ServeHTTP(last, req)
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)
	require.NotEmpty(t, last.Header().Get("Retry-After"))

	// A different IP is unaffected.
	req := httptest.NewRequest("POST", "/v1/streamers", bytes.NewReader([]byte("{}")))
	req.RemoteAddr = "192.0.2.2:1234"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}
