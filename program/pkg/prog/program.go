// Package prog implements the streamer donation program: a singleton
// configuration gating all activity, a registry of streamer records, and a
// donation processor that splits every donation between the streamer and the
// configured fee collector. Every operation runs as one atomic ledger
// transaction.
package prog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/solstream/tipjar/program/pkg/derive"
	"github.com/solstream/tipjar/program/pkg/runtime"
	"github.com/solstream/tipjar/program/pkg/state"
)

// DefaultProgramID is the deployed program identity used when a config does
// not override it.
var DefaultProgramID = solana.MustPublicKeyFromBase58("FMrnRTKyLZPFK5BgZB7aGA95RVa3pVyvCtbR8oMov2n9")

// Config configures a Program.
type Config struct {
	Logger    *slog.Logger
	Ledger    *runtime.Ledger
	ProgramID solana.PublicKey
	Events    Sink
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Ledger == nil {
		return errors.New("ledger is required")
	}
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = DefaultProgramID
	}
	if cfg.Events == nil {
		cfg.Events = NopSink{}
	}
	return nil
}

// Program executes donation operations against a host ledger.
type Program struct {
	log       *slog.Logger
	ledger    *runtime.Ledger
	programID solana.PublicKey
	events    Sink
}

// New creates a Program.
func New(cfg Config) (*Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Program{
		log:       cfg.Logger,
		ledger:    cfg.Ledger,
		programID: cfg.ProgramID,
		events:    cfg.Events,
	}, nil
}

// ID returns the program identity all record addresses derive from.
func (p *Program) ID() solana.PublicKey {
	return p.programID
}

// InitializeParams names the initializer for the singleton configuration.
// Signers is the set of identities whose signatures the host verified.
type InitializeParams struct {
	Authority solana.PublicKey
	Signers   []solana.PublicKey
}

// Initialize creates the configuration record with the initializer as both
// authority and fee collector, unpaused. Fails if already initialized.
func (p *Program) Initialize(ctx context.Context, params InitializeParams) (*state.Config, error) {
	addr, bump, err := derive.Config(p.programID)
	if err != nil {
		return nil, err
	}

	cfg := &state.Config{
		Authority:    params.Authority,
		FeeCollector: params.Authority,
		Paused:       false,
		Bump:         bump,
	}

	err = p.ledger.Execute(ctx, params.Signers, func(txn *runtime.Txn) error {
		if !txn.Signed(params.Authority) {
			return ErrUnauthorized
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		return txn.InitAccount(addr, p.programID, data)
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("program: initialized", "authority", params.Authority.String(), "config", addr.String())
	return cfg, nil
}

// RegisterStreamerParams names the wallet registering as a streamer.
type RegisterStreamerParams struct {
	Wallet  solana.PublicKey
	Signers []solana.PublicKey
}

// RegisterStreamer creates the streamer record for a wallet with a zero
// donation counter. Fails if the wallet is already registered.
func (p *Program) RegisterStreamer(ctx context.Context, params RegisterStreamerParams) (*state.Streamer, error) {
	addr, bump, err := derive.Streamer(p.programID, params.Wallet)
	if err != nil {
		return nil, err
	}

	rec := &state.Streamer{
		Wallet:        params.Wallet,
		DonationCount: 0,
		Bump:          bump,
	}

	var registeredAt int64
	err = p.ledger.Execute(ctx, params.Signers, func(txn *runtime.Txn) error {
		if !txn.Signed(params.Wallet) {
			return ErrUnauthorized
		}
		registeredAt = txn.UnixTime()
		data, err := rec.Marshal()
		if err != nil {
			return err
		}
		return txn.InitAccount(addr, p.programID, data)
	})
	if err != nil {
		return nil, err
	}

	p.events.Publish(ctx, StreamerRegistered{Streamer: params.Wallet, Timestamp: registeredAt})
	p.log.Info("program: streamer registered", "wallet", params.Wallet.String(), "streamer", addr.String())
	return rec, nil
}

// PauseParams names the caller of a pause/unpause transition.
type PauseParams struct {
	Authority solana.PublicKey
	Signers   []solana.PublicKey
}

// Pause transitions the configuration from active to paused. Only the
// configured authority may pause; pausing an already-paused program fails.
func (p *Program) Pause(ctx context.Context, params PauseParams) error {
	err := p.ledger.Execute(ctx, params.Signers, func(txn *runtime.Txn) error {
		addr, cfg, err := p.loadConfig(txn)
		if err != nil {
			return err
		}
		if !cfg.Authority.Equals(params.Authority) || !txn.Signed(params.Authority) {
			return ErrUnauthorized
		}
		if cfg.Paused {
			return ErrPaused
		}
		cfg.Paused = true
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		return txn.SetAccountData(addr, data)
	})
	if err != nil {
		return err
	}

	p.log.Info("program: paused", "authority", params.Authority.String())
	return nil
}

// Unpause transitions the configuration from paused back to active,
// symmetric to Pause.
func (p *Program) Unpause(ctx context.Context, params PauseParams) error {
	err := p.ledger.Execute(ctx, params.Signers, func(txn *runtime.Txn) error {
		addr, cfg, err := p.loadConfig(txn)
		if err != nil {
			return err
		}
		if !cfg.Authority.Equals(params.Authority) || !txn.Signed(params.Authority) {
			return ErrUnauthorized
		}
		if !cfg.Paused {
			return ErrNotPaused
		}
		cfg.Paused = false
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		return txn.SetAccountData(addr, data)
	})
	if err != nil {
		return err
	}

	p.log.Info("program: unpaused", "authority", params.Authority.String())
	return nil
}

// GetConfig reads the committed configuration record.
func (p *Program) GetConfig() (*state.Config, error) {
	addr, _, err := derive.Config(p.programID)
	if err != nil {
		return nil, err
	}
	acc, ok := p.ledger.Account(addr)
	if !ok {
		return nil, fmt.Errorf("failed to read config: %w", runtime.ErrAccountNotFound)
	}
	var cfg state.Config
	if err := cfg.Unmarshal(acc.Data); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetStreamer reads the committed streamer record for a wallet.
func (p *Program) GetStreamer(wallet solana.PublicKey) (*state.Streamer, error) {
	addr, _, err := derive.Streamer(p.programID, wallet)
	if err != nil {
		return nil, err
	}
	acc, ok := p.ledger.Account(addr)
	if !ok {
		return nil, fmt.Errorf("failed to read streamer %s: %w", wallet, runtime.ErrAccountNotFound)
	}
	var rec state.Streamer
	if err := rec.Unmarshal(acc.Data); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetDonation reads the committed donation record for a streamer wallet and
// sequence number.
func (p *Program) GetDonation(wallet solana.PublicKey, donationID uint64) (*state.Donation, error) {
	addr, _, err := derive.Donation(p.programID, wallet, donationID)
	if err != nil {
		return nil, err
	}
	acc, ok := p.ledger.Account(addr)
	if !ok {
		return nil, fmt.Errorf("failed to read donation %s/%d: %w", wallet, donationID, runtime.ErrAccountNotFound)
	}
	var rec state.Donation
	if err := rec.Unmarshal(acc.Data); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *Program) loadConfig(txn *runtime.Txn) (solana.PublicKey, *state.Config, error) {
	addr, _, err := derive.Config(p.programID)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	data, err := txn.AccountData(addr)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	var cfg state.Config
	if err := cfg.Unmarshal(data); err != nil {
		return solana.PublicKey{}, nil, err
	}
	return addr, &cfg, nil
}

func (p *Program) loadStreamer(txn *runtime.Txn, wallet solana.PublicKey) (solana.PublicKey, *state.Streamer, error) {
	addr, _, err := derive.Streamer(p.programID, wallet)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	data, err := txn.AccountData(addr)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("failed to load streamer %s: %w", wallet, err)
	}
	var rec state.Streamer
	if err := rec.Unmarshal(data); err != nil {
		return solana.PublicKey{}, nil, err
	}
	return addr, &rec, nil
}
