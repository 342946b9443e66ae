// Package runtime models the host environment the donation program runs
// against: a keyed account ledger with all-or-nothing transactions, native
// and token balance transfers, signer verification, and a clock.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrAccountExists is returned when initializing an address that already
	// holds data.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is returned when reading or mutating an address that
	// holds no account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInsufficientFunds is returned when a transfer exceeds the source
	// balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrMintMismatch is returned when a token transfer references accounts
	// bound to a different mint.
	ErrMintMismatch = errors.New("token account mint mismatch")
	// ErrMissingSignature is returned when a transfer's authority has not
	// signed the transaction.
	ErrMissingSignature = errors.New("missing required signature")
	// ErrOwnerMismatch is returned when a token account is bound to a
	// different wallet than the operation requires.
	ErrOwnerMismatch = errors.New("token account owner mismatch")
	// ErrUnknownMint is returned when a token operation references a mint the
	// ledger does not know.
	ErrUnknownMint = errors.New("unknown mint")
)

// Account is a keyed ledger entry: a native balance plus an opaque data blob
// owned by a program.
type Account struct {
	Lamports uint64
	Owner    solana.PublicKey
	Data     []byte
}

// Mint describes a fungible token issuance.
type Mint struct {
	Authority solana.PublicKey
	Decimals  uint8
	Supply    uint64
}

// TokenAccount holds a balance of one specific mint on behalf of a wallet.
type TokenAccount struct {
	Wallet  solana.PublicKey
	Mint    solana.PublicKey
	Balance uint64
}

// Config configures a Ledger.
type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Clock == nil {
		return errors.New("clock is required")
	}
	return nil
}

// Ledger is an in-memory host ledger. A mutex serializes transactions, which
// gives every transaction exclusive access to the accounts it touches for its
// whole duration.
type Ledger struct {
	log   *slog.Logger
	clock clockwork.Clock

	mu            sync.RWMutex
	accounts      map[solana.PublicKey]*Account
	mints         map[solana.PublicKey]*Mint
	tokenAccounts map[solana.PublicKey]*TokenAccount
}

// NewLedger creates an empty ledger.
func NewLedger(cfg Config) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Ledger{
		log:           cfg.Logger,
		clock:         cfg.Clock,
		accounts:      make(map[solana.PublicKey]*Account),
		mints:         make(map[solana.PublicKey]*Mint),
		tokenAccounts: make(map[solana.PublicKey]*TokenAccount),
	}, nil
}

// Execute runs fn as one atomic transaction. Mutations fn makes through the
// Txn are staged and committed only if fn returns nil; on error nothing is
// visible to later transactions. The signer set is the set of identities
// whose signatures the host verified for this submission.
func (l *Ledger) Execute(ctx context.Context, signers []solana.PublicKey, fn func(*Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	txn := &Txn{
		ledger:        l,
		signers:       make(map[solana.PublicKey]struct{}, len(signers)),
		accounts:      make(map[solana.PublicKey]*Account),
		tokenAccounts: make(map[solana.PublicKey]*TokenAccount),
		mints:         make(map[solana.PublicKey]*Mint),
	}
	for _, s := range signers {
		txn.signers[s] = struct{}{}
	}

	if err := fn(txn); err != nil {
		return err
	}

	txn.commit()
	return nil
}

// Account returns a copy of the account at addr, if any.
func (l *Ledger) Account(addr solana.PublicKey) (Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[addr]
	if !ok {
		return Account{}, false
	}
	return acc.clone(), true
}

// Balance returns the native balance at addr. Nonexistent accounts have a
// zero balance.
func (l *Ledger) Balance(addr solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acc, ok := l.accounts[addr]; ok {
		return acc.Lamports
	}
	return 0
}

// TokenBalance returns the balance of the token account at addr.
func (l *Ledger) TokenBalance(addr solana.PublicKey) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ta, ok := l.tokenAccounts[addr]
	if !ok {
		return 0, fmt.Errorf("failed to read token account %s: %w", addr, ErrAccountNotFound)
	}
	return ta.Balance, nil
}

// TokenAccountInfo returns a copy of the token account at addr, if any.
func (l *Ledger) TokenAccountInfo(addr solana.PublicKey) (TokenAccount, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ta, ok := l.tokenAccounts[addr]
	if !ok {
		return TokenAccount{}, false
	}
	return *ta, true
}

// Airdrop credits lamports to addr, creating the account if needed. Dev and
// test surface; a production deployment funds accounts externally.
func (l *Ledger) Airdrop(addr solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[addr]
	if !ok {
		acc = &Account{}
		l.accounts[addr] = acc
	}
	acc.Lamports += lamports
	l.log.Debug("ledger: airdrop", "address", addr.String(), "lamports", lamports)
}

// CreateMint registers a new mint under the given authority and returns its
// address.
func (l *Ledger) CreateMint(authority solana.PublicKey, decimals uint8) solana.PublicKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	addr := solana.NewWallet().PublicKey()
	l.mints[addr] = &Mint{Authority: authority, Decimals: decimals}
	l.log.Debug("ledger: mint created", "mint", addr.String(), "decimals", decimals)
	return addr
}

// CreateTokenAccount creates an empty token account bound to mint on behalf
// of wallet and returns its address.
func (l *Ledger) CreateTokenAccount(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.mints[mint]; !ok {
		return solana.PublicKey{}, fmt.Errorf("failed to create token account: %w", ErrUnknownMint)
	}
	addr := solana.NewWallet().PublicKey()
	l.tokenAccounts[addr] = &TokenAccount{Wallet: wallet, Mint: mint}
	return addr, nil
}

// MintTo issues amount units of mint into the token account at dest. Only the
// mint authority may issue.
func (l *Ledger) MintTo(mint, dest solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.mints[mint]
	if !ok {
		return fmt.Errorf("failed to mint: %w", ErrUnknownMint)
	}
	if !m.Authority.Equals(authority) {
		return fmt.Errorf("failed to mint: %w", ErrMissingSignature)
	}
	ta, ok := l.tokenAccounts[dest]
	if !ok {
		return fmt.Errorf("failed to mint to %s: %w", dest, ErrAccountNotFound)
	}
	if !ta.Mint.Equals(mint) {
		return fmt.Errorf("failed to mint to %s: %w", dest, ErrMintMismatch)
	}
	ta.Balance += amount
	m.Supply += amount
	return nil
}

// Mint returns a copy of the mint at addr, if any.
func (l *Ledger) Mint(addr solana.PublicKey) (Mint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.mints[addr]
	if !ok {
		return Mint{}, false
	}
	return *m, true
}

// Now returns the ledger clock's current time as unix seconds.
func (l *Ledger) Now() int64 {
	return l.clock.Now().Unix()
}

func (a *Account) clone() Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return Account{Lamports: a.Lamports, Owner: a.Owner, Data: data}
}
