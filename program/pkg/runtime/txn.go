package runtime

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Txn is one atomic unit of work against the ledger. All mutations are staged
// on copies and applied together at commit; a Txn whose function returns an
// error leaves the ledger untouched. Txns are not safe for concurrent use and
// must not outlive the Execute call that created them.
type Txn struct {
	ledger  *Ledger
	signers map[solana.PublicKey]struct{}

	accounts      map[solana.PublicKey]*Account
	tokenAccounts map[solana.PublicKey]*TokenAccount
	mints         map[solana.PublicKey]*Mint
}

// Signed reports whether pk signed the submission this transaction runs for.
func (t *Txn) Signed(pk solana.PublicKey) bool {
	_, ok := t.signers[pk]
	return ok
}

// UnixTime returns the host clock's current time as unix seconds.
func (t *Txn) UnixTime() int64 {
	return t.ledger.clock.Now().Unix()
}

// account stages the account at addr for this transaction, copying it from
// the committed ledger on first touch.
func (t *Txn) account(addr solana.PublicKey) (*Account, bool) {
	if acc, ok := t.accounts[addr]; ok {
		return acc, acc != nil
	}
	committed, ok := t.ledger.accounts[addr]
	if !ok {
		return nil, false
	}
	staged := committed.clone()
	t.accounts[addr] = &staged
	return &staged, true
}

// InitAccount creates a new record account at addr. Fails if the address
// already holds data, which is what makes record creation collision-safe.
func (t *Txn) InitAccount(addr, owner solana.PublicKey, data []byte) error {
	acc, ok := t.account(addr)
	if ok && (len(acc.Data) > 0 || !acc.Owner.IsZero()) {
		return fmt.Errorf("failed to init account %s: %w", addr, ErrAccountExists)
	}
	if !ok {
		acc = &Account{}
		t.accounts[addr] = acc
	}
	acc.Owner = owner
	acc.Data = append([]byte(nil), data...)
	return nil
}

// AccountData returns the data blob of the account at addr.
func (t *Txn) AccountData(addr solana.PublicKey) ([]byte, error) {
	acc, ok := t.account(addr)
	if !ok {
		return nil, fmt.Errorf("failed to read account %s: %w", addr, ErrAccountNotFound)
	}
	return acc.Data, nil
}

// SetAccountData replaces the data blob of the account at addr.
func (t *Txn) SetAccountData(addr solana.PublicKey, data []byte) error {
	acc, ok := t.account(addr)
	if !ok {
		return fmt.Errorf("failed to write account %s: %w", addr, ErrAccountNotFound)
	}
	acc.Data = append([]byte(nil), data...)
	return nil
}

// Lamports returns the native balance at addr. Nonexistent accounts have a
// zero balance.
func (t *Txn) Lamports(addr solana.PublicKey) uint64 {
	if acc, ok := t.account(addr); ok {
		return acc.Lamports
	}
	return 0
}

// TransferLamports moves amount of the native asset from one identity to
// another. The source must have signed the transaction and hold a sufficient
// balance. Transferring to a fresh address creates the recipient account.
func (t *Txn) TransferLamports(from, to solana.PublicKey, amount uint64) error {
	if !t.Signed(from) {
		return fmt.Errorf("failed to transfer from %s: %w", from, ErrMissingSignature)
	}
	src, ok := t.account(from)
	if !ok || src.Lamports < amount {
		return fmt.Errorf("failed to transfer %d lamports from %s: %w", amount, from, ErrInsufficientFunds)
	}
	dst, ok := t.account(to)
	if !ok {
		dst = &Account{}
		t.accounts[to] = dst
	}
	src.Lamports -= amount
	dst.Lamports += amount
	return nil
}

// tokenAccount stages the token account at addr, copying on first touch.
func (t *Txn) tokenAccount(addr solana.PublicKey) (*TokenAccount, bool) {
	if ta, ok := t.tokenAccounts[addr]; ok {
		return ta, true
	}
	committed, ok := t.ledger.tokenAccounts[addr]
	if !ok {
		return nil, false
	}
	staged := *committed
	t.tokenAccounts[addr] = &staged
	return &staged, true
}

// TokenAccount returns a copy of the token account at addr.
func (t *Txn) TokenAccount(addr solana.PublicKey) (TokenAccount, error) {
	ta, ok := t.tokenAccount(addr)
	if !ok {
		return TokenAccount{}, fmt.Errorf("failed to read token account %s: %w", addr, ErrAccountNotFound)
	}
	return *ta, nil
}

// TransferToken moves amount units of mint between two token accounts. Both
// accounts must be bound to the given mint, the authority must be the source
// account's wallet, and the authority must have signed.
func (t *Txn) TransferToken(from, to, mint, authority solana.PublicKey, amount uint64) error {
	if _, ok := t.ledger.mints[mint]; !ok {
		return fmt.Errorf("failed to transfer token: %w", ErrUnknownMint)
	}
	src, ok := t.tokenAccount(from)
	if !ok {
		return fmt.Errorf("failed to transfer token from %s: %w", from, ErrAccountNotFound)
	}
	dst, ok := t.tokenAccount(to)
	if !ok {
		return fmt.Errorf("failed to transfer token to %s: %w", to, ErrAccountNotFound)
	}
	if !src.Mint.Equals(mint) || !dst.Mint.Equals(mint) {
		return fmt.Errorf("failed to transfer token: %w", ErrMintMismatch)
	}
	if !src.Wallet.Equals(authority) || !t.Signed(authority) {
		return fmt.Errorf("failed to transfer token from %s: %w", from, ErrMissingSignature)
	}
	if src.Balance < amount {
		return fmt.Errorf("failed to transfer %d of %s from %s: %w", amount, mint, from, ErrInsufficientFunds)
	}
	src.Balance -= amount
	dst.Balance += amount
	return nil
}

// commit applies all staged mutations to the ledger. Called only by Execute,
// with the ledger lock held.
func (t *Txn) commit() {
	for addr, acc := range t.accounts {
		t.ledger.accounts[addr] = acc
	}
	for addr, ta := range t.tokenAccounts {
		t.ledger.tokenAccounts[addr] = ta
	}
	for addr, m := range t.mints {
		t.ledger.mints[addr] = m
	}
}
