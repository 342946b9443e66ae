// Package state defines the fixed-layout records the donation program keeps
// in the ledger: the singleton Config, one Streamer per registered wallet,
// and one immutable Donation per completed donation.
package state

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// MinDonationLamports is the floor for native donations.
	MinDonationLamports uint64 = 1_000_000
	// MinTokenDonation is the floor for token donations, in base units of the
	// donated mint.
	MinTokenDonation uint64 = 1_000_000
	// FeePercent is the integer percentage of every donation routed to the
	// fee collector. Fixed at build time.
	FeePercent uint64 = 5
	// MaxMessageChars bounds the donation message, counted in characters.
	MaxMessageChars = 280
)

// NativeMint is the sentinel mint identity denoting the native asset on a
// donation record.
var NativeMint = solana.PublicKey{}

// Record discriminators, prefixed to every serialized record so a reader can
// tell record kinds apart without out-of-band context.
var (
	ConfigDiscriminator   = discriminator("Config")
	StreamerDiscriminator = discriminator("Streamer")
	DonationDiscriminator = discriminator("Donation")
)

func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// Config is the program's singleton configuration record.
type Config struct {
	Authority    solana.PublicKey
	FeeCollector solana.PublicKey
	Paused       bool
	Bump         uint8
}

// Streamer is the per-wallet registration record. DonationCount doubles as
// the sequence generator for donation record addresses.
type Streamer struct {
	Wallet        solana.PublicKey
	DonationCount uint64
	Bump          uint8
}

// Donation is an append-only record of one completed donation. Never mutated
// after creation.
type Donation struct {
	Donor      solana.PublicKey
	Streamer   solana.PublicKey
	Amount     uint64
	Message    string
	Timestamp  int64
	DonationID uint64
	TokenMint  solana.PublicKey
	Bump       uint8
}

// IsNative reports whether the donation was made in the native asset.
func (d *Donation) IsNative() bool {
	return d.TokenMint.Equals(NativeMint)
}

func marshal(disc [8]byte, v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshal(disc [8]byte, data []byte, v any) error {
	if len(data) < len(disc) || !bytes.Equal(data[:len(disc)], disc[:]) {
		return fmt.Errorf("record discriminator mismatch")
	}
	if err := bin.NewBorshDecoder(data[len(disc):]).Decode(v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

func (c *Config) Marshal() ([]byte, error) { return marshal(ConfigDiscriminator, c) }

func (c *Config) Unmarshal(data []byte) error { return unmarshal(ConfigDiscriminator, data, c) }

func (s *Streamer) Marshal() ([]byte, error) { return marshal(StreamerDiscriminator, s) }

func (s *Streamer) Unmarshal(data []byte) error { return unmarshal(StreamerDiscriminator, data, s) }

func (d *Donation) Marshal() ([]byte, error) { return marshal(DonationDiscriminator, d) }

func (d *Donation) Unmarshal(data []byte) error { return unmarshal(DonationDiscriminator, data, d) }
