// Package derive computes the program-derived addresses for the donation
// program's records. All derivations are deterministic: any party holding the
// same inputs reproduces the same address and bump.
package derive

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed tags, one per record kind.
var (
	ConfigSeed   = []byte("config")
	StreamerSeed = []byte("streamer")
	DonationSeed = []byte("donation")
)

// Config derives the singleton configuration address.
func Config(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{ConfigSeed}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive config address: %w", err)
	}
	return addr, bump, nil
}

// Streamer derives the streamer record address for a wallet.
func Streamer(programID, wallet solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{StreamerSeed, wallet.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive streamer address for %s: %w", wallet, err)
	}
	return addr, bump, nil
}

// Donation derives the donation record address for a streamer wallet and a
// 0-based donation sequence number.
func Donation(programID, wallet solana.PublicKey, donationID uint64) (solana.PublicKey, uint8, error) {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], donationID)
	addr, bump, err := solana.FindProgramAddress([][]byte{DonationSeed, wallet.Bytes(), seq[:]}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive donation address for %s/%d: %w", wallet, donationID, err)
	}
	return addr, bump, nil
}
