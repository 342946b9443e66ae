package prog

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Event is a structured notification emitted after an operation commits.
type Event interface {
	Name() string
}

// DonationReceived is emitted once per successful donation and carries every
// field of the persisted donation record plus the computed fee.
type DonationReceived struct {
	DonationID uint64           `json:"donation_id"`
	Streamer   solana.PublicKey `json:"streamer"`
	Donor      solana.PublicKey `json:"donor"`
	Amount     uint64           `json:"amount"`
	Fee        uint64           `json:"fee"`
	Message    string           `json:"message"`
	Timestamp  int64            `json:"timestamp"`
	TokenMint  solana.PublicKey `json:"token_mint"`
}

func (DonationReceived) Name() string { return "donation_received" }

// StreamerRegistered is emitted once when a streamer wallet registers.
type StreamerRegistered struct {
	Streamer  solana.PublicKey `json:"streamer"`
	Timestamp int64            `json:"timestamp"`
}

func (StreamerRegistered) Name() string { return "streamer_registered" }

// Sink accepts events for off-chain observers. Fire-and-forget: the program
// never blocks on delivery and ignores sink failures.
type Sink interface {
	Publish(ctx context.Context, event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) {}
