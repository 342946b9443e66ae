package prog

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/solstream/tipjar/program/pkg/derive"
	"github.com/solstream/tipjar/program/pkg/runtime"
	"github.com/solstream/tipjar/program/pkg/state"
)

// DonateParams describes a native-asset donation.
type DonateParams struct {
	Donor          solana.PublicKey
	StreamerWallet solana.PublicKey
	Amount         uint64
	Message        string
	Signers        []solana.PublicKey
}

// DonateTokenParams describes a token donation. The three token accounts must
// all be bound to Mint; the streamer and fee-collector accounts receive the
// split.
type DonateTokenParams struct {
	Donor                    solana.PublicKey
	StreamerWallet           solana.PublicKey
	Mint                     solana.PublicKey
	DonorTokenAccount        solana.PublicKey
	StreamerTokenAccount     solana.PublicKey
	FeeCollectorTokenAccount solana.PublicKey
	Amount                   uint64
	Message                  string
	Signers                  []solana.PublicKey
}

// assetTransfer is the per-asset capability the shared donation pipeline is
// parameterized over: a minimum amount, the mint recorded on the donation,
// and the two transfer legs.
type assetTransfer struct {
	minimum     uint64
	mint        solana.PublicKey
	payFee      func(txn *runtime.Txn, feeCollector solana.PublicKey, amount uint64) error
	payStreamer func(txn *runtime.Txn, streamerWallet solana.PublicKey, amount uint64) error
}

// Donate processes a native-asset donation to a registered streamer.
func (p *Program) Donate(ctx context.Context, params DonateParams) (*state.Donation, error) {
	asset := assetTransfer{
		minimum: state.MinDonationLamports,
		mint:    state.NativeMint,
		payFee: func(txn *runtime.Txn, feeCollector solana.PublicKey, amount uint64) error {
			return txn.TransferLamports(params.Donor, feeCollector, amount)
		},
		payStreamer: func(txn *runtime.Txn, streamerWallet solana.PublicKey, amount uint64) error {
			return txn.TransferLamports(params.Donor, streamerWallet, amount)
		},
	}
	return p.processDonation(ctx, params.Donor, params.StreamerWallet, params.Amount, params.Message, params.Signers, asset)
}

// DonateWithToken processes a token donation to a registered streamer. The
// streamer and fee-collector token accounts must belong to the streamer
// wallet and the configured fee collector respectively.
func (p *Program) DonateWithToken(ctx context.Context, params DonateTokenParams) (*state.Donation, error) {
	receivingAccount := func(txn *runtime.Txn, addr, wallet solana.PublicKey) error {
		ta, err := txn.TokenAccount(addr)
		if err != nil {
			return err
		}
		if !ta.Wallet.Equals(wallet) {
			return fmt.Errorf("token account %s does not belong to %s: %w", addr, wallet, runtime.ErrOwnerMismatch)
		}
		return nil
	}

	asset := assetTransfer{
		minimum: state.MinTokenDonation,
		mint:    params.Mint,
		payFee: func(txn *runtime.Txn, feeCollector solana.PublicKey, amount uint64) error {
			if err := receivingAccount(txn, params.FeeCollectorTokenAccount, feeCollector); err != nil {
				return err
			}
			return txn.TransferToken(params.DonorTokenAccount, params.FeeCollectorTokenAccount, params.Mint, params.Donor, amount)
		},
		payStreamer: func(txn *runtime.Txn, streamerWallet solana.PublicKey, amount uint64) error {
			if err := receivingAccount(txn, params.StreamerTokenAccount, streamerWallet); err != nil {
				return err
			}
			return txn.TransferToken(params.DonorTokenAccount, params.StreamerTokenAccount, params.Mint, params.Donor, amount)
		},
	}
	return p.processDonation(ctx, params.Donor, params.StreamerWallet, params.Amount, params.Message, params.Signers, asset)
}

// processDonation is the shared pipeline behind both donation entry points:
// gate on pause state, validate bounds, split the amount, run both transfer
// legs, bump the streamer counter, persist the donation record, and emit the
// event once everything committed.
func (p *Program) processDonation(
	ctx context.Context,
	donor, streamerWallet solana.PublicKey,
	amount uint64,
	message string,
	signers []solana.PublicKey,
	asset assetTransfer,
) (*state.Donation, error) {
	var rec *state.Donation
	var fee uint64

	err := p.ledger.Execute(ctx, signers, func(txn *runtime.Txn) error {
		_, cfg, err := p.loadConfig(txn)
		if err != nil {
			return err
		}
		if cfg.Paused {
			return ErrPaused
		}
		if !txn.Signed(donor) {
			return fmt.Errorf("failed to process donation: %w", runtime.ErrMissingSignature)
		}
		if amount < asset.minimum {
			return ErrBelowMinimumDonation
		}
		if utf8.RuneCountInString(message) > state.MaxMessageChars {
			return ErrMessageTooLong
		}

		var streamerAmount uint64
		fee, streamerAmount, err = feeSplit(amount, state.FeePercent)
		if err != nil {
			return err
		}

		if fee > 0 {
			if err := asset.payFee(txn, cfg.FeeCollector, fee); err != nil {
				return err
			}
		}
		if streamerAmount > 0 {
			if err := asset.payStreamer(txn, streamerWallet, streamerAmount); err != nil {
				return err
			}
		}

		strAddr, streamer, err := p.loadStreamer(txn, streamerWallet)
		if err != nil {
			return err
		}

		donationID := streamer.DonationCount
		streamer.DonationCount, err = checkedAdd(donationID, 1)
		if err != nil {
			return err
		}

		donAddr, donBump, err := derive.Donation(p.programID, streamerWallet, donationID)
		if err != nil {
			return err
		}

		rec = &state.Donation{
			Donor:      donor,
			Streamer:   streamerWallet,
			Amount:     amount,
			Message:    message,
			Timestamp:  txn.UnixTime(),
			DonationID: donationID,
			TokenMint:  asset.mint,
			Bump:       donBump,
		}
		recData, err := rec.Marshal()
		if err != nil {
			return err
		}
		if err := txn.InitAccount(donAddr, p.programID, recData); err != nil {
			return err
		}

		strData, err := streamer.Marshal()
		if err != nil {
			return err
		}
		return txn.SetAccountData(strAddr, strData)
	})
	if err != nil {
		return nil, err
	}

	p.events.Publish(ctx, DonationReceived{
		DonationID: rec.DonationID,
		Streamer:   rec.Streamer,
		Donor:      rec.Donor,
		Amount:     rec.Amount,
		Fee:        fee,
		Message:    rec.Message,
		Timestamp:  rec.Timestamp,
		TokenMint:  rec.TokenMint,
	})
	p.log.Info("program: donation received",
		"donor", rec.Donor.String(),
		"streamer", rec.Streamer.String(),
		"amount", rec.Amount,
		"fee", fee,
		"donation_id", rec.DonationID,
		"mint", rec.TokenMint.String(),
	)
	return rec, nil
}
