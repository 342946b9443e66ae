package handlers

import (
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/solstream/tipjar/api/metrics"
	"github.com/solstream/tipjar/indexer/pkg/store"
	"github.com/solstream/tipjar/program/pkg/prog"
	"github.com/solstream/tipjar/program/pkg/state"
)

type donateRequest struct {
	signedRequest
	Streamer string `json:"streamer"`
	Amount   uint64 `json:"amount"`
	Message  string `json:"message"`
}

type donateTokenRequest struct {
	donateRequest
	Mint                     string `json:"mint"`
	DonorTokenAccount        string `json:"donor_token_account"`
	StreamerTokenAccount     string `json:"streamer_token_account"`
	FeeCollectorTokenAccount string `json:"fee_collector_token_account"`
}

type donationResponse struct {
	DonationID uint64 `json:"donation_id"`
	Donor      string `json:"donor"`
	Streamer   string `json:"streamer"`
	Amount     uint64 `json:"amount"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
	TokenMint  string `json:"token_mint,omitempty"`
}

// Donate processes a native-asset donation from the signing wallet.
func (h *Handlers) Donate(w http.ResponseWriter, r *http.Request) {
	var req donateRequest
	if !h.decode(w, r, &req) {
		return
	}

	streamer, err := solana.PublicKeyFromBase58(req.Streamer)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid streamer public key"})
		return
	}

	canonical := canonicalDonate(req.Streamer, req.Amount, req.Message)
	signer, ok := h.verifySigner(w, req.signedRequest, canonical)
	if !ok {
		return
	}

	donation, err := h.program.Donate(r.Context(), prog.DonateParams{
		Donor:          signer,
		StreamerWallet: streamer,
		Amount:         req.Amount,
		Message:        req.Message,
		Signers:        []solana.PublicKey{signer},
	})
	if err != nil {
		metrics.RecordOperation("donate", err)
		h.writeError(w, err)
		return
	}

	metrics.RecordOperation("donate", nil)
	metrics.DonationAmountTotal.WithLabelValues("native").Add(float64(donation.Amount))
	h.writeJSON(w, http.StatusCreated, donationToResponse(donation))
}

// DonateToken processes a token donation from the signing wallet.
func (h *Handlers) DonateToken(w http.ResponseWriter, r *http.Request) {
	var req donateTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	streamer, err := solana.PublicKeyFromBase58(req.Streamer)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid streamer public key"})
		return
	}
	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint public key"})
		return
	}
	donorTA, err := solana.PublicKeyFromBase58(req.DonorTokenAccount)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid donor token account"})
		return
	}
	streamerTA, err := solana.PublicKeyFromBase58(req.StreamerTokenAccount)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid streamer token account"})
		return
	}
	feeTA, err := solana.PublicKeyFromBase58(req.FeeCollectorTokenAccount)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fee collector token account"})
		return
	}

	canonical := canonicalDonateToken(req.Streamer, req.Mint, req.Amount, req.Message)
	signer, ok := h.verifySigner(w, req.signedRequest, canonical)
	if !ok {
		return
	}

	donation, err := h.program.DonateWithToken(r.Context(), prog.DonateTokenParams{
		Donor:                    signer,
		StreamerWallet:           streamer,
		Mint:                     mint,
		DonorTokenAccount:        donorTA,
		StreamerTokenAccount:     streamerTA,
		FeeCollectorTokenAccount: feeTA,
		Amount:                   req.Amount,
		Message:                  req.Message,
		Signers:                  []solana.PublicKey{signer},
	})
	if err != nil {
		metrics.RecordOperation("donate_token", err)
		h.writeError(w, err)
		return
	}

	metrics.RecordOperation("donate_token", nil)
	metrics.DonationAmountTotal.WithLabelValues("token").Add(float64(donation.Amount))
	h.writeJSON(w, http.StatusCreated, donationToResponse(donation))
}

// GetDonation returns one donation record from the ledger.
func (h *Handlers) GetDonation(w http.ResponseWriter, r *http.Request) {
	wallet, err := solana.PublicKeyFromBase58(chi.URLParam(r, "wallet"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid wallet public key"})
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid donation id"})
		return
	}

	donation, err := h.program.GetDonation(wallet, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, donationToResponse(donation))
}

// ListDonations returns a streamer's donation history, newest first. Backed
// by the history store.
func (h *Handlers) ListDonations(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "donation history is not available"})
		return
	}

	wallet, err := solana.PublicKeyFromBase58(chi.URLParam(r, "wallet"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid wallet public key"})
		return
	}

	limit, offset := parsePagination(r)

	rows, err := h.history.ListDonationsByStreamer(r.Context(), wallet.String(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	total, err := h.history.CountDonations(r.Context(), wallet.String())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, paginatedResponse[store.DonationRow]{
		Items:  rows,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func donationToResponse(d *state.Donation) donationResponse {
	resp := donationResponse{
		DonationID: d.DonationID,
		Donor:      d.Donor.String(),
		Streamer:   d.Streamer.String(),
		Amount:     d.Amount,
		Message:    d.Message,
		Timestamp:  d.Timestamp,
	}
	if !d.IsNative() {
		resp.TokenMint = d.TokenMint.String()
	}
	return resp
}
