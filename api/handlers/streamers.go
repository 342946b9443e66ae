package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/solstream/tipjar/api/metrics"
	"github.com/solstream/tipjar/program/pkg/prog"
	"github.com/solstream/tipjar/program/pkg/state"
)

type registerStreamerRequest struct {
	signedRequest
}

type streamerResponse struct {
	Wallet        string `json:"wallet"`
	DonationCount uint64 `json:"donation_count"`
}

// RegisterStreamer registers the signing wallet as a streamer.
func (h *Handlers) RegisterStreamer(w http.ResponseWriter, r *http.Request) {
	var req registerStreamerRequest
	if !h.decode(w, r, &req) {
		return
	}

	signer, ok := h.verifySigner(w, req.signedRequest, canonicalRegister())
	if !ok {
		return
	}

	streamer, err := h.program.RegisterStreamer(r.Context(), prog.RegisterStreamerParams{
		Wallet:  signer,
		Signers: []solana.PublicKey{signer},
	})
	if err != nil {
		metrics.RecordOperation("register_streamer", err)
		h.writeError(w, err)
		return
	}

	metrics.RecordOperation("register_streamer", nil)
	h.writeJSON(w, http.StatusCreated, streamerToResponse(streamer))
}

// GetStreamer returns a streamer's registration record.
func (h *Handlers) GetStreamer(w http.ResponseWriter, r *http.Request) {
	wallet, err := solana.PublicKeyFromBase58(chi.URLParam(r, "wallet"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid wallet public key"})
		return
	}

	streamer, err := h.program.GetStreamer(wallet)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, streamerToResponse(streamer))
}

func streamerToResponse(s *state.Streamer) streamerResponse {
	return streamerResponse{
		Wallet:        s.Wallet.String(),
		DonationCount: s.DonationCount,
	}
}
