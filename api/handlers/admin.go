package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/solstream/tipjar/api/metrics"
	"github.com/solstream/tipjar/program/pkg/prog"
	"github.com/solstream/tipjar/program/pkg/state"
)

type initializeRequest struct {
	signedRequest
}

type configResponse struct {
	Authority    string `json:"authority"`
	FeeCollector string `json:"fee_collector"`
	Paused       bool   `json:"paused"`
	FeePercent   uint64 `json:"fee_percent"`
}

// Initialize creates the program configuration. The signer becomes both
// authority and fee collector.
func (h *Handlers) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if !h.decode(w, r, &req) {
		return
	}

	signer, ok := h.verifySigner(w, req.signedRequest, canonicalInitialize())
	if !ok {
		return
	}

	cfg, err := h.program.Initialize(r.Context(), prog.InitializeParams{
		Authority: signer,
		Signers:   []solana.PublicKey{signer},
	})
	if err != nil {
		metrics.RecordOperation("initialize", err)
		h.writeError(w, err)
		return
	}

	metrics.RecordOperation("initialize", nil)
	h.writeJSON(w, http.StatusCreated, configToResponse(cfg))
}

type pauseRequest struct {
	signedRequest
}

// Pause halts donation processing. Authority only.
func (h *Handlers) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Unpause resumes donation processing. Authority only.
func (h *Handlers) Unpause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *Handlers) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	var req pauseRequest
	if !h.decode(w, r, &req) {
		return
	}

	canonical := canonicalUnpause()
	operation := "unpause"
	if paused {
		canonical = canonicalPause()
		operation = "pause"
	}

	signer, ok := h.verifySigner(w, req.signedRequest, canonical)
	if !ok {
		return
	}

	params := prog.PauseParams{
		Authority: signer,
		Signers:   []solana.PublicKey{signer},
	}

	var err error
	if paused {
		err = h.program.Pause(r.Context(), params)
	} else {
		err = h.program.Unpause(r.Context(), params)
	}
	if err != nil {
		metrics.RecordOperation(operation, err)
		h.writeError(w, err)
		return
	}

	metrics.RecordOperation(operation, nil)
	cfg, err := h.program.GetConfig()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, configToResponse(cfg))
}

// GetConfig returns the program configuration record.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.program.GetConfig()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, configToResponse(cfg))
}

func configToResponse(cfg *state.Config) configResponse {
	return configResponse{
		Authority:    cfg.Authority.String(),
		FeeCollector: cfg.FeeCollector.String(),
		Paused:       cfg.Paused,
		FeePercent:   state.FeePercent,
	}
}
