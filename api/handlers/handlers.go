// Package handlers implements the HTTP surface over the donation program:
// operation endpoints that verify wallet signatures before submitting to the
// program, and query endpoints over ledger records and the history store.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/solstream/tipjar/indexer/pkg/store"
	"github.com/solstream/tipjar/program/pkg/prog"
	"github.com/solstream/tipjar/program/pkg/runtime"
)

// Handlers carries the dependencies shared by all endpoint handlers.
type Handlers struct {
	log     *slog.Logger
	program *prog.Program
	ledger  *runtime.Ledger
	history *store.Store
	dev     bool
}

// Config configures Handlers.
type Config struct {
	Logger  *slog.Logger
	Program *prog.Program
	Ledger  *runtime.Ledger
	// History is optional; endpoints backed by it return 503 when absent.
	History *store.Store
	// Dev enables the faucet endpoints. Never enable in production.
	Dev bool
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Program == nil {
		return errors.New("program is required")
	}
	if cfg.Ledger == nil {
		return errors.New("ledger is required")
	}
	return nil
}

// New creates Handlers.
func New(cfg Config) (*Handlers, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handlers{
		log:     cfg.Logger,
		program: cfg.Program,
		ledger:  cfg.Ledger,
		history: cfg.History,
		dev:     cfg.Dev,
	}, nil
}

type errorResponse struct {
	Error string     `json:"error"`
	Code  *prog.Code `json:"code,omitempty"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("handlers: failed to write response", "error", err)
	}
}

// writeError maps program and runtime failures to HTTP statuses and a
// structured body carrying the program error code when one exists.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}

	var progErr *prog.Error
	if errors.As(err, &progErr) {
		resp.Code = &progErr.Code
		switch progErr {
		case prog.ErrUnauthorized:
			h.writeJSON(w, http.StatusForbidden, resp)
		case prog.ErrPaused, prog.ErrNotPaused:
			h.writeJSON(w, http.StatusConflict, resp)
		default:
			h.writeJSON(w, http.StatusBadRequest, resp)
		}
		return
	}

	switch {
	case errors.Is(err, runtime.ErrAccountExists):
		h.writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, runtime.ErrAccountNotFound), errors.Is(err, store.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, runtime.ErrMissingSignature):
		h.writeJSON(w, http.StatusUnauthorized, resp)
	case errors.Is(err, runtime.ErrInsufficientFunds),
		errors.Is(err, runtime.ErrMintMismatch),
		errors.Is(err, runtime.ErrOwnerMismatch),
		errors.Is(err, runtime.ErrUnknownMint):
		h.writeJSON(w, http.StatusBadRequest, resp)
	default:
		h.log.Error("handlers: internal error", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
