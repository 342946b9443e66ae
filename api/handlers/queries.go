package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
)

type balanceResponse struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
}

type tokenAccountResponse struct {
	Address string `json:"address"`
	Wallet  string `json:"wallet"`
	Mint    string `json:"mint"`
	Balance uint64 `json:"balance"`
}

// GetBalance returns an address's native balance. Unknown addresses report
// zero rather than an error, matching ledger semantics.
func (h *Handlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := solana.PublicKeyFromBase58(chi.URLParam(r, "address"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid address"})
		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		Address:  addr.String(),
		Lamports: h.ledger.Balance(addr),
	})
}

// GetTokenAccount returns a token account's wallet, mint and balance.
func (h *Handlers) GetTokenAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := solana.PublicKeyFromBase58(chi.URLParam(r, "address"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid address"})
		return
	}

	ta, ok := h.ledger.TokenAccountInfo(addr)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "token account not found"})
		return
	}

	h.writeJSON(w, http.StatusOK, tokenAccountResponse{
		Address: addr.String(),
		Wallet:  ta.Wallet.String(),
		Mint:    ta.Mint.String(),
		Balance: ta.Balance,
	})
}
