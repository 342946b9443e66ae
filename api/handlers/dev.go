package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
)

// Dev faucet endpoints back local development and integration testing. They
// mutate the ledger directly, bypassing the program, and are only mounted
// when the dev flag is set.

type airdropRequest struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
}

// Airdrop credits lamports to an address, creating it if needed.
func (h *Handlers) Airdrop(w http.ResponseWriter, r *http.Request) {
	var req airdropRequest
	if !h.decode(w, r, &req) {
		return
	}

	addr, err := solana.PublicKeyFromBase58(req.Address)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid address"})
		return
	}

	h.ledger.Airdrop(addr, req.Lamports)
	h.writeJSON(w, http.StatusOK, balanceResponse{
		Address:  addr.String(),
		Lamports: h.ledger.Balance(addr),
	})
}

type createMintRequest struct {
	Authority string `json:"authority"`
	Decimals  uint8  `json:"decimals"`
}

type mintResponse struct {
	Mint      string `json:"mint"`
	Authority string `json:"authority"`
	Decimals  uint8  `json:"decimals"`
}

// CreateMint registers a new mint under the given authority.
func (h *Handlers) CreateMint(w http.ResponseWriter, r *http.Request) {
	var req createMintRequest
	if !h.decode(w, r, &req) {
		return
	}

	authority, err := solana.PublicKeyFromBase58(req.Authority)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid authority"})
		return
	}

	mint := h.ledger.CreateMint(authority, req.Decimals)
	h.writeJSON(w, http.StatusCreated, mintResponse{
		Mint:      mint.String(),
		Authority: authority.String(),
		Decimals:  req.Decimals,
	})
}

type createTokenAccountRequest struct {
	Wallet string `json:"wallet"`
	Mint   string `json:"mint"`
}

// CreateTokenAccount creates an empty token account for a wallet and mint.
func (h *Handlers) CreateTokenAccount(w http.ResponseWriter, r *http.Request) {
	var req createTokenAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	wallet, err := solana.PublicKeyFromBase58(req.Wallet)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid wallet"})
		return
	}
	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint"})
		return
	}

	addr, err := h.ledger.CreateTokenAccount(wallet, mint)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, tokenAccountResponse{
		Address: addr.String(),
		Wallet:  wallet.String(),
		Mint:    mint.String(),
	})
}

type mintToRequest struct {
	Mint        string `json:"mint"`
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
	Authority   string `json:"authority"`
}

// MintTo issues tokens into a token account. Dev only, so the authority is
// taken at its word rather than signature-verified.
func (h *Handlers) MintTo(w http.ResponseWriter, r *http.Request) {
	var req mintToRequest
	if !h.decode(w, r, &req) {
		return
	}

	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint"})
		return
	}
	dest, err := solana.PublicKeyFromBase58(req.Destination)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid destination"})
		return
	}
	authority, err := solana.PublicKeyFromBase58(req.Authority)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid authority"})
		return
	}

	if err := h.ledger.MintTo(mint, dest, req.Amount, authority); err != nil {
		h.writeError(w, err)
		return
	}

	ta, _ := h.ledger.TokenAccountInfo(dest)
	h.writeJSON(w, http.StatusOK, tokenAccountResponse{
		Address: dest.String(),
		Wallet:  ta.Wallet.String(),
		Mint:    ta.Mint.String(),
		Balance: ta.Balance,
	})
}
