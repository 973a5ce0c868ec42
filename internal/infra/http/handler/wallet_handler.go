package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/usecase"
	"github.com/ledgerkit/walletcore/internal/validation"
	"github.com/shopspring/decimal"
)

// WalletHandler exposes the wallet lifecycle and read surface over HTTP.
type WalletHandler struct {
	createWallet *usecase.CreateWalletUseCase
	getWallet    *usecase.GetWalletUseCase
	getBalance   *usecase.GetBalanceUseCase
	deactivate   *usecase.DeactivateWalletUseCase
	transactions *usecase.GetTransactionUseCase
}

func NewWalletHandler(
	createWallet *usecase.CreateWalletUseCase,
	getWallet *usecase.GetWalletUseCase,
	getBalance *usecase.GetBalanceUseCase,
	deactivate *usecase.DeactivateWalletUseCase,
	transactions *usecase.GetTransactionUseCase,
) *WalletHandler {
	return &WalletHandler{
		createWallet: createWallet,
		getWallet:    getWallet,
		getBalance:   getBalance,
		deactivate:   deactivate,
		transactions: transactions,
	}
}

type CreateWalletRequest struct {
	UserID         string `json:"user_id" validate:"required,uuid"`
	InitialBalance string `json:"initial_balance,omitempty"`
}

type WalletResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   string    `json:"balance"`
	IsActive  bool      `json:"is_active"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   w.Balance.String(),
		IsActive:  w.IsActive,
		Version:   w.Version,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	initial := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		initial, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			respondError(w, http.StatusBadRequest, "initial_balance must be a decimal string")
			return
		}
	}

	wallet, err := h.createWallet.Execute(r.Context(), usecase.CreateWalletInput{
		UserID:         req.UserID,
		InitialBalance: initial,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toWalletResponse(wallet))
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.getWallet.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func (h *WalletHandler) GetByUser(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.getWallet.ExecuteByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "id")
	balance, err := h.getBalance.Execute(r.Context(), walletID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"wallet_id": walletID,
		"balance":   balance.String(),
	})
}

func (h *WalletHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.deactivate.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	rows, err := h.transactions.ListByWallet(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out := make([]TransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTransactionResponse(row))
	}
	respondJSON(w, http.StatusOK, out)
}
