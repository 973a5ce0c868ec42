package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/ledgerkit/walletcore/internal/usecase"
	"github.com/ledgerkit/walletcore/internal/validation"
	"github.com/shopspring/decimal"
)

// OperationHandler exposes the mutating ledger operations: deposits,
// withdrawals, and transfers. All of them return 202: the row is PENDING
// until the settlement worker commits the balance mutation.
type OperationHandler struct {
	deposit    *usecase.CreateDepositUseCase
	withdrawal *usecase.CreateWithdrawalUseCase
	transfer   *usecase.CreateTransferUseCase
	lookup     *usecase.GetTransactionUseCase
}

func NewOperationHandler(
	deposit *usecase.CreateDepositUseCase,
	withdrawal *usecase.CreateWithdrawalUseCase,
	transfer *usecase.CreateTransferUseCase,
	lookup *usecase.GetTransactionUseCase,
) *OperationHandler {
	return &OperationHandler{
		deposit:    deposit,
		withdrawal: withdrawal,
		transfer:   transfer,
		lookup:     lookup,
	}
}

type OperationRequest struct {
	WalletID    string         `json:"wallet_id" validate:"required,uuid"`
	Amount      string         `json:"amount" validate:"required"`
	OperationID string         `json:"operation_id,omitempty" validate:"omitempty,uuid"`
	Description *string        `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type TransferRequest struct {
	SourceWalletID      string         `json:"source_wallet_id" validate:"required,uuid"`
	DestinationWalletID string         `json:"destination_wallet_id" validate:"required,uuid"`
	Amount              string         `json:"amount" validate:"required"`
	CorrelationID       string         `json:"correlation_id,omitempty" validate:"omitempty,uuid"`
	Description         *string        `json:"description,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

type TransactionResponse struct {
	ID                   string         `json:"id"`
	OperationID          string         `json:"operation_id"`
	CorrelationID        *string        `json:"correlation_id,omitempty"`
	WalletID             string         `json:"wallet_id"`
	CounterpartyWalletID *string        `json:"counterparty_wallet_id,omitempty"`
	Amount               string         `json:"amount"`
	Kind                 string         `json:"kind"`
	Status               string         `json:"status"`
	Description          *string        `json:"description,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func toTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                   t.ID,
		OperationID:          t.OperationID,
		CorrelationID:        t.CorrelationID,
		WalletID:             t.WalletID,
		CounterpartyWalletID: t.CounterpartyWalletID,
		Amount:               t.Amount.String(),
		Kind:                 string(t.Kind),
		Status:               string(t.Status),
		Description:          t.Description,
		Metadata:             t.Metadata,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

func parseAmount(w http.ResponseWriter, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "amount must be a decimal string")
		return decimal.Zero, false
	}
	return amount, true
}

func (h *OperationHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	h.createOperation(w, r, h.deposit.Execute)
}

func (h *OperationHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.createOperation(w, r, h.withdrawal.Execute)
}

func (h *OperationHandler) createOperation(
	w http.ResponseWriter,
	r *http.Request,
	execute func(ctx context.Context, input usecase.OperationInput) (*usecase.OperationOutput, error),
) {
	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	output, err := execute(r.Context(), usecase.OperationInput{
		WalletID:    req.WalletID,
		Amount:      amount,
		OperationID: req.OperationID,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	status := http.StatusAccepted
	if output.Replayed {
		w.Header().Set("X-Idempotent-Replay", "true")
		status = http.StatusOK
	}
	respondJSON(w, status, toTransactionResponse(output.Transaction))
}

func (h *OperationHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	output, err := h.transfer.Execute(r.Context(), usecase.TransferInput{
		SourceWalletID:      req.SourceWalletID,
		DestinationWalletID: req.DestinationWalletID,
		Amount:              amount,
		CorrelationID:       req.CorrelationID,
		Description:         req.Description,
		Metadata:            req.Metadata,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	rows := make([]TransactionResponse, 0, len(output.Transactions))
	for _, row := range output.Transactions {
		rows = append(rows, toTransactionResponse(row))
	}

	status := http.StatusAccepted
	if output.Replayed {
		w.Header().Set("X-Idempotent-Replay", "true")
		status = http.StatusOK
	}
	respondJSON(w, status, rows)
}

func (h *OperationHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	row, err := h.lookup.Execute(r.Context(), chi.URLParam(r, "operationID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(row))
}
