package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crypto-pos-gateway/internal/gateway"
)

type createPaymentRequest struct {
	Method string  `json:"method" validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type createPaymentResponse struct {
	PaymentID string `json:"paymentId"`
	Method    string `json:"method"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	QRData    string `json:"qrData"`
}

type paymentStatusResponse struct {
	PaymentID        string     `json:"paymentId"`
	Method           string     `json:"method"`
	Status           string     `json:"status"`
	Confirmed        bool       `json:"confirmed"`
	Amount           string     `json:"amount"`
	Address          string     `json:"address"`
	TxHash           string     `json:"txHash,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	ConfirmedAt      *time.Time `json:"confirmedAt,omitempty"`
	Remaining        string     `json:"remaining"`
	RemainingSeconds int        `json:"remainingSeconds"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.gateway.CreatePayment(r.Context(), req.Method, decimal.NewFromFloat(req.Amount))
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidMethod):
			respondError(w, http.StatusBadRequest, "unknown or disabled payment method")
		case errors.Is(err, gateway.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, gateway.ErrUnconfigured):
			respondError(w, http.StatusInternalServerError, "payment method is not configured")
		default:
			s.logger.Error("create payment", zap.String("method", req.Method), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, createPaymentResponse{
		PaymentID: result.PaymentID,
		Method:    result.MethodCode,
		Address:   result.Address,
		Amount:    result.Amount.String(),
		QRData:    result.QRPayload,
	})
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	result, err := s.gateway.CheckPayment(r.Context(), paymentID)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrPaymentNotFound):
			respondError(w, http.StatusNotFound, "payment not found")
		default:
			s.logger.Error("payment status", zap.String("payment_id", paymentID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, paymentStatusResponse{
		PaymentID:        result.PaymentID,
		Method:           result.MethodCode,
		Status:           string(result.Status),
		Confirmed:        result.Confirmed,
		Amount:           result.Amount.String(),
		Address:          result.Address,
		TxHash:           result.TxHash,
		CreatedAt:        result.CreatedAt,
		ConfirmedAt:      result.ConfirmedAt,
		Remaining:        result.Remaining(),
		RemainingSeconds: result.RemainingSeconds,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
