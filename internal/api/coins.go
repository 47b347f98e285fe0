package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"crypto-pos-gateway/internal/domain"
	"crypto-pos-gateway/internal/storage"
)

// coinResponse is the public view of a coin. Wallet addresses, explorer
// endpoints and API keys stay server-side.
type coinResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Network    string `json:"network"`
	Family     string `json:"family"`
	MethodCode string `json:"methodCode"`
	Decimals   int32  `json:"decimals"`
}

// adminCoinResponse is the full view returned on admin routes.
type adminCoinResponse struct {
	coinResponse
	Enabled         bool      `json:"enabled"`
	WalletAddress   string    `json:"walletAddress"`
	ExplorerURL     string    `json:"explorerUrl"`
	ContractAddress string    `json:"contractAddress,omitempty"`
	Confirmations   int       `json:"confirmations"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type coinRequest struct {
	ID              string `json:"id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Symbol          string `json:"symbol" validate:"required"`
	Enabled         bool   `json:"enabled"`
	Network         string `json:"network" validate:"required,oneof=mainnet testnet"`
	Family          string `json:"family" validate:"required,oneof=utxo token native"`
	WalletAddress   string `json:"walletAddress"`
	ExplorerURL     string `json:"explorerUrl" validate:"required,url"`
	ExplorerAPIKey  string `json:"explorerApiKey"`
	ContractAddress string `json:"contractAddress"`
	Decimals        int32  `json:"decimals" validate:"gte=0,lte=30"`
	Confirmations   int    `json:"confirmations" validate:"gte=0"`
	MethodCode      string `json:"methodCode" validate:"required"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func toCoinResponse(c *domain.Coin) coinResponse {
	return coinResponse{
		ID:         c.ID,
		Name:       c.Name,
		Symbol:     c.Symbol,
		Network:    c.Network,
		Family:     string(c.Family),
		MethodCode: c.MethodCode,
		Decimals:   c.Decimals,
	}
}

func toAdminCoinResponse(c *domain.Coin) adminCoinResponse {
	return adminCoinResponse{
		coinResponse:    toCoinResponse(c),
		Enabled:         c.Enabled,
		WalletAddress:   c.WalletAddress,
		ExplorerURL:     c.ExplorerURL,
		ContractAddress: c.ContractAddress,
		Confirmations:   c.Confirmations,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (req *coinRequest) toDomain(now time.Time) *domain.Coin {
	return &domain.Coin{
		ID:              req.ID,
		Name:            req.Name,
		Symbol:          req.Symbol,
		Enabled:         req.Enabled,
		Network:         req.Network,
		Family:          domain.ChainFamily(req.Family),
		WalletAddress:   req.WalletAddress,
		ExplorerURL:     req.ExplorerURL,
		ExplorerAPIKey:  req.ExplorerAPIKey,
		ContractAddress: req.ContractAddress,
		Decimals:        req.Decimals,
		Confirmations:   req.Confirmations,
		MethodCode:      req.MethodCode,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Server) handleListCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := s.coins.ListEnabled(r.Context())
	if err != nil {
		s.logger.Error("list enabled coins", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]coinResponse, 0, len(coins))
	for _, c := range coins {
		out = append(out, toCoinResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleAdminListCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := s.coins.List(r.Context())
	if err != nil {
		s.logger.Error("list coins", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]adminCoinResponse, 0, len(coins))
	for _, c := range coins {
		out = append(out, toAdminCoinResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdminCreateCoin(w http.ResponseWriter, r *http.Request) {
	var req coinRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	coin := req.toDomain(time.Now().UTC())
	if err := s.coins.Insert(r.Context(), coin); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			respondError(w, http.StatusConflict, "coin already exists")
		case errors.Is(err, storage.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, "invalid coin configuration")
		default:
			s.logger.Error("create coin", zap.String("coin_id", req.ID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	respondJSON(w, http.StatusCreated, toAdminCoinResponse(coin))
}

func (s *Server) handleAdminUpdateCoin(w http.ResponseWriter, r *http.Request) {
	coinID := chi.URLParam(r, "coinID")

	var req coinRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID != coinID {
		respondError(w, http.StatusBadRequest, "coin id in body does not match path")
		return
	}

	existing, err := s.coins.GetByID(r.Context(), coinID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "coin not found")
			return
		}
		s.logger.Error("load coin", zap.String("coin_id", coinID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	coin := req.toDomain(time.Now().UTC())
	coin.CreatedAt = existing.CreatedAt
	if err := s.coins.Update(r.Context(), coin); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respondError(w, http.StatusNotFound, "coin not found")
		case errors.Is(err, storage.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, "invalid coin configuration")
		default:
			s.logger.Error("update coin", zap.String("coin_id", coinID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	respondJSON(w, http.StatusOK, toAdminCoinResponse(coin))
}

func (s *Server) handleAdminSetEnabled(w http.ResponseWriter, r *http.Request) {
	coinID := chi.URLParam(r, "coinID")

	var req setEnabledRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.coins.SetEnabled(r.Context(), coinID, *req.Enabled); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "coin not found")
			return
		}
		s.logger.Error("set coin enabled", zap.String("coin_id", coinID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": coinID, "enabled": *req.Enabled})
}
