package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/michaelbrown/ibrl/internal/llm"
	"github.com/michaelbrown/ibrl/internal/market"
	"github.com/michaelbrown/ibrl/internal/session"
	"github.com/michaelbrown/ibrl/internal/solana"
	"github.com/michaelbrown/ibrl/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeUpstreamError maps a collaborator failure to a status code. Details
// are logged, not returned.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := http.StatusBadGateway
	var httpErr *market.HTTPError
	switch {
	case errors.Is(err, solana.ErrInvalidAddress), errors.Is(err, market.ErrInvalidImageURL):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, market.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, market.ErrMissingAPIKey), errors.Is(err, session.ErrNoWallet):
		status = http.StatusServiceUnavailable
	case errors.As(err, &httpErr) && httpErr.Status == http.StatusBadRequest:
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	s.logger.Warn(msg, "path", r.URL.Path, "status", status, "error", err)
	writeError(w, status, msg)
}

// --- Catalog ---

type functionsResponse struct {
	Functions []llm.ToolDef `json:"functions"`
}

func (s *Server) handleListFunctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, functionsResponse{Functions: s.agent.Functions()})
}

// --- Market data ---

type priceResponse struct {
	USD       string `json:"usd"`
	Change24h string `json:"change_24h"`
	MarketCap string `json:"market_cap"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.session.CoinGecko.SolanaPrice(r.Context())
	if err != nil {
		s.writeUpstreamError(w, r, "failed to fetch SOL price", err)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{
		USD:       price.USD.StringFixed(2),
		Change24h: price.Change24h.StringFixed(2),
		MarketCap: price.MarketCap.StringFixed(0),
	})
}

type walletResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wal, err := s.session.AgentWallet()
	if err != nil {
		s.writeUpstreamError(w, r, "failed to fetch wallet info", err)
		return
	}
	bal, err := wal.Balance(r.Context())
	if err != nil {
		s.writeUpstreamError(w, r, "failed to fetch wallet info", err)
		return
	}
	sol, _ := bal.SOL.Float64()
	writeJSON(w, http.StatusOK, walletResponse{Address: wal.Address(), Balance: sol})
}

func (s *Server) handleLuloRates(w http.ResponseWriter, r *http.Request) {
	raw, err := s.session.Lulo.RawRates(r.Context())
	if err != nil {
		s.writeUpstreamError(w, r, "failed to fetch lending rates", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (s *Server) handleMintNFT(w http.ResponseWriter, r *http.Request) {
	var req market.NFTRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	result, err := s.session.Crossmint.MintNFT(r.Context(), req)
	if err != nil {
		s.writeUpstreamError(w, r, "failed to mint NFT", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Credential ---

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

type credentialStatus struct {
	Configured bool `json:"configured"`
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	_, err := s.credentials.Credential(r.Context(), storage.OpenAIKeyName)
	switch {
	case errors.Is(err, storage.ErrCredentialNotFound):
		writeJSON(w, http.StatusOK, credentialStatus{Configured: false})
	case err != nil:
		s.logger.Error("reading credential", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read credential")
	default:
		writeJSON(w, http.StatusOK, credentialStatus{Configured: true})
	}
}

func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	if err := s.validateKey(r.Context(), key); err != nil {
		s.logger.Info("rejected API key", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid API key")
		return
	}
	if err := s.credentials.SetCredential(r.Context(), storage.OpenAIKeyName, key); err != nil {
		s.logger.Error("storing credential", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}
	writeJSON(w, http.StatusOK, credentialStatus{Configured: true})
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.credentials.DeleteCredential(r.Context(), storage.OpenAIKeyName); err != nil {
		s.logger.Error("deleting credential", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete credential")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
