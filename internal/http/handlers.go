package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shoptracker/internal/core"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.ledger.Items())
}

func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.ledger.Shops())
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, r, fmt.Errorf("%w: invalid limit %q", core.ErrValidation, v))
			return
		}
		limit = n
	}
	respondJSON(w, http.StatusOK, s.ledger.RecentTransactions(limit))
}

// purchaseRequest is the wire form of a purchase. The flat shape with
// denormalized item/shop fields matches what clients already send.
type purchaseRequest struct {
	Date         string  `json:"date"`
	ItemID       string  `json:"itemId,omitempty"`
	ItemName     string  `json:"itemName"`
	Category     string  `json:"category,omitempty"`
	ShopID       string  `json:"shopId,omitempty"`
	ShopName     string  `json:"shopName,omitempty"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Quantity     float64 `json:"quantity"`
	TotalCost    float64 `json:"totalCost,omitempty"`
	Unit         string  `json:"unit"`
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: malformed request body: %v", core.ErrValidation, err))
		return
	}

	date, err := parsePurchaseDate(req.Date)
	if err != nil {
		respondError(w, r, err)
		return
	}

	payload := core.PurchasePayload{
		Date: date,
		Item: core.ItemRef{
			ID:       strings.TrimSpace(req.ItemID),
			Name:     sanitizeInput(req.ItemName),
			Category: sanitizeInput(req.Category),
		},
		PricePerUnit: req.PricePerUnit,
		Quantity:     req.Quantity,
		TotalCost:    req.TotalCost,
		Unit:         sanitizeInput(req.Unit),
	}
	if req.ShopID != "" || strings.TrimSpace(req.ShopName) != "" {
		payload.Shop = &core.ShopRef{
			ID:   strings.TrimSpace(req.ShopID),
			Name: sanitizeInput(req.ShopName),
		}
	}

	txn, err := s.ledger.AddPurchase(r.Context(), payload)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.reportCache.Purge()
	respondJSON(w, http.StatusCreated, txn)
}

type itemHistoryResponse struct {
	ItemID             string             `json:"itemId"`
	Trend              core.Trend         `json:"trend"`
	PriceChangePercent int                `json:"priceChangePercent"`
	Transactions       []core.Transaction `json:"transactions"`
}

func (s *Server) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.ledger.Item(id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, itemHistoryResponse{
		ItemID:             id,
		Trend:              s.ledger.ItemTrend(id),
		PriceChangePercent: s.ledger.ItemPriceChange(id),
		Transactions:       s.ledger.ItemHistory(id),
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.reportCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteShop(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteShop(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	s.reportCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}
