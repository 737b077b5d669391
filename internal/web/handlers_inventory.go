package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/JonMunkholm/stockroom/internal/core"
)

// handleListCategories returns every category as a sanitized/original pair.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Categories(r.Context()))
}

// handleGetInventory returns a category as rows of strings, header first.
// Unknown categories yield an empty list, not an error.
func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	_, grid, ok := s.service.Grid(r.Context(), urlParam(r, "category"))
	if !ok {
		writeJSON(w, http.StatusOK, [][]string{})
		return
	}
	writeJSON(w, http.StatusOK, grid.Values())
}

// handleSale applies a sale of {item_id, quantity}.
func (s *Server) handleSale(w http.ResponseWriter, r *http.Request) {
	s.handleStockChange(w, r, s.service.ApplySale)
}

// handleRestock applies a restock of {item_id, quantity}.
func (s *Server) handleRestock(w http.ResponseWriter, r *http.Request) {
	s.handleStockChange(w, r, s.service.ApplyRestock)
}

type stockFunc func(ctx context.Context, category, itemID string, quantity int) core.Result

func (s *Server) handleStockChange(w http.ResponseWriter, r *http.Request, apply stockFunc) {
	req, err := decodeStock(w, r)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	itemID := strings.TrimSpace(string(req.ItemID))
	if itemID == "" {
		respondTxn(w, r, rejected(core.ErrItemNotFound))
		return
	}
	qty, err := core.ParseQuantity(string(req.Quantity))
	if err != nil {
		respondTxn(w, r, rejected(err))
		return
	}

	respondTxn(w, r, apply(withRequestMetadata(r), urlParam(r, "category"), itemID, qty))
}

// handleEntry adds, merges or overwrites one row.
func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEntry(w, r)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	if len(req.Values) == 0 {
		respondBadRequest(w, r, "values are required")
		return
	}
	idx, err := req.rowIndex()
	if err != nil {
		respondTxn(w, r, rejected(err))
		return
	}

	res := s.service.ApplyEntry(withRequestMetadata(r), core.EntryRequest{
		Category: urlParam(r, "category"),
		Header:   req.Header,
		Values:   req.Values,
		RowIndex: idx,
	})
	respondTxn(w, r, res)
}

// handleDeleteEntry removes the row with the given identifier.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	res := s.service.DeleteEntry(withRequestMetadata(r), urlParam(r, "category"), urlParam(r, "itemID"))
	respondTxn(w, r, res)
}

// handleDeleteAll clears every data row of a category.
func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	respondTxn(w, r, s.service.DeleteAll(withRequestMetadata(r), urlParam(r, "category")))
}

// handleDeleteCategory removes a category.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	respondTxn(w, r, s.service.DeleteCategory(withRequestMetadata(r), urlParam(r, "category")))
}
