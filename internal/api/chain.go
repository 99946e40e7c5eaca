package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/web3"
)

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	offset, err := parseOffset(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	page := s.state.Chain.RecentBlocks(r.Context(), limit, offset)
	if page.Source == web3.SourceLive {
		writeJSON(w, http.StatusOK, map[string]any{
			"blocks":  page.Blocks,
			"source":  page.Source,
			"network": s.state.Chain.Network(),
			"count":   len(page.Blocks),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"blocks": page.Blocks,
		"source": page.Source,
		"total":  page.Total,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "number")
	number, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		s.writeFailure(w, r, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "无效的区块高度: "+raw))
		return
	}
	block, source := s.state.Chain.BlockDetail(r.Context(), number)
	body := map[string]any{"block": block, "source": source}
	if source == web3.SourceLive {
		body["network"] = s.state.Chain.Network()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	page := s.state.Chain.RecentTransactions(r.Context(), limit)
	if page.Source == web3.SourceLive {
		writeJSON(w, http.StatusOK, map[string]any{
			"transactions": page.Transactions,
			"source":       page.Source,
			"network":      s.state.Chain.Network(),
			"count":        len(page.Transactions),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": page.Transactions,
		"source":       page.Source,
		"total":        page.Total,
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, source, err := s.state.Chain.Transaction(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": tx,
		"source":      source,
		"network":     s.state.Chain.Network(),
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	balance, source, err := s.state.Chain.Balance(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": balance,
		"source":  source,
		"network": s.state.Chain.Network(),
	})
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Market.Quote(r.Context(), chi.URLParam(r, "asset")))
}
