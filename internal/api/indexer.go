package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	xerrors "Sentinel-X/internal/errors"
	"Sentinel-X/internal/indexer"
	"Sentinel-X/internal/llm"
)

type healthResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Version string        `json:"version"`
	Indexer healthIndexer `json:"indexer"`
	AIModel llm.ModelInfo `json:"ai_model"`
}

type healthIndexer struct {
	FeedsProcessed uint64  `json:"feeds_processed"`
	FeedsPerSecond float64 `json:"feeds_per_second"`
	ActiveFeeds    uint32  `json:"active_feeds"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m := s.state.Feeds.Metrics()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Message: "Sentinel-X API is running",
		Version: Version,
		Indexer: healthIndexer{
			FeedsProcessed: m.TotalFeedsProcessed,
			FeedsPerSecond: m.FeedsPerSecond,
			ActiveFeeds:    m.ActiveFeeds,
		},
		AIModel: s.state.Engine.ModelInfo(),
	})
}

func (s *Server) handleIndexerMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Feeds.Metrics())
}

func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	feeds := s.state.Feeds.Feeds(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"feeds": feeds,
		"count": len(feeds),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var feed indexer.DataFeed
	if err := decodeJSON(w, r, &feed, false); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := feed.Validate(); err != nil {
		s.writeFailure(w, r, xerrors.Wrap(xerrors.CodeInvalidArgument, err, err.Error()))
		return
	}
	if err := s.state.Feeds.Ingest(r.Context(), feed); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, statusResponse{
		Status:  "ingested",
		Message: "Data feed processed successfully",
	})
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	decisions := s.state.Decisions.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

func (s *Server) handleRecordDecision(w http.ResponseWriter, r *http.Request) {
	var decision indexer.AgentDecision
	if err := decodeJSON(w, r, &decision, false); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := decision.Validate(); err != nil {
		s.writeFailure(w, r, xerrors.Wrap(xerrors.CodeInvalidArgument, err, err.Error()))
		return
	}
	s.state.RecordDecision(r.Context(), decision)
	writeJSON(w, http.StatusCreated, statusResponse{
		Status:  "recorded",
		Message: "Agent decision recorded successfully",
	})
}

func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "feedID")
	feed, ok := s.state.Feeds.Get(id)
	if !ok {
		s.writeFailure(w, r, xerrors.New(xerrors.CodeNotFound, "feed 不存在: "+id))
		return
	}
	writeJSON(w, http.StatusOK, feed)
}
