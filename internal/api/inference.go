package api

import (
	"net/http"

	"Sentinel-X/internal/llm"
)

type contractRequest struct {
	ContractAddress string `json:"contract_address"`
	FunctionName    string `json:"function_name,omitempty"`
}

type auditRequest struct {
	Code string `json:"code"`
}

type predictRequest struct {
	Asset string `json:"asset"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req llm.Request
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp, err := s.state.Query(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Engine.ModelInfo())
}

func (s *Server) handleAnalyzeContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp, err := s.state.AnalyzeContract(r.Context(), req.ContractAddress)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSecurityAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp, err := s.state.AuditCode(r.Context(), req.Code)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredictPrice(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp, err := s.state.PredictPrice(r.Context(), req.Asset)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExplainContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	explanation, err := s.state.ExplainContract(r.Context(), req.ContractAddress)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, explanation)
}
