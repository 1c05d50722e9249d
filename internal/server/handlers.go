package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/termquery/internal/dictionary"
	"github.com/hyperjump/termquery/internal/metrics"
	"github.com/hyperjump/termquery/internal/query"
)

// DateRangeRequest is the body of POST /api/v1/query/date-range.
// Property is a short (cm:created) or full ({uri}created) name; From and To are optional.
type DateRangeRequest struct {
	Property string `json:"property"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// DateRangeResponse carries the generated fragment.
type DateRangeResponse struct {
	Property string `json:"property"`
	Query    string `json:"query"`
}

// DocumentRequest is the body of POST /api/v1/documents.
type DocumentRequest struct {
	ID     string                 `json:"id,omitempty"`
	Fields map[string]interface{} `json:"fields"`
}

type propertyResponse struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Title    string `json:"title,omitempty"`
	Indexed  bool   `json:"indexed"`
}

func (s *Server) handleDateRange(w http.ResponseWriter, r *http.Request) {
	var req DateRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.OperationsTotal.WithLabelValues("date_range", metrics.StatusRejected).Inc()
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("date range request", zap.String("property", req.Property),
		zap.String("from", req.From), zap.String("to", req.To))

	var property dictionary.QName
	if req.Property != "" {
		var err error
		property, err = dictionary.ResolveQName(req.Property, s.dict)
		if err != nil {
			metrics.OperationsTotal.WithLabelValues("date_range", metrics.StatusRejected).Inc()
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	from, err := query.ParseDate(req.From)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues("date_range", metrics.StatusRejected).Inc()
		s.respondError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := query.ParseDate(req.To)
	if err != nil {
		metrics.OperationsTotal.WithLabelValues("date_range", metrics.StatusRejected).Inc()
		s.respondError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}

	fragment, err := query.DateRangeQuery(from, to, property, s.dict, s.dict)
	if err != nil {
		s.logger.Debug("date range query rejected", zap.String("property", req.Property), zap.Error(err))
		status := statusForQueryError(err)
		metrics.OperationsTotal.WithLabelValues("date_range", outcome(status)).Inc()
		s.respondError(w, status, err.Error())
		return
	}
	metrics.OperationsTotal.WithLabelValues("date_range", metrics.StatusOK).Inc()
	s.respondJSON(w, http.StatusOK, DateRangeResponse{Property: req.Property, Query: fragment})
}

func outcome(status int) string {
	if status >= http.StatusInternalServerError {
		return metrics.StatusError
	}
	return metrics.StatusRejected
}

func statusForQueryError(err error) int {
	switch {
	case errors.Is(err, query.ErrUnknownProperty):
		return http.StatusNotFound
	case errors.Is(err, query.ErrMissingProperty),
		errors.Is(err, query.ErrIllegalPropertyType),
		errors.Is(err, dictionary.ErrNamespacePrefixNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleFieldExists(w http.ResponseWriter, r *http.Request) {
	field, err := url.PathUnescape(chi.URLParam(r, "field"))
	if err != nil || field == "" {
		s.respondError(w, http.StatusBadRequest, "invalid field")
		return
	}
	exists, err := s.index.HasField(field)
	if err != nil {
		s.logger.Error("field lookup failed", zap.String("field", field), zap.Error(err))
		metrics.OperationsTotal.WithLabelValues("field_exists", metrics.StatusError).Inc()
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.OperationsTotal.WithLabelValues("field_exists", metrics.StatusOK).Inc()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"field": field, "exists": exists})
}

func (s *Server) handleFieldTerms(w http.ResponseWriter, r *http.Request) {
	field, err := url.PathUnescape(chi.URLParam(r, "field"))
	if err != nil || field == "" {
		s.respondError(w, http.StatusBadRequest, "invalid field")
		return
	}
	terms, err := s.index.FieldTerms(field)
	if err != nil {
		s.logger.Error("field terms lookup failed", zap.String("field", field), zap.Error(err))
		metrics.OperationsTotal.WithLabelValues("field_terms", metrics.StatusError).Inc()
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.OperationsTotal.WithLabelValues("field_terms", metrics.StatusOK).Inc()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"field": field, "terms": terms, "count": len(terms)})
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	defs := s.dict.Properties()
	out := make([]propertyResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, propertyResponse{
			Name:     shortOrFull(def.Name, s.dict),
			DataType: shortOrFull(def.DataType, s.dict),
			Title:    def.Title,
			Indexed:  def.Indexed,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"properties": out})
}

func shortOrFull(q dictionary.QName, ns dictionary.NamespaceService) string {
	if short, err := q.PrefixString(ns); err == nil {
		return short
	}
	return q.String()
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Fields) == 0 {
		s.respondError(w, http.StatusBadRequest, "document has no fields")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	s.logger.Debug("index document request", zap.String("id", req.ID), zap.Int("fields", len(req.Fields)))
	if err := s.index.Index(r.Context(), req.ID, req.Fields); err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		metrics.OperationsTotal.WithLabelValues("index", metrics.StatusError).Inc()
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.OperationsTotal.WithLabelValues("index", metrics.StatusOK).Inc()
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "status": "indexed"})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "missing document id")
		return
	}
	if err := s.index.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		metrics.OperationsTotal.WithLabelValues("delete", metrics.StatusError).Inc()
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.OperationsTotal.WithLabelValues("delete", metrics.StatusOK).Inc()
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docCount, err := s.index.DocCount()
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":  docCount,
		"properties": len(s.dict.Properties()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
