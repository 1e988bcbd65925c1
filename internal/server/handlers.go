package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/diachron/internal/comparison"
	"github.com/hyperjump/diachron/internal/models"
	"github.com/hyperjump/diachron/internal/space"
	"github.com/hyperjump/diachron/internal/storage"
	"github.com/hyperjump/diachron/internal/vector"
	"go.uber.org/zap"
)

func (s *Server) handleSynonyms(w http.ResponseWriter, r *http.Request) {
	var req models.SynonymsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.limits); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("synonyms request", zap.String("word", req.Word), zap.Strings("periods", req.Periods), zap.Int("n", req.Neighbors))
	start := time.Now()
	results, err := s.engine.Synonyms(r.Context(), req.Word, req.Periods, req.Neighbors)
	if err != nil {
		s.fail(w, "synonyms", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.SynonymsResponse{
		Word:      req.Word,
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	var req models.SimilarityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	results, err := s.engine.SimilarityOverTime(r.Context(), req.WordA, req.WordB, req.Periods)
	if err != nil {
		s.fail(w, "similarity", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.SimilarityResponse{
		WordA:     req.WordA,
		WordB:     req.WordB,
		Results:   results,
		QueryTime: time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	var req models.DriftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.limits); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("drift request", zap.String("word", req.Word), zap.Strings("periods", req.Periods), zap.Int("n", req.Neighbors))

	stored, err := s.engine.RecordContextShift(r.Context(), req.Word, req.Periods, req.Neighbors)
	if errors.Is(err, comparison.ErrNoStore) {
		frame, ferr := s.engine.ContextShift(r.Context(), req.Word, req.Periods, req.Neighbors)
		if ferr != nil {
			s.fail(w, "drift", ferr)
			return
		}
		s.respondJSON(w, http.StatusOK, &storage.StoredFrame{
			Baseword:  req.Word,
			Periods:   req.Periods,
			Neighbors: req.Neighbors,
			Frame:     frame,
			CreatedAt: time.Now().UTC(),
		})
		return
	}
	if err != nil {
		s.fail(w, "drift", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleGetDrift(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stored, err := s.engine.Frame(r.Context(), id)
	if err != nil {
		s.fail(w, "get drift", err)
		return
	}
	s.respondJSON(w, http.StatusOK, stored)
}

func (s *Server) handleListDrift(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	frames, err := s.engine.Frames(r.Context(), offset, min(limit, 100))
	if err != nil {
		s.fail(w, "list drift", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"frames": frames})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.engine.Periods()
	if err != nil {
		s.fail(w, "periods", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"periods": periods})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Status(r.Context())
	if err != nil {
		s.fail(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps an engine error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, space.ErrWordNotFound), errors.Is(err, space.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidRequest), errors.Is(err, vector.ErrInvalidN):
		return http.StatusBadRequest
	case errors.Is(err, space.ErrIncompatible),
		errors.Is(err, space.ErrAlignment),
		errors.Is(err, space.ErrNoData),
		errors.Is(err, space.ErrInsufficientData),
		errors.Is(err, space.ErrDegenerateVector):
		return http.StatusUnprocessableEntity
	case errors.Is(err, comparison.ErrNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	var wnf *space.WordNotFoundError
	if errors.As(err, &wnf) {
		s.respondJSON(w, status, map[string]interface{}{
			"error":       err.Error(),
			"word":        wnf.Word,
			"period":      wnf.SpaceID,
			"suggestions": wnf.Suggestions,
		})
		return
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
