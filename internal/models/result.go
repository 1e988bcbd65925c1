// Package models holds the request and response types shared by the CLI, the HTTP server
// and the comparison engine.
package models

import (
	"time"

	"github.com/hyperjump/diachron/internal/vector"
)

// PeriodNeighbors is the neighbor list of a word in one period.
type PeriodNeighbors struct {
	Period    string           `json:"period"`
	Word      string           `json:"word"`
	Neighbors vector.Neighbors `json:"neighbors"`
}

// PeriodSimilarity is the similarity of two words in one period.
type PeriodSimilarity struct {
	Period string  `json:"period"`
	WordA  string  `json:"word_a"`
	WordB  string  `json:"word_b"`
	Score  float64 `json:"score"`
}

// SynonymsResponse is the response for a synonyms request.
type SynonymsResponse struct {
	Word      string            `json:"word"`
	Results   []PeriodNeighbors `json:"results"`
	QueryTime int64             `json:"query_time_ms"`
}

// SimilarityResponse is the response for a similarity request.
type SimilarityResponse struct {
	WordA     string             `json:"word_a"`
	WordB     string             `json:"word_b"`
	Results   []PeriodSimilarity `json:"results"`
	QueryTime int64              `json:"query_time_ms"`
}

// PeriodInfo describes an available period model.
type PeriodInfo struct {
	Period    string `json:"period"`
	Path      string `json:"path"`
	Cached    bool   `json:"cached"`
	Words     int    `json:"words,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
}

// Status summarizes the models and the store.
type Status struct {
	ModelsDir        string    `json:"models_dir"`
	Periods          []string  `json:"periods"`
	CachedPeriods    []string  `json:"cached_periods"`
	ModelFiles       int       `json:"model_files"`
	DiskUsageBytes   int64     `json:"disk_usage_bytes"`
	StoredFrames     int64     `json:"stored_frames"`
	CachedTransforms int64     `json:"cached_transforms"`
	CheckedAt        time.Time `json:"checked_at"`
}
