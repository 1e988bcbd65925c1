package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is wrapped by every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Limits bounds the neighbor count of a request.
type Limits struct {
	DefaultNeighbors int
	MaxNeighbors     int
}

// SynonymsRequest asks for the nearest neighbors of Word in each period.
type SynonymsRequest struct {
	Word      string   `json:"word"`
	Periods   []string `json:"periods"`
	Neighbors int      `json:"n,omitempty"`
}

// Validate checks the request and applies the default neighbor count.
func (r *SynonymsRequest) Validate(l Limits) error {
	r.Word = strings.TrimSpace(r.Word)
	if r.Word == "" {
		return fmt.Errorf("word cannot be empty: %w", ErrInvalidRequest)
	}
	if err := validPeriods(r.Periods, 1); err != nil {
		return err
	}
	return normalizeNeighbors(&r.Neighbors, l)
}

// SimilarityRequest asks for the similarity of two words in each period.
type SimilarityRequest struct {
	WordA   string   `json:"word_a"`
	WordB   string   `json:"word_b"`
	Periods []string `json:"periods"`
}

// Validate checks the request.
func (r *SimilarityRequest) Validate() error {
	r.WordA = strings.TrimSpace(r.WordA)
	r.WordB = strings.TrimSpace(r.WordB)
	if r.WordA == "" || r.WordB == "" {
		return fmt.Errorf("word_a and word_b are required: %w", ErrInvalidRequest)
	}
	return validPeriods(r.Periods, 1)
}

// DriftRequest asks for the drift frame of Word over Periods, oldest first. The last
// period is the reference.
type DriftRequest struct {
	Word      string   `json:"word"`
	Periods   []string `json:"periods"`
	Neighbors int      `json:"n,omitempty"`
}

// Validate checks the request and applies the default neighbor count.
func (r *DriftRequest) Validate(l Limits) error {
	r.Word = strings.TrimSpace(r.Word)
	if r.Word == "" {
		return fmt.Errorf("word cannot be empty: %w", ErrInvalidRequest)
	}
	if err := validPeriods(r.Periods, 1); err != nil {
		return err
	}
	return normalizeNeighbors(&r.Neighbors, l)
}

func validPeriods(periods []string, minLen int) error {
	if len(periods) < minLen {
		return fmt.Errorf("at least %d period required: %w", minLen, ErrInvalidRequest)
	}
	seen := make(map[string]struct{}, len(periods))
	for _, p := range periods {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("empty period label: %w", ErrInvalidRequest)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("period %q listed twice: %w", p, ErrInvalidRequest)
		}
		seen[p] = struct{}{}
	}
	return nil
}

func normalizeNeighbors(n *int, l Limits) error {
	if *n < 0 {
		return fmt.Errorf("n must not be negative: %w", ErrInvalidRequest)
	}
	if *n == 0 {
		*n = l.DefaultNeighbors
	}
	if *n <= 0 {
		*n = 10
	}
	if l.MaxNeighbors > 0 && *n > l.MaxNeighbors {
		*n = l.MaxNeighbors
	}
	return nil
}
