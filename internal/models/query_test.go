package models

import (
	"errors"
	"testing"
)

func TestSynonymsRequest_Validate(t *testing.T) {
	limits := Limits{DefaultNeighbors: 10, MaxNeighbors: 50}
	tests := []struct {
		name    string
		req     *SynonymsRequest
		wantErr bool
		wantN   int
	}{
		{"empty word", &SynonymsRequest{Word: " ", Periods: []string{"1990"}}, true, 0},
		{"no periods", &SynonymsRequest{Word: "haus"}, true, 0},
		{"duplicate period", &SynonymsRequest{Word: "haus", Periods: []string{"1990", "1990"}}, true, 0},
		{"negative n", &SynonymsRequest{Word: "haus", Periods: []string{"1990"}, Neighbors: -1}, true, 0},
		{"sets default n", &SynonymsRequest{Word: "haus", Periods: []string{"1990"}}, false, 10},
		{"caps n", &SynonymsRequest{Word: "haus", Periods: []string{"1990"}, Neighbors: 500}, false, 50},
		{"keeps n", &SynonymsRequest{Word: "haus", Periods: []string{"1990"}, Neighbors: 7}, false, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(limits)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("error should wrap ErrInvalidRequest: %v", err)
			}
			if !tt.wantErr && tt.req.Neighbors != tt.wantN {
				t.Errorf("n = %d, want %d", tt.req.Neighbors, tt.wantN)
			}
		})
	}
}

func TestSimilarityRequest_Validate(t *testing.T) {
	ok := &SimilarityRequest{WordA: " haus ", WordB: "wohnung", Periods: []string{"1990"}}
	if err := ok.Validate(); err != nil {
		t.Fatal(err)
	}
	if ok.WordA != "haus" {
		t.Errorf("word_a not trimmed: %q", ok.WordA)
	}
	if err := (&SimilarityRequest{WordA: "haus", Periods: []string{"1990"}}).Validate(); err == nil {
		t.Error("expected error for missing word_b")
	}
}

func TestDriftRequest_Validate(t *testing.T) {
	req := &DriftRequest{Word: "maus", Periods: []string{"1980", "1990"}}
	if err := req.Validate(Limits{}); err != nil {
		t.Fatal(err)
	}
	if req.Neighbors != 10 {
		t.Errorf("fallback n = %d, want 10", req.Neighbors)
	}
	if err := (&DriftRequest{Word: "maus", Periods: []string{"1980", ""}}).Validate(Limits{}); err == nil {
		t.Error("expected error for empty period")
	}
}
