package keyword

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Suggestion is a vocabulary word close to a missing one.
type Suggestion struct {
	Term     string // The suggested word
	Distance int    // Damerau-Levenshtein distance from the missing word
	Rank     int    // Position in the vocabulary (lower is more frequent)
}

// Suggester proposes vocabulary words for a word that is not in the vocabulary.
type Suggester struct {
	dictionary     Dictionary
	maxDistance    int
	maxSuggestions int
	indexLimit     int
	logger         *zap.Logger

	rank      map[string]int
	indexOnce sync.Once
	index     *VocabularyIndex
}

// SuggesterOption is a functional option for configuring Suggester.
type SuggesterOption func(*Suggester)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SuggesterOption {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions returned.
func WithMaxSuggestions(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithIndexLimit indexes only the first n vocabulary terms in Bleve. Zero disables the
// index and every lookup scans the vocabulary.
func WithIndexLimit(n int) SuggesterOption {
	return func(s *Suggester) {
		if n >= 0 {
			s.indexLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) SuggesterOption {
	return func(s *Suggester) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSuggester creates a Suggester over dict.
func NewSuggester(dict Dictionary, opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		dictionary:     dict,
		maxDistance:    2,
		maxSuggestions: 3,
		indexLimit:     50000,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	terms := dict.Terms()
	s.rank = make(map[string]int, len(terms))
	for i, t := range terms {
		if _, ok := s.rank[t]; !ok {
			s.rank[t] = i
		}
	}
	return s
}

// Suggest returns vocabulary words within the maximum distance of term, closest first,
// then by rank. A term that is in the vocabulary has no suggestions.
func (s *Suggester) Suggest(term string) []Suggestion {
	if term == "" || s.dictionary.Contains(term) {
		return nil
	}

	seen := make(map[string]struct{})
	var out []Suggestion
	consider := func(candidate string) {
		if candidate == term {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		d := DamerauLevenshteinDistance(term, candidate)
		if d <= s.maxDistance {
			out = append(out, Suggestion{Term: candidate, Distance: d, Rank: s.rank[candidate]})
		}
	}

	candidates, usedIndex := s.indexed(term)
	if usedIndex {
		for _, c := range candidates {
			consider(c)
		}
		// A lowercase query may be a capitalized noun and vice versa.
		if alt := flipFirst(term); alt != term {
			if more, ok := s.indexed(alt); ok {
				for _, c := range more {
					consider(c)
				}
			}
		}
	}
	if !usedIndex || len(out) == 0 {
		s.scan(term, consider)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Rank < out[j].Rank
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// Words returns only the suggested terms.
func (s *Suggester) Words(term string) []string {
	sugg := s.Suggest(term)
	if len(sugg) == 0 {
		return nil
	}
	words := make([]string, len(sugg))
	for i, sg := range sugg {
		words[i] = sg.Term
	}
	return words
}

// Close releases the Bleve index if one was built.
func (s *Suggester) Close() error {
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

// scan compares term against every vocabulary word of similar length.
func (s *Suggester) scan(term string, consider func(string)) {
	n := len([]rune(term))
	for _, candidate := range s.dictionary.Terms() {
		diff := len([]rune(candidate)) - n
		if diff < 0 {
			diff = -diff
		}
		if diff > s.maxDistance {
			continue
		}
		consider(candidate)
	}
}

func (s *Suggester) indexed(term string) ([]string, bool) {
	if s.indexLimit == 0 {
		return nil, false
	}
	s.indexOnce.Do(func() {
		terms := s.dictionary.Terms()
		if len(terms) > s.indexLimit {
			terms = terms[:s.indexLimit]
		}
		idx, err := NewVocabularyIndex(terms)
		if err != nil {
			s.logger.Warn("vocabulary index unavailable, falling back to scan", zap.Error(err))
			return
		}
		s.index = idx
	})
	if s.index == nil {
		return nil, false
	}
	candidates, err := s.index.Candidates(term, s.maxDistance, 4*s.maxSuggestions+10)
	if err != nil {
		s.logger.Debug("fuzzy lookup failed", zap.String("term", term), zap.Error(err))
		return nil, false
	}
	return candidates, true
}

func flipFirst(term string) string {
	r := []rune(term)
	if len(r) == 0 {
		return term
	}
	first := string(r[0])
	if up := strings.ToUpper(first); up != first {
		return up + string(r[1:])
	}
	return strings.ToLower(first) + string(r[1:])
}
