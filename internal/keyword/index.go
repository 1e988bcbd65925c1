// Package keyword suggests vocabulary words close in spelling to a word that was not found.
package keyword

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
)

// Dictionary is the vocabulary suggestions are drawn from.
type Dictionary interface {
	// Terms returns every term. Earlier terms rank higher on ties; word2vec models list
	// words by descending corpus frequency.
	Terms() []string
	// Contains reports whether term is in the vocabulary.
	Contains(term string) bool
}

// Vocabulary is a Dictionary over a fixed word list.
type Vocabulary struct {
	terms []string
	set   map[string]struct{}
}

// NewVocabulary builds a dictionary from terms in rank order.
func NewVocabulary(terms []string) *Vocabulary {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return &Vocabulary{terms: terms, set: set}
}

// Terms returns the words in rank order.
func (v *Vocabulary) Terms() []string { return v.terms }

// Contains reports whether term is in the vocabulary.
func (v *Vocabulary) Contains(term string) bool {
	_, ok := v.set[term]
	return ok
}

type termDoc struct {
	Word string `json:"word"`
}

// VocabularyIndex is an in-memory Bleve index over vocabulary terms used to find fuzzy
// candidates without scanning the whole vocabulary.
type VocabularyIndex struct {
	index bleve.Index
}

// NewVocabularyIndex indexes terms in memory. Terms are stored verbatim, without analysis,
// so matching is case-sensitive.
func NewVocabularyIndex(terms []string) (*VocabularyIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	wordField := bleve.NewTextFieldMapping()
	wordField.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt("word", wordField)
	im.AddDocumentMapping("term", docMapping)
	im.DefaultType = "term"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}

	const batchSize = 1000
	batch := index.NewBatch()
	for _, t := range terms {
		if err := batch.Index(t, termDoc{Word: t}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index term %q: %w", t, err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				_ = index.Close()
				return nil, fmt.Errorf("failed to index batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index batch: %w", err)
		}
	}
	return &VocabularyIndex{index: index}, nil
}

// Candidates returns up to limit indexed terms within fuzziness edits of term.
// Bleve caps fuzziness at 2.
func (v *VocabularyIndex) Candidates(term string, fuzziness, limit int) ([]string, error) {
	fq := bleve.NewFuzzyQuery(term)
	fq.SetFuzziness(min(max(fuzziness, 1), 2))
	fq.SetField("word")
	req := bleve.NewSearchRequest(fq)
	req.Size = limit
	results, err := v.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve fuzzy search failed: %w", err)
	}
	out := make([]string, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = hit.ID
	}
	return out, nil
}

// DocCount returns the number of indexed terms.
func (v *VocabularyIndex) DocCount() (uint64, error) {
	return v.index.DocCount()
}

// Close releases the index.
func (v *VocabularyIndex) Close() error {
	return v.index.Close()
}
