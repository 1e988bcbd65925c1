// Package export writes query results to spreadsheet workbooks.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/diachron/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names of a results workbook.
const (
	SynonymsSheet   = "synonyms"
	SimilaritySheet = "similarity"
)

// WriteWorkbook saves synonyms and similarities to an .xlsx file at path. Either slice may be
// empty; both sheets are always present.
func WriteWorkbook(path string, synonyms []models.PeriodNeighbors, similarities []models.PeriodSimilarity) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SynonymsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SimilaritySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := f.SetSheetRow(SynonymsSheet, "A1", &[]any{"period", "word", "rank", "neighbor", "score"}); err != nil {
		return err
	}
	row := 2
	for _, pn := range synonyms {
		for i, nb := range pn.Neighbors {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(SynonymsSheet, cell, &[]any{pn.Period, pn.Word, i + 1, nb.Word, nb.Score}); err != nil {
				return fmt.Errorf("write synonyms row %d: %w", row, err)
			}
			row++
		}
	}

	if err := f.SetSheetRow(SimilaritySheet, "A1", &[]any{"period", "word_a", "word_b", "score"}); err != nil {
		return err
	}
	for i, ps := range similarities {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SimilaritySheet, cell, &[]any{ps.Period, ps.WordA, ps.WordB, ps.Score}); err != nil {
			return fmt.Errorf("write similarity row %d: %w", i+2, err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
