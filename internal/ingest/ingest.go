// Package ingest reads audit observations out of uploaded workbooks.
package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"pciassist/internal/logging"
)

// Observation is one non-blank observation cell with its workbook position.
type Observation struct {
	Sheet string
	Row   int
	Text  string
}

// ReadObservations extracts observation text from every sheet of an xlsx
// workbook. The observation column is located by header: "Description" is
// preferred, "Observation" accepted. Sheets with neither header are skipped
// with a warning; blank cells are skipped silently.
func ReadObservations(r io.Reader) ([]Observation, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	log := logging.Get(logging.CategoryIngest)

	var observations []Observation
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		col := observationColumn(rows[0])
		if col < 0 {
			log.Warnw("sheet has no observation column, skipping", "sheet", sheet)
			continue
		}

		for i, row := range rows[1:] {
			if col >= len(row) {
				continue
			}
			text := strings.TrimSpace(row[col])
			if text == "" {
				continue
			}
			observations = append(observations, Observation{
				Sheet: sheet,
				Row:   i + 2,
				Text:  text,
			})
		}
	}

	log.Infow("workbook ingested", "observations", len(observations))
	return observations, nil
}

// observationColumn returns the index of the observation column in a header
// row, or -1. "Description" wins over "Observation" when both exist.
func observationColumn(header []string) int {
	observation := -1
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "description":
			return i
		case "observation":
			if observation < 0 {
				observation = i
			}
		}
	}
	return observation
}

// Texts returns the observation strings in workbook order.
func Texts(observations []Observation) []string {
	texts := make([]string, len(observations))
	for i, o := range observations {
		texts[i] = o.Text
	}
	return texts
}
