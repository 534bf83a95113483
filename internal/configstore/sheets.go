package configstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/drive"
)

// SpreadsheetFinder finds a spreadsheet ID by file name.
type SpreadsheetFinder interface {
	FindSpreadsheet(ctx context.Context, name string) (string, error)
}

// TableReader reads a cell range as rows of strings.
type TableReader interface {
	ReadTable(ctx context.Context, spreadsheetID, cellRange string) ([][]string, error)
}

// Sheets reads the tables from two spreadsheets, each looked up by name on
// every read. The first row of each sheet is a header and is skipped.
type Sheets struct {
	finder          SpreadsheetFinder
	reader          TableReader
	labelsSheet     string
	parametersSheet string
}

// NewSheets creates a Sheets store. Empty names use the defaults.
func NewSheets(finder SpreadsheetFinder, reader TableReader, labelsSheet, parametersSheet string) *Sheets {
	if labelsSheet == "" {
		labelsSheet = DefaultLabelsSheet
	}
	if parametersSheet == "" {
		parametersSheet = DefaultParametersSheet
	}
	return &Sheets{finder: finder, reader: reader, labelsSheet: labelsSheet, parametersSheet: parametersSheet}
}

// LabelRows reads the label table.
func (s *Sheets) LabelRows(ctx context.Context) ([]config.Row, error) {
	return s.rows(ctx, s.labelsSheet)
}

// ParameterRows reads the parameter table.
func (s *Sheets) ParameterRows(ctx context.Context) ([]config.Row, error) {
	return s.rows(ctx, s.parametersSheet)
}

func (s *Sheets) rows(ctx context.Context, name string) ([]config.Row, error) {
	id, err := s.finder.FindSpreadsheet(ctx, name)
	if errors.Is(err, drive.ErrNotFound) {
		return nil, fmt.Errorf("%w: spreadsheet %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	table, err := s.reader.ReadTable(ctx, id, TableRange)
	if err != nil {
		return nil, err
	}
	if len(table) <= 1 {
		return nil, nil
	}

	out := make([]config.Row, 0, len(table)-1)
	for _, cells := range table[1:] {
		var r config.Row
		if len(cells) > 0 {
			r.Key = cells[0]
		}
		if len(cells) > 1 {
			r.Value = cells[1]
		}
		out = append(out, r)
	}
	return out, nil
}
