// Package configstore implements the config store backends: a pair of
// Google Sheets found by name in Drive, or a local TOML file.
package configstore

import (
	"errors"

	"github.com/teemow/inboxbrief/internal/config"
)

// Names of the spreadsheets holding the two tables.
const (
	DefaultLabelsSheet     = "Gmail Labeler Labels"
	DefaultParametersSheet = "Gmail Labeler Parameters"
)

// TableRange is the cell range read from each spreadsheet.
const TableRange = "A:B"

// ErrNotFound is returned when a table's spreadsheet or file does not exist.
var ErrNotFound = errors.New("config table not found")

var (
	_ config.Store = (*Sheets)(nil)
	_ config.Store = (*File)(nil)
)
