package configstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/teemow/inboxbrief/internal/config"
)

// File reads both tables from a TOML file, re-read on every call:
//
//	[[labels]]
//	name = "Work"
//	description = "Emails related to work, projects, or colleagues"
//
//	[parameters]
//	emailCount = 10
//	model = "gpt-4o"
//	resorting = "F"
//
// Parameter values of any TOML type are converted to their string form.
type File struct {
	path string
}

// NewFile creates a File store for path.
func NewFile(path string) *File {
	return &File{path: path}
}

type fileTables struct {
	Labels []struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
	} `toml:"labels"`
	Parameters map[string]interface{} `toml:"parameters"`
}

func (f *File) load() (fileTables, error) {
	var t fileTables
	if _, err := toml.DecodeFile(f.path, &t); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return t, fmt.Errorf("%w: %s", ErrNotFound, f.path)
		}
		return t, fmt.Errorf("reading config file %s: %w", f.path, err)
	}
	return t, nil
}

// LabelRows returns the labels in file order.
func (f *File) LabelRows(ctx context.Context) ([]config.Row, error) {
	t, err := f.load()
	if err != nil {
		return nil, err
	}
	rows := make([]config.Row, 0, len(t.Labels))
	for _, l := range t.Labels {
		rows = append(rows, config.Row{Key: l.Name, Value: l.Description})
	}
	return rows, nil
}

// ParameterRows returns the parameters sorted by key.
func (f *File) ParameterRows(ctx context.Context) ([]config.Row, error) {
	t, err := f.load()
	if err != nil {
		return nil, err
	}
	rows := make([]config.Row, 0, len(t.Parameters))
	for k, v := range t.Parameters {
		rows = append(rows, config.Row{Key: k, Value: fmt.Sprint(v)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}
