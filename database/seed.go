package database

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedRow is one stored timetable entry, teacher included.
type SeedRow struct {
	Teacher string `yaml:"lehrer"`
	Subject string `yaml:"fach"`
	Room    string `yaml:"raum"`
	Weekday string `yaml:"wochentag"`
}

type seedFile struct {
	Rows []SeedRow `yaml:"stundenplan"`
}

// LoadSeed parses a YAML seed document.
func LoadSeed(r io.Reader) ([]SeedRow, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return f.Rows, nil
}

// DefaultSeed returns the rows of the embedded seed file.
func DefaultSeed() ([]SeedRow, error) {
	return LoadSeed(bytes.NewReader(defaultSeed))
}

// Seed inserts rows with bound parameters.
func Seed(ctx context.Context, q Querier, rows []SeedRow) error {
	d := q.Dialect()
	cols := ScheduleTable.ColumnNames()
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = d.Placeholder(i + 1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ScheduleTable.Name, strings.Join(cols, ", "), strings.Join(marks, ", "))

	for i, row := range rows {
		if err := q.Exec(ctx, insert, row.Teacher, row.Subject, row.Room, row.Weekday); err != nil {
			return fmt.Errorf("insert seed row %d: %w", i, err)
		}
	}
	return nil
}
