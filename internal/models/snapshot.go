package models

import (
	"fmt"

	"github.com/guregu/null/v6"
)

// TableSnapshot is the column/data ("split") form of a derived table used
// for caching and export. Undefined cells encode as JSON null.
type TableSnapshot struct {
	Columns []string       `json:"columns"`
	Data    [][]null.Float `json:"data"`
}

// NewTableSnapshot converts rows into a snapshot with the ADXColumns layout
func NewTableSnapshot(rows []ADXRow) *TableSnapshot {
	snap := &TableSnapshot{
		Columns: append([]string(nil), ADXColumns...),
		Data:    make([][]null.Float, len(rows)),
	}
	for i, r := range rows {
		snap.Data[i] = r.Values()
	}
	return snap
}

// Validate checks the snapshot layout matches ADXColumns
func (s *TableSnapshot) Validate() error {
	if len(s.Columns) != len(ADXColumns) {
		return fmt.Errorf("snapshot has %d columns, expected %d", len(s.Columns), len(ADXColumns))
	}
	for i, c := range ADXColumns {
		if s.Columns[i] != c {
			return fmt.Errorf("snapshot column %d is %q, expected %q", i, s.Columns[i], c)
		}
	}
	for i, row := range s.Data {
		if len(row) != len(ADXColumns) {
			return fmt.Errorf("snapshot row %d has %d cells, expected %d", i, len(row), len(ADXColumns))
		}
	}
	return nil
}

// Rows rebuilds the derived rows from the snapshot
func (s *TableSnapshot) Rows() ([]ADXRow, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	rows := make([]ADXRow, len(s.Data))
	for i, cells := range s.Data {
		row, err := ADXRowFromValues(i, cells)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}
