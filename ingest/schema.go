// Package ingest reads the grouped input table and accumulates its records
// per group.
package ingest

import (
	"fmt"
	"slices"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
)

// Schema locates the fields of an input row. All indices use the raw input
// numbering; column 0 is not used.
type Schema struct {
	// GroupKey is the index of the grouping key.
	GroupKey int

	// TagColumn is the index of the group's display tag. The tag names the
	// group's distribution and output files.
	TagColumn int

	// Columns are the value columns to model, in output order.
	Columns []int

	// IntColumns are the integer valued columns.
	IntColumns []int
}

// DefaultSchema returns the layout of the job trace input: the recurring
// hash tag in column 2 is both grouping key and tag.
func DefaultSchema() Schema {
	return Schema{
		GroupKey:   2,
		TagColumn:  2,
		Columns:    []int{1, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		IntColumns: []int{1, 3, 4, 5, 6, 7, 11, 12, 13, 14, 15, 16},
	}
}

// Validate checks that indices are non-negative and value columns are
// unique.
func (s Schema) Validate() error {
	if s.GroupKey < 0 {
		return errors.NewValidationError("group_key", "must be non-negative", s.GroupKey)
	}
	if s.TagColumn < 0 {
		return errors.NewValidationError("tag_column", "must be non-negative", s.TagColumn)
	}
	if len(s.Columns) == 0 {
		return errors.NewValidationError("columns", "at least one value column is required", s.Columns)
	}
	seen := make(map[int]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c < 0 {
			return errors.NewValidationError("columns", "must be non-negative", c)
		}
		if seen[c] {
			return errors.NewValidationError("columns", "duplicate column", c)
		}
		seen[c] = true
	}
	_, err := ShiftColumns(s.Columns, s.IntColumns)
	return err
}

// OutputIntColumns returns the integer columns in output numbering.
func (s Schema) OutputIntColumns() ([]int, error) {
	return ShiftColumns(s.Columns, s.IntColumns)
}

// width is the minimum number of fields a row must have.
func (s Schema) width() int {
	return max(s.GroupKey, s.TagColumn, slices.Max(s.Columns)) + 1
}

// ShiftColumns maps integer columns from input numbering to their position
// among columns. Gaps in columns are removed.
func ShiftColumns(columns, intColumns []int) ([]int, error) {
	pos := make(map[int]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	shifted := make([]int, 0, len(intColumns))
	for _, c := range intColumns {
		p, ok := pos[c]
		if !ok {
			return nil, errors.NewValidationError("int_columns", fmt.Sprintf("column %d is not a value column", c), intColumns)
		}
		shifted = append(shifted, p)
	}
	slices.Sort(shifted)
	return slices.Compact(shifted), nil
}
