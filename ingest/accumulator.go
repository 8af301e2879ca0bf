package ingest

import (
	"iter"
	"slices"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Group is the record buffer of one group, ready to be modeled.
type Group struct {
	Key    string
	Tag    string
	Header []string

	// Data holds one row per record.
	Data *mat.Dense
}

// Rows returns the number of records.
func (g *Group) Rows() int {
	r, _ := g.Data.Dims()
	return r
}

type buffer struct {
	tag  string
	data []float64
}

// Accumulator buffers records per group key. Groups are kept in the order
// their key was first seen.
type Accumulator struct {
	header []string
	order  []string
	groups map[string]*buffer
	lines  int
}

// NewAccumulator creates an empty accumulator for records of len(header)
// values.
func NewAccumulator(header []string) *Accumulator {
	return &Accumulator{
		header: slices.Clone(header),
		groups: make(map[string]*buffer),
	}
}

// Header returns the value column names.
func (a *Accumulator) Header() []string {
	return a.header
}

// Add appends one record to the group key. The tag of the first record of
// a group names the group.
func (a *Accumulator) Add(key, tag string, values []float64) error {
	if len(values) != len(a.header) {
		return errors.NewDimensionError("Accumulator.Add", len(a.header), len(values), 1)
	}
	b, ok := a.groups[key]
	if !ok {
		b = &buffer{tag: tag}
		a.groups[key] = b
		a.order = append(a.order, key)
	}
	b.data = append(b.data, values...)
	a.lines++
	return nil
}

// Len returns the number of buffered groups.
func (a *Accumulator) Len() int {
	return len(a.groups)
}

// Records returns the number of records added.
func (a *Accumulator) Records() int {
	return a.lines
}

// Drain visits groups in first-seen order. Groups with at least threshold
// records are yielded with a nil error; smaller groups are yielded as a nil
// group and an InsufficientDataError. Every buffer is released once
// visited, and the remaining ones when the consumer stops early, so a
// caller enforcing a group cap simply breaks out of the loop.
func (a *Accumulator) Drain(threshold int) iter.Seq2[*Group, error] {
	return func(yield func(*Group, error) bool) {
		defer a.reset()

		f := len(a.header)
		for _, key := range a.order {
			b := a.groups[key]
			delete(a.groups, key)

			rows := 0
			if f > 0 {
				rows = len(b.data) / f
			}
			if rows < threshold || rows == 0 {
				if !yield(nil, errors.NewInsufficientDataError(b.tag, rows, threshold)) {
					return
				}
				continue
			}

			g := &Group{
				Key:    key,
				Tag:    b.tag,
				Header: slices.Clone(a.header),
				Data:   mat.NewDense(rows, f, b.data),
			}
			b.data = nil
			if !yield(g, nil) {
				return
			}
		}
	}
}

func (a *Accumulator) reset() {
	a.order = nil
	a.groups = make(map[string]*buffer)
}
