package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/YuminosukeSato/tracegen/pkg/log"
)

// ProgressInterval is the number of lines between progress log records.
const ProgressInterval = 100000

// Reader parses the grouped input table.
type Reader struct {
	schema   Schema
	logger   log.Logger
	progress int
}

// NewReader creates a Reader for schema. A nil logger discards progress
// records.
func NewReader(schema Schema, logger log.Logger) *Reader {
	if logger == nil {
		logger = log.Nop()
	}
	return &Reader{
		schema:   schema,
		logger:   logger.With(log.ComponentKey, "ingest"),
		progress: ProgressInterval,
	}
}

// ReadFile reads the input table at path.
func (r *Reader) ReadFile(ctx context.Context, path string) (*Accumulator, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewMissingArtifactError("input", path)
		}
		return nil, errors.Wrapf(err, "open input %s", path)
	}
	defer f.Close()
	return r.Read(ctx, f)
}

// Read parses rows from in. The first row is the header; the names of the
// value columns are taken from it. Empty rows are skipped. A row that is too
// short or has a non-numeric value aborts the read.
func (r *Reader) Read(ctx context.Context, in io.Reader) (*Accumulator, error) {
	if err := r.schema.Validate(); err != nil {
		return nil, err
	}
	width := r.schema.width()

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	row, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "input has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read input header")
	}
	if len(row) < width {
		return nil, errors.NewDimensionError("ingest header", width, len(row), 1)
	}
	header := make([]string, len(r.schema.Columns))
	for i, c := range r.schema.Columns {
		header[i] = strings.TrimSpace(row[c])
	}

	acc := NewAccumulator(header)
	values := make([]float64, len(header))
	lines := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read input line %d", lines+1)
		}
		lines++
		if lines%r.progress == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r.logger.Info("Processed input lines", log.LinesKey, lines)
		}
		if isBlank(row) {
			continue
		}
		if len(row) < width {
			return nil, errors.NewValidationError("input", "row too short", lines)
		}
		for i, c := range r.schema.Columns {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %d", lines, c)
			}
			values[i] = v
		}
		if err := acc.Add(row[r.schema.GroupKey], row[r.schema.TagColumn], values); err != nil {
			return nil, err
		}
	}

	r.logger.Info("Input read",
		log.LinesKey, lines,
		log.RowsKey, acc.Records(),
		"groups", acc.Len(),
	)
	return acc, nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
