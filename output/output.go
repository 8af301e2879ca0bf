// Package output writes synthetic datasets as delimited text and reads them
// back.
package output

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultTagColumn names the group column of the consolidated file.
const DefaultTagColumn = "HT1"

// FileName returns the per-group file name of group id.
func FileName(id string) string {
	return id + ".csv"
}

// FormatValue renders v with the fewest digits that parse back to v.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatRow(dst []string, x mat.Matrix, i int) []string {
	_, c := x.Dims()
	for j := 0; j < c; j++ {
		dst = append(dst, FormatValue(x.At(i, j)))
	}
	return dst
}

// Write writes header followed by the rows of x.
func Write(w io.Writer, header []string, x mat.Matrix) error {
	_, c := x.Dims()
	if len(header) != c {
		return errors.NewDimensionError("output.Write", len(header), c, 1)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	r, _ := x.Dims()
	row := make([]string, 0, c)
	for i := 0; i < r; i++ {
		if err := cw.Write(formatRow(row[:0], x, i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes x to path, creating the parent directory if needed.
func WriteFile(path string, header []string, x mat.Matrix) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := Write(f, header, x); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// Read parses a header row followed by numeric rows. Empty rows are skipped.
func Read(r io.Reader) ([]string, *mat.Dense, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	row, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "missing header row")
	}
	if err != nil {
		return nil, nil, err
	}
	header := append([]string(nil), row...)
	f := len(header)

	var data []float64
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line++
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) != f {
			return nil, nil, errors.NewDimensionError("output.Read line "+strconv.Itoa(line), f, len(row), 1)
		}
		for _, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "line %d", line)
			}
			data = append(data, v)
		}
	}
	if len(data) == 0 || f == 0 {
		return header, nil, errors.Wrap(errors.ErrEmptyData, "no data rows")
	}
	return header, mat.NewDense(len(data)/f, f, data), nil
}

// ReadFile reads a synthetic dataset from path. A missing file is a
// MissingArtifactError.
func ReadFile(path string) ([]string, *mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NewMissingArtifactError("synthetic dataset", path)
		}
		return nil, nil, err
	}
	defer f.Close()
	header, x, err := Read(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", path)
	}
	return header, x, nil
}

// ConsolidatedWriter appends the rows of every group to one file. Each row
// is prefixed with its group id; the header, prefixed with the tag column,
// is emitted once by WriteHeader or the first Write. It is safe for concurrent use.
type ConsolidatedWriter struct {
	mu        sync.Mutex
	w         *csv.Writer
	closer    io.Closer
	tagColumn string
	header    []string
	groups    int
}

// NewConsolidatedWriter writes to w. An empty tagColumn means
// DefaultTagColumn.
func NewConsolidatedWriter(w io.Writer, tagColumn string) *ConsolidatedWriter {
	if tagColumn == "" {
		tagColumn = DefaultTagColumn
	}
	cw := &ConsolidatedWriter{w: csv.NewWriter(w), tagColumn: tagColumn}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	return cw
}

// CreateConsolidated truncates or creates the file at path.
func CreateConsolidated(path, tagColumn string) (*ConsolidatedWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	return NewConsolidatedWriter(f, tagColumn), nil
}

// WriteHeader emits the consolidated header unless one was already
// written. A header that differs from the written one is a
// ValidationError.
func (c *ConsolidatedWriter) WriteHeader(header []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeHeader(header)
}

func (c *ConsolidatedWriter) writeHeader(header []string) error {
	if c.header != nil {
		if !slices.Equal(c.header, header) {
			return errors.NewValidationError("header", "differs from the consolidated header", header)
		}
		return nil
	}
	c.header = append([]string(nil), header...)
	if err := c.w.Write(append([]string{c.tagColumn}, header...)); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Write appends the rows of group id. Every group must share the header of
// the first one.
func (c *ConsolidatedWriter) Write(id string, header []string, x mat.Matrix) error {
	r, cols := x.Dims()
	if len(header) != cols {
		return errors.NewDimensionError("ConsolidatedWriter.Write", len(header), cols, 1)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeHeader(header); err != nil {
		return err
	}

	row := make([]string, 0, cols+1)
	for i := 0; i < r; i++ {
		row = append(row[:0], id)
		if err := c.w.Write(formatRow(row, x, i)); err != nil {
			return err
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	c.groups++
	return nil
}

// Groups returns the number of groups written.
func (c *ConsolidatedWriter) Groups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groups
}

// Close flushes buffered rows and closes the underlying file.
func (c *ConsolidatedWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
		c.closer = nil
	}
	return err
}
