package store

import (
	"context"
	"encoding/csv"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// File name suffixes of the array encoding. np.save appends ".npy".
const (
	manifestName  = "meta"
	meanSuffix    = ".mean.npy"
	stdevSuffix   = ".stdev.npy"
	covarSuffix   = ".covar.npy"
	depColsSuffix = ".depcols.npy"
	intColsSuffix = ".intcols.npy"
	headerSuffix  = ".header"
)

// ArrayStore keeps each group as a set of NumPy array files in one
// directory, listed by a manifest file named "meta".
type ArrayStore struct {
	dir string

	mu  sync.Mutex
	ids []string
}

// OpenArrayStore opens the array store in dir.
func OpenArrayStore(dir string, create bool) (*ArrayStore, error) {
	s := &ArrayStore{dir: dir}
	ids, err := readManifest(filepath.Join(dir, manifestName))
	switch {
	case err == nil:
		s.ids = ids
	case errors.Is(err, fs.ErrNotExist) && create:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewStoreError("array", "create directory", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		return nil, errors.NewMissingArtifactError("manifest", filepath.Join(dir, manifestName))
	default:
		return nil, errors.NewStoreError("array", "read manifest", err)
	}
	return s, nil
}

func (s *ArrayStore) path(id, suffix string) string {
	return filepath.Join(s.dir, id+suffix)
}

// Put writes the arrays, the header and the updated manifest for d.
func (s *ArrayStore) Put(ctx context.Context, d *distribution.Distribution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkID(d.ID); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	arrays := []struct {
		suffix string
		val    interface{}
	}{
		{meanSuffix, d.Mean},
		{stdevSuffix, d.Stdev},
		{covarSuffix, mat.DenseCopyOf(d.Covariance)},
		{depColsSuffix, toInt64(d.DependentColumns)},
		{intColsSuffix, toInt64(d.IntegerColumns)},
	}
	for _, a := range arrays {
		if err := writeNpy(s.path(d.ID, a.suffix), a.val); err != nil {
			return errors.NewStoreError("array", "write "+d.ID+a.suffix, err)
		}
	}
	if err := writeCSVFile(s.path(d.ID, headerSuffix), [][]string{d.Header}); err != nil {
		return errors.NewStoreError("array", "write header", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.ids, d.ID) {
		s.ids = append(s.ids, d.ID)
	}
	rows := make([][]string, len(s.ids))
	for i, id := range s.ids {
		rows[i] = []string{id}
	}
	if err := writeCSVFile(filepath.Join(s.dir, manifestName), rows); err != nil {
		return errors.NewStoreError("array", "write manifest", err)
	}
	return nil
}

// Get loads the arrays of group id.
func (s *ArrayStore) Get(ctx context.Context, id string) (*distribution.Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}

	headerRows, err := readCSVFile(s.path(id, headerSuffix))
	if err != nil {
		return nil, s.readErr(id, headerSuffix, err)
	}
	if len(headerRows) == 0 {
		return nil, errors.NewStoreError("array", "read header", errors.ErrEmptyData)
	}

	var mean, stdev []float64
	var dep, ints []int64
	var cov mat.Dense
	targets := []struct {
		suffix string
		ptr    interface{}
	}{
		{meanSuffix, &mean},
		{stdevSuffix, &stdev},
		{covarSuffix, &cov},
		{depColsSuffix, &dep},
		{intColsSuffix, &ints},
	}
	for _, t := range targets {
		if err := readNpy(s.path(id, t.suffix), t.ptr); err != nil {
			return nil, s.readErr(id, t.suffix, err)
		}
	}

	r, c := cov.Dims()
	if r != c {
		return nil, errors.NewDimensionError("ArrayStore.Get covariance", r, c, 1)
	}
	d := &distribution.Distribution{
		ID:               id,
		Header:           headerRows[0],
		Mean:             mean,
		Stdev:            stdev,
		Covariance:       symmetricFromDense(&cov),
		DependentColumns: fromInt64(dep),
		IntegerColumns:   fromInt64(ints),
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrapf(err, "decode group %s", id)
	}
	return d, nil
}

func (s *ArrayStore) readErr(id, suffix string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(errors.ErrNotFound, "group %s: missing %s", id, s.path(id, suffix))
	}
	return errors.NewStoreError("array", "read "+id+suffix, err)
}

// IDs returns the manifest.
func (s *ArrayStore) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids), nil
}

// Close is a no-op; every Put is already on disk.
func (s *ArrayStore) Close() error {
	return nil
}

func writeNpy(path string, val interface{}) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := npyio.Write(f, val); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readNpy(path string, ptr interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return npyio.Read(f, ptr)
}

func symmetricFromDense(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	if n == 0 {
		return nil
	}
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}
	return s
}

func toInt64(v []int) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return out
}

func fromInt64(v []int64) []int {
	out := make([]int, len(v))
	for i, x := range v {
		out[i] = int(x)
	}
	return out
}

func readManifest(path string) ([]string, error) {
	rows, err := readCSVFile(path)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		ids = append(ids, row[0])
	}
	return ids, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// writeCSVFile replaces path atomically with rows.
func writeCSVFile(path string, rows [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
