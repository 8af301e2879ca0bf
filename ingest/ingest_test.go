package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/tracegen/output"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/YuminosukeSato/tracegen/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{GroupKey: 1, TagColumn: 2, Columns: []int{3, 5, 4}, IntColumns: []int{5}}
}

const input = `id,key,tag,a,b,c
0,k1,t1,1.5,10,2
0,k2,t2,2.5,20,3

0,k1,t1,3.5,30,4
0,k1,t1x,4.5,40,5
`

func TestShiftColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []int
		ints    []int
		want    []int
		wantErr bool
	}{
		{name: "gaps removed", columns: []int{1, 3, 4, 7}, ints: []int{3, 7}, want: []int{1, 3}},
		{name: "output order follows columns", columns: []int{5, 2}, ints: []int{2}, want: []int{1}},
		{name: "none", columns: []int{1}, want: []int{}},
		{name: "not a value column", columns: []int{1, 3}, ints: []int{2}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShiftColumns(tt.columns, tt.ints)
			if tt.wantErr {
				var vErr *errors.ValidationError
				assert.True(t, errors.As(err, &vErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultSchemaShift(t *testing.T) {
	s := DefaultSchema()
	require.NoError(t, s.Validate())
	ints, err := s.OutputIntColumns()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 9, 10, 11, 12, 13, 14}, ints)
}

func TestReaderGroupsRecords(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	acc, err := NewReader(testSchema(), logger).Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c", "b"}, acc.Header())
	assert.Equal(t, 2, acc.Len())
	assert.Equal(t, 4, acc.Records())
	assert.True(t, logger.ContainsMessage("Input read"))

	var groups []*Group
	for g, err := range acc.Drain(1) {
		require.NoError(t, err)
		groups = append(groups, g)
	}
	require.Len(t, groups, 2)

	k1 := groups[0]
	assert.Equal(t, "k1", k1.Key)
	assert.Equal(t, "t1", k1.Tag, "first tag names the group")
	assert.Equal(t, 3, k1.Rows())
	assert.Equal(t, []float64{3.5, 4, 30}, k1.Data.RawRowView(1))
	assert.Equal(t, "k2", groups[1].Key)

	assert.Equal(t, 0, acc.Len(), "drain releases every buffer")
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "short header", input: "a,b\n"},
		{name: "short row", input: "id,key,tag,a,b,c\n0,k1,t1\n"},
		{name: "non numeric", input: "id,key,tag,a,b,c\n0,k1,t1,x,1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(testSchema(), nil).Read(context.Background(), strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestReaderProgress(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,key,tag,a,b,c\n")
	for i := 0; i < 9; i++ {
		fmt.Fprintf(&b, "0,k,t,%d,1,2\n", i)
	}
	logger, _ := log.NewTestLogger(log.LevelInfo)
	r := NewReader(testSchema(), logger)
	r.progress = 5

	_, err := r.Read(context.Background(), strings.NewReader(b.String()))
	require.NoError(t, err)
	// 10 lines including the header
	assert.Equal(t, 2, logger.CountMessages("Processed input lines"))
}

func TestReadFileMissing(t *testing.T) {
	_, err := NewReader(testSchema(), nil).ReadFile(context.Background(), filepath.Join(t.TempDir(), "none.csv"))
	var missing *errors.MissingArtifactError
	assert.True(t, errors.As(err, &missing))
}

func TestDrainThreshold(t *testing.T) {
	acc := NewAccumulator([]string{"v"})
	add := func(key string, n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, acc.Add(key, "tag-"+key, []float64{float64(i)}))
		}
	}
	add("small", 3)
	add("a", 5)
	add("b", 6)
	add("c", 7)

	var got, skipped []string
	for g, err := range acc.Drain(5) {
		if err != nil {
			var dataErr *errors.InsufficientDataError
			require.True(t, errors.As(err, &dataErr))
			assert.Equal(t, 3, dataErr.Rows)
			skipped = append(skipped, dataErr.GroupID)
			continue
		}
		got = append(got, g.Tag)
	}
	assert.Equal(t, []string{"tag-a", "tag-b", "tag-c"}, got)
	assert.Equal(t, []string{"tag-small"}, skipped)
	assert.Equal(t, 0, acc.Len())
}

func TestDrainStopsWithConsumer(t *testing.T) {
	acc := NewAccumulator([]string{"v"})
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, acc.Add(key, key, []float64{1}))
	}
	for g := range acc.Drain(1) {
		assert.Equal(t, "a", g.Tag)
		break
	}
	assert.Equal(t, 0, acc.Len())
}

func TestAccumulatorRejectsWrongWidth(t *testing.T) {
	acc := NewAccumulator([]string{"a", "b"})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(acc.Add("k", "t", []float64{1}), &dimErr))
}

func TestWriteGroup(t *testing.T) {
	acc := NewAccumulator([]string{"a", "b"})
	require.NoError(t, acc.Add("k", "deadbeef", []float64{1, 2.5}))
	require.NoError(t, acc.Add("k", "deadbeef", []float64{3, 4}))

	dir := t.TempDir()
	for g, err := range acc.Drain(1) {
		require.NoError(t, err)
		path, err := WriteGroup(dir, g)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "deadbeef.csv"), path)
	}

	content, err := os.ReadFile(filepath.Join(dir, "deadbeef.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2.5\n3,4\n", string(content))

	header, x, err := output.ReadFile(filepath.Join(dir, "deadbeef.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, header)
	assert.Equal(t, 4.0, x.At(1, 1))
}
