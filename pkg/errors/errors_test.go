package errors

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewFactorizationError(t *testing.T) {
	cols := []int{0, 2}
	err := NewFactorizationError("Synthesizer.Dependent", cols)
	cols[0] = 9

	want := "tracegen: Synthesizer.Dependent: covariance over columns [0 2] is not positive definite"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("expected stack trace to contain test file name")
	}

	var factErr *FactorizationError
	if !As(err, &factErr) {
		t.Fatal("error should be castable to *FactorizationError")
	}
	if factErr.Columns[0] != 0 {
		t.Error("columns must be copied, not aliased")
	}
}

func TestInsufficientDataErrorMessage(t *testing.T) {
	tests := []struct {
		name  string
		group string
		want  string
	}{
		{name: "with group", group: "abc", want: "tracegen: group abc: insufficient data: 3 rows, need at least 5"},
		{name: "anonymous", group: "", want: "tracegen: insufficient data: 3 rows, need at least 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInsufficientDataError(tt.group, 3, 5)
			if err.Error() != tt.want {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.want)
			}
			var dataErr *InsufficientDataError
			if !As(err, &dataErr) {
				t.Error("error should be castable to *InsufficientDataError")
			}
		})
	}
}

func TestSingularMatrixErrorMatchesSentinel(t *testing.T) {
	err := Wrap(NewSingularMatrixError("GaussianKL", 3), "group g1")
	if !Is(err, ErrSingularMatrix) {
		t.Error("typed singular error should match ErrSingularMatrix")
	}
	var singular *SingularMatrixError
	if !As(err, &singular) || singular.Size != 3 {
		t.Errorf("As() should find SingularMatrixError with size 3, got %+v", singular)
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	inner := NewMissingArtifactError("manifest", "/tmp/meta")
	err := NewStoreError("array", "ids", inner)

	var missing *MissingArtifactError
	if !As(err, &missing) {
		t.Fatal("store error should unwrap to MissingArtifactError")
	}
	if missing.Path != "/tmp/meta" {
		t.Errorf("Path = %q", missing.Path)
	}
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Error().Object("detail", &DimensionError{Op: "assemble", Expected: 10, Got: 9, Axis: 0}).Msg("failed")

	out := buf.String()
	for _, want := range []string{`"operation":"assemble"`, `"axis_name":"rows"`, `"type":"DimensionError"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}

func TestWarnUsesZerologFunc(t *testing.T) {
	var got error
	SetZerologWarnFunc(func(w error) { got = w })
	defer SetZerologWarnFunc(nil)

	w := &LinearCombinationWarning{GroupID: "g", Column: 4}
	Warn(w)
	if got != w {
		t.Errorf("warning not routed to zerolog func: %v", got)
	}
}

func TestCheckSymmetric(t *testing.T) {
	sym := fakeMatrix{{1, 2}, {2, 1}}
	if err := CheckSymmetric("cov", sym, 1e-12); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	asym := fakeMatrix{{1, 2}, {3, 1}}
	if err := CheckSymmetric("cov", asym, 1e-12); err == nil {
		t.Error("expected asymmetry error")
	}
}

type fakeMatrix [][]float64

func (m fakeMatrix) At(i, j int) float64 { return m[i][j] }
func (m fakeMatrix) Dims() (int, int)    { return len(m), len(m[0]) }
