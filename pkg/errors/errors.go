// Package errors はtracegen全体のエラーハンドリングを提供します。
// グループ単位の失敗（データ不足、因子分解失敗、特異行列など）を構造化された型として表現し、
// バッチドライバがグループ境界で集計できるようにします。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("tracegen-warning: %v\n", w)
	}
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the process-wide warning handler.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc routes warnings into a zerolog logger. It is set by
// pkg/log to avoid an import cycle.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a non-fatal warning.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// LinearCombinationWarning is emitted when the dependency analysis drops a
// correlated column because it is a linear combination of columns already
// selected.
type LinearCombinationWarning struct {
	GroupID string
	Column  int
}

func (w *LinearCombinationWarning) Error() string {
	return fmt.Sprintf("column %d of group %q is a linear combination of earlier columns and is synthesized independently", w.Column, w.GroupID)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *LinearCombinationWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("group_id", w.GroupID).
		Int("column", w.Column).
		Str("type", "LinearCombinationWarning")
}

// ===========================================================================
//
//	グループ単位のエラー型
//
// ===========================================================================

// InsufficientDataError はグループのレコード数がサポート閾値を下回る場合のエラーです。
type InsufficientDataError struct {
	GroupID  string
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	if e.GroupID == "" {
		return fmt.Sprintf("tracegen: insufficient data: %d rows, need at least %d", e.Rows, e.Required)
	}
	return fmt.Sprintf("tracegen: group %s: insufficient data: %d rows, need at least %d", e.GroupID, e.Rows, e.Required)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InsufficientDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("group_id", e.GroupID).
		Int("rows", e.Rows).
		Int("required", e.Required).
		Str("type", "InsufficientDataError")
}

// NewInsufficientDataError は新しいInsufficientDataErrorを作成し、スタックトレースを付与します。
func NewInsufficientDataError(groupID string, rows, required int) error {
	return errors.WithStack(&InsufficientDataError{GroupID: groupID, Rows: rows, Required: required})
}

// FactorizationError は依存列の共分散部分行列が正定値でなく、
// Cholesky分解に失敗した場合のエラーです。
type FactorizationError struct {
	Op      string
	Columns []int
}

func (e *FactorizationError) Error() string {
	return fmt.Sprintf("tracegen: %s: covariance over columns %v is not positive definite", e.Op, e.Columns)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FactorizationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Ints("columns", e.Columns).
		Str("type", "FactorizationError")
}

// NewFactorizationError は新しいFactorizationErrorを作成し、スタックトレースを付与します。
func NewFactorizationError(op string, columns []int) error {
	cols := append([]int(nil), columns...)
	return errors.WithStack(&FactorizationError{Op: op, Columns: cols})
}

// SingularMatrixError は行列が特異で逆行列や行列式が定義できない場合のエラーです。
type SingularMatrixError struct {
	Op   string
	Size int
}

func (e *SingularMatrixError) Error() string {
	return fmt.Sprintf("tracegen: %s: %d×%d matrix is singular", e.Op, e.Size, e.Size)
}

// Is lets errors.Is(err, ErrSingularMatrix) match typed singular errors.
func (e *SingularMatrixError) Is(target error) bool {
	return target == ErrSingularMatrix
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SingularMatrixError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("size", e.Size).
		Str("type", "SingularMatrixError")
}

// NewSingularMatrixError は新しいSingularMatrixErrorを作成し、スタックトレースを付与します。
func NewSingularMatrixError(op string, size int) error {
	return errors.WithStack(&SingularMatrixError{Op: op, Size: size})
}

// MissingArtifactError は参照されたファイル（合成データ、マニフェストなど）が存在しない場合のエラーです。
type MissingArtifactError struct {
	Kind string
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("tracegen: missing %s artifact at %s", e.Kind, e.Path)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingArtifactError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", e.Kind).
		Str("path", e.Path).
		Str("type", "MissingArtifactError")
}

// NewMissingArtifactError は新しいMissingArtifactErrorを作成し、スタックトレースを付与します。
func NewMissingArtifactError(kind, path string) error {
	return errors.WithStack(&MissingArtifactError{Kind: kind, Path: path})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
// 合成時に依存ブロックと独立ブロックの行数が一致しない場合や、
// どちらにも分類されない列がある場合にも使われます。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *DimensionError) Error() string {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("tracegen: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// UnclassifiedColumnError is returned when a column is neither dependent nor
// independent during assembly.
type UnclassifiedColumnError struct {
	Op     string
	Column int
}

func (e *UnclassifiedColumnError) Error() string {
	return fmt.Sprintf("tracegen: %s: column %d is neither dependent nor independent", e.Op, e.Column)
}

// NewUnclassifiedColumnError は新しいUnclassifiedColumnErrorを作成し、スタックトレースを付与します。
func NewUnclassifiedColumnError(op string, column int) error {
	return errors.WithStack(&UnclassifiedColumnError{Op: op, Column: column})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tracegen: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("tracegen: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// StoreError wraps a failure of a distribution store backend.
type StoreError struct {
	Op      string
	Backend string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tracegen: %s store: %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("tracegen: %s store: %s", e.Backend, e.Op)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError は新しいStoreErrorを作成し、スタックトレースを付与します。
func NewStoreError(backend, op string, err error) error {
	return errors.WithStack(&StoreError{Op: op, Backend: backend, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrNotFound is returned by stores for an unknown group id.
	ErrNotFound = New("distribution not found")
)
