// Package errors はネイティブ LightGBM バインディング全体のエラー分類を提供します。
// すべてのエラー型は cockroachdb/errors でスタックトレースを付与され、
// zerolog へ構造化フィールドとして出力できます。
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Kind はエラーの分類です。呼び出し側は Kind を見て、設定を直すべきか
// (Config, Dimension, Range) 環境起因の致命的エラーとして扱うべきか
// (Native, ProtocolViolation, Encoding) を判断します。
type Kind int

const (
	KindUnknown Kind = iota
	KindNative
	KindConfig
	KindDimension
	KindProtocolViolation
	KindRange
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindConfig:
		return "config"
	case KindDimension:
		return "dimension"
	case KindProtocolViolation:
		return "protocol_violation"
	case KindRange:
		return "range"
	case KindEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// kinded は Kind を持つエラー型が実装します。
type kinded interface {
	Kind() Kind
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NativeError はネイティブエンジンが status -1 を返した場合のエラーです。
// Message にはエンジン自身の最終エラーメッセージが入ります。
type NativeError struct {
	Op      string
	Message string
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("lightgbm: %s: native error: %s", e.Op, e.Message)
}

// Kind implements kinded.
func (e *NativeError) Kind() Kind { return KindNative }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NativeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("native_op", e.Op).
		Str("message", e.Message).
		Str("type", "NativeError")
}

// NewNativeError は新しいNativeErrorを作成し、スタックトレースを付与します。
func NewNativeError(op, message string) error {
	return errors.WithStack(&NativeError{Op: op, Message: message})
}

// ConfigError はパラメータやデータセット記述が不正な場合のエラーです。
type ConfigError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("lightgbm: invalid configuration for '%s': %s", e.ParamName, e.Reason)
	}
	return fmt.Sprintf("lightgbm: invalid configuration for '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// Kind implements kinded.
func (e *ConfigError) Kind() Kind { return KindConfig }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ConfigError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigError")
}

// NewConfigError は新しいConfigErrorを作成し、スタックトレースを付与します。
func NewConfigError(param, reason string, value interface{}) error {
	return errors.WithStack(&ConfigError{ParamName: param, Reason: reason, Value: value})
}

// DimensionError は入力行列の形状が扱えない場合のエラーです。
// 32bit 整数範囲を超える行数・列数、空行列、ジャグ配列、ラベル長の不一致など。
type DimensionError struct {
	Op     string
	Rows   int
	Cols   int
	Reason string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("lightgbm: %s: invalid matrix of size %dx%d: %s", e.Op, e.Rows, e.Cols, e.Reason)
}

// Kind implements kinded.
func (e *DimensionError) Kind() Kind { return KindDimension }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("rows", e.Rows).
		Int("cols", e.Cols).
		Str("reason", e.Reason).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, rows, cols int, reason string) error {
	return errors.WithStack(&DimensionError{Op: op, Rows: rows, Cols: cols, Reason: reason})
}

// ProtocolViolationError はネイティブエンジンが呼び出し規約に反した場合の欠陥です。
// 0 と -1 以外のステータスや、内部で矛盾した件数の報告などが該当します。
// 利用者が回復できるエラーではありません。
type ProtocolViolationError struct {
	Op     string
	Detail string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("lightgbm: %s: native engine violated the call protocol: %s", e.Op, e.Detail)
}

// Kind implements kinded.
func (e *ProtocolViolationError) Kind() Kind { return KindProtocolViolation }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ProtocolViolationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("native_op", e.Op).
		Str("detail", e.Detail).
		Str("type", "ProtocolViolationError")
}

// NewProtocolViolation は新しいProtocolViolationErrorを作成し、スタックトレースを付与します。
func NewProtocolViolation(op, detail string) error {
	return errors.WithStack(&ProtocolViolationError{Op: op, Detail: detail})
}

// RangeError は範囲外のインデックスが指定された場合のエラーです。
type RangeError struct {
	Op    string
	Index int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("lightgbm: %s: index %d out of range [0, %d]", e.Op, e.Index, e.Max)
}

// Kind implements kinded.
func (e *RangeError) Kind() Kind { return KindRange }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *RangeError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("index", e.Index).
		Int("max", e.Max).
		Str("type", "RangeError")
}

// NewRangeError は新しいRangeErrorを作成し、スタックトレースを付与します。
func NewRangeError(op string, index, max int) error {
	return errors.WithStack(&RangeError{Op: op, Index: index, Max: max})
}

// EncodingError はネイティブエンジンが返したバッファが正しい UTF-8 でない場合のエラーです。
type EncodingError struct {
	Op    string
	Bytes []byte
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("lightgbm: %s: native engine returned invalid UTF-8 %q", e.Op, e.Bytes)
}

// Kind implements kinded.
func (e *EncodingError) Kind() Kind { return KindEncoding }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *EncodingError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Bytes("bytes", e.Bytes).
		Str("type", "EncodingError")
}

// NewEncodingError は新しいEncodingErrorを作成し、スタックトレースを付与します。
func NewEncodingError(op string, b []byte) error {
	cp := make([]byte, len(b))
	copy(cp, b)
	return errors.WithStack(&EncodingError{Op: op, Bytes: cp})
}

// KindOf はエラーチェーンをたどって最初に見つかった Kind を返します。
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// IsFatal は環境起因で呼び出し側が修正できないエラーかどうかを返します。
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindNative, KindProtocolViolation, KindEncoding:
		return true
	default:
		return false
	}
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

// CombineErrors は二つのエラーをまとめます。片方が nil ならもう片方を返します。
// 解放処理の失敗を元のエラーに添える用途で使います。
func CombineErrors(err, other error) error {
	return errors.CombineErrors(err, other)
}

// ErrClosed は解放済みのハンドルを使おうとした場合のエラーです。
var ErrClosed = New("lightgbm: use of released native handle")
