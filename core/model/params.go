package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gridcv/pkg/errors"
)

// Param は名前付きのハイパーパラメータ値。
// Value は float64、int、string、bool のいずれか。
type Param struct {
	Name  string
	Value interface{}
}

// Params はハイパーパラメータ点（名前付きタプル）。宣言順を保持する。
type Params []Param

// NewParams はキーと値を交互に並べた引数から Params を作成する。
//
//	p := model.NewParams("alpha", 0.5, "lambda", 0.1)
func NewParams(kv ...interface{}) Params {
	p := make(Params, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		p = append(p, Param{Name: fmt.Sprint(kv[i]), Value: NormalizeValue(kv[i+1])})
	}
	return p
}

// NormalizeValue は数値型を int / float64 に揃える。
func NormalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// Names はパラメータ名を宣言順に返す
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Get は名前に対応する値を返す
func (p Params) Get(name string) (interface{}, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// With は name を value に設定したコピーを返す（既存なら置換、なければ末尾に追加）
func (p Params) With(name string, value interface{}) Params {
	out := make(Params, len(p), len(p)+1)
	copy(out, p)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = NormalizeValue(value)
			return out
		}
	}
	return append(out, Param{Name: name, Value: NormalizeValue(value)})
}

// Float は数値パラメータを float64 として返す。未指定なら def。
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	default:
		return 0, errors.NewValidationError(name, "must be numeric", v)
	}
}

// Int は整数パラメータを返す。整数値の float64 も受け付ける。
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, errors.NewValidationError(name, "must be an integer", v)
		}
		return int(x), nil
	default:
		return 0, errors.NewValidationError(name, "must be an integer", v)
	}
}

// Bool は真偽値パラメータを返す
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, errors.NewValidationError(name, "must be a boolean", v)
	}
	return b, nil
}

// Str は文字列パラメータを返す
func (p Params) Str(name string, def string) (string, error) {
	v, ok := p.Get(name)
	if !ok {
		return def, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", errors.NewValidationError(name, "must be a string", v)
	}
	return s, nil
}

// String は "alpha=0.5,lambda=0.1" 形式の正準表現を返す
func (p Params) String() string {
	var b strings.Builder
	for i, param := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(param.Name)
		b.WriteByte('=')
		b.WriteString(FormatValue(param.Value))
	}
	return b.String()
}

// FormatValue はパラメータ値を表形式の出力用に文字列化する
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// ParseValue は FormatValue の逆変換。整数、浮動小数、true/false、文字列の順に解釈する。
func ParseValue(s string) interface{} {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
