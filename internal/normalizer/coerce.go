package normalizer

import (
	"reflect"
	"strconv"
	"strings"

	"quoteflow/internal/model"
)

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }:
		f, err := x.Float64()
		return f, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case []byte:
		return strings.TrimSpace(strings.TrimRight(string(x), "\x00")), true
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func first(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Len() == 0 {
		return nil, false
	}
	return rv.Index(0).Interface(), true
}

// fieldReader reads typed values off a model.FieldGetter with defaults.
type fieldReader struct {
	f model.FieldGetter
}

func (r fieldReader) str(name string) string {
	v, ok := r.f.Field(name)
	if !ok {
		return ""
	}
	s, _ := toString(v)
	return s
}

func (r fieldReader) float(name string) float64 {
	v, ok := r.f.Field(name)
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return price(f)
}

func (r fieldReader) int(name string) int64 {
	return int64(r.float(name))
}

// level1 reads the top of book from either an array field (BidPrice[0])
// or a flattened one (BidPrice1).
func (r fieldReader) level1(name string) float64 {
	if v, ok := r.f.Field(name); ok {
		if top, ok := first(v); ok {
			f, _ := toFloat(top)
			return price(f)
		}
		if f, ok := toFloat(v); ok {
			return price(f)
		}
	}
	return r.float(name + "1")
}
