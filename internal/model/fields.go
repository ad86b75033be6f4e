package model

import "reflect"

// FieldGetter reads a named field from a vendor record regardless of
// whether the vendor delivers it as a map or as a typed struct.
type FieldGetter interface {
	Field(name string) (any, bool)
	ToMap() map[string]any
}

var (
	_ FieldGetter = MapFields(nil)
	_ FieldGetter = StructFields{}
)

// MapFields adapts a decoded key/value record.
type MapFields map[string]any

func (m MapFields) Field(name string) (any, bool) {
	v, ok := m[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (m MapFields) ToMap() map[string]any {
	return m
}

// StructFields adapts a struct or pointer to struct by exported field name.
type StructFields struct {
	V any
}

func (s StructFields) Field(name string) (any, bool) {
	rv, ok := s.value()
	if !ok {
		return nil, false
	}
	f := rv.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return nil, false
	}
	return f.Interface(), true
}

func (s StructFields) ToMap() map[string]any {
	rv, ok := s.value()
	if !ok {
		return nil
	}
	rt := rv.Type()
	m := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		if !rt.Field(i).IsExported() {
			continue
		}
		m[rt.Field(i).Name] = rv.Field(i).Interface()
	}
	return m
}

func (s StructFields) value() (reflect.Value, bool) {
	rv := reflect.ValueOf(s.V)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return rv, true
}
