package postgres

import (
	"reflect"
)

// StructToMap flattens a struct (including embedded structs) into a
// column->value map using `db` tags. Fields tagged "-" or untagged are
// skipped.
func StructToMap(entity any) map[string]any {
	out := make(map[string]any)
	collectFields(reflect.ValueOf(entity), out)
	return out
}

// ExtractDBColumns lists the `db`-tagged columns of T, including
// embedded structs, in declaration order.
func ExtractDBColumns[T any]() []string {
	var zero T
	var cols []string
	collectColumns(reflect.TypeOf(zero), &cols)
	return cols
}

func collectColumns(t reflect.Type, cols *[]string) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous {
			collectColumns(field.Type, cols)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		*cols = append(*cols, tag)
	}
}

func collectFields(v reflect.Value, out map[string]any) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		if field.Anonymous {
			collectFields(v.Field(i), out)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}

		out[tag] = v.Field(i).Interface()
	}
}
