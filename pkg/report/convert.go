package report

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/models"
)

// NativeConverter reduces domain values to JSON-safe native types: nil,
// scalars, map[string]any and []any. Records become field maps keyed by
// their json tags, relations are converted recursively, and the date types
// flatten to their wire layouts. The zero value is ready to use.
type NativeConverter struct {
	// IgnoreErrors substitutes nil for values no rule covers instead of
	// failing the whole conversion.
	IgnoreErrors bool

	// MaxDepth caps recursion through nested records and containers.
	// Zero means defaults.ConvertMaxDepth.
	MaxDepth int
}

// Convert applies the conversion rules to v. Rules are ordered; the first
// match wins:
//
//  1. nil stays nil.
//  2. bool, string and numeric scalars pass through.
//  3. maps become map[string]any with converted keys and values.
//  4. slices and arrays become []any in order; []byte becomes string.
//  5. time.Time renders as "2006-01-02T15:04:05".
//  6. models.Date renders as "2006-01-02".
//  7. models.TimeOfDay renders as "15:04:05".
//  8. models.User becomes a field map without the password field.
//  9. any other struct becomes a field map of its json-tagged fields.
//  10. everything else is ErrUnsupportedType (or nil under IgnoreErrors).
func (c *NativeConverter) Convert(v any) (any, error) {
	return c.convert(v, 0)
}

// ConvertFields converts a record to a field map with explicit field
// selection. A non-empty include list keeps only the named fields and
// overrides exclude; otherwise the excluded fields are dropped.
func (c *NativeConverter) ConvertFields(v any, include, exclude []string) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T is not a record", ErrUnsupportedType, v)
	}
	return c.fieldMap(rv, include, exclude, 0)
}

func (c *NativeConverter) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return defaults.ConvertMaxDepth
}

func (c *NativeConverter) convert(v any, depth int) (any, error) {
	if depth > c.maxDepth() {
		if c.IgnoreErrors {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: depth %d exceeds cap", ErrUnsupportedType, depth)
	}
	if v == nil {
		return nil, nil
	}

	switch t := v.(type) {
	case time.Time:
		return t.Format(models.DateTimeLayout), nil
	case models.Date:
		return t.Format(models.DateLayout), nil
	case models.TimeOfDay:
		return t.Format(models.TimeOfDayLayout), nil
	case models.User:
		return c.fieldMap(reflect.ValueOf(t), nil, []string{"password"}, depth)
	case []byte:
		return string(t), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return c.convert(rv.Elem().Interface(), depth)

	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil

	case reflect.Map:
		return c.convertMap(rv, depth)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes()), nil
		}
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			el, err := c.convert(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = el
		}
		return out, nil

	case reflect.Struct:
		return c.fieldMap(rv, nil, nil, depth)
	}

	if c.IgnoreErrors {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

func (c *NativeConverter) convertMap(rv reflect.Value, depth int) (map[string]any, error) {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := c.convert(iter.Key().Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		ks, ok := key.(string)
		if !ok {
			ks = fmt.Sprint(key)
		}
		val, err := c.convert(iter.Value().Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		out[ks] = val
	}
	return out, nil
}

// fieldMap projects the exported, locally declared fields of a struct into
// a map keyed by json tag. Fields tagged "-" never appear.
func (c *NativeConverter) fieldMap(rv reflect.Value, include, exclude []string, depth int) (map[string]any, error) {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, ok := jsonFieldName(f)
		if !ok {
			continue
		}
		if len(include) > 0 {
			if !slices.Contains(include, name) {
				continue
			}
		} else if slices.Contains(exclude, name) {
			continue
		}
		val, err := c.convert(rv.Field(i).Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}

func jsonFieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name, true
	}
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return "", false
	case "":
		return f.Name, true
	}
	return name, true
}
