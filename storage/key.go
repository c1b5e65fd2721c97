package storage

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// ErrInvalidKey is returned by every key bearing operation when the key is composite.
var ErrInvalidKey = errors.New("key can not be an array or object")

// Key converts a scalar key to the string form used for lookups. Integers, floats,
// booleans and strings (including named types of those) are accepted, so 42 and "42"
// address the same slot. Slices, arrays, maps, structs, pointers and the like are
// rejected with ErrInvalidKey.
func Key(key interface{}) (string, error) {
	if key == nil {
		return "", nil
	}
	if s, ok := key.(string); ok {
		return s, nil
	}

	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	case reflect.Bool:
		if v.Bool() {
			return "1", nil
		}
		return "", nil
	default:
		return "", fmt.Errorf("%w: got %T", ErrInvalidKey, key)
	}
}
