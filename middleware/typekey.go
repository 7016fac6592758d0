package middleware

import (
	"reflect"
	"strings"
)

// qualifiedType names the message type of a call by import path, so types that
// print alike from different packages stay apart. It falls back to fallback for
// a nil message.
func qualifiedType(msg any, fallback string) string {
	t := reflect.TypeOf(msg)
	if t == nil {
		return fallback
	}

	var stars strings.Builder
	for t.Kind() == reflect.Pointer {
		stars.WriteByte('*')
		t = t.Elem()
	}

	if t.Name() == "" || t.PkgPath() == "" {
		return stars.String() + t.String()
	}

	return stars.String() + t.PkgPath() + "." + t.Name()
}
