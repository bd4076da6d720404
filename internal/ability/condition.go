package ability

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RefUserID references the id of the principal making the request. Conditions
// using it express ownership.
const RefUserID = "User.id"

// Snapshot is the subset of an entity's fields that conditions are evaluated
// against, plus any principal references the caller has resolved into it.
type Snapshot map[string]any

// With returns a copy of s with key set to v. The receiver is never modified.
func (s Snapshot) With(key string, v any) Snapshot {
	out := make(Snapshot, len(s)+1)
	for k, val := range s {
		out[k] = val
	}
	out[key] = v
	return out
}

// WithPrincipal resolves the RefUserID cross reference for the given principal id.
func (s Snapshot) WithPrincipal(userID any) Snapshot {
	return s.With(RefUserID, userID)
}

// Condition is a single equality predicate over a Snapshot. It compares the
// snapshot's Field either to a literal Value or, when Ref is set, to the value
// the caller resolved under Ref. The engine never looks the reference up
// itself; an unresolved reference does not hold.
type Condition struct {
	Field string
	Value any
	Ref   string
}

// Eq builds a literal-equality condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Value: value}
}

// SameAs builds a condition requiring field to equal the resolved reference ref.
func SameAs(field, ref string) Condition {
	return Condition{Field: field, Ref: ref}
}

// IsReference reports whether the condition compares against a resolved reference.
func (c Condition) IsReference() bool {
	return c.Ref != ""
}

func (c Condition) holds(data Snapshot) bool {
	if data == nil {
		return false
	}
	got, ok := data[c.Field]
	if !ok {
		return false
	}
	want := c.Value
	if c.IsReference() {
		if want, ok = data[c.Ref]; !ok {
			return false
		}
	}
	return Same(got, want)
}

func (c Condition) String() string {
	if c.IsReference() {
		return fmt.Sprintf("%s == %s", c.Field, c.Ref)
	}
	return fmt.Sprintf("%s == %v", c.Field, c.Value)
}

// Same reports whether a and b denote the same value once both are reduced to
// their canonical string form. Empty or unsupported values never compare equal,
// so a blank owner id cannot match a principal whose id was never resolved.
// As a consequence Eq(field, "") never holds.
func Same(a, b any) bool {
	ca, ok := Canonical(a)
	if !ok || ca == "" {
		return false
	}
	cb, ok := Canonical(b)
	if !ok || cb == "" {
		return false
	}
	return ca == cb
}

// Canonical reduces identifier-like values to a single string representation so
// that 42, int64(42), "42" and json.Number("42") are interchangeable, and a UUID
// compares equal to its textual form in any letter case. Named types reduce by
// their underlying kind.
func Canonical(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return canonicalString(t), true
	case []byte:
		return canonicalString(string(t)), true
	case uuid.UUID:
		return t.String(), true
	case *uuid.UUID:
		if t == nil {
			return "", false
		}
		return t.String(), true
	case json.Number:
		return canonicalString(t.String()), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.FormatInt(int64(t), 10), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return canonicalFloat(float64(t)), true
	case float64:
		return canonicalFloat(t), true
	case fmt.Stringer:
		return canonicalString(t.String()), true
	}
	return canonicalKind(reflect.ValueOf(v))
}

// canonicalKind handles named types such as `type Status string` or
// `type ID int64` by their underlying kind.
func canonicalKind(rv reflect.Value) (string, bool) {
	switch rv.Kind() {
	case reflect.String:
		return canonicalString(rv.String()), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return canonicalFloat(rv.Float()), true
	case reflect.Pointer:
		if rv.IsNil() {
			return "", false
		}
		return Canonical(rv.Elem().Interface())
	}
	return "", false
}

func canonicalString(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 36 {
		if id, err := uuid.Parse(s); err == nil {
			return id.String()
		}
	}
	return s
}

func canonicalFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
