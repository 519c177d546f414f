package datalog

import (
	"fmt"
	"time"
)

// Value represents any value that can be stored in a Datom
// Just like C++ uses boost::variant with direct types,
// we use interface{} with direct Go types
type Value interface{}

// Valid value types:
// - string
// - int64
// - float64
// - bool
// - time.Time
// - []byte
// - Identity (for references to other entities)
// - Keyword (when used as a value, e.g., storing :status/active)

// Reference is an alias for Identity when used as a value
// This makes it clear when we're storing an entity reference
type Reference = Identity

// Helper functions for creating typed values
func String(s string) Value        { return s }
func Int(i int64) Value            { return i }
func Float(f float64) Value        { return f }
func Bool(b bool) Value            { return b }
func Time(t time.Time) Value       { return t }
func Bytes(b []byte) Value         { return b }
func Ref(id Identity) Value        { return Reference(id) }
func KeywordValue(k Keyword) Value { return k }

// nullValue and botValue are the two sentinel values used to describe open
// range bounds: Null sorts below every real value, Bot sorts above every
// real value. They never appear in stored datoms, only in computed bounds.
type nullValue struct{}
type botValue struct{}

// Null is the minimum value in the ordering: an absent lower bound.
var Null Value = nullValue{}

// Bot is the maximum value in the ordering: an absent upper bound.
var Bot Value = botValue{}

// IsNull reports whether v is the Null sentinel.
func IsNull(v Value) bool {
	_, ok := v.(nullValue)
	return ok
}

// IsBot reports whether v is the Bot sentinel.
func IsBot(v Value) bool {
	_, ok := v.(botValue)
	return ok
}

// EntityIdError is raised when a value used in an entity-position slot is
// not convertible to an Identity. Span pinpoints the offending expression
// in the operator tree that produced it.
type EntityIdError struct {
	Value Value
	Span  Span
}

func (e *EntityIdError) Error() string {
	return fmt.Sprintf("entity id expected, got %v at %s", e.Value, e.Span)
}

// Span identifies a location in the original query for error reporting.
// The core never constructs spans itself beyond what it is handed by the
// tree builder; a zero Span is valid and simply carries no position info.
type Span struct {
	Start int
	End   int
}

func (s Span) String() string {
	if s.Start == 0 && s.End == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// AsEntityID converts v to an Identity, the only representation the Triple
// join strategies accept in entity position.
func AsEntityID(v Value, span Span) (Identity, error) {
	switch val := v.(type) {
	case Identity:
		return val, nil
	case *Identity:
		return *val, nil
	default:
		return Identity{}, &EntityIdError{Value: v, Span: span}
	}
}
