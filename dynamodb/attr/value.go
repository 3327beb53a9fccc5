// Package attr is a closed, typed representation of DynamoDB attribute values.
//
// Items are assembled from Values before anything touches the network, so a
// number that is not a number or a key of the wrong kind is caught locally
// instead of surfacing as a remote ValidationException.
package attr

import (
	"bytes"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind is the wire type of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBinary
	KindBool
	KindNull
	KindList
	KindMap
)

// String returns the DynamoDB type descriptor of the kind, e.g. "S" or "BOOL".
func (k Kind) String() string {
	switch k {
	case KindString:
		return "S"
	case KindNumber:
		return "N"
	case KindBinary:
		return "B"
	case KindBool:
		return "BOOL"
	case KindNull:
		return "NULL"
	case KindList:
		return "L"
	case KindMap:
		return "M"
	default:
		return "INVALID"
	}
}

// Value is a single attribute value. The zero Value is invalid.
type Value struct {
	kind Kind
	s    string // S, and N in its original textual form
	b    []byte
	bl   bool
	l    []Value
	m    map[string]Value
}

// Item is a full record keyed by attribute name.
type Item map[string]Value

// DynamoDB numbers: optional sign, digits with an optional fraction, optional exponent.
var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// maxNumberDigits is the precision DynamoDB guarantees for numbers.
const maxNumberDigits = 38

func String(s string) Value { return Value{kind: KindString, s: s} }

func Binary(b []byte) Value { return Value{kind: KindBinary, b: bytes.Clone(b)} }

func Bool(b bool) Value { return Value{kind: KindBool, bl: b} }

func Null() Value { return Value{kind: KindNull} }

func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// Number validates s as a DynamoDB number.
func Number(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if !numberPattern.MatchString(s) {
		return Value{}, fmt.Errorf("%q is not a valid number", s)
	}
	if digits := significantDigits(s); digits > maxNumberDigits {
		return Value{}, fmt.Errorf("number %q has %d significant digits, at most %d are supported", s, digits, maxNumberDigits)
	}
	return Value{kind: KindNumber, s: s}, nil
}

// MustNumber is Number for literals known to be valid.
func MustNumber(s string) Value {
	v, err := Number(s)
	if err != nil {
		panic(err)
	}
	return v
}

func List(vs ...Value) Value {
	l := make([]Value, len(vs))
	copy(l, vs)
	return Value{kind: KindList, l: l}
}

func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Str returns the string payload of an S value.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Num returns the textual form of an N value.
func (v Value) Num() (string, bool) {
	return v.s, v.kind == KindNumber
}

// Bytes returns the payload of a B value.
func (v Value) Bytes() ([]byte, bool) {
	return v.b, v.kind == KindBinary
}

func (v Value) BoolValue() (bool, bool) {
	return v.bl, v.kind == KindBool
}

func (v Value) ListValue() ([]Value, bool) {
	return v.l, v.kind == KindList
}

func (v Value) MapValue() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

// CanonicalNumber returns a normalised representation of an N value so that
// "1", "1.0" and "10e-1" compare equal.
func (v Value) CanonicalNumber() (string, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return canonicalNumber(v.s), true
}

func canonicalNumber(s string) string {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return s
	}
	if r.IsInt() {
		return r.Num().String()
	}
	return r.RatString()
}

func significantDigits(s string) int {
	mantissa := strings.TrimLeft(s, "+-")
	if i := strings.IndexAny(mantissa, "eE"); i >= 0 {
		mantissa = mantissa[:i]
	}
	mantissa = strings.Replace(mantissa, ".", "", 1)
	mantissa = strings.TrimLeft(mantissa, "0")
	mantissa = strings.TrimRight(mantissa, "0")
	return len(mantissa)
}

// Equal reports whether a and b hold the same value. Numbers are compared by value.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.s == b.s
	case KindNumber:
		return canonicalNumber(a.s) == canonicalNumber(b.s)
	case KindBinary:
		return bytes.Equal(a.b, b.b)
	case KindBool:
		return a.bl == b.bl
	case KindNull, KindInvalid:
		return true
	case KindList:
		if len(a.l) != len(b.l) {
			return false
		}
		for i := range a.l {
			if !Equal(a.l[i], b.l[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return ItemsEqual(a.m, b.m)
	}
	return false
}

// ItemsEqual compares two items attribute by attribute.
func ItemsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// Names returns the attribute names of the item in sorted order.
func (it Item) Names() []string {
	names := make([]string, 0, len(it))
	for k := range it {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy of the item.
func (it Item) Clone() Item {
	cp := make(Item, len(it))
	for k, v := range it {
		cp[k] = v
	}
	return cp
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindNumber:
		return v.s
	case KindBinary:
		return fmt.Sprintf("<%d bytes>", len(v.b))
	case KindBool:
		return strconv.FormatBool(v.bl)
	case KindNull:
		return "null"
	case KindList:
		parts := make([]string, len(v.l))
		for i, e := range v.l {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<invalid>"
	}
}
