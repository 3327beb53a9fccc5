package attr

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the value in DynamoDB JSON, e.g. {"N":"101"}.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(map[string]string{"S": v.s})
	case KindNumber:
		return json.Marshal(map[string]string{"N": v.s})
	case KindBinary:
		return json.Marshal(map[string][]byte{"B": v.b})
	case KindBool:
		return json.Marshal(map[string]bool{"BOOL": v.bl})
	case KindNull:
		return json.Marshal(map[string]bool{"NULL": true})
	case KindList:
		l := v.l
		if l == nil {
			l = []Value{}
		}
		return json.Marshal(map[string][]Value{"L": l})
	case KindMap:
		m := v.m
		if m == nil {
			m = map[string]Value{}
		}
		return json.Marshal(map[string]map[string]Value{"M": m})
	default:
		return nil, fmt.Errorf("attr: cannot marshal invalid value")
	}
}

// UnmarshalJSON decodes a DynamoDB JSON value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("attr: expected exactly one type descriptor, got %d", len(raw))
	}
	for desc, payload := range raw {
		switch desc {
		case "S":
			var s string
			if err := json.Unmarshal(payload, &s); err != nil {
				return fmt.Errorf("attr: S: %w", err)
			}
			*v = String(s)
		case "N":
			var s string
			if err := json.Unmarshal(payload, &s); err != nil {
				return fmt.Errorf("attr: N: %w", err)
			}
			n, err := Number(s)
			if err != nil {
				return fmt.Errorf("attr: %w", err)
			}
			*v = n
		case "B":
			var b []byte
			if err := json.Unmarshal(payload, &b); err != nil {
				return fmt.Errorf("attr: B: %w", err)
			}
			*v = Value{kind: KindBinary, b: b}
		case "BOOL":
			var b bool
			if err := json.Unmarshal(payload, &b); err != nil {
				return fmt.Errorf("attr: BOOL: %w", err)
			}
			*v = Bool(b)
		case "NULL":
			*v = Null()
		case "L":
			var l []Value
			if err := json.Unmarshal(payload, &l); err != nil {
				return fmt.Errorf("attr: L: %w", err)
			}
			*v = Value{kind: KindList, l: l}
		case "M":
			var m map[string]Value
			if err := json.Unmarshal(payload, &m); err != nil {
				return fmt.Errorf("attr: M: %w", err)
			}
			*v = Value{kind: KindMap, m: m}
		default:
			return fmt.Errorf("attr: unsupported type descriptor %q", desc)
		}
	}
	return nil
}

// Fingerprint returns a deterministic encoding of the item, usable as a map key
// to recognise the same item coming back from the store.
func Fingerprint(it Item) (string, error) {
	// encoding/json sorts map keys, so equal items encode identically.
	b, err := json.Marshal(map[string]Value(it))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// KeyFingerprint is Fingerprint for key items: numbers are encoded in
// canonical form, so keys DynamoDB considers equal ("1" and "1.0") share a
// fingerprint.
func KeyFingerprint(key Item) (string, error) {
	canon := make(Item, len(key))
	for name, v := range key {
		if n, ok := v.CanonicalNumber(); ok {
			v = Value{kind: KindNumber, s: n}
		}
		canon[name] = v
	}
	return Fingerprint(canon)
}
