package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind tags the variant held by a Scalar or a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Scalar is a leaf value. Numbers keep their exact decimal text so that
// 64-bit identifiers and timestamps survive untouched.
type Scalar struct {
	kind Kind
	text string
}

func Null() Scalar { return Scalar{kind: KindNull} }

func StringScalar(s string) Scalar { return Scalar{kind: KindString, text: s} }

func NumberScalar(n string) Scalar { return Scalar{kind: KindNumber, text: n} }

func FloatScalar(f float64) Scalar { return NumberScalar(strconv.FormatFloat(f, 'g', -1, 64)) }

func IntScalar(i int64) Scalar { return NumberScalar(strconv.FormatInt(i, 10)) }

func BoolScalar(b bool) Scalar { return Scalar{kind: KindBool, text: strconv.FormatBool(b)} }

func (s Scalar) Kind() Kind { return s.kind }

func (s Scalar) IsNull() bool { return s.kind == KindNull }

func (s Scalar) Equal(o Scalar) bool { return s.kind == o.kind && s.text == o.text }

// String returns the textual form: the string itself, the number as written,
// "true"/"false", or "" for null.
func (s Scalar) String() string { return s.text }

// Float64 parses numbers and numeric strings.
func (s Scalar) Float64() (float64, bool) {
	if s.kind != KindNumber && s.kind != KindString {
		return 0, false
	}
	f, err := strconv.ParseFloat(s.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int64 parses integral numbers and integral strings. int64 and uint64
// fields are rendered as strings in canonical protobuf JSON, hence the
// string case.
func (s Scalar) Int64() (int64, bool) {
	if s.kind != KindNumber && s.kind != KindString {
		return 0, false
	}
	i, err := strconv.ParseInt(s.text, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s Scalar) writeJSON(buf *bytes.Buffer) error {
	switch s.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		b, err := json.Marshal(s.text)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindNumber, KindBool:
		buf.WriteString(s.text)
	default:
		return fmt.Errorf("scalar of kind %s", s.kind)
	}
	return nil
}

// Field is one key of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// Value is a tagged tree: a Scalar, an insertion-ordered Mapping or a
// Sequence.
type Value struct {
	kind   Kind
	scalar Scalar
	fields []Field
	items  []Value
}

func ScalarValue(s Scalar) Value { return Value{kind: s.kind, scalar: s} }

func MappingValue(fields ...Field) Value {
	return Value{kind: KindMapping, fields: append([]Field{}, fields...)}
}

func SequenceValue(items ...Value) Value {
	return Value{kind: KindSequence, items: append([]Value{}, items...)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Scalar() Scalar { return v.scalar }

func (v Value) Fields() []Field { return v.fields }

func (v Value) Items() []Value { return v.items }

func (v Value) isScalar() bool { return v.kind != KindMapping && v.kind != KindSequence }

// Lookup returns the value stored under key in a Mapping.
func (v Value) Lookup(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Path follows keys through nested mappings.
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Lookup(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Equal compares structurally. Mapping key order does not matter.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMapping:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for _, f := range v.fields {
			other, ok := o.Lookup(f.Key)
			if !ok || !f.Value.Equal(other) {
				return false
			}
		}
		return true
	case KindSequence:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		return v.scalar.Equal(o.scalar)
	}
}

// MarshalJSON writes compact JSON, keeping mapping keys in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindMapping:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return v.scalar.writeJSON(buf)
	}
	return nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseJSON reads exactly one JSON document into a Value. Object key order
// is preserved and numbers keep their literal text.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func readValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var fields []Field
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				child, err := readValue(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, Field{Key: key, Value: child})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindMapping, fields: fields}, nil
		case '[':
			var items []Value
			for dec.More() {
				child, err := readValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, child)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindSequence, items: items}, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return ScalarValue(StringScalar(t)), nil
	case json.Number:
		return ScalarValue(NumberScalar(t.String())), nil
	case bool:
		return ScalarValue(BoolScalar(t)), nil
	case nil:
		return ScalarValue(Null()), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}
