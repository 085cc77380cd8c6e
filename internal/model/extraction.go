package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ResultKind tags the two shapes extraction output can take.
type ResultKind int

const (
	// ResultText is unstructured prose produced by prompt-method batches.
	ResultText ResultKind = iota + 1
	// ResultStructured is an ordered set of named field values.
	ResultStructured
)

// ExtractionResult is the tagged variant replacing the original's
// "string or object, inspect at render time" convention. On the wire it
// keeps the original shape: a bare JSON string for text results, a JSON
// object for structured ones.
type ExtractionResult struct {
	kind   ResultKind
	text   string
	fields []FieldValue
}

// FieldValue is one named value of a structured result. Field order is
// meaningful: it drives display order and export column order.
type FieldValue struct {
	Name  string
	Value Value
}

// NewTextResult wraps prompt-method output.
func NewTextResult(text string) ExtractionResult {
	return ExtractionResult{kind: ResultText, text: text}
}

// NewStructuredResult wraps structure-method output, preserving field order.
func NewStructuredResult(fields []FieldValue) ExtractionResult {
	return ExtractionResult{kind: ResultStructured, fields: fields}
}

// Kind reports which variant is populated.
func (r ExtractionResult) Kind() ResultKind { return r.kind }

// Text returns the prose of a text result ("" for structured results).
func (r ExtractionResult) Text() string { return r.text }

// Fields returns the ordered fields of a structured result (nil for text).
func (r ExtractionResult) Fields() []FieldValue { return r.fields }

// Field returns the value for name and whether it exists.
func (r ExtractionResult) Field(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Clone returns a deep copy.
func (r ExtractionResult) Clone() ExtractionResult {
	out := r
	if r.fields != nil {
		out.fields = make([]FieldValue, len(r.fields))
		for i, f := range r.fields {
			out.fields[i] = FieldValue{Name: f.Name, Value: f.Value.Clone()}
		}
	}
	return out
}

// MarshalJSON encodes text results as a JSON string and structured results
// as a JSON object whose keys appear in field order.
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case ResultText:
		return json.Marshal(r.text)
	case ResultStructured:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, f := range r.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Name)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(f.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("marshal extraction result: unknown kind %d", r.kind)
	}
}

// UnmarshalJSON sniffs the variant from the leading token and, for objects,
// preserves key order via a streaming decode.
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("unmarshal extraction result: empty input")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = NewTextResult(s)
		return nil
	case '{':
		fields, err := decodeOrderedFields(data)
		if err != nil {
			return err
		}
		*r = NewStructuredResult(fields)
		return nil
	default:
		return fmt.Errorf("unmarshal extraction result: expected string or object, got %q", trimmed[0])
	}
}

func decodeOrderedFields(data []byte) ([]FieldValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("decoding structured result: expected object")
	}

	var fields []FieldValue
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decoding structured result: non-string key %v", keyTok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decoding field %q: %w", key, err)
		}
		fields = append(fields, FieldValue{Name: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// ValueKind tags a single field value.
type ValueKind int

const (
	ValueString ValueKind = iota + 1
	ValueNumber
	ValueList
)

// Value is one extracted field value: a string, a number, or a list of
// line items (long receipts).
type Value struct {
	Kind  ValueKind
	Str   string
	Num   float64
	Items []LineItem
}

// LineItem is one row of an itemized value (receipt line items).
type LineItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
	Total float64 `json:"total"`
}

// StringValue wraps a plain string.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Num: n} }

// ListValue wraps line items.
func ListValue(items []LineItem) Value { return Value{Kind: ValueList, Items: items} }

// Clone returns a deep copy.
func (v Value) Clone() Value {
	out := v
	if v.Items != nil {
		out.Items = make([]LineItem, len(v.Items))
		copy(out.Items, v.Items)
	}
	return out
}

// Display renders the value for panels and exports. Lists collapse to an
// item-count summary, matching the original extracted-data panel.
func (v Value) Display() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueList:
		return fmt.Sprintf("%d items", len(v.Items))
	default:
		return ""
	}
}

// MarshalJSON writes the underlying scalar or array directly.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.Str)
	case ValueNumber:
		return json.Marshal(v.Num)
	case ValueList:
		items := v.Items
		if items == nil {
			items = []LineItem{}
		}
		return json.Marshal(items)
	default:
		return nil, fmt.Errorf("marshal value: unknown kind %d", v.Kind)
	}
}

// UnmarshalJSON sniffs the scalar-or-list shape.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("unmarshal value: empty input")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var items []LineItem
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = ListValue(items)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		if b {
			*v = StringValue("Yes")
		} else {
			*v = StringValue("No")
		}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}
