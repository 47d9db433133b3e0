package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

type RawMessage = json.RawMessage
type Number = json.Number
type Delim = json.Delim
type Decoder = json.Decoder
type Array []RawMessage

func NewDecoder(r io.Reader) *Decoder {
	return json.NewDecoder(r)
}

func Compact(dst *bytes.Buffer, src []byte) error {
	return json.Compact(dst, src)
}

func Indent(dst *bytes.Buffer, src []byte, prefix, indent string) error {
	return json.Indent(dst, src, prefix, indent)
}

func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func MarshalIndent(v any, prefix string, indent string) ([]byte, error) {
	return json.MarshalIndent(v, prefix, indent)
}

func Valid(data []byte) bool {
	return json.Valid(data)
}

func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

var (
	beginArray  = byte('[')
	beginObject = byte('{')
	beginString = byte('"')
	null        = RawMessage(`null`)
)

func IsNull(in RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(in), null)
}

func IsArray(in RawMessage) bool {
	in = bytes.TrimSpace(in)
	if len(in) == 0 {
		return false
	}
	return in[0] == beginArray
}

func IsEmptyArray(in RawMessage) bool {
	in = bytes.TrimSpace(in)
	if !IsArray(in) {
		return false
	}
	return len(bytes.TrimSpace(in[1:len(in)-1])) == 0
}

func IsMap(in RawMessage) bool {
	in = bytes.TrimSpace(in)
	if len(in) == 0 {
		return false
	}
	return in[0] == beginObject
}

func IsString(in RawMessage) bool {
	in = bytes.TrimSpace(in)
	if len(in) == 0 {
		return false
	}
	return in[0] == beginString
}

func IsScalar(in RawMessage) bool {
	return !IsArray(in) && !IsMap(in) && !IsNull(in)
}

func MakeArray(in RawMessage) RawMessage {
	if len(in) == 0 {
		return json.RawMessage(`[]`)
	}

	if IsArray(in) {
		return in
	}

	return bytes.Join([][]byte{
		[]byte(`[`),
		in,
		[]byte(`]`),
	}, nil)
}

// Object is a JSON object that remembers the order its keys were first
// seen in.
type Object struct {
	keys   []string
	values map[string]any
}

func NewObject() *Object {
	return &Object{values: map[string]any{}}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order. The returned slice must not
// be modified.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Set stores a value. Setting an existing key keeps its original position.
func (o *Object) Set(key string, value any) {
	if o.values == nil {
		o.values = map[string]any{}
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return null, nil
	}

	var buf bytes.Buffer
	buf.WriteByte(beginObject)
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var ErrTrailingData = errors.New("trailing data after JSON value")

type frame struct {
	obj     *Object
	arr     []any
	isObj   bool
	key     string
	wantKey bool
}

// Decode parses data into a tree of *Object, []any, string, Number, bool
// and nil. Object key order is preserved. Decoding does not recurse, so
// the nesting depth of the input is only bounded by memory.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		stack []*frame
		root  any
		done  bool
	)

	attach := func(v any) {
		if len(stack) == 0 {
			root = v
			done = true
			return
		}
		top := stack[len(stack)-1]
		if top.isObj {
			top.obj.Set(top.key, v)
			top.wantKey = true
			return
		}
		top.arr = append(top.arr, v)
	}

	for !done {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				stack = append(stack, &frame{obj: NewObject(), isObj: true, wantKey: true})
			case '[':
				stack = append(stack, &frame{arr: []any{}})
			case '}', ']':
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.isObj {
					attach(top.obj)
				} else {
					attach(top.arr)
				}
			}
		case string:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.isObj && top.wantKey {
					top.key = t
					top.wantKey = false
					continue
				}
			}
			attach(t)
		default:
			attach(t)
		}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	return root, nil
}
