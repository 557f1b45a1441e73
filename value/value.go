// Package value holds a tagged tree for decoded daemon and metadata payloads.
//
// Byte strings that are valid UTF-8 become String values, anything else stays Bytes,
// so a single undecodable field never fails the surrounding decode.
package value

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

type Kind int

const (
	Invalid Kind = iota
	String
	Bytes
	Int
	Float
	List
	Map
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case Int:
		return "int"
	case Float:
		return "float"
	case List:
		return "list"
	case Map:
		return "map"
	default:
		return "invalid"
	}
}

type Value struct {
	kind Kind
	raw  string
	i    int64
	f    float64
	list []Value
	m    map[string]Value
}

/* Constructors */

func OfString(s string) Value {
	if utf8.ValidString(s) {
		return Value{kind: String, raw: s}
	}
	return Value{kind: Bytes, raw: s}
}

func OfInt(i int64) Value {
	return Value{kind: Int, i: i}
}

func OfFloat(f float64) Value {
	return Value{kind: Float, f: f}
}

func OfList(items ...Value) Value {
	return Value{kind: List, list: items}
}

func OfMap(m map[string]Value) Value {
	return Value{kind: Map, m: m}
}

// From converts the output of a generic decoder into a tree. Unknown types become Invalid.
func From(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case string:
		return OfString(t)
	case []byte:
		return OfString(string(t))
	case bool:
		if t {
			return OfInt(1)
		}
		return OfInt(0)
	case int:
		return OfInt(int64(t))
	case int8:
		return OfInt(int64(t))
	case int16:
		return OfInt(int64(t))
	case int32:
		return OfInt(int64(t))
	case int64:
		return OfInt(t)
	case uint:
		return OfInt(int64(t))
	case uint8:
		return OfInt(int64(t))
	case uint16:
		return OfInt(int64(t))
	case uint32:
		return OfInt(int64(t))
	case uint64:
		return OfInt(int64(t))
	case float32:
		return OfFloat(float64(t))
	case float64:
		return OfFloat(t)
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, From(item))
		}
		return OfList(items...)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = From(item)
		}
		return OfMap(m)
	case map[interface{}]interface{}:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[keyString(k)] = From(item)
		}
		return OfMap(m)
	default:
		return Value{}
	}
}

func keyString(k interface{}) string {
	switch t := k.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

/* Accessors */

func (v Value) Kind() Kind {
	return v.kind
}

// Text returns the decoded text of a String value.
func (v Value) Text() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.raw, true
}

// Raw returns the undecoded bytes of a String or Bytes value.
func (v Value) Raw() ([]byte, bool) {
	if v.kind != String && v.kind != Bytes {
		return nil, false
	}
	return []byte(v.raw), true
}

func (v Value) Int() (int64, bool) {
	switch v.kind {
	case Int:
		return v.i, true
	case Float:
		return int64(v.f), true
	default:
		return 0, false
	}
}

func (v Value) Float() (float64, bool) {
	switch v.kind {
	case Float:
		return v.f, true
	case Int:
		return float64(v.i), true
	default:
		return 0, false
	}
}

func (v Value) List() []Value {
	if v.kind != List {
		return nil
	}
	return v.list
}

// Get returns the map entry for key, or an Invalid value.
func (v Value) Get(key string) Value {
	if v.kind != Map {
		return Value{}
	}
	return v.m[key]
}

func (v Value) Len() int {
	switch v.kind {
	case List:
		return len(v.list)
	case Map:
		return len(v.m)
	case String, Bytes:
		return len(v.raw)
	default:
		return 0
	}
}

// String renders the value for logs, quoting raw bytes.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.raw
	case Bytes:
		return strconv.Quote(v.raw)
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case List:
		return fmt.Sprintf("list(%d)", len(v.list))
	case Map:
		return fmt.Sprintf("map(%d)", len(v.m))
	default:
		return "<invalid>"
	}
}
