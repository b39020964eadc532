// Package diagnostics models the client-side debugging tree attached to a
// bug report and renders it as indented HTML lines.
package diagnostics

import "strconv"

type kind uint8

const (
	kindScalar kind = iota
	kindMapping
)

// Node is either a scalar or an ordered mapping of unique keys to nodes.
type Node struct {
	kind   kind
	text   string
	fields []Field
}

// Field is one key of a mapping. Keys keep their insertion order.
type Field struct {
	Key   string
	Value *Node
}

func F(key string, value *Node) Field {
	return Field{Key: key, Value: value}
}

// Map builds a mapping node. A repeated key replaces the earlier value in
// place.
func Map(fields ...Field) *Node {
	n := &Node{kind: kindMapping}
	for _, f := range fields {
		n.Set(f.Key, f.Value)
	}
	return n
}

func String(s string) *Node {
	return &Node{kind: kindScalar, text: s}
}

func Int(i int64) *Node {
	return &Node{kind: kindScalar, text: strconv.FormatInt(i, 10)}
}

func Float(f float64) *Node {
	return &Node{kind: kindScalar, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Bool renders as 1 or 0, never as true/false.
func Bool(b bool) *Node {
	if b {
		return &Node{kind: kindScalar, text: "1"}
	}
	return &Node{kind: kindScalar, text: "0"}
}

func Null() *Node {
	return &Node{kind: kindScalar}
}

func (n *Node) IsMapping() bool {
	return n != nil && n.kind == kindMapping
}

// Text returns the rendered scalar value. Mappings have no text.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return n.text
}

// Fields returns the mapping entries in order.
func (n *Node) Fields() []Field {
	if n == nil {
		return nil
	}
	return n.fields
}

// Get returns the value stored under key, or nil.
func (n *Node) Get(key string) *Node {
	for _, f := range n.Fields() {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Set stores value under key, keeping the position of an existing key.
func (n *Node) Set(key string, value *Node) {
	if value == nil {
		value = Null()
	}
	for i := range n.fields {
		if n.fields[i].Key == key {
			n.fields[i].Value = value
			return
		}
	}
	n.fields = append(n.fields, Field{Key: key, Value: value})
}
