package diagnostics

import (
	"html"
	"strings"
)

// IndentUnit is prepended once per nesting level.
const IndentUnit = "&nbsp;&nbsp;"

// Flatten renders root from indent level zero.
func Flatten(root *Node) []string {
	return FlattenAt(root, 0)
}

// FlattenAt renders a mapping as display lines. A key holding a mapping is
// written on its own line, followed by its children one level deeper and a
// blank separator line. A key holding a scalar is written as
// "<indent><strong>key:</strong>  value". Keys and values are HTML-escaped.
//
// Mappings nested more than MaxDepth levels below root are rendered as a
// single TruncatedMarker line, matching what Parse keeps. A parsed empty
// mapping yields an empty, non-nil slice; a non-mapping root yields nil.
func FlattenAt(root *Node, level int) []string {
	if !root.IsMapping() {
		return nil
	}

	type frame struct {
		fields []Field
		next   int
		indent string
		depth  int
	}

	lines := []string{}
	stack := []frame{{fields: root.fields, indent: strings.Repeat(IndentUnit, level), depth: 1}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.fields) {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				lines = append(lines, "")
			}
			continue
		}

		f := top.fields[top.next]
		top.next++
		key := html.EscapeString(f.Key)

		if f.Value.IsMapping() {
			if top.depth >= MaxDepth {
				lines = append(lines, top.indent+"<strong>"+key+":</strong>  "+html.EscapeString(TruncatedMarker))
				continue
			}
			lines = append(lines, top.indent+key)
			stack = append(stack, frame{fields: f.Value.fields, indent: top.indent + IndentUnit, depth: top.depth + 1})
			continue
		}

		lines = append(lines, top.indent+"<strong>"+key+":</strong>  "+html.EscapeString(f.Value.Text()))
	}

	return lines
}
