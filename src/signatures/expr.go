// backend/src/signatures/expr.go
package signatures

import "strings"

// Expr is a compiled column mapping value: an ordered list of literal and
// source-column segments. Evaluation stays pure data lookup; a mapping never
// executes anything against the row.
type Expr struct {
	raw        string
	segments   []segment
	isTemplate bool
}

type segment struct {
	literal string
	column  string
}

// CompileExpr parses a mapping value. Values containing "{...}" references
// are templates; any other value is resolved at evaluation time as a source
// column alias if the column exists, otherwise as a constant. That mirrors
// the three mapping forms the signature files declare.
func CompileExpr(value string) Expr {
	if !strings.Contains(value, "{") || !strings.Contains(value, "}") {
		return Expr{raw: value}
	}

	var segments []segment
	rest := value
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			break
		}
		closing := strings.Index(rest[open:], "}")
		if closing < 0 {
			break
		}
		if open > 0 {
			segments = append(segments, segment{literal: rest[:open]})
		}
		segments = append(segments, segment{column: rest[open+1 : open+closing]})
		rest = rest[open+closing+1:]
	}
	if rest != "" {
		segments = append(segments, segment{literal: rest})
	}
	return Expr{raw: value, segments: segments, isTemplate: true}
}

// Eval produces the target cell for one row. lookup resolves a source column
// name to its value; the second result reports whether the column exists.
// Missing columns referenced by a template evaluate to "".
func (e Expr) Eval(lookup func(column string) (string, bool)) string {
	if !e.isTemplate {
		if v, ok := lookup(e.raw); ok {
			return v
		}
		return e.raw // constant
	}

	var b strings.Builder
	for _, seg := range e.segments {
		if seg.column == "" {
			b.WriteString(seg.literal)
			continue
		}
		if v, ok := lookup(seg.column); ok {
			b.WriteString(v)
		}
	}
	return b.String()
}
