// ABOUTME: Recursive human-readable printer for records, query rows and nested JSON
// ABOUTME: Used for operator-facing debug output only; rendering failures never escape

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// DefaultTruncate is the number of runes kept from long string values.
const DefaultTruncate = 40

// DefaultIndent is the starting indent level.
const DefaultIndent = 4

// Options configures a Renderer.
type Options struct {
	Truncate int  // runes kept from string values; 0 means DefaultTruncate
	Indent   int  // starting indent level; 0 means DefaultIndent
	Color    bool // bright keys and dim values when the output is a terminal
}

// Renderer writes Value trees to w.
type Renderer struct {
	w        io.Writer
	truncate int
	indent   int
	key      *color.Color
	val      *color.Color
}

// New creates a Renderer writing to w.
func New(w io.Writer, opts Options) *Renderer {
	r := &Renderer{
		w:        w,
		truncate: opts.Truncate,
		indent:   opts.Indent,
		key:      color.New(color.Bold),
		val:      color.New(color.Faint),
	}
	if r.truncate <= 0 {
		r.truncate = DefaultTruncate
	}
	if r.indent <= 0 {
		r.indent = DefaultIndent
	}
	if !opts.Color {
		r.key.DisableColor()
		r.val.DisableColor()
	}
	return r
}

// Render writes v. It never panics; anything that cannot be rendered
// structurally is written with fmt.
func (r *Renderer) Render(v Value) {
	defer func() {
		if p := recover(); p != nil {
			fmt.Fprintf(r.w, "%v\n", v)
		}
	}()
	r.render(v, r.indent)
}

// RenderAny converts v with FromAny and renders it.
func (r *Renderer) RenderAny(v any) {
	r.Render(FromAny(v))
}

func (r *Renderer) render(v Value, indent int) {
	switch t := v.(type) {
	case Mapping:
		r.mapping(t, indent)
	case Sequence:
		for _, item := range t {
			switch nested := item.(type) {
			case Mapping:
				r.mapping(nested, indent+2)
			case Sequence:
				r.render(nested, indent+2)
			default:
				r.label(r.text(item), indent)
			}
		}
	case Scalar:
		r.label(r.text(t), indent)
	case nil:
	default:
		fmt.Fprintf(r.w, "%v\n", t)
	}
}

func (r *Renderer) mapping(m Mapping, indent int) {
	for _, f := range m {
		switch v := f.Value.(type) {
		case Mapping:
			r.label(f.Key, indent)
			r.mapping(v, indent+1)
		case Sequence:
			r.label(f.Key, indent)
			for _, item := range v {
				if nested, ok := item.(Mapping); ok {
					r.mapping(nested, indent+2)
					continue
				}
				r.label(r.text(item), indent+1)
			}
		case Scalar:
			if s, ok := v.V.(string); ok {
				if nested, ok := parseNested(s); ok {
					r.label(f.Key, indent)
					r.render(nested, indent)
					continue
				}
			}
			r.pair(f.Key, r.text(v), indent)
		default:
			r.pair(f.Key, r.text(v), indent)
		}
	}
}

// text renders a leaf: 0/1 integers read as booleans, strings are
// truncated with newlines collapsed.
func (r *Renderer) text(v Value) string {
	s, ok := v.(Scalar)
	if !ok {
		return fmt.Sprint(v)
	}
	switch t := s.V.(type) {
	case int64:
		if t == 0 || t == 1 {
			return scalarText(t == 1)
		}
	case string:
		return r.clip(t)
	}
	return scalarText(s.V)
}

func (r *Renderer) clip(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	runes := []rune(s)
	if len(runes) > r.truncate {
		return string(runes[:r.truncate])
	}
	return s
}

func (r *Renderer) label(k string, indent int) {
	r.key.Fprintln(r.w, column(k, indent))
}

func (r *Renderer) pair(k, v string, indent int) {
	r.key.Fprint(r.w, column(k, indent))
	fmt.Fprint(r.w, " ")
	r.val.Fprintln(r.w, v)
}

// column left-justifies k in 4*indent cells and centers the result in
// 5*indent cells, so nested levels drift right.
func column(k string, indent int) string {
	return center(ljust(k, 4*indent), 5*indent)
}

func ljust(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	margin := width - n
	left := margin/2 + (margin & width & 1)
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", margin-left)
}
