// Package expr implements the Expr(program) column source: a small
// template-style expression language evaluated against an element's tags
// and metadata. It follows the same hand-written lexer/parser idiom as the
// dsl package rather than pulling in an expression-evaluation library (see
// DESIGN.md).
//
// A program is literal text interleaved with ${...} placeholders:
//
//	"${tag:name} (${tag:amenity})"
//
// Each placeholder is either "tag:<key>" or "meta:<field>". Unresolved
// placeholders (missing tag, unknown meta field) evaluate to the empty
// string; a program never fails at evaluation time, only at compile time.
package expr

import (
	"strconv"
	"strings"

	"github.com/mvexel/cosmo/cosmoerr"
	"github.com/mvexel/cosmo/feature"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segTag
	segMeta
)

type segment struct {
	kind    segmentKind
	literal string
	key     string // segTag: tag key; segMeta: metadata field name
}

// Program is a compiled expression, ready for repeated evaluation.
type Program struct {
	segments []segment
}

// Compile parses a program's source text. Malformed placeholders
// (unterminated "${", or a prefix other than "tag:"/"meta:") are a
// cosmoerr.ErrConfig failure at compile time.
func Compile(source string) (*Program, error) {
	var segs []segment
	i := 0
	for i < len(source) {
		start := strings.Index(source[i:], "${")
		if start < 0 {
			segs = append(segs, segment{kind: segLiteral, literal: source[i:]})
			break
		}
		start += i
		if start > i {
			segs = append(segs, segment{kind: segLiteral, literal: source[i:start]})
		}
		end := strings.Index(source[start:], "}")
		if end < 0 {
			return nil, cosmoerr.Wrapf(cosmoerr.ErrConfig, "unterminated placeholder in expression %q", source)
		}
		end += start
		placeholder := source[start+2 : end]
		seg, err := compilePlaceholder(placeholder)
		if err != nil {
			return nil, cosmoerr.Wrapf(err, "in expression %q", source)
		}
		segs = append(segs, seg)
		i = end + 1
	}
	return &Program{segments: segs}, nil
}

func compilePlaceholder(placeholder string) (segment, error) {
	switch {
	case strings.HasPrefix(placeholder, "tag:"):
		return segment{kind: segTag, key: strings.TrimPrefix(placeholder, "tag:")}, nil
	case strings.HasPrefix(placeholder, "meta:"):
		return segment{kind: segMeta, key: strings.TrimPrefix(placeholder, "meta:")}, nil
	default:
		return segment{}, cosmoerr.Wrapf(cosmoerr.ErrConfig, "placeholder %q must start with tag: or meta:", placeholder)
	}
}

// Evaluate renders the program against a tag map and metadata. Evaluation
// never fails: unresolved placeholders contribute an empty string.
func (p *Program) Evaluate(tags map[string]string, meta feature.MetadataFields) string {
	var sb strings.Builder
	for _, seg := range p.segments {
		switch seg.kind {
		case segLiteral:
			sb.WriteString(seg.literal)
		case segTag:
			sb.WriteString(tags[seg.key])
		case segMeta:
			v := meta.Value(seg.key)
			if !v.Null {
				sb.WriteString(stringify(v))
			}
		}
	}
	return sb.String()
}

func stringify(v feature.ColumnValue) string {
	switch v.Type {
	case feature.ColumnString:
		return v.Str
	case feature.ColumnInteger:
		return strconv.FormatInt(v.Int, 10)
	case feature.ColumnFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	default:
		return ""
	}
}
