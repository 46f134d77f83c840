package interp

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/rhuss/codebridge/pkg/guest"
)

type evaluator struct {
	ns     guest.Namespace
	output []string
}

// statement evaluates a single line. Assignments produce no value; expression
// statements report their value so the caller can track the final result.
func (e *evaluator) statement(ctx context.Context, line string) (any, bool, error) {
	toks, err := tokenize(line)
	if err != nil {
		return nil, false, err
	}
	p := &parser{toks: toks}

	// name = expr, but not name == expr or a kwarg inside a call
	if len(toks) >= 2 && toks[0].kind == tokName && toks[1].kind == tokAssign {
		p.pos = 2
		value, err := e.expr(ctx, p)
		if err != nil {
			return nil, false, err
		}
		if err := p.expectEnd(); err != nil {
			return nil, false, err
		}
		e.ns[toks[0].text] = value
		return nil, false, nil
	}

	value, err := e.expr(ctx, p)
	if err != nil {
		return nil, false, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// expr := term ("+" term)*
func (e *evaluator) expr(ctx context.Context, p *parser) (any, error) {
	left, err := e.term(ctx, p)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPlus {
		p.pos++
		right, err := e.term(ctx, p)
		if err != nil {
			return nil, err
		}
		left, err = add(left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (e *evaluator) term(ctx context.Context, p *parser) (any, error) {
	tok := p.peek()
	switch tok.kind {
	case tokString:
		p.pos++
		return tok.text, nil
	case tokNumber:
		p.pos++
		if i, err := strconv.ParseInt(tok.text, 10, 64); err == nil {
			return float64(i), nil
		}
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", tok.text)
		}
		return f, nil
	case tokName:
		p.pos++
		switch tok.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "none":
			return nil, nil
		}
		if p.peek().kind == tokLParen {
			return e.call(ctx, p, tok.text)
		}
		value, ok := e.ns[tok.text]
		if !ok {
			return nil, fmt.Errorf("name %q is not defined", tok.text)
		}
		return value, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected token %q", tok.text)
	}
}

func (e *evaluator) call(ctx context.Context, p *parser, name string) (any, error) {
	p.pos++ // consume "("

	var positional []any
	keyword := map[string]any{}

	for p.peek().kind != tokRParen {
		// kwarg: NAME "=" expr
		if p.peek().kind == tokName && p.peekAt(1).kind == tokAssign {
			key := p.peek().text
			p.pos += 2
			value, err := e.expr(ctx, p)
			if err != nil {
				return nil, err
			}
			keyword[key] = value
		} else {
			if len(keyword) > 0 {
				return nil, fmt.Errorf("positional argument after keyword argument in call to %q", name)
			}
			value, err := e.expr(ctx, p)
			if err != nil {
				return nil, err
			}
			positional = append(positional, value)
		}

		if p.peek().kind == tokComma {
			p.pos++
			continue
		}
		break
	}
	if p.peek().kind != tokRParen {
		return nil, fmt.Errorf("missing ) in call to %q", name)
	}
	p.pos++

	if name == "print" {
		e.output = append(e.output, formatArgs(positional))
		return nil, nil
	}

	target, ok := e.ns[name]
	if !ok {
		return nil, fmt.Errorf("name %q is not defined", name)
	}
	fn, ok := target.(guest.Callable)
	if !ok {
		return nil, fmt.Errorf("%q is not callable", name)
	}
	if len(keyword) == 0 {
		keyword = nil
	}
	return fn(ctx, positional, keyword)
}

func add(left, right any) (any, error) {
	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok {
			return nil, fmt.Errorf("cannot add %T to string", right)
		}
		return l + r, nil
	case float64:
		r, ok := right.(float64)
		if !ok {
			return nil, fmt.Errorf("cannot add %T to number", right)
		}
		return l + r, nil
	default:
		return nil, fmt.Errorf("cannot add values of type %T", left)
	}
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "none"
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// serializeValue encodes a result for the envelope. Values that resist JSON
// encoding are reduced to a field mapping or a string form instead of
// failing the whole run.
func serializeValue(v any) (json.RawMessage, error) {
	encoded, err := json.Marshal(v)
	if err == nil {
		return encoded, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		fields := map[string]any{}
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Type().Field(i)
			if !f.IsExported() {
				continue
			}
			fields[f.Name] = fmt.Sprint(rv.Field(i).Interface())
		}
		if encoded, err := json.Marshal(fields); err == nil {
			return encoded, nil
		}
	}
	return json.Marshal(fmt.Sprint(v))
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokNumber
	tokString
	tokLParen
	tokRParen
	tokComma
	tokAssign
	tokPlus
)

type token struct {
	kind tokenKind
	text string
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos+offset]
}

func (p *parser) expectEnd() error {
	if tok := p.peek(); tok.kind != tokEOF {
		return fmt.Errorf("unexpected trailing token %q", tok.text)
	}
	return nil
}

func tokenize(line string) ([]token, error) {
	var toks []token
	runes := []rune(line)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case r == '=':
			toks = append(toks, token{tokAssign, "="})
			i++
		case r == '+':
			toks = append(toks, token{tokPlus, "+"})
			i++
		case r == '"':
			j := i + 1
			var sb strings.Builder
			for j < len(runes) && runes[j] != '"' {
				if runes[j] == '\\' && j+1 < len(runes) {
					j++
					switch runes[j] {
					case 'n':
						sb.WriteRune('\n')
					case 't':
						sb.WriteRune('\t')
					default:
						sb.WriteRune(runes[j])
					}
				} else {
					sb.WriteRune(runes[j])
				}
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, token{tokString, sb.String()})
			i = j + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, string(runes[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, token{tokName, string(runes[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}
	return toks, nil
}
