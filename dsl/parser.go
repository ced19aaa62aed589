package dsl

import (
	"strings"

	"github.com/mvexel/cosmo/cosmoerr"
)

// Grammar (rough EBNF):
//
//	filter     = or_expr
//	or_expr    = and_expr ("|" and_expr)*
//	and_expr   = unary_expr ("&" unary_expr)*
//	unary_expr = "!" unary_expr | primary
//	primary    = "(" filter ")" | tag_expr
//	tag_expr   = IDENT (compare_op value_list)?
//	compare_op = "=" | "!=" | "<" | "<=" | ">" | ">="
//	value_list = value ("|" value)*
//	value      = IDENT | NUMBER | "*"
type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) Token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[idx]
}

func (p *parser) advance() Token {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *parser) expect(kind TokenKind) error {
	tok := p.advance()
	if tok.Kind != kind {
		return cosmoerr.Wrapf(cosmoerr.ErrConfig, "expected %s, got %s at position %d", kind, tok.Kind, tok.Position)
	}
	return nil
}

func (p *parser) parseFilter() (*Ast, error) {
	return p.parseOrExpr()
}

func (p *parser) parseOrExpr() (*Ast, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	children := []*Ast{left}
	for p.peek().Kind == TokenOr {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return simplify(KindOr, children), nil
}

func (p *parser) parseAndExpr() (*Ast, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	children := []*Ast{left}
	for p.peek().Kind == TokenAnd {
		p.advance()
		right, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return simplify(KindAnd, children), nil
}

func (p *parser) parseUnaryExpr() (*Ast, error) {
	if p.peek().Kind != TokenNot {
		return p.parsePrimary()
	}
	p.advance() // consume !

	if p.peek().Kind == TokenIdent {
		next := p.peekAt(1)
		switch next.Kind {
		case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe:
			inner, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			return &Ast{Kind: KindNot, Children: []*Ast{inner}}, nil
		case TokenAnd, TokenOr, TokenRParen, TokenEOF:
			key := p.advance().Lexeme
			return &Ast{Kind: KindTagExists, Key: key, Negated: true}, nil
		default:
			inner, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			return &Ast{Kind: KindNot, Children: []*Ast{inner}}, nil
		}
	}

	inner, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	return &Ast{Kind: KindNot, Children: []*Ast{inner}}, nil
}

func (p *parser) parsePrimary() (*Ast, error) {
	tok := p.peek()
	switch tok.Kind {
	case TokenLParen:
		p.advance()
		inner, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokenIdent:
		return p.parseTagExpr()
	case TokenEOF:
		return True, nil
	default:
		return nil, cosmoerr.Wrapf(cosmoerr.ErrConfig, "unexpected token %s at position %d", tok.Kind, tok.Position)
	}
}

func (p *parser) parseTagExpr() (*Ast, error) {
	keyTok := p.advance()
	if keyTok.Kind != TokenIdent {
		return nil, cosmoerr.Wrapf(cosmoerr.ErrConfig, "expected identifier, got %s at position %d", keyTok.Kind, keyTok.Position)
	}
	key := keyTok.Lexeme

	var op CompareOp
	hasOp := true
	switch p.peek().Kind {
	case TokenEq:
		op = OpEq
	case TokenNe:
		op = OpNe
	case TokenLt:
		op = OpLt
	case TokenLe:
		op = OpLe
	case TokenGt:
		op = OpGt
	case TokenGe:
		op = OpGe
	default:
		hasOp = false
	}

	if !hasOp {
		return &Ast{Kind: KindTagExists, Key: key}, nil
	}

	if op == OpEq {
		p.advance()
		values, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		return &Ast{Kind: KindTagMatch, Key: key, Values: values}, nil
	}

	p.advance() // consume operator
	numTok := p.advance()
	if numTok.Kind != TokenNumber {
		return nil, cosmoerr.Wrapf(cosmoerr.ErrConfig, "expected number after comparison operator, got %s at position %d", numTok.Kind, numTok.Position)
	}
	return &Ast{Kind: KindNumericCompare, Key: key, Op: op, Number: numTok.Number}, nil
}

// parseValueList handles the "highway=primary | lanes=2" ambiguity: a "|"
// either separates value alternatives within this tag match, or starts a new
// boolean-OR expression. Lookahead two tokens past the "|": if it's
// IDENT followed by a comparison operator, treat it as a new expression.
func (p *parser) parseValueList() ([]Value, error) {
	first, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	values := []Value{first}

	for p.peek().Kind == TokenOr {
		if p.peekAt(1).Kind == TokenIdent {
			switch p.peekAt(2).Kind {
			case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe:
				return values, nil
			}
		}
		p.advance() // consume |
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, nil
}

func (p *parser) parseValue() (Value, error) {
	tok := p.advance()
	switch tok.Kind {
	case TokenStar:
		return Value{Kind: ValueAny}, nil
	case TokenIdent:
		if strings.ContainsRune(tok.Lexeme, '*') {
			return Value{Kind: ValueGlob, Pattern: tok.Lexeme}, nil
		}
		return Value{Kind: ValueExact, Pattern: tok.Lexeme}, nil
	case TokenNumber:
		return Value{Kind: ValueExact, Pattern: tok.Lexeme}, nil
	default:
		return Value{}, cosmoerr.Wrapf(cosmoerr.ErrConfig, "expected value, got %s at position %d", tok.Kind, tok.Position)
	}
}

// Parse compiles a filter DSL string into an Ast. An empty (or whitespace
// only) input compiles to True.
func Parse(input string) (*Ast, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return True, nil
	}

	tokens, err := Tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	ast, err := p.parseFilter()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != TokenEOF {
		return nil, cosmoerr.Wrapf(cosmoerr.ErrConfig, "unexpected token %s after expression at position %d", p.peek().Kind, p.peek().Position)
	}
	return ast, nil
}
