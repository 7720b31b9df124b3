package expr

import (
	"fmt"
	"strconv"
)

// Binding powers, lowest first.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precCompare
	precAdd
	precMul
	precUnary
	precPow
	precPostfix
)

// Parse turns source text into an expression tree.
func Parse(src string) (Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	n, err := p.parseExpr(precLowest + 1)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %s", tok)
	}
	return n, nil
}

type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(text string) error {
	tok := p.next()
	if tok.kind != tokPunct || tok.text != text {
		return p.errorf(tok, "expected %q, found %s", text, tok)
	}
	return nil
}

func isKeyword(tok token, word string) bool {
	return tok.kind == tokIdent && tok.text == word
}

func isPunct(tok token, text string) bool {
	return tok.kind == tokPunct && tok.text == text
}

// compareOp reports the comparison operator starting at the current token
// and how many tokens it spans.
func (p *parser) compareOp() (string, int) {
	tok := p.peek()
	if tok.kind == tokPunct {
		switch tok.text {
		case "<", "<=", ">", ">=", "==", "!=":
			return tok.text, 1
		}
		return "", 0
	}
	switch {
	case isKeyword(tok, "in"):
		return "in", 1
	case isKeyword(tok, "not") && isKeyword(p.peekAt(1), "in"):
		return "not in", 2
	case isKeyword(tok, "is") && isKeyword(p.peekAt(1), "not"):
		return "is not", 2
	case isKeyword(tok, "is"):
		return "is", 1
	}
	return "", 0
}

// infixPrec returns the binding power of the token in infix position.
func (p *parser) infixPrec() int {
	tok := p.peek()
	if op, _ := p.compareOp(); op != "" {
		return precCompare
	}
	switch {
	case isKeyword(tok, "or") || isPunct(tok, "||"):
		return precOr
	case isKeyword(tok, "and") || isPunct(tok, "&&"):
		return precAnd
	case isPunct(tok, "+") || isPunct(tok, "-"):
		return precAdd
	case isPunct(tok, "*") || isPunct(tok, "/") || isPunct(tok, "%"):
		return precMul
	case isPunct(tok, "**"):
		return precPow
	case isPunct(tok, "(") || isPunct(tok, ".") || isPunct(tok, "["):
		return precPostfix
	}
	return precLowest
}

func (p *parser) parseExpr(minPrec int) (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		return nil, p.errorf(p.peek(), "expression nested too deeply")
	}

	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		prec := p.infixPrec()
		if prec == precLowest || prec < minPrec {
			return left, nil
		}
		left, err = p.parseInfix(left, prec)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parsePrefix() (Node, error) {
	tok := p.next()

	switch tok.kind {
	case tokEOF:
		return nil, p.errorf(tok, "unexpected end of expression")

	case tokNumber:
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.text)
		}
		return &Literal{Value: Number(n)}, nil

	case tokString:
		return &Literal{Value: String(tok.text)}, nil

	case tokIdent:
		switch tok.text {
		case "True", "true":
			return &Literal{Value: Bool(true)}, nil
		case "False", "false":
			return &Literal{Value: Bool(false)}, nil
		case "None", "null":
			return &Literal{Value: Null()}, nil
		case "not":
			x, err := p.parseExpr(precNot)
			if err != nil {
				return nil, err
			}
			return &Unary{Op: "not", X: x}, nil
		case "and", "or", "in", "is":
			return nil, p.errorf(tok, "unexpected keyword %q", tok.text)
		}
		return &Ident{Name: tok.text}, nil

	case tokPunct:
		switch tok.text {
		case "(":
			x, err := p.parseExpr(precLowest + 1)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		case "[":
			elems, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return &ListLit{Elems: elems}, nil
		case "!":
			x, err := p.parseExpr(precNot)
			if err != nil {
				return nil, err
			}
			return &Unary{Op: "not", X: x}, nil
		case "-", "+":
			x, err := p.parseExpr(precUnary)
			if err != nil {
				return nil, err
			}
			return &Unary{Op: tok.text, X: x}, nil
		}
	}

	return nil, p.errorf(tok, "unexpected %s", tok)
}

func (p *parser) parseInfix(left Node, prec int) (Node, error) {
	if prec == precCompare {
		return p.parseCompare(left)
	}

	tok := p.next()
	switch prec {
	case precOr, precAnd:
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		op := "and"
		if prec == precOr {
			op = "or"
		}
		return &Logical{Op: op, X: left, Y: right}, nil

	case precAdd, precMul:
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: tok.text, X: left, Y: right}, nil

	case precPow:
		// right associative; the exponent may carry a unary sign
		right, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: "**", X: left, Y: right}, nil

	case precPostfix:
		switch tok.text {
		case "(":
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			return &Call{Fn: left, Args: args}, nil
		case ".":
			name := p.next()
			if name.kind != tokIdent {
				return nil, p.errorf(name, "expected field name after '.', found %s", name)
			}
			return &Member{X: left, Name: name.text}, nil
		case "[":
			key, err := p.parseExpr(precLowest + 1)
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			return &Index{X: left, Key: key}, nil
		}
	}

	return nil, p.errorf(tok, "unexpected %s", tok)
}

// parseCompare collects a whole comparison chain such as a < b <= c.
func (p *parser) parseCompare(left Node) (Node, error) {
	cmp := &Compare{Operands: []Node{left}}
	for {
		op, width := p.compareOp()
		if op == "" {
			return cmp, nil
		}
		for i := 0; i < width; i++ {
			p.next()
		}
		right, err := p.parseExpr(precCompare + 1)
		if err != nil {
			return nil, err
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Operands = append(cmp.Operands, right)
	}
}

// parseList parses comma separated expressions up to the closing delimiter.
// A trailing comma is allowed.
func (p *parser) parseList(closing string) ([]Node, error) {
	var elems []Node
	for {
		if isPunct(p.peek(), closing) {
			p.next()
			return elems, nil
		}
		e, err := p.parseExpr(precLowest + 1)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)

		tok := p.peek()
		switch {
		case isPunct(tok, ","):
			p.next()
		case isPunct(tok, closing):
			p.next()
			return elems, nil
		default:
			return nil, p.errorf(tok, "expected ',' or %q, found %s", closing, tok)
		}
	}
}
