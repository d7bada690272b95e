package mathsolve

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

var (
	// The input is valid, but not something this package solves deterministically
	ErrUnsupported    = errors.New("unsupported problem")
	ErrSyntax         = errors.New("syntax error")
	ErrDivisionByZero = errors.New("division by zero")
)

const (
	maxExponent = 64
	// Upper bound on the size of any intermediate numerator or denominator
	maxResultBits = 4096
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenIdent
	tokenOperator
	tokenLeftParen
	tokenRightParen
	tokenEOF
)

type token struct {
	kind  tokenKind
	text  string
	value *big.Rat
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			seenPoint := false
			for i < len(runes) && (unicode.IsDigit(runes[i]) || (runes[i] == '.' && !seenPoint)) {
				if runes[i] == '.' {
					seenPoint = true
				}
				i++
			}
			text := string(runes[start:i])
			value, ok := new(big.Rat).SetString(text)
			if !ok {
				return nil, fmt.Errorf("%w: invalid number %q", ErrSyntax, text)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, value: value})
		case unicode.IsLetter(r):
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i])})
		case r == '*' && i+1 < len(runes) && runes[i+1] == '*':
			tokens = append(tokens, token{kind: tokenOperator, text: "^"})
			i += 2
		case strings.ContainsRune("+-*/^", r):
			tokens = append(tokens, token{kind: tokenOperator, text: string(r)})
			i++
		case r == '×':
			tokens = append(tokens, token{kind: tokenOperator, text: "*"})
			i++
		case r == '÷':
			tokens = append(tokens, token{kind: tokenOperator, text: "/"})
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokenLeftParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRightParen, text: ")"})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrSyntax, r)
		}
	}

	return append(tokens, token{kind: tokenEOF}), nil
}

// linear is coef*variable + constant
type linear struct {
	coef     *big.Rat
	constant *big.Rat
}

func constant(value *big.Rat) linear {
	return linear{coef: new(big.Rat), constant: new(big.Rat).Set(value)}
}

func (l linear) isConstant() bool {
	return l.coef.Sign() == 0
}

func (l linear) add(other linear) linear {
	return linear{
		coef:     new(big.Rat).Add(l.coef, other.coef),
		constant: new(big.Rat).Add(l.constant, other.constant),
	}
}

func (l linear) neg() linear {
	return linear{
		coef:     new(big.Rat).Neg(l.coef),
		constant: new(big.Rat).Neg(l.constant),
	}
}

func (l linear) scale(factor *big.Rat) linear {
	return linear{
		coef:     new(big.Rat).Mul(l.coef, factor),
		constant: new(big.Rat).Mul(l.constant, factor),
	}
}

func (l linear) mul(other linear) (linear, error) {
	var product linear
	switch {
	case l.isConstant():
		product = other.scale(l.constant)
	case other.isConstant():
		product = l.scale(other.constant)
	default:
		return linear{}, fmt.Errorf("%w: non-linear product", ErrUnsupported)
	}
	if product.tooLarge() {
		return linear{}, fmt.Errorf("%w: result too large", ErrUnsupported)
	}
	return product, nil
}

func (l linear) tooLarge() bool {
	for _, r := range []*big.Rat{l.coef, l.constant} {
		if r.Num().BitLen() > maxResultBits || r.Denom().BitLen() > maxResultBits {
			return true
		}
	}
	return false
}

func (l linear) div(other linear) (linear, error) {
	if !other.isConstant() {
		return linear{}, fmt.Errorf("%w: division by a variable", ErrUnsupported)
	}
	if other.constant.Sign() == 0 {
		return linear{}, ErrDivisionByZero
	}
	return l.scale(new(big.Rat).Inv(other.constant)), nil
}

func (l linear) pow(exponent linear) (linear, error) {
	if !exponent.isConstant() || !exponent.constant.IsInt() {
		return linear{}, fmt.Errorf("%w: non-integer exponent", ErrUnsupported)
	}
	n := exponent.constant.Num()
	if n.CmpAbs(big.NewInt(maxExponent)) > 0 {
		return linear{}, fmt.Errorf("%w: exponent too large", ErrUnsupported)
	}
	e := n.Int64()

	if !l.isConstant() {
		switch e {
		case 0:
			return constant(big.NewRat(1, 1)), nil
		case 1:
			return l, nil
		}
		return linear{}, fmt.Errorf("%w: non-linear power", ErrUnsupported)
	}

	base := l.constant
	if e < 0 {
		if base.Sign() == 0 {
			return linear{}, ErrDivisionByZero
		}
		base = new(big.Rat).Inv(base)
		e = -e
	}
	bits := max(base.Num().BitLen(), base.Denom().BitLen())
	if int64(bits)*e > maxResultBits {
		return linear{}, fmt.Errorf("%w: result too large", ErrUnsupported)
	}
	exp := big.NewInt(e)
	result := new(big.Rat).SetFrac(
		new(big.Int).Exp(base.Num(), exp, nil),
		new(big.Int).Exp(base.Denom(), exp, nil),
	)
	return constant(result), nil
}

type parser struct {
	tokens   []token
	pos      int
	variable string
}

func parse(input string, variable string) (linear, string, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return linear{}, "", err
	}
	if len(tokens) == 1 {
		return linear{}, "", fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	p := &parser{tokens: tokens, variable: variable}
	value, err := p.expression()
	if err != nil {
		return linear{}, "", err
	}
	if p.peek().kind != tokenEOF {
		return linear{}, "", fmt.Errorf("%w: unexpected %q", ErrSyntax, p.peek().text)
	}
	return value, p.variable, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) expression() (linear, error) {
	value, err := p.term()
	if err != nil {
		return linear{}, err
	}
	for {
		t := p.peek()
		if t.kind != tokenOperator || (t.text != "+" && t.text != "-") {
			return value, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return linear{}, err
		}
		if t.text == "-" {
			right = right.neg()
		}
		value = value.add(right)
	}
}

func (p *parser) term() (linear, error) {
	value, err := p.unary()
	if err != nil {
		return linear{}, err
	}
	for {
		t := p.peek()
		switch {
		case t.kind == tokenOperator && (t.text == "*" || t.text == "/"):
			p.next()
			right, err := p.unary()
			if err != nil {
				return linear{}, err
			}
			if t.text == "*" {
				value, err = value.mul(right)
			} else {
				value, err = value.div(right)
			}
			if err != nil {
				return linear{}, err
			}
		case t.kind == tokenIdent || t.kind == tokenLeftParen:
			// Implicit multiplication: 2x, 3(x + 1)
			right, err := p.power()
			if err != nil {
				return linear{}, err
			}
			value, err = value.mul(right)
			if err != nil {
				return linear{}, err
			}
		default:
			return value, nil
		}
	}
}

func (p *parser) unary() (linear, error) {
	t := p.peek()
	if t.kind == tokenOperator && (t.text == "-" || t.text == "+") {
		p.next()
		value, err := p.unary()
		if err != nil {
			return linear{}, err
		}
		if t.text == "-" {
			return value.neg(), nil
		}
		return value, nil
	}
	return p.power()
}

func (p *parser) power() (linear, error) {
	base, err := p.primary()
	if err != nil {
		return linear{}, err
	}
	t := p.peek()
	if t.kind != tokenOperator || t.text != "^" {
		return base, nil
	}
	p.next()
	exponent, err := p.unary()
	if err != nil {
		return linear{}, err
	}
	return base.pow(exponent)
}

func (p *parser) primary() (linear, error) {
	t := p.next()
	switch t.kind {
	case tokenNumber:
		return constant(t.value), nil
	case tokenIdent:
		if p.variable != "" && p.variable != t.text {
			return linear{}, fmt.Errorf("%w: more than one variable", ErrUnsupported)
		}
		p.variable = t.text
		return linear{coef: big.NewRat(1, 1), constant: new(big.Rat)}, nil
	case tokenLeftParen:
		value, err := p.expression()
		if err != nil {
			return linear{}, err
		}
		if p.next().kind != tokenRightParen {
			return linear{}, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		return value, nil
	case tokenEOF:
		return linear{}, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}
	return linear{}, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
}
