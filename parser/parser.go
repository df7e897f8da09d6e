// Package parser parses textual payload descriptions into crax expressions.
//
// A payload is a comma-separated list of items. Each item is a term or the
// sum of two constant terms:
//
//	sym(read), got(puts), bss(), var(0x4010)
//	0x400000 + 0x1060
//	"/bin/sh\x00", meta("stage 1")
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/benbjohnson/crax"
)

// ErrNoImage is returned when a payload references an image address but no
// image is available.
var ErrNoImage = errors.New("no image loaded")

// Parser parses payload descriptions.
type Parser struct {
	parser *participle.Parser[payloadGrammar]

	// Image used to resolve sym(), got(), bss() & var() terms. Optional.
	Image crax.Image
}

// New returns a new instance of Parser.
func New() (*Parser, error) {
	lex := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
		{Name: "Int", Pattern: `0[xX][0-9a-fA-F]+|[0-9]+`},
		{Name: "Ident", Pattern: `[a-zA-Z_.][a-zA-Z0-9_.@]*`},
		{Name: "Punct", Pattern: `[(),+]`},
	})

	p, err := participle.Build[payloadGrammar](
		participle.Lexer(lex),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("building parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Parse parses a payload description into a list of expressions.
func (p *Parser) Parse(input string) ([]crax.Expr, error) {
	g, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, err
	}

	exprs := make([]crax.Expr, 0, len(g.Items))
	for _, item := range g.Items {
		expr, err := p.convertItem(item)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

func (p *Parser) convertItem(item *itemGrammar) (crax.Expr, error) {
	lhs, err := p.convertTerm(item.Left)
	if err != nil {
		return nil, err
	} else if item.Right == nil {
		return lhs, nil
	}

	rhs, err := p.convertTerm(item.Right)
	if err != nil {
		return nil, err
	}

	lc, ok := crax.As[*crax.ConstantExpr](lhs)
	if !ok {
		return nil, fmt.Errorf("left operand of '+' must be a constant: %s", lhs)
	}
	rc, ok := crax.As[*crax.ConstantExpr](rhs)
	if !ok {
		return nil, fmt.Errorf("right operand of '+' must be a constant: %s", rhs)
	}
	return crax.NewAddExpr(lc, rc), nil
}

func (p *Parser) convertTerm(term *termGrammar) (crax.Expr, error) {
	switch {
	case term.Call != nil:
		return p.convertCall(term.Call)
	case term.Int != nil:
		v, err := parseInt(*term.Int)
		if err != nil {
			return nil, err
		}
		return crax.NewConstantExpr64(v), nil
	case term.String != nil:
		s, err := strconv.Unquote(*term.String)
		if err != nil {
			return nil, fmt.Errorf("invalid string %s: %w", *term.String, err)
		}
		return crax.NewByteVectorExpr([]byte(s)), nil
	default:
		return nil, errors.New("empty term")
	}
}

func (p *Parser) convertCall(call *callGrammar) (crax.Expr, error) {
	switch call.Name {
	case "sym", "got":
		if err := checkArgs(call, 1); err != nil {
			return nil, err
		} else if p.Image == nil {
			return nil, fmt.Errorf("%s(): %w", call.Name, ErrNoImage)
		}
		name, err := argString(call.Args[0])
		if err != nil {
			return nil, fmt.Errorf("%s(): %w", call.Name, err)
		}

		var expr *crax.BaseOffsetExpr
		if call.Name == "sym" {
			expr, err = crax.NewSymExpr(p.Image, name)
		} else {
			expr, err = crax.NewGOTExpr(p.Image, name)
		}
		if err != nil {
			return nil, err
		}
		return expr, nil

	case "bss":
		if err := checkArgs(call, 0); err != nil {
			return nil, err
		} else if p.Image == nil {
			return nil, fmt.Errorf("bss(): %w", ErrNoImage)
		}
		return crax.NewBSSExpr(p.Image), nil

	case "var":
		if err := checkArgs(call, 1); err != nil {
			return nil, err
		} else if p.Image == nil {
			return nil, fmt.Errorf("var(): %w", ErrNoImage)
		}
		offset, err := argInt(call.Args[0])
		if err != nil {
			return nil, fmt.Errorf("var(): %w", err)
		}
		return crax.NewVarExpr(p.Image, offset), nil

	case "meta":
		if err := checkArgs(call, 1); err != nil {
			return nil, err
		}
		s, err := argString(call.Args[0])
		if err != nil {
			return nil, fmt.Errorf("meta(): %w", err)
		}
		return crax.NewPlaceholderExpr(s), nil

	default:
		return nil, fmt.Errorf("unknown function: %s()", call.Name)
	}
}

func checkArgs(call *callGrammar, n int) error {
	if len(call.Args) != n {
		return fmt.Errorf("%s(): expected %d argument(s), got %d", call.Name, n, len(call.Args))
	}
	return nil
}

// argString returns an identifier or the unquoted value of a string argument.
func argString(arg *argGrammar) (string, error) {
	switch {
	case arg.Ident != nil:
		return *arg.Ident, nil
	case arg.String != nil:
		return strconv.Unquote(*arg.String)
	default:
		return "", fmt.Errorf("expected name, got %s", *arg.Int)
	}
}

func argInt(arg *argGrammar) (uint64, error) {
	if arg.Int == nil {
		return 0, errors.New("expected integer")
	}
	return parseInt(*arg.Int)
}

// parseInt parses a decimal or 0x-prefixed hex integer.
func parseInt(s string) (uint64, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	return v, nil
}
