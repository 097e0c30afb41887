package link

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fine-structures/khova.SDK/khova"
	"github.com/pkg/errors"
)

// LinkExpr is either a diagram, "[+1-2+3-1+2-3] +++", or a braid closure, "braid(3: 1 -2 1 -2)".
type LinkExpr struct {
	Braid   *BraidExpr   `  @@`
	Diagram *DiagramExpr `| @@`
}

type BraidExpr struct {
	Strands int         `"braid" "(" @Int ":"`
	Word    []*BraidGen `@@* ")"`
}

type BraidGen struct {
	Sign string `@Sign?`
	Gen  int    `@Int`
}

type DiagramExpr struct {
	Components []*Component `@@+`
	Signs      []string     `@Sign*`
}

type Component struct {
	Entries []*GaussEntry `"[" @@* "]"`
}

type GaussEntry struct {
	Sign     string `@Sign`
	Crossing int    `@Int`
}

var sLinkLexer = lexer.MustSimple([]lexer.SimpleRule{
	{"Ident", `[A-Za-z_]+`},
	{"Int", `\d+`},
	{"Sign", `[-+]`},
	{"Punct", `[\[\]():]`},
	{"whitespace", `[ \t\r\n]+`},
})

var parseLinkExpr = participle.MustBuild[LinkExpr](
	participle.Lexer(sLinkLexer),
)

// Parse builds a Link from a link expression.
func Parse(name, linkExpr string) (*Link, error) {
	X, err := parseLinkExpr.ParseString("", linkExpr)
	if err != nil {
		return nil, errors.Wrapf(khova.ErrBadLinkExpr, "%v", err)
	}

	if X.Braid != nil {
		word := make([]int, len(X.Braid.Word))
		for i, gen := range X.Braid.Word {
			word[i] = gen.Gen
			if gen.Sign == "-" {
				word[i] = -gen.Gen
			}
		}
		return FromBraid(name, X.Braid.Strands, word)
	}

	gauss := make([][]int, len(X.Diagram.Components))
	for i, compo := range X.Diagram.Components {
		gauss[i] = make([]int, len(compo.Entries))
		for j, e := range compo.Entries {
			gauss[i][j] = e.Crossing
			if e.Sign == "-" {
				gauss[i][j] = -e.Crossing
			}
		}
	}

	signs := make([]bool, len(X.Diagram.Signs))
	for i, sgn := range X.Diagram.Signs {
		signs[i] = sgn == "+"
	}

	return New(name, gauss, signs)
}

// MustParse is Parse that panics on error.
func MustParse(name, linkExpr string) *Link {
	L, err := Parse(name, linkExpr)
	if err != nil {
		panic(err)
	}
	return L
}
