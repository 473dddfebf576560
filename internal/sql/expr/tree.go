package expr

import (
	"strconv"
	"strings"

	"github.com/tuannm99/novaquery/internal/sqlerr"
)

// Node is a predicate tree node. Leaves hold an operand token, internal nodes
// an operator with both children set. A tree is immutable once built.
type Node struct {
	Value  string
	Quoted bool
	Left   *Node
	Right  *Node
}

func (n *Node) IsLeaf() bool { return n.Left == nil && n.Right == nil }

func leaf(t Token) *Node { return &Node{Value: t.Text, Quoted: t.Quoted} }

func isOperator(s string) bool {
	switch s {
	case "&", "|", "=", ">", "<", "+", "-", "*", "/":
		return true
	}
	return false
}

// precedence of an operator on the stack. Parentheses sit below everything so
// that no operator pops them.
func precedence(op string) int {
	switch op {
	case "*", "/":
		return 3
	case "+", "-", ">", "<":
		return 2
	case "=":
		return 1
	case "|":
		return -1
	case "(", ")":
		return -2
	default:
		return 0
	}
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func malformed(cond, format string, args ...any) error {
	return sqlerr.Malformed("malformed predicate %q: "+format, append([]any{cond}, args...)...)
}

// Build parses cond into a tree. An empty condition yields a nil tree.
func Build(cond string) (*Node, error) {
	if strings.TrimSpace(cond) == "" {
		return nil, nil
	}
	toks, err := Tokenize(cond)
	if err != nil {
		return nil, err
	}
	return BuildTokens(cond, toks)
}

// BuildTokens runs the shunting-yard pass over toks. cond is only used in
// error messages.
func BuildTokens(cond string, toks []Token) (*Node, error) {
	var (
		ops  []string
		vals []*Node
	)

	combine := func() error {
		op := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if len(vals) < 2 {
			return malformed(cond, "operator %q is missing an operand", op)
		}
		l, r := vals[len(vals)-2], vals[len(vals)-1]
		vals = append(vals[:len(vals)-2], &Node{Value: op, Left: l, Right: r})
		return nil
	}

	expectOperand := true
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if !tok.Quoted {
			switch {
			case tok.Text == "(":
				if !expectOperand {
					return nil, malformed(cond, "missing operator before '('")
				}
				ops = append(ops, "(")
				continue

			case tok.Text == ")":
				if expectOperand {
					return nil, malformed(cond, "missing operand before ')'")
				}
				for len(ops) > 0 && ops[len(ops)-1] != "(" {
					if err := combine(); err != nil {
						return nil, err
					}
				}
				if len(ops) == 0 {
					return nil, malformed(cond, "unbalanced ')'")
				}
				ops = ops[:len(ops)-1]
				continue

			case isOperator(tok.Text):
				// unary minus on an integer literal
				if tok.Text == "-" && expectOperand && i+1 < len(toks) &&
					!toks[i+1].Quoted && isInteger(toks[i+1].Text) {
					vals = append(vals, &Node{Value: "-" + toks[i+1].Text})
					i++
					expectOperand = false
					continue
				}
				if expectOperand {
					return nil, malformed(cond, "operator %q is missing its left operand", tok.Text)
				}
				for len(ops) > 0 && precedence(ops[len(ops)-1]) >= precedence(tok.Text) {
					if err := combine(); err != nil {
						return nil, err
					}
				}
				ops = append(ops, tok.Text)
				expectOperand = true
				continue
			}
		}

		if !expectOperand {
			return nil, malformed(cond, "missing operator before %q", tok.Text)
		}
		vals = append(vals, leaf(tok))
		expectOperand = false
	}

	if expectOperand {
		return nil, malformed(cond, "missing final operand")
	}
	for len(ops) > 0 {
		if ops[len(ops)-1] == "(" {
			return nil, malformed(cond, "unbalanced '('")
		}
		if err := combine(); err != nil {
			return nil, err
		}
	}
	if len(vals) != 1 {
		return nil, malformed(cond, "expected one expression, found %d", len(vals))
	}
	return vals[0], nil
}

// Conjuncts splits a tree on its top-level & nodes, depth first.
func Conjuncts(n *Node) []*Node {
	if n == nil {
		return nil
	}
	if !n.IsLeaf() && n.Value == "&" {
		return append(Conjuncts(n.Left), Conjuncts(n.Right)...)
	}
	return []*Node{n}
}

// And joins nodes back into a left-deep conjunction. It returns nil for none.
func And(nodes []*Node) *Node {
	var out *Node
	for _, n := range nodes {
		if out == nil {
			out = n
			continue
		}
		out = &Node{Value: "&", Left: out, Right: n}
	}
	return out
}

// Refs returns the unquoted non-numeric leaf tokens in tree order.
func Refs(n *Node) []string {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		if n.Quoted || isInteger(n.Value) {
			return nil
		}
		return []string{n.Value}
	}
	return append(Refs(n.Left), Refs(n.Right)...)
}

// String renders the tree back as infix text.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n.IsLeaf() {
		if n.Quoted {
			b.WriteString("'" + n.Value + "'")
		} else {
			b.WriteString(n.Value)
		}
		return
	}
	p := precedence(n.Value)
	child := func(c *Node, right bool) {
		wrap := !c.IsLeaf() && (precedence(c.Value) < p || (right && precedence(c.Value) == p))
		if wrap {
			b.WriteByte('(')
		}
		c.write(b)
		if wrap {
			b.WriteByte(')')
		}
	}
	child(n.Left, false)
	b.WriteString(" " + n.Value + " ")
	child(n.Right, true)
}
