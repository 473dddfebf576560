package expr

import (
	"strings"
	"unicode"
)

// Token is one atom of a predicate. Quoted tokens are string literals and are
// never resolved against a schema.
type Token struct {
	Text   string
	Quoted bool
}

const operatorChars = "()-/=><+*&|"

// Tokenize splits a WHERE clause into tokens. Text outside quotes is
// lowercased, AND and OR become & and |, and every operator or parenthesis is
// its own token. Quoted literals keep their case and spaces but lose the
// quotes.
func Tokenize(cond string) ([]Token, error) {
	var (
		toks []Token
		cur  strings.Builder
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		word := cur.String()
		cur.Reset()
		switch word {
		case "and":
			word = "&"
		case "or":
			word = "|"
		}
		toks = append(toks, Token{Text: word})
	}

	rs := []rune(cond)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\'' || r == '"':
			flush()
			end := i + 1
			for end < len(rs) && rs[end] != r {
				end++
			}
			if end >= len(rs) {
				return nil, malformed(cond, "unterminated string literal")
			}
			toks = append(toks, Token{Text: string(rs[i+1 : end]), Quoted: true})
			i = end
		case unicode.IsSpace(r):
			flush()
		case strings.ContainsRune(operatorChars, r):
			flush()
			toks = append(toks, Token{Text: string(r)})
		default:
			cur.WriteRune(unicode.ToLower(r))
		}
	}
	flush()
	return toks, nil
}
