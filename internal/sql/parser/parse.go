package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"

	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sql/expr"
	"github.com/tuannm99/novaquery/internal/sqlerr"
)

// parseIdent validates an identifier (table/column name) and lowercases it.
// Rules:
//   - must be exactly one token (no spaces)
//   - first char: letter or '_'
//   - rest: letter/digit/'_'
func parseIdent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", sqlerr.Syntax("missing identifier")
	}

	parts := strings.Fields(s)
	if len(parts) != 1 {
		return "", sqlerr.Syntax("invalid identifier %q", s)
	}
	id := parts[0]

	for i, r := range id {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return "", sqlerr.Syntax("invalid identifier %q", id)
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return "", sqlerr.Syntax("invalid identifier %q", id)
		}
	}

	return strings.ToLower(id), nil
}

// parseRef accepts "field" or "table.field".
func parseRef(s string) (string, error) {
	s = strings.TrimSpace(s)
	table, field, ok := strings.Cut(s, ".")
	if !ok {
		return parseIdent(s)
	}
	t, err := parseIdent(table)
	if err != nil {
		return "", err
	}
	f, err := parseIdent(field)
	if err != nil {
		return "", err
	}
	return t + "." + f, nil
}

// Parse parses a single SQL statement into an AST.
// Policy: statement MUST end with ';'
func Parse(sql string) (Statement, error) {
	s := strings.TrimSpace(sql)
	if s == "" {
		return nil, sqlerr.Syntax("empty statement")
	}

	// Require ';' at the end (after trimming spaces/newlines)
	if !strings.HasSuffix(s, ";") {
		return nil, sqlerr.Syntax("missing ';' terminator")
	}

	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return nil, sqlerr.Syntax("empty statement")
	}
	s = collapseSpace(s)

	up := strings.ToUpper(s)

	switch {
	case hasKeywordPrefix(up, "CREATE TABLE"):
		return parseCreateTable(s)
	case hasKeywordPrefix(up, "DROP TABLE"):
		return parseDropTable(s)
	case hasKeywordPrefix(up, "INSERT INTO"):
		return parseInsert(s)
	case hasKeywordPrefix(up, "SELECT"):
		return parseSelect(s[len("SELECT"):])
	case hasKeywordPrefix(up, "DELETE FROM"):
		return parseDelete(s)
	default:
		return nil, sqlerr.Syntax("unsupported statement: %q", sql)
	}
}

func hasKeywordPrefix(up, kw string) bool {
	if !strings.HasPrefix(up, kw) {
		return false
	}
	return len(up) == len(kw) || up[len(kw)] == ' ' || up[len(kw)] == '('
}

func parseCreateTable(sql string) (Statement, error) {
	// "CREATE TABLE course (sid INT, grade STR20)"
	rest := strings.TrimSpace(sql[len("CREATE TABLE"):])
	open := strings.IndexByte(rest, '(')
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return nil, sqlerr.Syntax("invalid CREATE TABLE syntax")
	}

	tableName, err := parseIdent(rest[:open])
	if err != nil {
		return nil, errors.Wrap(err, "invalid CREATE TABLE syntax")
	}

	defPart := strings.TrimSpace(rest[open+1 : len(rest)-1])
	if defPart == "" {
		return nil, sqlerr.Syntax("invalid CREATE TABLE syntax: empty column list")
	}

	var cols []ColumnDef
	for _, def := range splitComma(defPart) {
		def = strings.TrimSpace(def)
		toks := strings.Fields(def)
		if len(toks) != 2 {
			return nil, sqlerr.Syntax("invalid column def: %q", def)
		}

		colName, err := parseIdent(toks[0])
		if err != nil {
			return nil, errors.Wrap(err, "invalid column name")
		}
		typ, err := record.ParseFieldType(toks[1])
		if err != nil {
			return nil, sqlerr.Syntax("column %s: %v", colName, err)
		}

		cols = append(cols, ColumnDef{Name: colName, Type: typ})
	}

	return &CreateTableStmt{
		TableName: tableName,
		Columns:   cols,
	}, nil
}

func parseDropTable(sql string) (Statement, error) {
	rest := strings.TrimSpace(sql[len("DROP TABLE"):])
	name, err := parseIdent(rest)
	if err != nil {
		return nil, errors.Wrap(err, "invalid DROP TABLE syntax")
	}
	return &DropTableStmt{TableName: name}, nil
}

func parseInsert(sql string) (Statement, error) {
	// "INSERT INTO course (sid, grade) VALUES (1, "A"), (2, "B")"
	// "INSERT INTO course (sid, grade) SELECT sid, grade FROM old"
	rest := strings.TrimSpace(sql[len("INSERT INTO"):])

	target, valPart, found := splitKeyword(rest, "VALUES")
	var selPart string
	if !found {
		target, selPart, found = splitKeyword(rest, "SELECT")
		if !found {
			return nil, sqlerr.Syntax("invalid INSERT syntax: expected VALUES or SELECT")
		}
	}

	stmt := &InsertStmt{}
	namePart := target
	if open := strings.IndexByte(target, '('); open >= 0 {
		if !strings.HasSuffix(target, ")") {
			return nil, sqlerr.Syntax("invalid INSERT column list")
		}
		namePart = target[:open]
		for _, c := range splitComma(target[open+1 : len(target)-1]) {
			name, err := parseIdent(c)
			if err != nil {
				return nil, errors.Wrap(err, "invalid INSERT column")
			}
			stmt.Columns = append(stmt.Columns, name)
		}
	}
	name, err := parseIdent(namePart)
	if err != nil {
		return nil, errors.Wrap(err, "invalid INSERT syntax")
	}
	stmt.TableName = name

	if selPart != "" {
		sel, err := parseSelect(selPart)
		if err != nil {
			return nil, err
		}
		stmt.Select = sel
		return stmt, nil
	}

	groups, err := splitTuples(valPart)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		var row []Expr
		for _, rv := range splitComma(g) {
			lit, err := parseLiteral(strings.TrimSpace(rv))
			if err != nil {
				return nil, err
			}
			row = append(row, &LiteralExpr{Value: lit})
		}
		if len(stmt.Columns) > 0 && len(row) != len(stmt.Columns) {
			return nil, sqlerr.Syntax("INSERT has %d columns but %d values", len(stmt.Columns), len(row))
		}
		stmt.Rows = append(stmt.Rows, row)
	}
	return stmt, nil
}

// parseSelect parses everything after the SELECT keyword.
func parseSelect(body string) (*SelectStmt, error) {
	// "[DISTINCT] a, t.b FROM t, u [WHERE cond] [ORDER BY attr]"
	body = strings.TrimSpace(body)
	stmt := &SelectStmt{}
	if hasKeywordPrefix(strings.ToUpper(body), "DISTINCT") {
		stmt.Distinct = true
		body = strings.TrimSpace(body[len("DISTINCT"):])
	}

	attrPart, rest, found := splitKeyword(body, "FROM")
	if !found {
		return nil, sqlerr.Syntax("invalid SELECT syntax: missing FROM")
	}
	if strings.TrimSpace(attrPart) == "" {
		return nil, sqlerr.Syntax("invalid SELECT syntax: empty select list")
	}

	if strings.TrimSpace(attrPart) == "*" {
		stmt.Star = true
	} else {
		for _, a := range splitComma(attrPart) {
			ref, err := parseRef(a)
			if err != nil {
				return nil, errors.Wrap(err, "invalid select list")
			}
			stmt.Columns = append(stmt.Columns, ref)
		}
	}

	rest, orderPart, hasOrder := splitKeyword(rest, "ORDER BY")
	if hasOrder {
		ref, err := parseRef(orderPart)
		if err != nil {
			return nil, errors.Wrap(err, "invalid ORDER BY")
		}
		stmt.OrderBy = ref
	}

	tablePart, wherePart, hasWhere := splitKeyword(rest, "WHERE")
	seen := make(map[string]bool)
	for _, t := range splitComma(tablePart) {
		name, err := parseIdent(t)
		if err != nil {
			return nil, errors.Wrap(err, "invalid FROM list")
		}
		if seen[name] {
			return nil, sqlerr.Syntax("table %s listed twice", name)
		}
		seen[name] = true
		stmt.Tables = append(stmt.Tables, name)
	}
	if len(stmt.Tables) == 0 {
		return nil, sqlerr.Syntax("invalid SELECT syntax: empty FROM list")
	}

	if hasWhere {
		w, err := parseWhere(wherePart)
		if err != nil {
			return nil, err
		}
		stmt.Where = w
	}
	return stmt, nil
}

func parseDelete(sql string) (Statement, error) {
	// "DELETE FROM t [WHERE cond]"
	rest := strings.TrimSpace(sql[len("DELETE FROM"):])
	tablePart, wherePart, hasWhere := splitKeyword(rest, "WHERE")

	tableName, err := parseIdent(tablePart)
	if err != nil {
		return nil, errors.Wrap(err, "invalid DELETE syntax")
	}

	stmt := &DeleteStmt{TableName: tableName}
	if hasWhere {
		w, err := parseWhere(wherePart)
		if err != nil {
			return nil, err
		}
		stmt.Where = w
	}
	return stmt, nil
}

// parseWhere builds the predicate tree. Square brackets outside quotes are
// accepted as parentheses.
func parseWhere(s string) (*expr.Node, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, sqlerr.Syntax("empty WHERE clause")
	}
	var b strings.Builder
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[':
			r = '('
		case r == ']':
			r = ')'
		}
		b.WriteRune(r)
	}
	return expr.Build(b.String())
}

func parseLiteral(rv string) (any, error) {
	if strings.EqualFold(rv, "NULL") {
		return nil, nil
	}

	// STRING: single or double quotes, no escapes
	if len(rv) >= 2 && (rv[0] == '\'' || rv[0] == '"') && rv[len(rv)-1] == rv[0] {
		return rv[1 : len(rv)-1], nil
	}

	if i, err := strconv.ParseInt(rv, 10, 64); err == nil {
		return i, nil
	}

	return nil, sqlerr.Syntax("unsupported literal: %q", rv)
}

// splitKeyword splits "X <keyword> Y" case-insensitively at the first
// occurrence outside quotes. The keyword must stand alone: preceded by a
// space or ')' and followed by a space, '(' or the end of s.
// Input must already have its whitespace collapsed.
func splitKeyword(s, keyword string) (string, string, bool) {
	kw := strings.ToUpper(keyword)
	var quote byte
	for i := 0; i+len(kw) <= len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if !strings.EqualFold(s[i:i+len(kw)], kw) {
			continue
		}
		if i > 0 && s[i-1] != ' ' && s[i-1] != ')' {
			continue
		}
		end := i + len(kw)
		if end < len(s) && s[end] != ' ' && s[end] != '(' {
			continue
		}
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[end:]), true
	}
	return s, "", false
}

// splitComma splits a comma-separated list, ignoring commas inside quotes and
// parentheses.
func splitComma(s string) []string {
	parts := []string{}
	cur := strings.Builder{}
	var quote rune
	depth := 0
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			depth--
			cur.WriteRune(r)
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" || len(parts) > 0 {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}

// splitTuples splits "(a, b), (c, d)" into the bodies "a, b" and "c, d".
func splitTuples(s string) ([]string, error) {
	var out []string
	s = strings.TrimSpace(s)
	for s != "" {
		if s[0] != '(' {
			return nil, sqlerr.Syntax("invalid VALUES syntax near %q", s)
		}
		end := closingParen(s)
		if end < 0 {
			return nil, sqlerr.Syntax("unbalanced parentheses in VALUES")
		}
		out = append(out, strings.TrimSpace(s[1:end]))
		s = strings.TrimSpace(s[end+1:])
		if s == "" {
			break
		}
		if s[0] != ',' {
			return nil, sqlerr.Syntax("invalid VALUES syntax near %q", s)
		}
		s = strings.TrimSpace(s[1:])
		if s == "" {
			return nil, sqlerr.Syntax("trailing ',' in VALUES")
		}
	}
	if len(out) == 0 {
		return nil, sqlerr.Syntax("invalid VALUES syntax")
	}
	return out, nil
}

// closingParen returns the index of the ')' matching s[0], or -1.
func closingParen(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// collapseSpace turns every run of whitespace outside quotes into one space.
func collapseSpace(s string) string {
	var b strings.Builder
	var quote rune
	space := false
	for _, r := range s {
		if quote == 0 && unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		}
		b.WriteRune(r)
	}
	return b.String()
}
