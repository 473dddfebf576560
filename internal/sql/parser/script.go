package parser

import "strings"

// SplitStatements cuts a script into statements on ';' outside quotes. Each
// piece keeps its terminator. "--" starts a comment running to the end of the
// line. Trailing text without a terminator is returned as the last piece so
// that Parse reports it.
func SplitStatements(script string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote byte
	)
	push := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			cur.WriteByte(c)
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			cur.WriteByte(c)
			push()
		default:
			cur.WriteByte(c)
		}
	}
	push()
	return out
}

// Kind names the statement class of sql for logs and metrics without
// parsing it: create, drop, insert, delete, select or unknown.
func Kind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch k := strings.ToLower(strings.TrimSuffix(fields[0], ";")); k {
	case "create", "drop", "insert", "delete", "select":
		return k
	}
	return "unknown"
}
