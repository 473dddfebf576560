package executor

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/tuannm99/novaquery/internal/sqlerr"
)

// FormatError writes err as a single "error[Code]: message" line. Errors that
// crossed the wire keep the code the server assigned.
func FormatError(w io.Writer, err error) {
	code := sqlerr.Code(err)
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) && coded.ErrorCode() != "" {
		code = coded.ErrorCode()
	}
	fmt.Fprintf(w, "error[%s]: %v\n", code, err)
}

// FormatTable writes res as an aligned text table followed by a footer with
// the row count and the disk cost. DDL and DML print a single status line.
func FormatTable(w io.Writer, res *Result) {
	cost := fmt.Sprintf("%s disk I/Os, %s", humanize.Comma(res.DiskIOs), humanize.Bytes(uint64(res.DiskBytes)))
	if res.Tag != TagSelect {
		fmt.Fprintf(w, "%s OK (%d affected; %s)\n", res.Tag, res.AffectedRows, cost)
		return
	}

	cols := res.Columns
	cells := make([][]string, len(res.Rows))
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for r, row := range res.Rows {
		cells[r] = make([]string, len(cols))
		for i := range cols {
			s := "NULL"
			if i < len(row) && row[i] != nil {
				s = fmt.Sprintf("%v", row[i])
			}
			cells[r][i] = s
			widths[i] = max(widths[i], len(s))
		}
	}

	printRow := func(values []string) {
		for i := range cols {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprint(w, padRight(values[i], widths[i]))
		}
		fmt.Fprintln(w)
	}

	printRow(cols)
	for i := range cols {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)
	for _, row := range cells {
		printRow(row)
	}

	noun := "rows"
	if res.AffectedRows == 1 {
		noun = "row"
	}
	fmt.Fprintf(w, "(%d %s; %s)\n", res.AffectedRows, noun, cost)
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
