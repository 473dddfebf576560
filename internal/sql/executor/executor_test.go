package executor

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaquery/internal/engine"
	"github.com/tuannm99/novaquery/internal/sqlerr"
)

func newExecutor(t *testing.T, memBlocks int) *Executor {
	t.Helper()
	return NewExecutor(engine.NewDatabase(engine.Options{MemoryBlocks: memBlocks}))
}

func run(t *testing.T, ex *Executor, sql string) *Result {
	t.Helper()
	res, err := ex.ExecSQL(sql)
	require.NoError(t, err, sql)
	return res
}

func runAll(t *testing.T, ex *Executor, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		run(t, ex, s)
	}
}

func rowStrings(res *Result) []string {
	out := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		parts := make([]string, len(r))
		for j, v := range r {
			parts[j] = fmt.Sprint(v)
		}
		out[i] = strings.Join(parts, ",")
	}
	return out
}

func sortedRows(res *Result) []string {
	out := rowStrings(res)
	slices.Sort(out)
	return out
}

func TestExecSQL_DistinctOrderBy(t *testing.T) {
	ex := newExecutor(t, 10)
	runAll(t, ex,
		"CREATE TABLE t (a INT, b INT);",
		"INSERT INTO t VALUES (1, 9);",
		"INSERT INTO t VALUES (2, 8);",
		"INSERT INTO t VALUES (1, 9);",
		"INSERT INTO t VALUES (3, 7);",
	)

	res := run(t, ex, "SELECT DISTINCT a, b FROM t ORDER BY a;")
	assert.Equal(t, TagSelect, res.Tag)
	assert.Equal(t, []string{"a", "b"}, res.Columns)
	assert.Equal(t, []string{"1,9", "2,8", "3,7"}, rowStrings(res))
	assert.Equal(t, int64(3), res.AffectedRows)
	assert.Positive(t, res.DiskIOs)
	assert.Positive(t, res.DiskBytes)
}

func TestExecSQL_StreamsWithoutSort(t *testing.T) {
	ex := newExecutor(t, 10)
	runAll(t, ex,
		"CREATE TABLE t (a INT, s STR20);",
		`INSERT INTO t VALUES (3, "c"), (1, "a"), (2, NULL);`,
	)
	res := run(t, ex, "SELECT s, a FROM t WHERE a > 1;")
	assert.Equal(t, []string{"c,3", "<nil>,2"}, rowStrings(res), "storage order is kept")

	res = run(t, ex, "SELECT * FROM t ORDER BY s;")
	assert.Equal(t, []string{"2,<nil>", "1,a", "3,c"}, rowStrings(res), "absent values sort first")
}

func TestExecSQL_DeleteLeavesHoles(t *testing.T) {
	ex := newExecutor(t, 10)
	runAll(t, ex, "CREATE TABLE t (a INT);")
	for i := 0; i < 20; i++ {
		run(t, ex, fmt.Sprintf("INSERT INTO t VALUES (%d);", i))
	}
	res := run(t, ex, "DELETE FROM t WHERE a / 2 * 2 = a;")
	assert.Equal(t, TagDelete, res.Tag)
	assert.Equal(t, int64(10), res.AffectedRows)

	rel, err := ex.DB.OpenTable("t")
	require.NoError(t, err)
	assert.Equal(t, 3, rel.BlockCount())
	assert.Equal(t, 10, rel.TupleCount())

	res = run(t, ex, "SELECT a FROM t WHERE a < 6;")
	assert.Equal(t, []string{"1", "3", "5"}, rowStrings(res))

	res = run(t, ex, "DELETE FROM t;")
	assert.Equal(t, int64(10), res.AffectedRows)
	assert.Empty(t, run(t, ex, "SELECT * FROM t;").Rows)
}

func TestExecSQL_InsertSelectFromItself(t *testing.T) {
	ex := newExecutor(t, 10)
	runAll(t, ex,
		"CREATE TABLE t (a INT, g STR20);",
		`INSERT INTO t VALUES (1, "x"), (2, "y");`,
	)
	res := run(t, ex, "INSERT INTO t (g, a) SELECT g, a FROM t;")
	require.Equal(t, int64(2), res.AffectedRows)
	assert.Equal(t, []string{"1,x", "1,x", "2,y", "2,y"}, sortedRows(run(t, ex, "SELECT * FROM t;")))

	runAll(t, ex, "CREATE TABLE u (a INT, note STR20, g STR20);")
	run(t, ex, "INSERT INTO u (g, a) SELECT DISTINCT g, a FROM t ORDER BY a;")
	assert.Equal(t, []string{"1,<nil>,x", "2,<nil>,y"}, rowStrings(run(t, ex, "SELECT * FROM u;")))
}

func TestExecSQL_TwoPassSort(t *testing.T) {
	ex := newExecutor(t, 3)
	runAll(t, ex, "CREATE TABLE t (a INT, b INT);")
	for i := 19; i >= 0; i-- {
		run(t, ex, fmt.Sprintf("INSERT INTO t VALUES (%d, %d);", i%4, i))
	}
	rel, err := ex.DB.OpenTable("t")
	require.NoError(t, err)
	require.Greater(t, rel.BlockCount(), ex.DB.Memory().Capacity())

	res := run(t, ex, "SELECT DISTINCT a FROM t ORDER BY a;")
	assert.Equal(t, []string{"0", "1", "2", "3"}, rowStrings(res))

	res = run(t, ex, "SELECT b FROM t WHERE a = 1 ORDER BY b;")
	assert.Equal(t, []string{"1", "5", "9", "13", "17"}, rowStrings(res))
	assert.Zero(t, ex.DB.Catalog().Temps())
}

type pair struct{ a, b int }

// loadPairs creates name(k INT, v INT) from rows.
func loadPairs(t *testing.T, ex *Executor, name, v string, rows []pair) {
	t.Helper()
	run(t, ex, fmt.Sprintf("CREATE TABLE %s (k INT, %s INT);", name, v))
	var vals []string
	for _, r := range rows {
		vals = append(vals, fmt.Sprintf("(%d, %d)", r.a, r.b))
	}
	run(t, ex, fmt.Sprintf("INSERT INTO %s VALUES %s;", name, strings.Join(vals, ", ")))
}

func TestExecSQL_SelectionPushdownEquivalence(t *testing.T) {
	ex := newExecutor(t, 4)
	var r, s []pair
	for i := 0; i < 30; i++ {
		r = append(r, pair{i % 10, i % 7})
	}
	for i := 0; i < 25; i++ {
		s = append(s, pair{i % 12, i})
	}
	loadPairs(t, ex, "r", "x", r)
	loadPairs(t, ex, "s", "y", s)

	var want []string
	for _, a := range r {
		for _, b := range s {
			if a.b == 5 && a.a == b.a {
				want = append(want, fmt.Sprintf("%d,%d,%d,%d", a.a, a.b, b.a, b.b))
			}
		}
	}
	slices.Sort(want)
	require.NotEmpty(t, want)

	joined := run(t, ex, "SELECT * FROM r, s WHERE r.x = 5 AND r.k = s.k;")
	assert.Equal(t, []string{"r.k", "r.x", "s.k", "s.y"}, joined.Columns)
	assert.Equal(t, want, sortedRows(joined))

	runAll(t, ex,
		"CREATE TABLE rr (k INT, x INT);",
		"INSERT INTO rr SELECT k, x FROM r WHERE x = 5;",
	)
	manual := run(t, ex, "SELECT * FROM rr, s WHERE rr.k = s.k;")
	assert.Equal(t, want, sortedRows(manual))

	residual := run(t, ex, "SELECT * FROM r, s WHERE r.x = 5 AND r.k + 0 = s.k;")
	assert.Equal(t, want, sortedRows(residual))
	assert.Zero(t, ex.DB.Catalog().Temps())
}

func TestExecSQL_ThreeWayJoin(t *testing.T) {
	ex := newExecutor(t, 3)
	var r, s, q []pair
	for i := 0; i < 12; i++ {
		r = append(r, pair{i % 4, i})
		s = append(s, pair{i % 6, i % 3})
	}
	for i := 0; i < 3; i++ {
		q = append(q, pair{i + 10, i})
	}
	loadPairs(t, ex, "r", "x", r)
	loadPairs(t, ex, "s", "y", s)
	loadPairs(t, ex, "q", "y", q)

	var want []string
	for _, a := range r {
		for _, b := range s {
			for _, c := range q {
				if a.a == b.a && b.b == c.b && a.b > 5 {
					want = append(want, fmt.Sprintf("%d,%d", a.b, c.a))
				}
			}
		}
	}
	slices.Sort(want)

	res := run(t, ex, "SELECT r.x, q.k FROM r, s, q WHERE r.k = s.k AND s.y = q.y AND x > 5;")
	assert.Equal(t, []string{"r.x", "q.k"}, res.Columns)
	assert.Equal(t, want, sortedRows(res))
	assert.Zero(t, ex.DB.Catalog().Temps())
}

func TestExecSQL_JoinDistinct(t *testing.T) {
	ex := newExecutor(t, 10)
	loadPairs(t, ex, "r", "x", []pair{{1, 1}, {1, 1}, {2, 1}, {3, 2}})
	loadPairs(t, ex, "s", "y", []pair{{1, 7}, {1, 7}, {2, 8}})

	all := run(t, ex, "SELECT DISTINCT * FROM r, s WHERE r.k = s.k;")
	assert.Equal(t, []string{"1,1,1,7", "2,1,2,8"}, sortedRows(all))

	proj := run(t, ex, "SELECT DISTINCT r.x, s.y FROM r, s ORDER BY r.x;")
	assert.Equal(t, []string{"1,7", "1,8", "2,7", "2,8"}, rowStrings(proj))

	again := run(t, ex, "SELECT DISTINCT r.x, s.y FROM r, s ORDER BY r.x;")
	assert.Equal(t, rowStrings(proj), rowStrings(again))
}

func TestExecSQL_DistinctIsIdempotent(t *testing.T) {
	ex := newExecutor(t, 4)
	var src []pair
	for i := 0; i < 24; i++ {
		src = append(src, pair{i % 5, i % 3})
	}
	loadPairs(t, ex, "src", "v", src)
	runAll(t, ex,
		"CREATE TABLE u (k INT, v INT);",
		"INSERT INTO u SELECT DISTINCT k, v FROM src;",
	)

	once := sortedRows(run(t, ex, "SELECT * FROM u;"))
	twice := sortedRows(run(t, ex, "SELECT DISTINCT * FROM u;"))
	assert.Equal(t, once, twice)
	assert.Len(t, once, 15)
	assert.Equal(t, once, slices.Compact(slices.Clone(once)), "no duplicates")

	all := sortedRows(run(t, ex, "SELECT * FROM src;"))
	for _, row := range once {
		assert.Contains(t, all, row)
	}
}

func TestExecSQL_DistinctAfterJoinOverMemory(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ex := NewExecutor(engine.NewDatabase(engine.Options{MemoryBlocks: 3, Logger: logger}))

	// Duplicates are spread out so no two copies share a block.
	var r []pair
	for i := 0; i < 20; i++ {
		r = append(r, pair{i % 4, (i / 4) % 2})
	}
	s := []pair{{0, 7}, {1, 8}, {0, 7}}
	loadPairs(t, ex, "r", "x", r)
	loadPairs(t, ex, "s", "y", s)

	rel, err := ex.DB.OpenTable("r")
	require.NoError(t, err)
	require.Greater(t, rel.BlockCount(), ex.DB.Memory().Capacity())

	distinct := func(keep func(a, b pair) bool) []string {
		var out []string
		for _, a := range r {
			for _, b := range s {
				if keep(a, b) {
					out = append(out, fmt.Sprintf("%d,%d,%d,%d", a.a, a.b, b.a, b.b))
				}
			}
		}
		slices.Sort(out)
		return slices.Compact(out)
	}

	cross := run(t, ex, "SELECT DISTINCT * FROM r, s;")
	assert.Equal(t, distinct(func(a, b pair) bool { return true }), sortedRows(cross))
	assert.Len(t, cross.Rows, 16)

	nat := run(t, ex, "SELECT DISTINCT * FROM r, s WHERE r.k = s.k;")
	assert.Equal(t, distinct(func(a, b pair) bool { return a.a == b.a }), sortedRows(nat))
	assert.Len(t, nat.Rows, 4)

	assert.Contains(t, logs.String(), "final_pass=true")
	assert.Zero(t, ex.DB.Catalog().Temps())
}

func TestExecSQL_StoredNullTextIsAValue(t *testing.T) {
	ex := newExecutor(t, 10)
	runAll(t, ex,
		"CREATE TABLE t (a INT, s STR20);",
		`INSERT INTO t VALUES (1, "null"), (2, "x"), (3, NULL);`,
	)
	assert.Equal(t, []string{"1"}, rowStrings(run(t, ex, "SELECT a FROM t WHERE s = 'null';")))
	assert.Equal(t, []string{"2"}, rowStrings(run(t, ex, "SELECT a FROM t WHERE s = 'x';")))
	assert.Equal(t, []string{"1,null", "2,x", "3,<nil>"}, rowStrings(run(t, ex, "SELECT * FROM t;")))
}

func TestExecSQL_ErrorsReleaseTemporaries(t *testing.T) {
	ex := newExecutor(t, 10)
	loadPairs(t, ex, "r", "x", []pair{{1, 1}, {2, 2}})
	loadPairs(t, ex, "s", "y", []pair{{1, 1}})

	_, err := ex.ExecSQL("SELECT * FROM r, s WHERE r.x = 1 AND r.k / 0 = s.k;")
	require.True(t, errors.Is(err, sqlerr.ErrDivisionByZero), "%v", err)
	assert.Zero(t, ex.DB.Catalog().Temps())

	_, err = ex.ExecSQL("SELECT * FROM r WHERE k > 'a';")
	require.True(t, errors.Is(err, sqlerr.ErrTypeMismatch), "%v", err)
}

func TestExecSQL_ErrorCodes(t *testing.T) {
	ex := newExecutor(t, 10)
	runAll(t, ex,
		"CREATE TABLE a (a1 INT, a2 INT, a3 INT, a4 INT, a5 INT);",
		"CREATE TABLE b (b1 INT, b2 INT, b3 INT, b4 INT);",
		"INSERT INTO a VALUES (1, 2, 3, 4, 5);",
		"INSERT INTO b VALUES (1, 2, 3, 4);",
	)
	cases := map[string]string{
		"SELECT * FROM a, b;":               "RowTooWide",
		"SELECT * FROM nope;":               "UnknownRelation",
		"DROP TABLE nope;":                  "UnknownRelation",
		"CREATE TABLE a (x INT);":           "DuplicateRelation",
		"SELECT * FROM a WHERE (a1 = 1;":    "MalformedPredicate",
		"SELECT * FROM a WHERE a1 / 0 = 1;": "DivisionByZero",
		"INSERT INTO a (a1) VALUES ('x');":  "TypeMismatch",
		"SELECT zz FROM a;":                 "UnknownColumn",
		"SELEC * FROM a;":                   "Syntax",
	}
	for sql, code := range cases {
		_, err := ex.ExecSQL(sql)
		require.Error(t, err, sql)
		assert.Equal(t, code, sqlerr.Code(err), "%s: %v", sql, err)
	}
	assert.Zero(t, ex.DB.Catalog().Temps())
}

func TestExecSQL_DropTable(t *testing.T) {
	ex := newExecutor(t, 10)
	runAll(t, ex, "CREATE TABLE t (a INT);", "INSERT INTO t VALUES (1);")
	res := run(t, ex, "DROP TABLE t;")
	assert.Equal(t, TagDrop, res.Tag)

	_, err := ex.ExecSQL("SELECT * FROM t;")
	require.True(t, errors.Is(err, sqlerr.ErrUnknownRelation))
	run(t, ex, "CREATE TABLE t (b STR20);")
}

// ---- fakes ----

type failingDB struct {
	*engine.Database
	dropErr error
}

func (f *failingDB) DropTable(string) error { return f.dropErr }

func TestExecutor_PropagatesDatabaseErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	db := &failingDB{Database: engine.NewDatabase(engine.Options{}), dropErr: boom}
	ex := NewExecutorForTest(db)

	run(t, ex, "CREATE TABLE t (a INT);")
	_, err := ex.ExecSQL("DROP TABLE t;")
	require.ErrorIs(t, err, boom)
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(&buf, &Result{
		Tag:          TagSelect,
		Columns:      []string{"id", "name"},
		Rows:         [][]any{{int64(1), "alice"}, {int64(22), nil}},
		AffectedRows: 2,
		DiskIOs:      1234,
		DiskBytes:    2048,
	})
	assert.Equal(t, strings.Join([]string{
		"id | name ",
		"---+------",
		"1  | alice",
		"22 | NULL ",
		"(2 rows; 1,234 disk I/Os, 2.0 kB)",
		"",
	}, "\n"), buf.String())

	buf.Reset()
	FormatTable(&buf, &Result{Tag: TagInsert, AffectedRows: 1, DiskIOs: 2, DiskBytes: 10})
	assert.Equal(t, "INSERT OK (1 affected; 2 disk I/Os, 10 B)\n", buf.String())
}

type codedErr struct{}

func (codedErr) Error() string     { return "relation \"x\" does not exist" }
func (codedErr) ErrorCode() string { return "UnknownRelation" }

func TestFormatError(t *testing.T) {
	var buf bytes.Buffer
	FormatError(&buf, sqlerr.DivisionByZero("a / 0"))
	assert.Equal(t, "error[DivisionByZero]: division by zero in \"a / 0\"\n", buf.String())

	buf.Reset()
	FormatError(&buf, errors.Wrap(codedErr{}, "remote"))
	assert.Equal(t, "error[UnknownRelation]: remote: relation \"x\" does not exist\n", buf.String())

	buf.Reset()
	FormatError(&buf, errors.New("boom"))
	assert.Equal(t, "error[Error]: boom\n", buf.String())
}
