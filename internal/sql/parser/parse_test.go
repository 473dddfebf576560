package parser

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sqlerr"
)

func mustParse[T Statement](t *testing.T, sql string) T {
	t.Helper()
	stmt, err := Parse(sql)
	require.NoError(t, err, sql)
	s, ok := stmt.(T)
	require.True(t, ok, "got %T", stmt)
	return s
}

func TestParse_RequireSemicolon(t *testing.T) {
	_, err := Parse("SELECT * FROM users")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing ';'")
	require.True(t, errors.Is(err, sqlerr.ErrSyntax))
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", ";", " ; "} {
		_, err := Parse(in)
		require.Error(t, err, in)
	}
}

func TestParse_Unsupported(t *testing.T) {
	_, err := Parse("UPDATE t SET a = 1;")
	require.True(t, errors.Is(err, sqlerr.ErrSyntax))
}

func TestParse_CreateTable(t *testing.T) {
	s := mustParse[*CreateTableStmt](t, "CREATE TABLE Course (sid INT, homework int, grade STR20);")

	require.Equal(t, "course", s.TableName)
	require.Equal(t, []ColumnDef{
		{Name: "sid", Type: record.TypeInt},
		{Name: "homework", Type: record.TypeInt},
		{Name: "grade", Type: record.TypeStr20},
	}, s.Columns)
}

func TestParse_CreateTable_Varchar(t *testing.T) {
	s := mustParse[*CreateTableStmt](t, "create table t (name VARCHAR(20));")
	require.Equal(t, record.TypeStr20, s.Columns[0].Type)
}

func TestParse_CreateTable_Invalid(t *testing.T) {
	for _, in := range []string{
		"CREATE TABLE users id INT, name STR20;",
		"CREATE TABLE users ();",
		"CREATE TABLE users (id BOOL);",
		"CREATE TABLE users (id);",
		"CREATE TABLE 1users (id INT);",
	} {
		_, err := Parse(in)
		require.True(t, errors.Is(err, sqlerr.ErrSyntax), in)
	}
}

func TestParse_DropTable(t *testing.T) {
	s := mustParse[*DropTableStmt](t, "DROP TABLE course;")
	assert.Equal(t, "course", s.TableName)

	_, err := Parse("DROP TABLE a b;")
	require.Error(t, err)
}

func TestParse_InsertValues(t *testing.T) {
	s := mustParse[*InsertStmt](t, `INSERT INTO course (sid, grade, exam) VALUES (1, "A b", NULL);`)

	assert.Equal(t, "course", s.TableName)
	assert.Equal(t, []string{"sid", "grade", "exam"}, s.Columns)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, []Expr{
		&LiteralExpr{Value: int64(1)},
		&LiteralExpr{Value: "A b"},
		&LiteralExpr{Value: nil},
	}, s.Rows[0])
	assert.Nil(t, s.Select)
}

func TestParse_InsertValues_ManyRowsNoColumnList(t *testing.T) {
	s := mustParse[*InsertStmt](t, "insert into t values(1, 'x, y'),(-2, 'z');")

	assert.Empty(t, s.Columns)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, &LiteralExpr{Value: "x, y"}, s.Rows[0][1])
	assert.Equal(t, &LiteralExpr{Value: int64(-2)}, s.Rows[1][0])
}

func TestParse_InsertValues_Invalid(t *testing.T) {
	for _, in := range []string{
		"INSERT INTO t (a, b) VALUES (1);",
		"INSERT INTO t VALUES (1), ;",
		"INSERT INTO t VALUES (1, 2;",
		"INSERT INTO t VALUES (true);",
		"INSERT INTO t (a VALUES (1);",
		"INSERT INTO t;",
	} {
		_, err := Parse(in)
		require.Error(t, err, in)
	}
}

func TestParse_InsertSelect(t *testing.T) {
	s := mustParse[*InsertStmt](t, "INSERT INTO course2 (sid, grade) SELECT sid, grade FROM course WHERE exam > 90;")

	assert.Equal(t, "course2", s.TableName)
	assert.Equal(t, []string{"sid", "grade"}, s.Columns)
	assert.Nil(t, s.Rows)
	require.NotNil(t, s.Select)
	assert.Equal(t, []string{"sid", "grade"}, s.Select.Columns)
	assert.Equal(t, []string{"course"}, s.Select.Tables)
	assert.Equal(t, "exam > 90", s.Select.Where.String())
}

func TestParse_SelectStar(t *testing.T) {
	s := mustParse[*SelectStmt](t, "SELECT * FROM course;")
	assert.True(t, s.Star)
	assert.Empty(t, s.Columns)
	assert.False(t, s.Distinct)
	assert.Equal(t, []string{"course"}, s.Tables)
	assert.Nil(t, s.Where)
	assert.Empty(t, s.OrderBy)
}

func TestParse_SelectFull(t *testing.T) {
	s := mustParse[*SelectStmt](t, `SELECT DISTINCT course.sid, Grade
		FROM course,   course2
		WHERE course.sid = course2.sid AND [exam + project] > 100 AND grade = "from x"
		ORDER BY course.sid;`)

	assert.True(t, s.Distinct)
	assert.Equal(t, []string{"course.sid", "grade"}, s.Columns)
	assert.Equal(t, []string{"course", "course2"}, s.Tables)
	assert.Equal(t, "course.sid", s.OrderBy)
	assert.Equal(t, "course.sid = course2.sid & exam + project > 100 & grade = 'from x'", s.Where.String())
}

func TestParse_SelectOrderWithoutWhere(t *testing.T) {
	s := mustParse[*SelectStmt](t, "SELECT a FROM t ORDER BY a;")
	assert.Nil(t, s.Where)
	assert.Equal(t, "a", s.OrderBy)
}

func TestParse_SelectInvalid(t *testing.T) {
	for _, in := range []string{
		"SELECT FROM t;",
		"SELECT a;",
		"SELECT a FROM t, t;",
		"SELECT a FROM ;",
		"SELECT a FROM t WHERE ;",
		"SELECT a FROM t ORDER BY a b;",
		"SELECT a..b FROM t;",
	} {
		_, err := Parse(in)
		require.Error(t, err, in)
	}
}

func TestParse_SelectMalformedWhere(t *testing.T) {
	_, err := Parse("SELECT a FROM t WHERE a = ;")
	require.True(t, errors.Is(err, sqlerr.ErrMalformedPredicate))
}

func TestParse_Delete(t *testing.T) {
	s := mustParse[*DeleteStmt](t, "DELETE FROM course WHERE grade = 'E';")
	assert.Equal(t, "course", s.TableName)
	assert.Equal(t, "grade = 'E'", s.Where.String())

	all := mustParse[*DeleteStmt](t, "DELETE FROM course;")
	assert.Nil(t, all.Where)
}

func TestSplitKeyword(t *testing.T) {
	l, r, ok := splitKeyword("a, b FROM t", "from")
	require.True(t, ok)
	assert.Equal(t, "a, b", l)
	assert.Equal(t, "t", r)

	_, _, ok = splitKeyword("fromage FROMx", "FROM")
	assert.False(t, ok)

	_, _, ok = splitKeyword("x = 'a FROM b'", "FROM")
	assert.False(t, ok)

	l, r, ok = splitKeyword("t (a) VALUES(1)", "VALUES")
	require.True(t, ok)
	assert.Equal(t, "t (a)", l)
	assert.Equal(t, "(1)", r)
}

func TestSplitComma(t *testing.T) {
	assert.Equal(t, []string{"a", "'b,c'", "f(1, 2)"}, splitComma("a, 'b,c' ,f(1, 2)"))
	assert.Equal(t, []string{}, splitComma("  "))
}

func TestSplitStatements(t *testing.T) {
	script := `
CREATE TABLE t (a INT); -- make it
INSERT INTO t VALUES (1);
-- a whole line; with a semicolon
SELECT * FROM t WHERE a = ';';
SELECT`
	got := SplitStatements(script)
	require.Equal(t, []string{
		"CREATE TABLE t (a INT);",
		"INSERT INTO t VALUES (1);",
		"SELECT * FROM t WHERE a = ';';",
		"SELECT",
	}, got)

	assert.Empty(t, SplitStatements(" \n -- nothing\n"))
}

func TestKind(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM t;":            "select",
		"  insert into t values (1);": "insert",
		"Create TABLE t (a INT);":     "create",
		"DROP TABLE t;":               "drop",
		"delete from t;":              "delete",
		"UPDATE t SET a = 1;":         "unknown",
		"":                            "unknown",
	}
	for sql, want := range cases {
		assert.Equal(t, want, Kind(sql), sql)
	}
}
