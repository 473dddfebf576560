package planner

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sql/expr"
	"github.com/tuannm99/novaquery/internal/sql/parser"
	"github.com/tuannm99/novaquery/internal/sqlerr"
	"github.com/tuannm99/novaquery/internal/storage"
)

// Catalog is what the planner needs to know about stored tables.
type Catalog interface {
	Schema(name string) (record.Schema, bool)
}

// BuildPlan builds a physical plan from an AST Statement.
// cat may be nil for statements that do not read the catalog.
func BuildPlan(stmt parser.Statement, cat Catalog) (Plan, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return buildCreateTablePlan(s)
	case *parser.DropTableStmt:
		return &DropTablePlan{TableName: s.TableName}, nil
	case *parser.InsertStmt:
		if s.Select != nil {
			return buildInsertSelectPlan(s, cat)
		}
		return buildInsertPlan(s, cat)
	case *parser.DeleteStmt:
		if _, err := schemaOf(cat, s.TableName); err != nil {
			return nil, err
		}
		return &DeletePlan{TableName: s.TableName, Where: s.Where}, nil
	case *parser.SelectStmt:
		return buildSelectPlan(s, cat)
	default:
		return nil, fmt.Errorf("planner: unsupported statement type %T", stmt)
	}
}

func schemaOf(cat Catalog, name string) (record.Schema, error) {
	if cat == nil {
		return record.Schema{}, fmt.Errorf("planner: no catalog to resolve %q", name)
	}
	sc, ok := cat.Schema(name)
	if !ok {
		return record.Schema{}, sqlerr.UnknownRelation(name)
	}
	return sc, nil
}

func buildCreateTablePlan(s *parser.CreateTableStmt) (Plan, error) {
	if len(s.Columns) > storage.FieldsPerBlock {
		return nil, sqlerr.RowTooWide(len(s.Columns), storage.FieldsPerBlock)
	}
	cols := make([]record.Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		cols = append(cols, record.Column{Name: c.Name, Type: c.Type})
	}
	schema, err := record.NewSchema(cols...)
	if err != nil {
		return nil, sqlerr.Syntax("table %s: %v", s.TableName, err)
	}
	return &CreateTablePlan{
		TableName: s.TableName,
		Schema:    schema,
	}, nil
}

// targets maps an INSERT column list to schema positions. An empty list
// means every column in order.
func targets(schema record.Schema, cols []string) ([]int, error) {
	if len(cols) == 0 {
		out := make([]int, schema.NumCols())
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := make([]int, 0, len(cols))
	for _, c := range cols {
		i := schema.Index(c)
		if i < 0 {
			return nil, sqlerr.UnknownColumn(c, "does not exist")
		}
		if slices.Contains(out, i) {
			return nil, sqlerr.Syntax("column %s listed twice", c)
		}
		out = append(out, i)
	}
	return out, nil
}

func buildInsertPlan(s *parser.InsertStmt, cat Catalog) (Plan, error) {
	schema, err := schemaOf(cat, s.TableName)
	if err != nil {
		return nil, err
	}
	pos, err := targets(schema, s.Columns)
	if err != nil {
		return nil, err
	}

	plan := &InsertPlan{TableName: s.TableName}
	for _, row := range s.Rows {
		if len(row) != len(pos) {
			return nil, sqlerr.Syntax("INSERT has %d values for %d columns", len(row), len(pos))
		}
		fields := make([]record.Field, schema.NumCols())
		for i, e := range row {
			col := schema.Cols[pos[i]]
			f, err := literalField(col, e)
			if err != nil {
				return nil, err
			}
			fields[pos[i]] = f
		}
		plan.Rows = append(plan.Rows, record.NewTuple(fields...))
	}
	return plan, nil
}

// literalField converts a parsed literal to a field of col's type.
func literalField(col record.Column, e parser.Expr) (record.Field, error) {
	lit, ok := e.(*parser.LiteralExpr)
	if !ok {
		return record.Field{}, fmt.Errorf("planner: unsupported value %T", e)
	}
	switch v := lit.Value.(type) {
	case nil:
		return record.Invalid(), nil
	case int64:
		if col.Type != record.TypeInt {
			return record.Field{}, sqlerr.TypeMismatch("column %s is %s, got integer %d", col.Name, col.Type, v)
		}
		if v < -1<<31 || v > 1<<31-1 {
			return record.Field{}, sqlerr.TypeMismatch("column %s: %d overflows INT", col.Name, v)
		}
		return record.Int(int32(v)), nil
	case string:
		if col.Type != record.TypeStr20 {
			return record.Field{}, sqlerr.TypeMismatch("column %s is %s, got string %q", col.Name, col.Type, v)
		}
		if len(v) > record.MaxStrLen {
			return record.Field{}, sqlerr.TypeMismatch("column %s: %q is longer than %d", col.Name, v, record.MaxStrLen)
		}
		return record.Str(v), nil
	default:
		return record.Field{}, fmt.Errorf("planner: unsupported literal %T", v)
	}
}

func buildInsertSelectPlan(s *parser.InsertStmt, cat Catalog) (Plan, error) {
	schema, err := schemaOf(cat, s.TableName)
	if err != nil {
		return nil, err
	}
	pos, err := targets(schema, s.Columns)
	if err != nil {
		return nil, err
	}
	sel, err := buildSelectPlan(s.Select, cat)
	if err != nil {
		return nil, errors.Wrap(err, "insert select")
	}
	if n := sel.Schema.NumCols(); n != len(pos) {
		return nil, sqlerr.Syntax("INSERT SELECT yields %d columns for %d targets", n, len(pos))
	}
	for i, p := range pos {
		src, dst := sel.Schema.Cols[i], schema.Cols[p]
		if src.Type != dst.Type {
			return nil, sqlerr.TypeMismatch("column %s is %s, select yields %s from %s", dst.Name, dst.Type, src.Type, src.Name)
		}
	}
	return &InsertSelectPlan{
		TableName: s.TableName,
		Schema:    schema,
		Targets:   pos,
		Select:    sel,
	}, nil
}

func buildSelectPlan(s *parser.SelectStmt, cat Catalog) (*SelectPlan, error) {
	r := resolver{schemas: make(map[string]record.Schema, len(s.Tables))}
	for _, t := range s.Tables {
		sc, err := schemaOf(cat, t)
		if err != nil {
			return nil, err
		}
		r.tables = append(r.tables, t)
		r.schemas[t] = sc
	}

	p := &SelectPlan{
		Distinct: s.Distinct,
		Tables:   slices.Clone(s.Tables),
		Inputs:   r.schemas,
		Where:    s.Where,
	}

	var cols []record.Column
	add := func(table, field string) {
		sc := r.schemas[table]
		name := field
		if !p.Single() {
			name = table + "." + field
		}
		p.Output = append(p.Output, name)
		cols = append(cols, record.Column{Name: name, Type: sc.Cols[sc.Index(field)].Type})
	}
	if s.Star {
		for _, t := range p.Tables {
			for _, c := range r.schemas[t].Cols {
				add(t, c.Name)
			}
		}
	} else {
		for _, ref := range s.Columns {
			table, field, err := r.column(ref)
			if err != nil {
				return nil, err
			}
			add(table, field)
		}
	}
	p.Schema = record.Schema{Cols: cols}

	if s.OrderBy != "" {
		table, field, err := r.column(s.OrderBy)
		if err != nil {
			return nil, errors.Wrap(err, "order by")
		}
		p.OrderBy = field
		if !p.Single() {
			p.OrderBy = table + "." + field
		}
		if p.Distinct && !slices.Contains(p.Output, p.OrderBy) {
			return nil, sqlerr.Syntax("ORDER BY %s must appear in the DISTINCT select list", s.OrderBy)
		}
	}

	if err := r.checkRefs(p.Where); err != nil {
		return nil, err
	}
	if !p.Single() {
		p.Rewrite = Rewrite(p, r.resolve)
	}
	return p, nil
}

// resolver maps references to the FROM tables of one select.
type resolver struct {
	tables  []string
	schemas map[string]record.Schema
}

// resolve is a join.RefResolver: it reports which table a reference reads.
func (r resolver) resolve(ref string) (string, string, bool) {
	if table, field, ok := record.SplitQualified(ref); ok {
		sc, found := r.schemas[table]
		if !found || sc.Index(field) < 0 {
			return "", "", false
		}
		return table, field, true
	}
	owner := ""
	for _, t := range r.tables {
		if r.schemas[t].Index(ref) >= 0 {
			if owner != "" {
				return "", "", false
			}
			owner = t
		}
	}
	return owner, ref, owner != ""
}

// column resolves a reference that must name a column.
func (r resolver) column(ref string) (string, string, error) {
	if table, ok, ambiguous := r.owner(ref); ok {
		_, field, _ := record.SplitQualified(ref)
		return table, field, nil
	} else if ambiguous {
		return "", "", sqlerr.UnknownColumn(ref, "is ambiguous")
	}
	return "", "", sqlerr.UnknownColumn(ref, "does not exist")
}

// owner finds the table of ref; ambiguous is set when several tables match
// an unqualified name.
func (r resolver) owner(ref string) (table string, ok, ambiguous bool) {
	if t, _, found := r.resolve(ref); found {
		return t, true, false
	}
	if _, _, qualified := record.SplitQualified(ref); qualified {
		return "", false, false
	}
	n := 0
	for _, t := range r.tables {
		if r.schemas[t].Index(ref) >= 0 {
			n++
		}
	}
	return "", false, n > 1
}

// checkRefs rejects qualified references into a FROM table that lacks the
// field and unqualified ones that several tables share. Other tokens are
// literals.
func (r resolver) checkRefs(n *expr.Node) error {
	for _, ref := range expr.Refs(n) {
		if _, ok, ambiguous := r.owner(ref); ok {
			continue
		} else if ambiguous {
			return sqlerr.UnknownColumn(ref, "is ambiguous")
		}
		if table, _, qualified := record.SplitQualified(ref); qualified {
			if _, known := r.schemas[table]; known {
				return sqlerr.UnknownColumn(ref, "does not exist")
			}
		}
	}
	return nil
}
