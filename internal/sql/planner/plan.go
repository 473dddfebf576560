package planner

import (
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sql/expr"
)

// Plan is the interface for executable plans.
type Plan interface {
	planNode()
}

// ----- Plan nodes -----

type CreateTablePlan struct {
	TableName string
	Schema    record.Schema
}

func (*CreateTablePlan) planNode() {}

type DropTablePlan struct {
	TableName string
}

func (*DropTablePlan) planNode() {}

// InsertPlan holds rows already checked against the table schema.
type InsertPlan struct {
	TableName string
	Rows      []record.Tuple
}

func (*InsertPlan) planNode() {}

// InsertSelectPlan writes output column i of Select into column Targets[i]
// of the table. Columns not targeted are left null.
type InsertSelectPlan struct {
	TableName string
	Schema    record.Schema
	Targets   []int
	Select    *SelectPlan
}

func (*InsertSelectPlan) planNode() {}

type DeletePlan struct {
	TableName string
	Where     *expr.Node
}

func (*DeletePlan) planNode() {}

// SelectPlan is a resolved SELECT. For one table, Output and OrderBy hold
// bare field names; for several they hold "table.field".
type SelectPlan struct {
	Distinct bool
	Tables   []string
	// Inputs holds the stored schema of each table.
	Inputs map[string]record.Schema
	Output []string
	// Schema describes the result columns, named as Output.
	Schema  record.Schema
	Where   *expr.Node
	OrderBy string
	// Rewrite is set when more than one table is joined.
	Rewrite *JoinShape
}

func (*SelectPlan) planNode() {}

// Single reports whether the select reads one table.
func (p *SelectPlan) Single() bool { return len(p.Tables) == 1 }
