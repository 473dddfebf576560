package parser

import (
	"github.com/tuannm99/novaquery/internal/record"
	"github.com/tuannm99/novaquery/internal/sql/expr"
)

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE -----
type ColumnDef struct {
	Name string
	Type record.FieldType
}

type CreateTableStmt struct {
	TableName string
	Columns   []ColumnDef
}

func (*CreateTableStmt) stmtNode() {}

// ----- DROP TABLE -----
type DropTableStmt struct {
	TableName string
}

func (*DropTableStmt) stmtNode() {}

// ----- INSERT -----

// InsertStmt carries either literal rows or a SELECT whose result columns
// map positionally onto Columns (or onto every column when Columns is empty).
type InsertStmt struct {
	TableName string
	Columns   []string
	Rows      [][]Expr
	Select    *SelectStmt
}

func (*InsertStmt) stmtNode() {}

// ----- DELETE -----
type DeleteStmt struct {
	TableName string
	Where     *expr.Node
}

func (*DeleteStmt) stmtNode() {}

// ----- SELECT -----
type SelectStmt struct {
	Distinct bool
	// Star is set for SELECT *; Columns is empty then.
	Star    bool
	Columns []string
	Tables  []string
	Where   *expr.Node
	OrderBy string
}

func (*SelectStmt) stmtNode() {}

// ----- Expressions -----
type Expr interface {
	exprNode()
}

// LiteralExpr holds nil (NULL), int64 or string.
type LiteralExpr struct {
	Value any
}

func (*LiteralExpr) exprNode() {}
