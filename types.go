// Package novaquery is the top-level facade for the novaquery engine.
package novaquery

import (
	"github.com/tuannm99/novaquery/internal/catalog"
	"github.com/tuannm99/novaquery/internal/engine"
	"github.com/tuannm99/novaquery/internal/sql/executor"
)

type (
	Database  = engine.Database
	Result    = executor.Result
	TableMeta = catalog.TableMeta
)
