package novaquerywire

import "github.com/tuannm99/novaquery/internal/sql/executor"

// ExecuteRequest is a single SQL command request.
type ExecuteRequest struct {
	ID  uint64 `json:"id"`
	SQL string `json:"sql"`
}

// ExecuteResponse is the response for a request ID. Code carries the error
// class (for example "UnknownRelation") when Error is set.
type ExecuteResponse struct {
	ID      uint64           `json:"id"`
	Session string           `json:"session"`
	Result  *executor.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	Code    string           `json:"code,omitempty"`
}
