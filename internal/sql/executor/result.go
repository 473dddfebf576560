package executor

// Statement tags reported in Result.Tag.
const (
	TagCreate = "CREATE TABLE"
	TagDrop   = "DROP TABLE"
	TagInsert = "INSERT"
	TagDelete = "DELETE"
	TagSelect = "SELECT"
)

// Result is the generic query result returned to the caller.
type Result struct {
	Tag     string   `json:"tag"`
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`

	// Row count for SELECT, tuples written or invalidated for DML.
	AffectedRows int64 `json:"affected_rows"`

	// Block transfers charged to the statement.
	DiskIOs   int64 `json:"disk_ios"`
	DiskBytes int64 `json:"disk_bytes"`
}
