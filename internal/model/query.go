package model

// QueryRequest is a raw SQL statement submitted to the query console.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// QueryResult is the tabular outcome of a console statement. Rows are keyed
// by column name.
type QueryResult struct {
	Columns         []string                 `json:"columns"`
	Rows            []map[string]interface{} `json:"rows"`
	RowCount        int                      `json:"row_count"`
	ExecutionTimeMS int64                    `json:"execution_time_ms"`
}

type SampleQuery struct {
	Title string `json:"title"`
	Query string `json:"query"`
}
