package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if the expectation and every assertion hold.
	Pass bool `json:"pass"`

	// IDs are the root ids returned, across pages when AllPages is set.
	IDs []int64 `json:"ids"`

	// Rows are the returned rows, in the same order as IDs.
	Rows []map[string]any `json:"rows"`

	// Columns are the display column labels.
	Columns []string `json:"columns"`

	// Total is the total count reported by the first page.
	Total int64 `json:"total"`

	// HasMore reports whether the first page had a successor.
	HasMore bool `json:"hasMore"`

	// Pages is the number of pages fetched.
	Pages int `json:"pages"`

	// SQL and Args are the first page query. CountSQL is the count query.
	SQL      string `json:"sql,omitempty"`
	Args     []any  `json:"args,omitempty"`
	CountSQL string `json:"countSql,omitempty"`

	// ErrorCode is the code of the query error, if the query failed.
	ErrorCode string `json:"errorCode,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		IDs:    []int64{},
		Rows:   []map[string]any{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// row returns the row with root id id.
func (r *Result) row(id int64) (map[string]any, bool) {
	for i, rowID := range r.IDs {
		if rowID == id {
			return r.Rows[i], true
		}
	}
	return nil, false
}
