package harness

// Page is the observable outcome of one request on one execution path.
type Page struct {
	// Keys are the entity cursors of the page, in page order.
	Keys      []string `json:"keys"`
	Count     *int     `json:"count,omitempty"`
	SkipToken string   `json:"skiptoken,omitempty"`
	NextLink  string   `json:"nextlink,omitempty"`
	ETags     int      `json:"etags"`
}

// Fragment is the filter compiled for one dialect. Bindings are rendered as
// URI literals. Code is set instead when compilation fails.
type Fragment struct {
	SQL      string   `json:"sql,omitempty"`
	Bindings []string `json:"bindings,omitempty"`
	Code     string   `json:"code,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: both paths agree and every
	// assertion holds.
	Pass bool `json:"pass"`

	// Memory is the page served by the in-memory path.
	Memory *Page `json:"memory"`

	// PushDown is the page served from SQLite; nil for memory-only
	// scenarios.
	PushDown *Page `json:"pushdown,omitempty"`

	// Compiled holds the filter per dialect name; empty without a filter.
	Compiled map[string]Fragment `json:"compiled,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Compiled: map[string]Fragment{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
