// Package notion implements the built-in sync procedure: pages flagged in
// the master database are copied into the slave database, and the master
// page's status property records the outcome.
package notion

import "context"

// PropertyType is a Notion property type name ("title", "select", ...).
type PropertyType string

// Property types the sync understands.
const (
	TypeTitle       PropertyType = "title"
	TypeRichText    PropertyType = "rich_text"
	TypeNumber      PropertyType = "number"
	TypeSelect      PropertyType = "select"
	TypeMultiSelect PropertyType = "multi_select"
	TypeDate        PropertyType = "date"
	TypeURL         PropertyType = "url"
	TypeEmail       PropertyType = "email"
	TypePhoneNumber PropertyType = "phone_number"
	TypeCheckbox    PropertyType = "checkbox"
	TypeFormula     PropertyType = "formula"
)

// Property is a decoded property value.
//
// Value holds a string (title, rich_text, select, date, url, email,
// phone_number), a float64 (number), a []string (multi_select), a bool
// (checkbox), or nil when the property is unset. Formulas decode to the
// type of their result.
type Property struct {
	Type  PropertyType
	Value any
}

// Page is a database row.
type Page struct {
	ID         string
	Properties map[string]Property
}

// SelectFilter matches pages whose select property equals a value.
type SelectFilter struct {
	Property string
	Equals   string
}

// Query selects pages from a database. All filters must match.
type Query struct {
	Filters     []SelectFilter
	PageSize    int
	StartCursor string
}

// QueryResult is one page of query results.
type QueryResult struct {
	Pages      []Page
	HasMore    bool
	NextCursor string
}

// Workspace is the subset of the Notion API the sync needs.
type Workspace interface {
	// PropertyTypes maps each property of a database to its type.
	PropertyTypes(ctx context.Context, databaseID string) (map[string]PropertyType, error)

	// QueryPages runs one page of a database query.
	QueryPages(ctx context.Context, databaseID string, q Query) (QueryResult, error)

	// CreatePage adds a page to a database and returns its ID.
	CreatePage(ctx context.Context, databaseID string, props map[string]Property) (string, error)

	// SetSelect sets a select property on a page.
	SetSelect(ctx context.Context, pageID, property, value string) error
}
