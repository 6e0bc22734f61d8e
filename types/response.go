package types

// ValidationIssue describes one structural violation of a request part.
type ValidationIssue struct {
	Part    string `json:"part"`
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details []ValidationIssue `json:"details,omitempty"`
}

// CursorPage wraps cursor-paginated listings. NextCursor is absent when the
// page was empty.
type CursorPage struct {
	Items      any    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// OffsetPage wraps offset-paginated listings.
type OffsetPage struct {
	Items       any  `json:"items"`
	HasNextPage bool `json:"hasNextPage"`
}

type InsertedResponse struct {
	Inserted int `json:"inserted"`
}
