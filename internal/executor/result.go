package executor

// ErrorType classifies a GraphQLError for clients and logs.
type ErrorType string

const (
	ErrorInvalidSyntax         ErrorType = "InvalidSyntax"
	ErrorValidation            ErrorType = "ValidationError"
	ErrorDataFetching          ErrorType = "DataFetchingException"
	ErrorOperationNotSupported ErrorType = "OperationNotSupported"
	ErrorExecutionAborted      ErrorType = "ExecutionAborted"
	ErrorBadRequest            ErrorType = "BadRequest"
)

// Location is a 1-based position in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Type       ErrorType      `json:"type,omitempty"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`

	// Cause is the resolver or runtime error behind a DataFetchingException.
	// It is kept for server-side logging and never serialized.
	Cause error `json:"-"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

func (e GraphQLError) Unwrap() error {
	return e.Cause
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}
