package server

import (
	executor "github.com/linkgraph/linkgraph/internal/executor"
	language "github.com/linkgraph/linkgraph/internal/language"
)

// Response is the JSON body written for one GraphQL request. Data is left
// out when execution produced none.
type Response struct {
	Data   any          `json:"data,omitempty"`
	Errors []ErrorEntry `json:"errors,omitempty"`
}

type Location = executor.Location

// ErrorEntry is one error as sent to clients. Causes and stack traces stay
// on the server.
type ErrorEntry struct {
	Message    string             `json:"message"`
	Type       executor.ErrorType `json:"type"`
	Locations  []Location         `json:"locations,omitempty"`
	Path       []any              `json:"path,omitempty"`
	Extensions map[string]any     `json:"extensions,omitempty"`
}

func badRequest(message string) Response {
	return Response{Errors: []ErrorEntry{{Message: message, Type: executor.ErrorBadRequest}}}
}

func fromResult(res *executor.ExecutionResult) Response {
	out := Response{Data: res.Data}
	if len(res.Errors) == 0 {
		return out
	}
	out.Errors = make([]ErrorEntry, len(res.Errors))
	for i, e := range res.Errors {
		entry := ErrorEntry{
			Message:    e.Message,
			Type:       e.Type,
			Locations:  e.Locations,
			Extensions: e.Extensions,
		}
		if entry.Type == "" {
			entry.Type = executor.ErrorDataFetching
		}
		if len(e.Path) > 0 {
			entry.Path = make([]any, len(e.Path))
			for j, pe := range e.Path {
				entry.Path[j] = pe
			}
		}
		out.Errors[i] = entry
	}
	return out
}

// fromQueryErrors converts parse and validation errors.
func fromQueryErrors(errs language.ErrorList) []ErrorEntry {
	out := make([]ErrorEntry, len(errs))
	for i, e := range errs {
		entry := ErrorEntry{Message: e.Message, Type: executor.ErrorValidation}
		if language.IsSyntaxError(e) {
			entry.Type = executor.ErrorInvalidSyntax
		}
		for _, loc := range e.Locations {
			entry.Locations = append(entry.Locations, Location{Line: loc.Line, Column: loc.Column})
		}
		out[i] = entry
	}
	return out
}
