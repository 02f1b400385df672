package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// GraphQLRequest is the decoded request envelope. Variables is never nil.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// requestError rejects a request before execution.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func malformed(message string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: message}
}

// decodeRequest reads the body of r. A JSON array is a batch of envelopes.
// A GET without a body is read from the URL parameters instead.
func decodeRequest(r *http.Request, maxBody int64) ([]GraphQLRequest, bool, *requestError) {
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, malformed("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, false, &requestError{status: http.StatusRequestEntityTooLarge, message: "body too large"}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		if r.Method == http.MethodGet {
			req, rerr := decodeParams(r.URL.Query())
			if rerr != nil {
				return nil, false, rerr
			}
			return []GraphQLRequest{req}, false, nil
		}
		return nil, false, malformed("empty request body")
	}

	if body[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, false, malformed("invalid JSON")
		}
		if len(raw) == 0 {
			return nil, false, malformed("empty batch")
		}
		reqs := make([]GraphQLRequest, len(raw))
		for i, item := range raw {
			req, rerr := decodeEnvelope(item)
			if rerr != nil {
				return nil, false, rerr
			}
			reqs[i] = req
		}
		return reqs, true, nil
	}

	req, rerr := decodeEnvelope(body)
	if rerr != nil {
		return nil, false, rerr
	}
	return []GraphQLRequest{req}, false, nil
}

// decodeEnvelope checks the shape of one envelope. query must be a non-empty
// string; variables and extensions that are absent, null or not objects
// become empty maps.
func decodeEnvelope(raw json.RawMessage) (GraphQLRequest, *requestError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return GraphQLRequest{}, malformed("request body must be a JSON object")
	}

	var req GraphQLRequest
	q, ok := fields["query"]
	if !ok {
		return GraphQLRequest{}, malformed("missing 'query'")
	}
	if err := json.Unmarshal(q, &req.Query); err != nil || string(q) == "null" {
		return GraphQLRequest{}, malformed("'query' must be a string")
	}
	if req.Query == "" {
		return GraphQLRequest{}, malformed("'query' must not be empty")
	}
	if op, ok := fields["operationName"]; ok && string(op) != "null" {
		if err := json.Unmarshal(op, &req.OperationName); err != nil {
			return GraphQLRequest{}, malformed("'operationName' must be a string")
		}
	}
	req.Variables = objectOrEmpty(fields["variables"])
	req.Extensions = objectOrEmpty(fields["extensions"])
	return req, nil
}

func decodeParams(params url.Values) (GraphQLRequest, *requestError) {
	req := GraphQLRequest{
		Query:         params.Get("query"),
		OperationName: params.Get("operationName"),
	}
	if req.Query == "" {
		return GraphQLRequest{}, malformed("missing 'query'")
	}
	req.Variables = objectOrEmpty(json.RawMessage(params.Get("variables")))
	req.Extensions = objectOrEmpty(json.RawMessage(params.Get("extensions")))
	return req, nil
}

func objectOrEmpty(raw json.RawMessage) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return out
	}
	return m
}
