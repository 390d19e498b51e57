package domain

import (
	"context"
	"encoding/json"
	"net/http"
)

// Transport issues one GraphQL request against Linear with the credentials
// it was built from. It is disposable: the credential manager builds a new
// one whenever the access key changes.
type Transport interface {
	// RawRequest executes a query or mutation document and returns the
	// "data" member of the response.
	RawRequest(ctx context.Context, document string, variables map[string]interface{}) (json.RawMessage, error)
}

// TransportFactory builds a Transport on top of an authenticated HTTP client.
type TransportFactory func(httpClient *http.Client) Transport

// GraphQLError is returned by a Transport when Linear answered the request
// but reported errors in the response body.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "graphql error"
	}
	msg := e.Messages[0]
	for _, m := range e.Messages[1:] {
		msg += "; " + m
	}
	return msg
}
