package domain

// ResponseMapper converts facade results and errors to MCP tool responses.
type ResponseMapper interface {
	// MapToToolResponse builds a success response from a human-readable
	// summary and the structured payload it was derived from.
	MapToToolResponse(summary string, payload interface{}) (*ToolResponse, error)

	// MapError classifies an error into a JSON-RPC code and message.
	MapError(err error) *Error

	// MapErrorResponse builds an IsError tool response for err.
	MapErrorResponse(err error) *ToolResponse
}
