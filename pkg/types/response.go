// Package types defines the wire envelopes every API response uses.
package types

// SuccessEnvelope wraps a successful payload as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Details is populated only for codes
// that allow echoing extra context to the client.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError as {"error": ...}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
