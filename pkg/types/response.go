package types

// SuccessEnvelope wraps every successful API response as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a coded error. Code carries the machine
// taxonomy (VALIDATION_ERROR, SELLER_LIMIT_EXCEEDED, ...); Details is only
// populated for codes whose metadata allows it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every failed API response as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
