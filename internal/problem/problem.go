// Package problem shapes failure kinds into the JSON error body returned to
// HTTP clients and decides the log severity for each kind.
package problem

// ExtensionCode is the fixed extensions key carrying the machine error code.
const ExtensionCode = "code"

// Response is the canonical error body. The JSON key names are part of the
// wire contract and must not change.
type Response struct {
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Extensions map[string]any `json:"extensions"`
}
