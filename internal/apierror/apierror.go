// Package apierror holds the JSON envelopes of every 4xx/5xx response.
// Handlers never serialize raw errors; only these shapes reach clients.
package apierror

// APIError is the canonical error envelope. Codigo is a stable
// machine-readable tag (sin_sesion, conflicto, ...); Detail is for humans.
type APIError struct {
	Codigo string `json:"codigo,omitempty"`
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func NewCodigo(codigo, msg string) *APIError {
	return &APIError{Codigo: codigo, Detail: msg}
}

// ValidationError lists the failing field and validator tag.
type ValidationError struct {
	Codigo string            `json:"codigo"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Codigo: "validacion", Detail: "Error de validacion", Fields: fields}
}
