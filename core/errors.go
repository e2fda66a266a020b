package core

// Error code constants, mirroring the taxonomy in spec.md §7. These are the
// `code` values carried in ResponseError and in StorageResult errors.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeRateLimited       = "rate_limit_exceeded"
	ErrorCodeTimeout           = "timeout"
	ErrorCodeNetwork           = "network"
	ErrorCodeAuthentication    = "authentication"
	ErrorCodeModel             = "model_error"
	ErrorCodeCircuitOpen       = "circuit_open"
	ErrorCodeQueueFull         = "QUEUE_FULL"
	ErrorCodeUnknown           = "unknown"
)

// recoverableByCode records the default recoverability of each error kind,
// per spec.md §7.
var recoverableByCode = map[string]bool{
	ErrorCodeInvalidRequest: false,
	ErrorCodeRateLimited:    true,
	ErrorCodeTimeout:        true,
	ErrorCodeNetwork:        true,
	ErrorCodeAuthentication: false,
	ErrorCodeModel:          true,
	ErrorCodeCircuitOpen:    true,
	ErrorCodeQueueFull:      true,
	ErrorCodeUnknown:        true,
}

// IsRecoverable reports whether a given error code is recoverable by
// default. Callers that have a more specific signal (e.g. a RetryableError
// with an explicit flag) should prefer that over this table.
func IsRecoverable(code string) bool {
	if r, ok := recoverableByCode[code]; ok {
		return r
	}
	return true
}

// GatewayError is the error type returned internally by the reliability
// layers (breaker, rate limiter, retry engine) before being translated into
// a ResponseError by the Gateway's Generate/Analyze/Evaluate/Compare
// operations. The Gateway's probe operations (TestConnectivity,
// VerifyModelAccess, HealthStatus) return it as a plain error — see
// core/gateway.go.
type GatewayError struct {
	Code        string
	Message     string
	Recoverable bool
}

func (e *GatewayError) Error() string {
	return e.Message
}

// NewGatewayError constructs a GatewayError, defaulting Recoverable from the
// code taxonomy when not given explicitly.
func NewGatewayError(code, message string) *GatewayError {
	return &GatewayError{Code: code, Message: message, Recoverable: IsRecoverable(code)}
}

// CapabilityMismatch is returned by CapabilityRegistry.Validate when a
// request exceeds a model's declared capabilities.
type CapabilityMismatch struct {
	Field     string
	Limit     float64
	Requested float64
}

func (e *CapabilityMismatch) Error() string {
	return "capability mismatch: " + e.Field
}
