package core

// ValidationError is a single structured failure from Validator.Validate,
// per spec.md §4.1: every failure surfaces as invalid_request, recoverable
// false.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator rejects malformed, oversized, or unsafe requests and returns a
// sanitized copy, per spec.md §4.1.
type Validator interface {
	// Validate reports every structural/enum/content/parameter violation
	// found; an empty slice means req is acceptable as-is.
	Validate(req Request) []ValidationError
	// Sanitize strips HTML/script tags from request_id and prompt and
	// returns the cleaned copy. Sanitize(Sanitize(r)) == Sanitize(r).
	Sanitize(req Request) Request
}

// ValidatorFactory constructs a Validator. Registered by internal/validation
// at init() time.
type ValidatorFactory func() Validator

var validatorFactory ValidatorFactory

func RegisterValidatorFactory(f ValidatorFactory) {
	validatorFactory = f
}

func NewValidator() Validator {
	if validatorFactory == nil {
		panic("core: no validator factory registered (import internal/validation)")
	}
	return validatorFactory()
}
