package apperr

// ValidationBuilder accumulates field-level violations before raising. The
// zero value is not usable; create one with NewValidation.
type ValidationBuilder struct {
	target string
	errs   map[string][]string
	order  []string
}

// NewValidation returns a builder for violations against the named target
// type (e.g. "User").
func NewValidation(target string) *ValidationBuilder {
	return &ValidationBuilder{target: target, errs: map[string][]string{}}
}

// Add records a violation message for the given field and returns the builder
// for chaining.
func (b *ValidationBuilder) Add(field, message string) *ValidationBuilder {
	if _, ok := b.errs[field]; !ok {
		b.order = append(b.order, field)
	}
	b.errs[field] = append(b.errs[field], message)
	return b
}

// HasErrors reports whether any violation has been recorded.
func (b *ValidationBuilder) HasErrors() bool { return len(b.errs) > 0 }

// Err finalizes the builder into an immutable ValidationError, or nil when no
// violations were recorded. The violation map is copied so later builder use
// cannot mutate a raised error.
func (b *ValidationBuilder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	errs := make(map[string][]string, len(b.errs))
	for _, field := range b.order {
		errs[field] = append([]string(nil), b.errs[field]...)
	}
	return &ValidationError{Target: b.target, Errors: errs, Code: CodeValidationFailed}
}
