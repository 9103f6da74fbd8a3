// SPDX-License-Identifier: MIT

// Package validate collects configuration violations so that a bad config
// file is reported in one pass instead of one error per restart.
package validate

import (
	"cmp"
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// LogLevels are the level names accepted in configuration.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// Error is a single violation.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError is returned by Validator.Err and lists every violation.
type ValidationError struct {
	errs []Error
}

// Errors returns the violations in the order they were found.
func (e ValidationError) Errors() []Error { return e.errs }

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validator accumulates violations. The zero value is ready to use.
type Validator struct {
	errs []Error
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// AddError records a violation.
func (v *Validator) AddError(field, message string, value any) {
	v.errs = append(v.errs, Error{Field: field, Value: value, Message: message})
}

// IsValid reports whether nothing has been recorded.
func (v *Validator) IsValid() bool { return len(v.errs) == 0 }

// Err returns nil or a ValidationError holding a copy of the violations.
func (v *Validator) Err() error {
	if v.IsValid() {
		return nil
	}
	return ValidationError{errs: slices.Clone(v.errs)}
}

// LogLevel requires one of LogLevels.
func (v *Validator) LogLevel(field, level string) {
	if !slices.Contains(LogLevels, level) {
		v.AddError(field, fmt.Sprintf("unknown log level %q (want one of %s)", level, strings.Join(LogLevels, ", ")), level)
	}
}

// ListenAddr requires host:port with a numeric port. Port 0 is accepted.
func (v *Validator) ListenAddr(field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("not a listen address: %v", err), addr)
		return
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		v.AddError(field, fmt.Sprintf("bad port %q", port), addr)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "must not be empty", value)
	}
}

// OneOf requires value to be one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("%q is not one of %v", value, allowed), value)
	}
}

// Positive requires value > 0.
func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.AddError(field, fmt.Sprintf("must be positive, got %d", value), value)
	}
}

// MinDuration requires value >= minimum.
func (v *Validator) MinDuration(field string, value, minimum time.Duration) {
	if value < minimum {
		v.AddError(field, fmt.Sprintf("must be at least %s, got %s", minimum, value), value)
	}
}

// AbsPath requires a clean absolute path.
func (v *Validator) AbsPath(field, path string) {
	switch {
	case !filepath.IsAbs(path):
		v.AddError(field, fmt.Sprintf("must be an absolute path, got %q", path), path)
	case strings.Contains(path, ".."):
		v.AddError(field, "must not contain ..", path)
	}
}

// InRange requires lo <= value <= hi.
func InRange[T cmp.Ordered](v *Validator, field string, value, lo, hi T) {
	if value < lo || value > hi {
		v.AddError(field, fmt.Sprintf("must be within [%v, %v], got %v", lo, hi, value), value)
	}
}
