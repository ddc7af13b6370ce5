package amp

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every configuration error.
	ErrConfig = errors.New("configuration error")
	// ErrNotConverged is matched by every convergence failure.
	ErrNotConverged = errors.New("segment did not converge")
	// ErrSingularJacobian is returned when the Newton matrix cannot be factorized.
	ErrSingularJacobian = errors.New("singular jacobian")
)

// ConfigError reports a malformed segment, network or condition layout. It is never retried.
type ConfigError struct {
	Segment string
	Field   string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("segment %s: %s: %s", e.Segment, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfig) true.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConvergenceError is the failure result of a segment solve.
type ConvergenceError struct {
	Segment    string
	Iterations int
	Residual   float64
	Err        error
}

func (e *ConvergenceError) Error() string {
	msg := fmt.Sprintf("segment %s did not converge after %d iterations (|r|=%.3e)", e.Segment, e.Iterations, e.Residual)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrNotConverged) true.
func (e *ConvergenceError) Is(target error) bool {
	return target == ErrNotConverged
}

func (e *ConvergenceError) Unwrap() error {
	return e.Err
}

// recoverConfigError turns a ConfigError panic raised by a condition lookup into a
// returned error. Any other panic keeps unwinding.
func recoverConfigError(err *error, segment string) {
	r := recover()
	if r == nil {
		return
	}
	ce, ok := r.(*ConfigError)
	if !ok {
		panic(r)
	}
	if ce.Segment == "" {
		ce.Segment = segment
	}
	*err = ce
}
