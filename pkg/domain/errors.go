package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/pulse/pkg/expr"
)

// ErrTemplateNotFound is returned when a template ID cannot be resolved by a loader.
var ErrTemplateNotFound = errors.New("template not found")

// DuplicateChannelError is returned when a channel name is supplied twice.
type DuplicateChannelError struct {
	Channel string
}

func (e *DuplicateChannelError) Error() string {
	return fmt.Sprintf("duplicate channel %q", e.Channel)
}

// InvalidChannelError reports an empty channel name or an empty channel table.
type InvalidChannelError struct {
	Channel string
	Reason  string
}

func (e *InvalidChannelError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("invalid channels: %s", e.Reason)
	}
	return fmt.Sprintf("invalid channel %q: %s", e.Channel, e.Reason)
}

// ChannelMismatchError is returned when composed templates define different channel sets.
type ChannelMismatchError struct {
	Index int
	Want  []string
	Got   []string
}

func (e *ChannelMismatchError) Error() string {
	return fmt.Sprintf("child %d defines channels [%s], expected [%s]",
		e.Index, strings.Join(e.Got, ", "), strings.Join(e.Want, ", "))
}

// TimeDependentValueError is returned when a value that must be constant in
// time references the time variable. Field is "duration" or a channel name.
type TimeDependentValueError struct {
	Field string
	Expr  expr.Expr
}

func (e *TimeDependentValueError) Error() string {
	return fmt.Sprintf("%s must not depend on %s: <%s>", e.Field, expr.TimeVar, e.Expr)
}

// NegativeDurationError is returned when a duration evaluates below zero.
type NegativeDurationError struct {
	Template string
	Value    expr.Number
}

func (e *NegativeDurationError) Error() string {
	return fmt.Sprintf("template %s: negative duration %s", label(e.Template), e.Value)
}

// InvalidRepetitionCountError is returned when a repetition count or loop
// iteration count is not a usable non-negative integer.
type InvalidRepetitionCountError struct {
	Template string
	Value    expr.Number
	Reason   string
}

func (e *InvalidRepetitionCountError) Error() string {
	return fmt.Sprintf("template %s: invalid repetition count %s: %s", label(e.Template), e.Value, e.Reason)
}

// InvalidParameterNameError is returned for loop indices and mapped
// parameters that are not valid identifiers or are reserved.
type InvalidParameterNameError struct {
	Name   string
	Reason string
}

func (e *InvalidParameterNameError) Error() string {
	return fmt.Sprintf("invalid parameter name %q: %s", e.Name, e.Reason)
}

// LoopIndexNotUsedError is returned when a loop body never references the loop index.
type LoopIndexNotUsedError struct {
	Index string
	Body  []string
}

func (e *LoopIndexNotUsedError) Error() string {
	return fmt.Sprintf("loop index %q is not used by the body (parameters: [%s])", e.Index, strings.Join(e.Body, ", "))
}

// MappingError is returned for parameter or channel mappings that do not fit the mapped template.
type MappingError struct {
	Name   string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("invalid mapping of %q: %s", e.Name, e.Reason)
}

// CompositionError is returned when a composite template cannot be built.
type CompositionError struct {
	Kind   Kind
	Reason string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("invalid %s template: %s", e.Kind, e.Reason)
}

// MissingParameterError is returned by Bind when the bindings do not cover
// every free parameter. Names is sorted.
type MissingParameterError struct {
	Template string
	Names    []string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("template %s: missing value for parameter(s) %s", label(e.Template), strings.Join(e.Names, ", "))
}

// TooManySegmentsError is returned by Bind when expanding loops would build
// more bound nodes than the configured limit.
type TooManySegmentsError struct {
	Template string
	Limit    int64
}

func (e *TooManySegmentsError) Error() string {
	return fmt.Sprintf("template %s expands to more than %d bound segments", label(e.Template), e.Limit)
}

// InvalidSampleRateError is returned when the sample rate is not positive.
type InvalidSampleRateError struct {
	Rate expr.Number
}

func (e *InvalidSampleRateError) Error() string {
	return fmt.Sprintf("sample rate must be positive, got %s", e.Rate)
}

// ZeroDurationError is returned when sampling a template whose bound duration is zero.
type ZeroDurationError struct {
	Template string
}

func (e *ZeroDurationError) Error() string {
	return fmt.Sprintf("template %s has zero duration, nothing to sample", label(e.Template))
}

func label(id string) string {
	if id == "" {
		return "<anonymous>"
	}
	return id
}
