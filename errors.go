package abac

import "fmt"

// SchemaError is raised when a policy or resource document fails
// registration validation. Path locates the offending node inside the
// document (e.g. "conditions.children[1].attributeKey"); Reason is a
// short human-readable explanation.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "abac: schema error: " + e.Reason
	}
	return fmt.Sprintf("abac: schema error at %s: %s", e.Path, e.Reason)
}

func schemaErrorf(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// InvalidOperandError is raised when a present attribute has a shape
// incompatible with the operator applied to it: an array where a
// primitive is required, a cross-type comparison, a boolean probed
// against in/nin, or a non-numeric operand to an ordering operator.
//
// Absence of an attribute is never an InvalidOperandError — it is
// data, and resolves the surrounding condition to false.
type InvalidOperandError struct {
	ObservedType string
	Operator     AttributeOp
	Message      string
}

func (e *InvalidOperandError) Error() string {
	return fmt.Sprintf("abac: invalid operand for %q: %s (observed type %s)", e.Operator, e.Message, e.ObservedType)
}

func invalidOperand(op AttributeOp, observed ValueKind, format string, args ...any) *InvalidOperandError {
	return &InvalidOperandError{
		ObservedType: observed.String(),
		Operator:     op,
		Message:      fmt.Sprintf(format, args...),
	}
}
