package types

import "errors"

// Sentinel errors for skill-spec operations.
var (
	// ErrEmptyExpression indicates an empty condition expression.
	ErrEmptyExpression = errors.New("expression is empty")

	// ErrSyntax indicates malformed condition syntax. Wrapped by
	// logic.SyntaxError, which carries the offending text.
	ErrSyntax = errors.New("expression syntax error")

	// ErrUnknownFunction indicates an unrecognized function name in a
	// condition expression.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrWrongArity indicates a function call with the wrong number of
	// arguments.
	ErrWrongArity = errors.New("wrong number of arguments")

	// ErrRuleConflict indicates that all_match found rules with differing
	// actions under conflict_resolution=error. Wrapped by
	// logic.ConflictError, which names the conflicting rule ids.
	ErrRuleConflict = errors.New("conflicting rules matched")

	// ErrDomainBounds indicates a range input domain with min > max.
	// Bounds are never silently swapped.
	ErrDomainBounds = errors.New("domain min exceeds max")

	// ErrUnknownFormat indicates an unregistered string-constraint format.
	ErrUnknownFormat = errors.New("unknown format")
)
