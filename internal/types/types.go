// Package types provides domain models shared across skill-spec components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the
// standard library so the expression engine and validators stay free of
// transitive baggage. ID utilities in ids.go import uuid but are isolated
// for selective inclusion.
package types

// Document is a parsed skill specification: a nested mapping/array/scalar
// structure. It may come from YAML, JSON, or an in-memory
// object graph. The validation core never mutates a Document.
type Document = map[string]any

// Record is an input record a decision-rule condition is evaluated against.
type Record = map[string]any

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Resource limits bounding analysis on pathological input. Rule sets and
// documents are expected to be small (tens of rules, not millions); these
// caps keep the cartesian generators and suggestion search bounded anyway.
const (
	// MaxCartesianCombinations caps full input-space sampling. Generation
	// is depth-first and truncated at the ceiling, never subsampled, so
	// repeated runs produce identical output.
	MaxCartesianCombinations = 100

	// MaxAnalysisSamples caps the bounded cartesian sample the logic
	// analyzer evaluates rules against.
	MaxAnalysisSamples = 50

	// MaxUncoveredResults caps reported uncovered input combinations.
	MaxUncoveredResults = 20

	// MaxTagSuggestions is the number of nearest-neighbor spelling
	// suggestions offered for an unknown tag.
	MaxTagSuggestions = 3

	// TagSuggestionCutoff is the minimum similarity ratio (0..1) for a
	// known tag to qualify as a spelling suggestion.
	TagSuggestionCutoff = 0.6

	// DefaultMaxInheritanceDepth applies when a taxonomy declares no
	// max_inheritance_depth constraint. Advisory only.
	DefaultMaxInheritanceDepth = 3
)
