package logic

import (
	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Input domains and combination generation.
 *
 * An input's domain is a tagged union over enum, boolean, range and
 * string/any. Domains feed two generators: CartesianSample builds the
 * bounded sample the analyzer evaluates rules against, and CartesianSpace
 * builds the fuller input-space product the coverage validator scores
 * tests against (boundaries plus out-of-range probes plus null for
 * optional inputs).
 *
 * Both generators are depth-first and truncate at a hard cap the moment
 * it is reached, never randomly subsampled, so repeated runs over the
 * same document produce identical combinations.
 */

// DomainKind tags an input domain.
type DomainKind string

const (
	DomainEnum    DomainKind = "enum"
	DomainBoolean DomainKind = "boolean"
	DomainRange   DomainKind = "range"
	DomainString  DomainKind = "string"
	DomainAny     DomainKind = "any"
)

// Domain describes the value space of one declared input.
type Domain struct {
	Kind   DomainKind
	Values []any // enum members
	Min    float64
	Max    float64
	HasMin bool
	HasMax bool
}

// DomainOf extracts the domain from an input definition mapping.
// A range with min > max is a constraint error; bounds are never
// silently swapped.
func DomainOf(input map[string]any) (Domain, error) {
	raw, _ := input["domain"].(map[string]any)
	kind := DomainAny
	if t, ok := raw["type"].(string); ok && t != "" {
		kind = DomainKind(t)
	}

	d := Domain{Kind: kind}
	switch kind {
	case DomainEnum:
		if vals, ok := raw["values"].([]any); ok {
			d.Values = vals
		}
	case DomainRange:
		if min, ok := toFloat64(raw["min"]); ok {
			d.Min, d.HasMin = min, true
		}
		if max, ok := toFloat64(raw["max"]); ok {
			d.Max, d.HasMax = max, true
		}
		if d.HasMin && d.HasMax && d.Min > d.Max {
			return d, types.ErrDomainBounds
		}
	}
	return d, nil
}

// SampleValues returns the representative values the analyzer evaluates
// rules against: declared enum members, both booleans, range endpoints
// only, or a single placeholder for unconstrained inputs.
func (d Domain) SampleValues() []any {
	switch d.Kind {
	case DomainEnum:
		if len(d.Values) == 0 {
			return []any{"test"}
		}
		return d.Values
	case DomainBoolean:
		return []any{true, false}
	case DomainRange:
		min, max := d.rangeOrDefault()
		return []any{min, max}
	default:
		return []any{"test_value"}
	}
}

// SpaceValues returns the fuller value set for input-space coverage:
// boundaries, a midpoint, and out-of-range probes for ranges; empty and
// typical strings for unconstrained inputs; null appended for optional
// inputs.
func (d Domain) SpaceValues(required bool) []any {
	var values []any
	switch d.Kind {
	case DomainEnum:
		values = append(values, d.Values...)
	case DomainBoolean:
		values = []any{true, false}
	case DomainRange:
		min, max := d.rangeOrDefault()
		mid := float64(int(min+max) / 2)
		values = []any{min, mid, max, min - 1, max + 1}
	default:
		values = []any{"", "test_value", nil}
	}
	if !required && !containsNil(values) {
		values = append(values, nil)
	}
	return values
}

func (d Domain) rangeOrDefault() (float64, float64) {
	min, max := 0.0, 10.0
	if d.HasMin {
		min = d.Min
	}
	if d.HasMax {
		max = d.Max
	}
	return min, max
}

func containsNil(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

// CartesianSample generates the analyzer's bounded cartesian sample from
// declared inputs, in declaration order, capped at max combinations.
func CartesianSample(inputs []any, max int) []types.Record {
	return cartesian(inputs, max, func(d Domain, _ bool) []any {
		return d.SampleValues()
	})
}

// CartesianSpace generates the coverage validator's input-space product,
// capped at max combinations.
func CartesianSpace(inputs []any, max int) []types.Record {
	return cartesian(inputs, max, func(d Domain, required bool) []any {
		return d.SpaceValues(required)
	})
}

func cartesian(inputs []any, max int, valuesOf func(Domain, bool) []any) []types.Record {
	names := make([]string, 0, len(inputs))
	valueSets := make(map[string][]any, len(inputs))

	for _, raw := range inputs {
		input, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := input["name"].(string)
		if name == "" {
			continue
		}
		domain, err := DomainOf(input)
		if err != nil {
			// Invalid domains are reported by the coverage validator;
			// nothing sensible can be generated from them here.
			continue
		}
		required, _ := input["required"].(bool)
		names = append(names, name)
		valueSets[name] = valuesOf(domain, required)
	}

	if len(names) == 0 {
		return nil
	}

	var combos []types.Record
	current := make(types.Record, len(names))

	var generate func(idx int)
	generate = func(idx int) {
		if len(combos) >= max {
			return
		}
		if idx == len(names) {
			combo := make(types.Record, len(current))
			for k, v := range current {
				combo[k] = v
			}
			combos = append(combos, combo)
			return
		}
		name := names[idx]
		for _, val := range valueSets[name] {
			current[name] = val
			generate(idx + 1)
			if len(combos) >= max {
				return
			}
		}
	}
	generate(0)

	return combos
}
