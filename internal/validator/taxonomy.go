package validator

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Tag taxonomy validation.
 *
 * Taxonomies declare the vocabulary input tags may come from, as
 * categories of tag definitions with inheritance, deprecation markers
 * and policy triggers. A tag is recognized when any loaded taxonomy
 * declares it, or when it matches a namespace wildcard (ns:*) derived
 * from a namespaced tag in the same namespace.
 *
 * Inheritance chains are resolved breadth-first with a visited set, so
 * cyclic inherits terminate and yield the cycle members once each.
 */

// TagViolation is one tag finding.
type TagViolation struct {
	Tag        string
	FieldPath  string
	IssueType  string // unknown | deprecated | depth_exceeded
	Message    string
	Suggestion string
	Severity   types.Severity
}

// TaxonomyResult is the taxonomy layer's sub-result.
type TaxonomyResult struct {
	Valid             bool
	Violations        []TagViolation
	RecognizedTags    map[string]bool
	TriggeredPolicies map[string][]string
}

func (r *TaxonomyResult) addViolation(v TagViolation) {
	r.Violations = append(r.Violations, v)
	if v.Severity == types.SeverityError {
		r.Valid = false
	}
}

// Tag is one tag definition within a taxonomy.
type Tag struct {
	ID          string
	Description string
	Inherits    []string
	Policies    []string
	Deprecated  bool
	Replacement string
}

// Taxonomy is a named, versioned tag vocabulary.
type Taxonomy struct {
	ID          string
	Name        string
	Version     string
	Description string
	Tags        map[string]Tag
	Constraints map[string]any
}

// TaxonomyFromYAML decodes a taxonomy document. Each category key under
// "categories" contributes its tag list plus the category name itself as
// a tag.
func TaxonomyFromYAML(content []byte) (Taxonomy, error) {
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return Taxonomy{}, fmt.Errorf("decode taxonomy: %w", err)
	}

	meta, _ := data["taxonomy"].(map[string]any)
	taxonomy := Taxonomy{
		ID:      "unknown",
		Name:    "Unknown Taxonomy",
		Version: "1.0.0",
		Tags:    make(map[string]Tag),
	}
	if id, _ := meta["id"].(string); id != "" {
		taxonomy.ID = id
	}
	if name, _ := meta["name"].(string); name != "" {
		taxonomy.Name = name
	}
	if version, _ := meta["version"].(string); version != "" {
		taxonomy.Version = version
	}
	taxonomy.Description, _ = meta["description"].(string)
	taxonomy.Constraints, _ = data["constraints"].(map[string]any)

	categories, _ := data["categories"].(map[string]any)
	for _, categoryName := range sortedMapKeys(categories) {
		category, _ := categories[categoryName].(map[string]any)
		for _, raw := range mapsOf(category["tags"]) {
			id, _ := raw["id"].(string)
			if id == "" {
				continue
			}
			tag := Tag{
				ID:       id,
				Inherits: stringsOf(raw["inherits"]),
				Policies: stringsOf(raw["policies"]),
			}
			tag.Description, _ = raw["description"].(string)
			tag.Deprecated, _ = raw["deprecated"].(bool)
			tag.Replacement, _ = raw["replacement"].(string)
			taxonomy.Tags[id] = tag
		}
		desc, _ := category["description"].(string)
		taxonomy.Tags[categoryName] = Tag{ID: categoryName, Description: desc}
	}
	return taxonomy, nil
}

// AllTagIDs returns every declared tag id plus the ns:* wildcard for
// each namespace that has at least one namespaced tag.
func (t Taxonomy) AllTagIDs() map[string]bool {
	ids := make(map[string]bool, len(t.Tags))
	for id := range t.Tags {
		ids[id] = true
		if ns, _, found := strings.Cut(id, ":"); found {
			ids[ns+":*"] = true
		}
	}
	return ids
}

// ResolveInheritance returns the full inheritance chain of a tag,
// starting with the tag itself, breadth-first, each ancestor once.
func (t Taxonomy) ResolveInheritance(tagID string) []string {
	tag, ok := t.Tags[tagID]
	if !ok {
		return nil
	}

	chain := []string{tagID}
	visited := map[string]bool{tagID: true}
	queue := append([]string(nil), tag.Inherits...)

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		if visited[parent] {
			continue
		}
		visited[parent] = true
		chain = append(chain, parent)
		if p, ok := t.Tags[parent]; ok {
			queue = append(queue, p.Inherits...)
		}
	}
	return chain
}

// PoliciesForTag collects the policies of a tag and all its ancestors,
// deduplicated, in sorted order.
func (t Taxonomy) PoliciesForTag(tagID string) []string {
	seen := make(map[string]bool)
	for _, resolved := range t.ResolveInheritance(tagID) {
		if tag, ok := t.Tags[resolved]; ok {
			for _, p := range tag.Policies {
				seen[p] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	return sortedKeys(seen)
}

// MaxInheritanceDepth returns the declared depth constraint or the
// default.
func (t Taxonomy) MaxInheritanceDepth() int {
	switch n := t.Constraints["max_inheritance_depth"].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return types.DefaultMaxInheritanceDepth
}

// TaxonomyValidator validates input tags against loaded taxonomies.
type TaxonomyValidator struct {
	taxonomies []Taxonomy
	allTags    map[string]bool
}

// NewTaxonomyValidator returns a taxonomy validator. The combined tag
// set is computed once here; taxonomies are load-then-freeze.
func NewTaxonomyValidator(taxonomies ...Taxonomy) *TaxonomyValidator {
	v := &TaxonomyValidator{taxonomies: taxonomies}
	v.allTags = make(map[string]bool)
	for _, t := range taxonomies {
		for id := range t.AllTagIDs() {
			v.allTags[id] = true
		}
	}
	return v
}

// Validate checks every input tag in the document.
func (v *TaxonomyValidator) Validate(doc types.Document) TaxonomyResult {
	result := TaxonomyResult{
		Valid:             true,
		RecognizedTags:    make(map[string]bool),
		TriggeredPolicies: make(map[string][]string),
	}

	for i, input := range mapsOf(doc["inputs"]) {
		for _, tag := range stringsOf(input["tags"]) {
			v.validateTag(tag, fmt.Sprintf("inputs[%d].tags", i), &result)
		}
	}
	return result
}

func (v *TaxonomyValidator) validateTag(tag, fieldPath string, result *TaxonomyResult) {
	if !v.allTags[tag] && !v.matchesWildcard(tag) {
		suggestion := ""
		if matches := closeMatches(tag, v.allTags); len(matches) > 0 {
			suggestion = "Did you mean: " + strings.Join(matches, ", ") + "?"
		}
		result.addViolation(TagViolation{
			Tag:        tag,
			FieldPath:  fieldPath,
			IssueType:  "unknown",
			Message:    "Unknown tag: " + tag,
			Suggestion: suggestion,
			Severity:   types.SeverityWarning,
		})
		return
	}

	result.RecognizedTags[tag] = true

	for _, taxonomy := range v.taxonomies {
		def, ok := taxonomy.Tags[tag]
		if !ok {
			continue
		}
		if def.Deprecated {
			suggestion := ""
			if def.Replacement != "" {
				suggestion = fmt.Sprintf("Use '%s' instead", def.Replacement)
			}
			result.addViolation(TagViolation{
				Tag:        tag,
				FieldPath:  fieldPath,
				IssueType:  "deprecated",
				Message:    fmt.Sprintf("Tag '%s' is deprecated", tag),
				Suggestion: suggestion,
				Severity:   types.SeverityWarning,
			})
		}

		chain := taxonomy.ResolveInheritance(tag)
		maxDepth := taxonomy.MaxInheritanceDepth()
		if len(chain) > maxDepth {
			result.addViolation(TagViolation{
				Tag:       tag,
				FieldPath: fieldPath,
				IssueType: "depth_exceeded",
				Message: fmt.Sprintf("Tag inheritance depth (%d) exceeds maximum (%d)",
					len(chain), maxDepth),
				Severity: types.SeverityWarning,
			})
		}

		if policies := taxonomy.PoliciesForTag(tag); len(policies) > 0 {
			result.TriggeredPolicies[tag] = policies
		}
	}
}

func (v *TaxonomyValidator) matchesWildcard(tag string) bool {
	ns, _, found := strings.Cut(tag, ":")
	if !found {
		return false
	}
	return v.allTags[ns+":*"]
}

// PolicyTrigger names a tag occurrence that triggers a policy.
type PolicyTrigger struct {
	Tag       string
	FieldPath string
}

// PolicyTriggers maps every triggered policy id to the tag occurrences
// that trigger it across the document's inputs.
func (v *TaxonomyValidator) PolicyTriggers(doc types.Document) map[string][]PolicyTrigger {
	triggers := make(map[string][]PolicyTrigger)

	for i, input := range mapsOf(doc["inputs"]) {
		fieldPath := fmt.Sprintf("inputs[%d]", i)
		for _, tag := range stringsOf(input["tags"]) {
			for _, taxonomy := range v.taxonomies {
				for _, policy := range taxonomy.PoliciesForTag(tag) {
					triggers[policy] = append(triggers[policy], PolicyTrigger{
						Tag:       tag,
						FieldPath: fieldPath,
					})
				}
			}
		}
	}
	return triggers
}

// closeMatches returns up to MaxTagSuggestions known tags whose
// similarity ratio to the candidate is at or above the cutoff, best
// matches first.
func closeMatches(candidate string, known map[string]bool) []string {
	type scored struct {
		tag   string
		ratio float64
	}
	var matches []scored
	for _, tag := range sortedKeys(known) {
		if r := similarity(candidate, tag); r >= types.TagSuggestionCutoff {
			matches = append(matches, scored{tag, r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ratio > matches[j].ratio
	})
	if len(matches) > types.MaxTagSuggestions {
		matches = matches[:types.MaxTagSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.tag
	}
	return out
}

// similarity is an edit-distance ratio in [0, 1]; identical strings
// score 1.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(prev[lb])/float64(longest)
}
