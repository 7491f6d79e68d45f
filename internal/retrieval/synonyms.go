package retrieval

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type synonymsFile struct {
	Version  int                 `yaml:"version"`
	Synonyms map[string][]string `yaml:"synonyms"`
}

// SynonymsExpander widens keyword queries with spoken-word aliases, so that a
// transcript saying "kubernetes" is found by a query for "k8s".
type SynonymsExpander struct {
	groups []synonymGroup
}

type synonymGroup struct {
	canonical string
	terms     []string
	normTerms []string
}

// SynonymMatch represents a matched synonym group.
type SynonymMatch struct {
	Canonical string
	Terms     []string
}

// LoadSynonymsFile loads a synonyms file. A missing file or empty path yields
// a nil expander, which expands nothing.
func LoadSynonymsFile(path string) (*SynonymsExpander, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read synonyms file: %w", err)
	}

	var file synonymsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse synonyms file: %w", err)
	}

	return NewSynonymsExpander(file.Synonyms), nil
}

// NewSynonymsExpander builds a synonym expander from a map of canonical term to aliases.
func NewSynonymsExpander(synonyms map[string][]string) *SynonymsExpander {
	if len(synonyms) == 0 {
		return nil
	}

	keys := make([]string, 0, len(synonyms))
	for k := range synonyms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]synonymGroup, 0, len(keys))
	for _, canonical := range keys {
		terms, normTerms := buildTerms(canonical, synonyms[canonical])
		if len(terms) == 0 {
			continue
		}
		groups = append(groups, synonymGroup{
			canonical: canonical,
			terms:     terms,
			normTerms: normTerms,
		})
	}

	if len(groups) == 0 {
		return nil
	}
	return &SynonymsExpander{groups: groups}
}

// Expand appends every term of each matched group to the query. A group
// matches when one of its terms occurs in the query as whole words.
func (e *SynonymsExpander) Expand(query string) (string, []SynonymMatch) {
	trimmed := strings.TrimSpace(query)
	if e == nil || trimmed == "" {
		return query, nil
	}

	padded := " " + normalizeTerm(trimmed) + " "

	var matches []SynonymMatch
	for _, g := range e.groups {
		for _, term := range g.normTerms {
			if strings.Contains(padded, " "+term+" ") {
				matches = append(matches, SynonymMatch{Canonical: g.canonical, Terms: g.terms})
				break
			}
		}
	}

	if len(matches) == 0 {
		return query, nil
	}

	seen := make(map[string]bool)
	for _, w := range strings.Fields(normalizeTerm(trimmed)) {
		seen[w] = true
	}
	extra := make([]string, 0)
	for _, m := range matches {
		for _, term := range m.Terms {
			norm := normalizeTerm(term)
			if seen[norm] {
				continue
			}
			seen[norm] = true
			extra = append(extra, term)
		}
	}

	return strings.TrimSpace(trimmed + " " + strings.Join(extra, " ")), matches
}

func buildTerms(canonical string, aliases []string) ([]string, []string) {
	terms := make([]string, 0, 1+len(aliases))
	normTerms := make([]string, 0, 1+len(aliases))
	seen := make(map[string]bool)

	add := func(term string) {
		term = strings.TrimSpace(term)
		norm := normalizeTerm(term)
		if norm == "" || seen[norm] {
			return
		}
		terms = append(terms, term)
		normTerms = append(normTerms, norm)
		seen[norm] = true
	}

	add(canonical)
	for _, alias := range aliases {
		add(alias)
	}

	return terms, normTerms
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ""
	}
	term = strings.NewReplacer("_", " ", "-", " ", ",", " ", "?", " ", "!", " ").Replace(term)
	return strings.Join(strings.Fields(term), " ")
}
