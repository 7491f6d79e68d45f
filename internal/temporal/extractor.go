// Package temporal extracts version and release-date signals from transcript
// text and computes the age-based decay applied at query time.
package temporal

import (
	"regexp"
	"strings"
)

// Signals is the result of scanning one chunk of text.
type Signals struct {
	Versions   []string `json:"versions"`
	Dates      []string `json:"dates"`
	Confidence float64  `json:"confidence"`
}

// VersionMention joins the versions for storage, or returns nil when there are none.
func (s Signals) VersionMention() *string {
	return joinMentions(s.Versions)
}

// ReleaseDateMention joins the dates for storage, or returns nil when there are none.
func (s Signals) ReleaseDateMention() *string {
	return joinMentions(s.Dates)
}

func joinMentions(items []string) *string {
	if len(items) == 0 {
		return nil
	}
	joined := strings.Join(items, ", ")
	return &joined
}

// technologies are matched case-insensitively before a version number.
// Longer names come first so that "Node.js" wins over "Node".
var technologies = []string{
	"Spring Boot", "Next.js", "Node.js", "Vue.js", "React Native",
	"PostgreSQL", "TypeScript", "JavaScript", "Kubernetes", "Tailwind",
	"Angular", "Android", "Django", "Flutter", "Laravel", "Python", "Golang",
	"Docker", "Kotlin", "Svelte", "Ubuntu", "Webpack", "Windows", "Postgres",
	"MySQL", "React", "Rails", "Swift", "Java", "Node", "Ruby", "Rust",
	"Deno", "Vite", "macOS", "iOS", "PHP", "Vue", "Bun",
}

var (
	// N.N or N.N.N, optionally v-prefixed. A trailing /N is captured so that
	// score-like fractions such as 8.5/10 can be rejected.
	semverPattern = regexp.MustCompile(`(?i)\bv?(\d+\.\d+(?:\.\d+)?)\b(/\d+(?:\.\d+)?)?`)

	keywordVersionPattern = regexp.MustCompile(`(?i)\b(?:version|ver\.)\s*v?(\d+(?:\.\d+){0,2})\b(/\d+)?`)

	techVersionPattern = regexp.MustCompile(`(?i)\b(` + techAlternation() + `)\s+v?(\d+(?:\.\d+){0,2})\b(/\d+)?`)

	releasedInPattern = regexp.MustCompile(`(?i)\b(?:released|updated)\s+(?:in\s+)?((?:19|20)\d{2})\b`)

	monthYearPattern = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+((?:19|20)\d{2})\b`)

	yearReleasePattern = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})\s+(?:release|update|version)s?\b`)
)

var monthNames = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

func techAlternation() string {
	quoted := make([]string, len(technologies))
	for i, name := range technologies {
		quoted[i] = regexp.QuoteMeta(name)
	}
	return strings.Join(quoted, "|")
}

// Extract scans content for version and date mentions. It never fails:
// blank input yields empty slices and zero confidence.
func Extract(content string) Signals {
	out := Signals{Versions: []string{}, Dates: []string{}}
	if strings.TrimSpace(content) == "" {
		return out
	}

	versions := newOrderedSet()
	for _, m := range semverPattern.FindAllStringSubmatch(content, -1) {
		if m[2] != "" {
			continue
		}
		versions.add(m[1])
	}
	for _, m := range keywordVersionPattern.FindAllStringSubmatch(content, -1) {
		if m[2] != "" {
			continue
		}
		versions.add(m[1])
	}
	for _, m := range techVersionPattern.FindAllStringSubmatch(content, -1) {
		if m[3] != "" {
			continue
		}
		versions.add(m[1] + " " + m[2])
	}

	dates := newOrderedSet()
	for _, m := range releasedInPattern.FindAllStringSubmatch(content, -1) {
		dates.add(m[1])
	}
	for _, m := range monthYearPattern.FindAllStringSubmatch(content, -1) {
		month := monthNames[strings.ToLower(m[1])[:3]]
		dates.add(month + " " + m[2])
	}
	for _, m := range yearReleasePattern.FindAllStringSubmatch(content, -1) {
		dates.add(m[1])
	}

	out.Versions = versions.items
	out.Dates = dates.items
	out.Confidence = Confidence(out.Versions, out.Dates)
	return out
}

// Confidence scores the signal counts. Rules are evaluated top to bottom and
// the first match wins.
func Confidence(versions, dates []string) float64 {
	v, d := len(versions), len(dates)
	dotted := v == 1 && strings.Contains(versions[0], ".")

	switch {
	case v == 0 && d == 0:
		return 0.0
	case (v >= 2 && d >= 1) || v >= 3 || d >= 2:
		return 1.0
	case v >= 2 || dotted:
		return 0.7
	case v >= 1 && d >= 1:
		return 0.8
	case d >= 1:
		return 0.6
	case v == 1:
		return 0.4
	default:
		return 0.5
	}
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(item string) {
	if item == "" || strings.Contains(item, "/") {
		return
	}
	if _, ok := s.seen[item]; ok {
		return
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
}
