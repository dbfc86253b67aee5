package sections

import "strings"

// Section is one of the fixed document parts a query can target.
type Section string

const (
	Abstract     Section = "abstract"
	Introduction Section = "introduction"
	Methodology  Section = "methodology"
	Results      Section = "results"
	Discussion   Section = "discussion"
	Conclusion   Section = "conclusion"
)

// All lists every section in heading-priority order.
var All = []Section{Abstract, Introduction, Methodology, Results, Discussion, Conclusion}

// headingKeywords maps each section to the substrings that mark its heading.
// Order matters: the first section whose keyword appears in a line wins.
var headingKeywords = []struct {
	section  Section
	keywords []string
}{
	{Abstract, []string{"abstract"}},
	{Introduction, []string{"introduction"}},
	{Methodology, []string{"methodology", "methods"}},
	{Results, []string{"results"}},
	{Discussion, []string{"discussion"}},
	{Conclusion, []string{"conclusion"}},
}

// Parse returns the section named s (case-insensitive).
func Parse(s string) (Section, bool) {
	s = strings.ToLower(s)
	for _, sec := range All {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

// SectionMap holds the accumulated text of every section of one document.
// Maps built by Segment or New always carry all six keys.
type SectionMap map[Section]string

// New returns a SectionMap with every section present and empty.
func New() SectionMap {
	m := make(SectionMap, len(All))
	for _, sec := range All {
		m[sec] = ""
	}
	return m
}

// Lines returns how many lines were accumulated into sec.
func (m SectionMap) Lines(sec Section) int {
	return strings.Count(m[sec], "\n")
}

// Found lists the sections that received at least one line, in priority order.
func (m SectionMap) Found() []Section {
	var out []Section
	for _, sec := range All {
		if m[sec] != "" {
			out = append(out, sec)
		}
	}
	return out
}

// Clone returns an independent copy of m.
func (m SectionMap) Clone() SectionMap {
	out := make(SectionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
