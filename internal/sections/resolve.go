package sections

import (
	"fmt"
	"strings"
)

// TargetAll is the query target used when no section prefix is given.
const TargetAll = "all"

// Delimiter separates a section prefix from the question.
const Delimiter = ": "

// Query is a user query split into its target and question.
type Query struct {
	Target   string // Raw prefix, or TargetAll when the query had none.
	Question string
}

// ParseQuery splits raw on the first Delimiter. Without one, the whole input
// is the question and the target is TargetAll.
func ParseQuery(raw string) Query {
	prefix, question, found := strings.Cut(raw, Delimiter)
	if !found {
		return Query{Target: TargetAll, Question: raw}
	}
	return Query{Target: prefix, Question: question}
}

// Section returns the recognized section the query targets, if any.
func (q Query) Section() (Section, bool) {
	return Parse(q.Target)
}

// Resolve picks the context for a query. A prefix naming a key of sections
// selects that section's text, even when empty; anything else falls back to
// fullText.
func Resolve(query string, sections SectionMap, fullText string) (question, context string) {
	q := ParseQuery(query)
	if text, ok := sections[Section(strings.ToLower(q.Target))]; ok {
		return q.Question, text
	}
	return q.Question, fullText
}

// Usage returns the reference commands shown to users: one prefix per
// section and an example query.
func Usage() []string {
	out := make([]string, 0, len(All)+1)
	for _, sec := range All {
		out = append(out, string(sec)+":")
	}
	out = append(out, fmt.Sprintf("Example: '%s%sWhat is the main topic?'", Abstract, Delimiter))
	return out
}
