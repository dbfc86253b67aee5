package sections

import "strings"

// Segment splits document text into sections using single-pass heading
// detection. Every line at or after the first heading line is appended,
// newline-terminated, to the section named by the most recent heading.
// Lines before the first heading are dropped.
func Segment(text string) SectionMap {
	acc := make(map[Section]*strings.Builder, len(All))
	for _, sec := range All {
		acc[sec] = &strings.Builder{}
	}

	var current Section
	for _, line := range strings.Split(text, "\n") {
		if sec, ok := matchHeading(line); ok {
			current = sec
		}
		if current != "" {
			b := acc[current]
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	out := New()
	for sec, b := range acc {
		out[sec] = b.String()
	}
	return out
}

// matchHeading reports the highest-priority section whose keyword occurs in line.
func matchHeading(line string) (Section, bool) {
	lower := strings.ToLower(line)
	for _, h := range headingKeywords {
		for _, kw := range h.keywords {
			if strings.Contains(lower, kw) {
				return h.section, true
			}
		}
	}
	return "", false
}
