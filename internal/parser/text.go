package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text files. Line endings are normalized to "\n".
type TextParser struct{}

func (p *TextParser) Extract(r io.Reader, filename string) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out strings.Builder
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		} else {
			out.WriteByte('\n')
		}
		out.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return out.String(), nil
}
