package completion

import (
	"strings"
	"unicode"
)

// tokensPerWord approximates English tokenization at ~1.33 tokens per word.
const tokensPerWord = 1.33

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * tokensPerWord)
	if tokens < 1 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}

// TruncateContext keeps the leading words of text that fit in maxTokens.
// maxTokens <= 0 disables truncation.
func TruncateContext(text string, maxTokens int) string {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text
	}
	maxWords := int(float64(maxTokens) / tokensPerWord)
	if maxWords <= 0 {
		return ""
	}

	words := 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				words++
				inWord = false
				if words == maxWords {
					return text[:i]
				}
			}
			continue
		}
		inWord = true
	}
	return text
}
