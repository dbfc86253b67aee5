package completion

import "fmt"

// FailureKind classifies why a completion call produced no answer.
type FailureKind string

const (
	KindAuth            FailureKind = "auth"
	KindRateLimit       FailureKind = "rate_limit"
	KindUpstream        FailureKind = "upstream"
	KindBadRequest      FailureKind = "bad_request"
	KindNetwork         FailureKind = "network"
	KindTimeout         FailureKind = "timeout"
	KindInvalidResponse FailureKind = "invalid_response"
	KindCircuitOpen     FailureKind = "circuit_open"
	KindCanceled        FailureKind = "canceled"
	KindUnknown         FailureKind = "unknown"
)

// Failure describes a completion call that did not produce an answer.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	StatusCode int         `json:"status_code,omitempty"`
	Message    string      `json:"message"`
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result carries either the model's answer or a Failure, never both.
type Result struct {
	Answer           string   `json:"answer,omitempty"`
	Model            string   `json:"model"`
	PromptTokens     int      `json:"prompt_tokens,omitempty"`
	CompletionTokens int      `json:"completion_tokens,omitempty"`
	Failure          *Failure `json:"failure,omitempty"`
}

// OK reports whether the model answered.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Text renders the result for display: the answer, or a readable error line.
func (r Result) Text() string {
	if r.Failure != nil {
		return "Error generating response: " + r.Failure.Message
	}
	return r.Answer
}
