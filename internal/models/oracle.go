package models

import (
	"fmt"
	"strings"
)

// Mode selects the backend path for a single submission.
type Mode int

const (
	// Direct asks the generation endpoint.
	Direct Mode = iota
	// Grounded asks the retrieval-augmented teacher endpoint, which may cite sources.
	Grounded
)

func (m Mode) String() string {
	switch m {
	case Direct:
		return "direct"
	case Grounded:
		return "grounded"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Toggle returns the other mode
func (m Mode) Toggle() Mode {
	if m == Grounded {
		return Direct
	}
	return Grounded
}

// ParseMode accepts the names used by the CLI and the older frontends.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "generate", "simple", "":
		return Direct, nil
	case "grounded", "rag", "teacher":
		return Grounded, nil
	default:
		return Direct, fmt.Errorf("unknown mode %q (want direct or grounded)", s)
	}
}

// NormalizeQuery trims the raw input; ok is false for an empty query.
func NormalizeQuery(raw string) (query string, ok bool) {
	query = strings.TrimSpace(raw)
	return query, query != ""
}

// State is the interaction state of one oracle instance.
type State int

const (
	Idle State = iota
	Armed
	Pending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Pending:
		return "pending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type FailureKind int

const (
	// BackendError means the backend answered with a non-2xx status.
	BackendError FailureKind = iota + 1
	// TransportFailure means the backend could not be reached.
	TransportFailure
	// MalformedResponse means a 2xx answer without a usable text field.
	MalformedResponse
)

func (k FailureKind) String() string {
	switch k {
	case BackendError:
		return "backend_error"
	case TransportFailure:
		return "transport_failure"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Failure describes why a dispatch did not produce an answer.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Detail     string
	Err        error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case BackendError:
		if f.Detail != "" {
			return fmt.Sprintf("backend error (%d): %s", f.StatusCode, f.Detail)
		}
		return fmt.Sprintf("backend error (%d)", f.StatusCode)
	case TransportFailure:
		if f.Err != nil {
			return "transport failure: " + f.Err.Error()
		}
		return "transport failure"
	case MalformedResponse:
		if f.Err != nil {
			return "malformed response: " + f.Err.Error()
		}
		return "malformed response"
	}
	return "unknown failure"
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// UserMessage is the single line shown in the conversation log.
func (f *Failure) UserMessage() string {
	switch f.Kind {
	case BackendError:
		msg := fmt.Sprintf("The oracle's backend failed (%d)", f.StatusCode)
		if f.Detail != "" {
			msg += ": " + f.Detail
		}
		return msg
	case MalformedResponse:
		return "The oracle returned an unexpected response."
	default:
		return "Could not reach the oracle backend."
	}
}

// AnswerResult is the outcome of one dispatch: either Text (and maybe Sources) or Failure.
type AnswerResult struct {
	Text    string
	Sources []string
	Failure *Failure
}

func Success(text string, sources []string) AnswerResult {
	return AnswerResult{Text: text, Sources: sources}
}

func Failed(f *Failure) AnswerResult {
	return AnswerResult{Failure: f}
}

func (r AnswerResult) OK() bool {
	return r.Failure == nil
}
