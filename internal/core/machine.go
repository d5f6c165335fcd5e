package core

import (
	"github.com/Rorical/zoltar/internal/models"
)

// Action is a user or system input to the interaction state machine.
type Action interface {
	action()
}

// InsertToken - user drops a coin in the slot
type InsertToken struct{}

// Submit - user asks a question
type Submit struct {
	Query string
	Mode  models.Mode
}

// Resolve - dispatch for submission Seq finished
type Resolve struct {
	Seq    uint64
	Result models.AnswerResult
}

func (InsertToken) action() {}
func (Submit) action()      {}
func (Resolve) action()     {}

// Effect is a side effect requested by a transition. Effects are executed
// in order by the service.
type Effect interface {
	effect()
}

type PlayCoin struct{}

type AppendQuery struct {
	Query string
}

type StartThinking struct{}

type ShowThinking struct{}

type Dispatch struct {
	Seq   uint64
	Mode  models.Mode
	Query string
}

type StopThinking struct {
	Success bool
}

type ClearThinking struct{}

// RevealAnswer reveals Text; Sources are appended as citations once the reveal completes.
type RevealAnswer struct {
	Text    string
	Sources []string
}

type ShowFailure struct {
	Failure *models.Failure
}

func (PlayCoin) effect()      {}
func (AppendQuery) effect()   {}
func (StartThinking) effect() {}
func (ShowThinking) effect()  {}
func (Dispatch) effect()      {}
func (StopThinking) effect()  {}
func (ClearThinking) effect() {}
func (RevealAnswer) effect()  {}
func (ShowFailure) effect()   {}

// Snapshot is the complete state of one interaction state machine.
type Snapshot struct {
	State models.State
	Gate  Gate
	// Mode and Seq describe the submission currently pending
	Mode models.Mode
	Seq  uint64
}

// CanSubmit reports whether a non-empty query would be accepted now
func (s Snapshot) CanSubmit() bool {
	return s.State == models.Armed && s.Gate.Held()
}

// Step applies one action to a snapshot and returns the next snapshot with the
// effects to run. It never performs I/O.
func Step(s Snapshot, a Action) (Snapshot, []Effect) {
	switch a := a.(type) {
	case InsertToken:
		if s.State != models.Idle {
			return s, nil
		}
		if !s.Gate.IssueToken() {
			return s, nil
		}
		s.State = models.Armed
		return s, []Effect{PlayCoin{}}

	case Submit:
		query, ok := models.NormalizeQuery(a.Query)
		if !ok || s.State != models.Armed {
			return s, nil
		}
		if !s.Gate.TrySubmit() {
			// Refused before dispatch: stay armed
			return s, nil
		}
		s.State = models.Pending
		s.Mode = a.Mode
		s.Seq++
		return s, []Effect{
			AppendQuery{Query: query},
			StartThinking{},
			ShowThinking{},
			Dispatch{Seq: s.Seq, Mode: a.Mode, Query: query},
		}

	case Resolve:
		if s.State != models.Pending || a.Seq != s.Seq {
			return s, nil
		}
		s.State = models.Idle
		res := a.Result
		if !res.OK() {
			return s, []Effect{
				StopThinking{Success: false},
				ClearThinking{},
				ShowFailure{Failure: res.Failure},
			}
		}
		var sources []string
		if s.Mode == models.Grounded && len(res.Sources) > 0 {
			sources = res.Sources
		}
		return s, []Effect{
			StopThinking{Success: true},
			ClearThinking{},
			RevealAnswer{Text: res.Text, Sources: sources},
		}
	}
	return s, nil
}
