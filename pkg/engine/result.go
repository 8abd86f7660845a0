package engine

import (
	"errors"

	"github.com/jwebster45206/narrative-engine/pkg/consequence"
	"github.com/jwebster45206/narrative-engine/pkg/effect"
	"github.com/jwebster45206/narrative-engine/pkg/player"
	"github.com/jwebster45206/narrative-engine/pkg/progress"
)

// Code identifies why an operation failed
type Code string

const (
	CodeInvalidRequest     Code = "invalid_request"
	CodeNotFound           Code = "not_found"
	CodeNoActiveChapter    Code = "no_active_chapter"
	CodeNoChoicesAvailable Code = "no_choices_available"
	CodeInvalidChoiceIndex Code = "invalid_choice_index"
	CodeInvalidChoice      Code = "invalid_choice"
	CodeNotEligible        Code = "not_eligible"
	CodeNotTriggered       Code = "not_triggered"
	CodeStorageError       Code = "storage_error"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrNoActiveChapter    = errors.New("no active chapter")
	ErrNoChoicesAvailable = errors.New("no choices available")
	ErrInvalidChoiceIndex = errors.New("invalid choice index")
	ErrInvalidChoice      = errors.New("invalid choice")
	ErrNotEligible        = errors.New("event not eligible")
	ErrNotTriggered       = errors.New("event not triggered")
	ErrStorage            = errors.New("storage error")
)

var codeErrors = map[Code]error{
	CodeInvalidRequest:     ErrInvalidRequest,
	CodeNotFound:           ErrNotFound,
	CodeNoActiveChapter:    ErrNoActiveChapter,
	CodeNoChoicesAvailable: ErrNoChoicesAvailable,
	CodeInvalidChoiceIndex: ErrInvalidChoiceIndex,
	CodeInvalidChoice:      ErrInvalidChoice,
	CodeNotEligible:        ErrNotEligible,
	CodeNotTriggered:       ErrNotTriggered,
	CodeStorageError:       ErrStorage,
}

// Result is the outcome of every engine operation. Failures are reported
// here, never as panics or bare errors.
type Result struct {
	Success bool   `json:"success"`
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	Progress      *progress.Progress       `json:"progress,omitempty"`
	Player        *player.Player           `json:"player,omitempty"`
	DialogueIndex int                      `json:"dialogue_index"`
	NextChapter   string                   `json:"next_chapter,omitempty"`
	ChoiceKey     string                   `json:"choice_key,omitempty"`
	Consequence   *consequence.Consequence `json:"consequence,omitempty"`
	Chapters      []string                 `json:"chapters,omitempty"`
	Events        []string                 `json:"events,omitempty"`
	Rewards       []effect.Effect          `json:"rewards,omitempty"`
}

// Err returns nil on success and otherwise a sentinel matching Code,
// for use with errors.Is
func (r *Result) Err() error {
	if r == nil || r.Success {
		return nil
	}
	if err, ok := codeErrors[r.Code]; ok {
		return err
	}
	return errors.New(r.Message)
}

func fail(code Code, message string) *Result {
	return &Result{Code: code, Message: message}
}
