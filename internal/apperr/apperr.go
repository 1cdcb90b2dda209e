// Package apperr defines the error taxonomy shared by the coordinator, the realtime layer
// and the request layer. Every guard violation is one of a handful of kinds, and each
// predefined error carries a stable machine code plus a human message.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindIllegalState
	KindTerminal
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindIllegalState:
		return "illegal_state"
	case KindTerminal:
		return "already_terminal"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so a wrapped copy still satisfies errors.Is against the
// predefined value.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

// WithMessage returns a copy of e with a more specific human message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: msg, Err: e.Err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal.Code
}

func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}

// Internal wraps an unexpected failure (storage, encoding) as INTERNAL unless it is
// already classified.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrInternal.Wrap(err)
}

// Not found
var (
	ErrRoomNotFound   = New(KindNotFound, "ROOM_NOT_FOUND", "room does not exist")
	ErrPlayerNotFound = New(KindNotFound, "PLAYER_NOT_FOUND", "player does not exist")
	ErrTicketNotFound = New(KindNotFound, "TICKET_NOT_FOUND", "ticket does not exist")
)

// Forbidden
var (
	ErrNotHost = New(KindForbidden, "UNAUTHORIZED", "only the room host may do this")
)

// Illegal state
var (
	ErrGameNotStarted = New(KindIllegalState, "GAME_NOT_STARTED", "game has not started")
	ErrGameStarted    = New(KindIllegalState, "GAME_STARTED", "game has already started")
	ErrNoPlayers      = New(KindIllegalState, "NO_PLAYERS", "at least one player is required to start")
	ErrRoomFull       = New(KindIllegalState, "ROOM_FULL", "room is full")
)

// Already terminal
var (
	ErrGameEnded  = New(KindTerminal, "GAME_ENDED", "game has already finished")
	ErrAllDrawn   = New(KindTerminal, "ALL_DRAWN", "all 90 numbers have been drawn")
	ErrRoomClosed = New(KindTerminal, "ROOM_CLOSED", "room is closed")
)

// Invalid input
var (
	ErrInvalidInput      = New(KindInvalidInput, "INVALID_INPUT", "invalid input")
	ErrNicknameTaken     = New(KindInvalidInput, "NICKNAME_TAKEN", "nickname is already in use")
	ErrInvalidRow        = New(KindInvalidInput, "INVALID_KINH", "row index is out of range")
	ErrTicketNotInGame   = New(KindInvalidInput, "BAD_REQUEST", "ticket does not belong to this game")
	ErrNumberNotOnTicket = New(KindInvalidInput, "INVALID_NUMBER", "number is not on this ticket")
)

var ErrInternal = New(KindInternal, "INTERNAL", "internal server error")
