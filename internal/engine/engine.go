// Package engine holds the pure rules of a loto game: ticket generation, number drawing,
// row claims and the room status machine. Nothing here touches storage or the network.
package engine

import "github.com/DoyleJ11/loto-backend/internal/apperr"

type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusPlaying, StatusFinished:
		return true
	}
	return false
}

type Action string

const (
	ActionJoin    Action = "join"
	ActionConnect Action = "connect"
	ActionStart   Action = "start"
	ActionDraw    Action = "draw"
	ActionClaim   Action = "claim"
	ActionWin     Action = "win"
	ActionMark    Action = "mark"
	ActionEnd     Action = "end"
	ActionClose   Action = "close"
)

/*
	Waiting  --start-->  Playing  --win/end-->  Finished
	   |                    |
	   +------close---------+------close------> Finished

	join is only legal while Waiting; connect (persistent join of an existing
	member) is legal while Waiting or Playing. Finished accepts nothing.
*/

// Next returns the status a room is in after action succeeds from status, or the
// categorized guard error when action is not legal there. It never mutates anything.
func Next(status RoomStatus, action Action) (RoomStatus, error) {
	if status == StatusFinished {
		switch action {
		case ActionJoin, ActionConnect, ActionClose:
			return status, apperr.ErrRoomClosed
		default:
			return status, apperr.ErrGameEnded
		}
	}

	if to, ok := transitions[step{From: status, Action: action}]; ok {
		return to, nil
	}

	switch status {
	case StatusWaiting:
		return status, apperr.ErrGameNotStarted
	case StatusPlaying:
		return status, apperr.ErrGameStarted
	default:
		return status, apperr.ErrInvalidInput.WithMessage("unknown room status")
	}
}

// Allowed reports whether action is legal from status.
func Allowed(status RoomStatus, action Action) bool {
	_, err := Next(status, action)
	return err == nil
}
