// Package lobby runs one goroutine per room. Every state-mutating operation on a room is
// sent to that goroutine as a job, so two jobs for the same room never interleave.
package lobby

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("lobby: closed")

type Msg interface{ isLobbyMsg() }

// Exec runs Fn on the lobby goroutine and sends its result on Reply. A job whose Ctx is
// already done when it reaches the front of the queue is skipped.
type Exec struct {
	Ctx   context.Context
	Fn    func(ctx context.Context) error
	Reply chan error
}

func (Exec) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Code      string
	Processed int
	Skipped   int
}

type Lobby struct {
	code      string
	inbox     chan Msg
	processed int
	skipped   int
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewLobby(parent context.Context, code string, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		code:   code,
		inbox:  make(chan Msg, 64),
		log:    log.With(zap.String("room_code", code)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Do enqueues fn and waits for it to finish. It returns ErrClosed if the lobby stopped
// before running fn, or ctx.Err() if ctx ends while fn is still queued.
func (l *Lobby) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	select {
	case l.inbox <- Exec{Ctx: ctx, Fn: fn, Reply: reply}:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-l.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close stops the lobby. Jobs still queued are dropped and their callers get ErrClosed.
func (l *Lobby) Close() { l.cancel() }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Exec:
				if err := msg.Ctx.Err(); err != nil {
					l.skipped++
					msg.Reply <- err
					break
				}
				msg.Reply <- l.run(msg)
				l.processed++

			case GetState:
				// test-only: reflect internal counters without data races
				msg.Reply <- View{Code: l.code, Processed: l.processed, Skipped: l.skipped}

			case Shutdown:
				l.cancel()
				return
			}
		}
	}
}

func (l *Lobby) run(msg Exec) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("room job panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("lobby %s: job panicked: %v", l.code, r)
		}
	}()
	return msg.Fn(msg.Ctx)
}
