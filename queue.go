package gatewayclient

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/discordpkg/gatewayclient/command"
)

type queuedCommand struct {
	cmd  command.Type
	data interface{}
}

// commandQueue buffers user commands while the session is not ready.
type commandQueue struct {
	mu       sync.Mutex
	commands *queue.Queue
}

func newCommandQueue() *commandQueue {
	return &commandQueue{commands: queue.New()}
}

func (q *commandQueue) push(cmd command.Type, data interface{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.commands.Add(&queuedCommand{cmd: cmd, data: data})
}

func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.commands.Length()
}

// flush sends the queued commands in order. A command that fails to send stays at the
// front of the queue, and the error is returned.
func (q *commandQueue) flush(send func(cmd command.Type, data interface{}) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.commands.Length() > 0 {
		next := q.commands.Peek().(*queuedCommand)
		if err := send(next.cmd, next.data); err != nil {
			return err
		}
		q.commands.Remove()
	}
	return nil
}
