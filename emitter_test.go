package gatewayclient

import (
	"errors"
	"testing"

	"github.com/bradfitz/iter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discordpkg/gatewayclient/command"
	"github.com/discordpkg/gatewayclient/event"
)

func TestEmitter(t *testing.T) {
	emitter := newEmitter(nopLogger())

	var calls []string
	removeA := emitter.add(event.GuildCreate, func(interface{}) { calls = append(calls, "a") }, false)
	emitter.add(event.GuildCreate, func(interface{}) { calls = append(calls, "b") }, false)
	emitter.add(event.GuildCreate, func(interface{}) { calls = append(calls, "once") }, true)

	emitter.emit(event.GuildCreate, nil)
	assert.Equal(t, []string{"a", "b", "once"}, calls, "listeners run in registration order")

	calls = nil
	removeA()
	emitter.emit(event.GuildCreate, nil)
	assert.Equal(t, []string{"b"}, calls)

	calls = nil
	emitter.emit(event.GuildDelete, nil)
	assert.Empty(t, calls)

	calls = nil
	emitter.add(event.GuildCreate, func(interface{}) { panic("listener failure") }, false)
	emitter.add(event.GuildCreate, func(interface{}) { calls = append(calls, "c") }, false)
	assert.NotPanics(t, func() {
		emitter.emit(event.GuildCreate, nil)
	})
	assert.Equal(t, []string{"b", "c"}, calls, "listeners after a panicking one still run")
}

func TestOn_Typed(t *testing.T) {
	client := NewClientMust(t)

	var received []string
	On(client, event.MessageCreate, func(msg string) {
		received = append(received, msg)
	})

	client.emitter.emit(event.MessageCreate, "hello")
	client.emitter.emit(event.MessageCreate, 42)
	assert.Equal(t, []string{"hello"}, received, "values of another type are skipped")
}

func TestCommandQueue(t *testing.T) {
	queue := newCommandQueue()
	for i := range iter.N(3) {
		queue.push(command.UpdatePresence, i)
	}
	require.Equal(t, 3, queue.Len())

	var sent []interface{}
	failing := errors.New("connection lost")
	err := queue.flush(func(cmd command.Type, data interface{}) error {
		if len(sent) == 1 {
			return failing
		}
		sent = append(sent, data)
		return nil
	})
	assert.ErrorIs(t, err, failing)
	assert.Equal(t, 2, queue.Len(), "the failed command stays queued")

	require.NoError(t, queue.flush(func(cmd command.Type, data interface{}) error {
		sent = append(sent, data)
		return nil
	}))
	assert.Equal(t, []interface{}{0, 1, 2}, sent)
	assert.Zero(t, queue.Len())
}
