// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/chainstore/messagebus"
)

func TestBroadcast(t *testing.T) {
	queue := messagebus.NewBroadcast(10)
	commands := []string{"c1", "c2", "c3"}

	// nothing listening so these messages are dropped
	for _, command := range commands {
		assert.Equal(t, 0, queue.Send("ignored:"+command, nil), "delivered without listeners")
	}

	const listeners = 5
	var l [listeners]int
	var wg sync.WaitGroup
	channels := make([]<-chan messagebus.Message, listeners)
	for i := 0; i < listeners; i += 1 {
		channels[i] = queue.Chan(-1)
	}
	assert.Equal(t, listeners, queue.Listeners(), "wrong listener count")

	for i := 0; i < listeners; i += 1 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for _, command := range commands {
				received := <-channels[n]
				if received.Command != command {
					t.Errorf("actual: %q  expected: %q", received.Command, command)
				} else {
					l[n] += 1
				}
			}
		}(i)
	}

	for i, command := range commands {
		assert.Equal(t, listeners, queue.Send(command, i), "not delivered to every listener")
	}

	wg.Wait()
	for i, n := range l {
		assert.Equal(t, len(commands), n, "listener[%d] received wrong count", i)
	}
}

func TestFullListenerMissesMessages(t *testing.T) {
	queue := messagebus.NewBroadcast(1)
	slow := queue.Chan(1)
	fast := queue.Chan(3)

	assert.Equal(t, 2, queue.Send("a", 1), "first send")
	assert.Equal(t, 1, queue.Send("b", 2), "second send")

	m := <-slow
	assert.Equal(t, "a", m.Command, "slow listener")
	assert.Equal(t, 0, len(slow), "slow listener kept a second message")
	assert.Equal(t, 2, len(fast), "fast listener lost a message")

	m = <-fast
	assert.Equal(t, 1, m.Item, "wrong item")
}

func TestRelease(t *testing.T) {
	queue := messagebus.NewBroadcast(0)
	c := queue.Chan(-1)
	assert.Equal(t, 1, queue.Listeners(), "not registered")

	queue.Release(c)
	assert.Equal(t, 0, queue.Listeners(), "not released")

	_, ok := <-c
	assert.False(t, ok, "channel not closed")

	// releasing twice does nothing
	queue.Release(c)
	assert.Equal(t, 0, queue.Send("x", nil), "delivered after release")
}
