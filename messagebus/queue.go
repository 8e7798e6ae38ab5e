// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import (
	"sync"
)

// internal constants
const (
	defaultQueueSize = 1000
)

// Message - a command and its payload
type Message struct {
	Command string
	Item    interface{}
}

// BroadcastQueue - every message goes to every listener
//
// a listener whose channel is full misses the message, the sender
// never blocks
type BroadcastQueue struct {
	sync.RWMutex
	listeners   []chan Message
	defaultSize int
}

// BusType - the queues shared by a whole process
type BusType struct {
	Events *BroadcastQueue
}

// Bus - process wide queues
var Bus = BusType{
	Events: NewBroadcast(defaultQueueSize),
}

// NewBroadcast - an empty broadcast queue, defaultSize is used for
// listeners that do not choose a size
func NewBroadcast(defaultSize int) *BroadcastQueue {
	if defaultSize <= 0 {
		defaultSize = defaultQueueSize
	}
	return &BroadcastQueue{
		listeners:   make([]chan Message, 0, 4),
		defaultSize: defaultSize,
	}
}

// Chan - register a new listener, a negative size uses the queue
// default
func (queue *BroadcastQueue) Chan(size int) <-chan Message {
	if size < 0 {
		size = queue.defaultSize
	}
	c := make(chan Message, size)

	queue.Lock()
	queue.listeners = append(queue.listeners, c)
	queue.Unlock()

	return c
}

// Release - remove a listener and close its channel
func (queue *BroadcastQueue) Release(listener <-chan Message) {
	queue.Lock()
	defer queue.Unlock()

	for i, c := range queue.listeners {
		if listener == (<-chan Message)(c) {
			queue.listeners = append(queue.listeners[:i], queue.listeners[i+1:]...)
			close(c)
			return
		}
	}
}

// Listeners - number of registered listeners
func (queue *BroadcastQueue) Listeners() int {
	queue.RLock()
	defer queue.RUnlock()
	return len(queue.listeners)
}

// Send - deliver to every listener with space, returns the number of
// listeners that received the message
func (queue *BroadcastQueue) Send(command string, item interface{}) int {
	m := Message{
		Command: command,
		Item:    item,
	}

	queue.RLock()
	defer queue.RUnlock()

	delivered := 0
	for _, c := range queue.listeners {
		select {
		case c <- m:
			delivered += 1
		default:
		}
	}
	return delivered
}
