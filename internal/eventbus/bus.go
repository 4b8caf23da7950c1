// Package eventbus fans events out to any number of subscribers. Each
// subscriber reads from its own unbounded queue, so a slow reader never
// blocks the publisher.
package eventbus

import (
	"context"
	"sync"

	"github.com/gammazero/channelqueue"
)

// Bus distributes published events to all subscribers.
type Bus[T any] struct {
	inEvents     chan T
	addEventChan chan chan<- T
	rmEventChan  chan chan<- T

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

func New[T any]() *Bus[T] {
	b := &Bus[T]{
		inEvents:     make(chan T, 1),
		addEventChan: make(chan chan<- T),
		rmEventChan:  make(chan chan<- T),
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	go b.distributeEvents()
	return b
}

// Subscribe creates a channel that receives published events.
//
// Calling the returned cancel function removes the channel from the list of
// channels to be notified, and closes it to allow any reading goroutines to
// stop waiting on the channel. All channels are closed when the bus is
// closed.
func (b *Bus[T]) Subscribe() (<-chan T, context.CancelFunc) {
	cq := channelqueue.New[T](-1)
	ch := cq.In()
	select {
	case b.addEventChan <- ch:
	case <-b.closing:
		close(ch)
		return cq.Out(), func() {}
	}

	cncl := func() {
		if ch == nil {
			return
		}
		select {
		case b.rmEventChan <- ch:
		case <-b.closing:
		}
		ch = nil
	}
	return cq.Out(), cncl
}

// Publish sends event to all current subscribers. It is a no-op after Close.
func (b *Bus[T]) Publish(event T) {
	select {
	case b.inEvents <- event:
	case <-b.closing:
	}
}

// Close stops distribution and closes all subscriber channels.
func (b *Bus[T]) Close() {
	b.closeOnce.Do(func() {
		close(b.closing)
		<-b.done
	})
}

func (b *Bus[T]) distributeEvents() {
	defer close(b.done)
	var outEventsChans []chan<- T

	for {
		select {
		case event := <-b.inEvents:
			for _, ch := range outEventsChans {
				ch <- event
			}
		case ch := <-b.addEventChan:
			outEventsChans = append(outEventsChans, ch)
		case ch := <-b.rmEventChan:
			for i, ca := range outEventsChans {
				if ca == ch {
					outEventsChans[i] = outEventsChans[len(outEventsChans)-1]
					outEventsChans[len(outEventsChans)-1] = nil
					outEventsChans = outEventsChans[:len(outEventsChans)-1]
					close(ch)
					break
				}
			}
		case <-b.closing:
			// Deliver events published before close, then dismiss readers.
			for {
				select {
				case event := <-b.inEvents:
					for _, ch := range outEventsChans {
						ch <- event
					}
					continue
				default:
				}
				break
			}
			for _, ch := range outEventsChans {
				close(ch)
			}
			return
		}
	}
}
