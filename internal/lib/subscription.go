package lib

import "sync"

// Subscription wraps a producer function with unsubscribe and error
// delivery semantics, following the shape of ethereum.Subscription
type Subscription struct {
	events   <-chan interface{}
	err      chan error
	quit     chan struct{}
	unsubbed chan struct{}
	once     sync.Once
}

// NewSubscription runs a producer function as a subscription in a new
// goroutine. The producer writes events to the sink channel and must
// return as soon as quit is closed. The error returned by the producer
// is sent on the Err channel
func NewSubscription(producer func(quit <-chan struct{}) error, sink <-chan interface{}) *Subscription {
	s := &Subscription{
		events:   sink,
		err:      make(chan error, 1),
		quit:     make(chan struct{}),
		unsubbed: make(chan struct{}),
	}

	go func() {
		defer close(s.unsubbed)
		err := producer(s.quit)
		if err != nil {
			s.err <- err
		}
		close(s.err)
	}()

	return s
}

func (s *Subscription) Events() <-chan interface{} {
	return s.events
}

func (s *Subscription) Err() <-chan error {
	return s.err
}

// Unsubscribe signals the producer to stop and waits until it returns
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.quit)
	})
	<-s.unsubbed
}
