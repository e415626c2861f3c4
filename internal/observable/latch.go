package observable

import "sync"

// Latch is a one-shot notification: Done is closed by the first Fire.
type Latch struct {
	ch   chan struct{}
	once sync.Once
}

func NewLatch() *Latch { return &Latch{ch: make(chan struct{})} }

func (l *Latch) Fire() { l.once.Do(func() { close(l.ch) }) }

func (l *Latch) Done() <-chan struct{} { return l.ch }

func (l *Latch) Fired() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}
