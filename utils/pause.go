package utils

import (
	"context"
	"sync"
)

// PauseFlag is a shared pause signal polled by workers at safe points. A nil flag is never paused.
type PauseFlag struct {
	mu     sync.Mutex
	resume chan struct{}
}

func NewPauseFlag() *PauseFlag {
	return &PauseFlag{}
}

func (p *PauseFlag) Set(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if paused && p.resume == nil {
		p.resume = make(chan struct{})
	} else if !paused && p.resume != nil {
		close(p.resume)
		p.resume = nil
	}
}

// Toggle flips the flag and returns the new paused state.
func (p *PauseFlag) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resume == nil {
		p.resume = make(chan struct{})
		return true
	}
	close(p.resume)
	p.resume = nil
	return false
}

func (p *PauseFlag) Paused() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resume != nil
}

// Wait blocks while the flag is set, returning early with the context's error if it is done.
func (p *PauseFlag) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	p.mu.Lock()
	resume := p.resume
	p.mu.Unlock()

	if resume == nil {
		return ctx.Err()
	}
	select {
	case <-resume:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
