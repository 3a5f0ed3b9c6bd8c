package common

import (
	"errors"
	"sort"
	"sync"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects calls into a paused module.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is an in-memory PauseView toggled by operators.
type Pauses struct {
	mu     sync.RWMutex
	paused map[string]bool
}

func NewPauses(modules ...string) *Pauses {
	p := &Pauses{paused: make(map[string]bool)}
	for _, module := range modules {
		p.paused[module] = true
	}
	return p
}

func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}

// Set pauses or resumes module.
func (p *Pauses) Set(module string, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if paused {
		p.paused[module] = true
		return
	}
	delete(p.paused, module)
}

// Paused lists the currently paused modules in sorted order.
func (p *Pauses) Paused() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.paused))
	for module := range p.paused {
		out = append(out, module)
	}
	sort.Strings(out)
	return out
}
