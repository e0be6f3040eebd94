package sam2

import (
	"context"
	"fmt"
	"sync"
)

// Pool holds a fixed set of loaded models and hands them out to workers.
// Each model carries its own ONNX sessions, so checked-out models can run
// concurrently on different devices.
type Pool struct {
	models chan *Model
	all    []*Model
	mu     sync.Mutex
	closed bool
}

// NewPool loads one model per entry in devices. A device of -1 loads a CPU
// model; duplicate device IDs are allowed and share the GPU.
func NewPool(cfg Config, devices []int) (*Pool, error) {
	if len(devices) == 0 {
		devices = []int{-1}
	}
	p := &Pool{
		models: make(chan *Model, len(devices)),
		all:    make([]*Model, 0, len(devices)),
	}
	for _, dev := range devices {
		mcfg := cfg
		mcfg.DeviceID = dev
		m, err := NewModel(mcfg)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("loading model for device %d: %w", dev, err)
		}
		p.all = append(p.all, m)
		p.models <- m
	}
	return p, nil
}

// Size returns the number of models in the pool.
func (p *Pool) Size() int { return len(p.all) }

// Acquire blocks until a model is available or the context ends.
func (p *Pool) Acquire(ctx context.Context) (*Model, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool is closed")
	}
	p.mu.Unlock()

	select {
	case m, ok := <-p.models:
		if !ok {
			return nil, fmt.Errorf("pool is closed")
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a model obtained from Acquire.
func (p *Pool) Release(m *Model) {
	if m == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = m.Close()
		return
	}
	p.models <- m
}

// Close closes every model. Models still checked out are closed when
// released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.models)
	p.mu.Unlock()

	var firstErr error
	for m := range p.models {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
