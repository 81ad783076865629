// Package prio implements the priority-provider plugin registry from
// spec.md section 4.3: the same named-class, reference-counted scheme
// as the checker package, with a single getprio(path, args) -> int
// entry point.
package prio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sharedcode/multipathd"
)

// Undef is PRIO_UNDEF: the value C6's grouping engine treats as
// "unknown" when no provider is configured or a provider call fails.
const Undef = -1

// Class is a priority-provider plugin.
type Class interface {
	Name() string
	GetPrio(ctx context.Context, path *multipath.Path, args string) (int, error)
}

var (
	mu      sync.Mutex
	classes = map[string]Class{}
	refs    = map[string]*int32{}
)

// Register adds a priority-provider class to the static registry.
// multipathd statically links its built-in providers (spec.md section 9).
func Register(class Class) {
	mu.Lock()
	defer mu.Unlock()
	classes[class.Name()] = class
	if _, ok := refs[class.Name()]; !ok {
		var n int32
		refs[class.Name()] = &n
	}
}

// Instance is a live reference to a priority-provider class for one path.
type Instance struct {
	class Class
	path  *multipath.Path
	args  string
}

// Get returns a new reference to the named priority-provider class,
// bound to path (the getprio(path, args) call target). The reference
// count uses an atomic add-return, matching the checker package's
// race-free zero-detection discipline.
func Get(name, args string, path *multipath.Path) (*Instance, error) {
	mu.Lock()
	class, ok := classes[name]
	counter := refs[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("prio: unknown class %q", name)
	}
	atomic.AddInt32(counter, 1)
	return &Instance{class: class, path: path, args: args}, nil
}

// Close drops the instance's class reference.
func (i *Instance) Close() error {
	mu.Lock()
	counter, ok := refs[i.class.Name()]
	mu.Unlock()
	if ok {
		atomic.AddInt32(counter, -1)
	}
	return nil
}

// Priority invokes the underlying class's getprio entry point. Priorities
// are non-negative; callers should treat a negative result (including
// Undef) as "unknown" rather than a ranking, per spec.md section 4.3.
func (i *Instance) Priority() (int, error) {
	p, err := i.class.GetPrio(context.Background(), i.path, i.args)
	if err != nil {
		return Undef, err
	}
	if p < 0 {
		return Undef, nil
	}
	return p, nil
}

// RefCount returns the current live reference count for a registered
// class, for tests and the status API.
func RefCount(name string) int32 {
	mu.Lock()
	counter, ok := refs[name]
	mu.Unlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt32(counter)
}
