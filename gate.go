package ipcwire

import "sync"

// gate serializes a category of whole-frame operations on one Connection.
// spec.md §4.3 describes two process-wide mutexes; §9 explicitly permits
// the correctness-preserving refinement of one read-gate and one
// write-gate per connection, which is what Connection uses — nothing
// requires them to be shared across sockets, only that no two goroutines
// ever produce or consume bytes of different frames on the same socket at
// once. A gate is never held across an application callback.
type gate struct {
	mu sync.Mutex
}

func (g *gate) Lock()   { g.mu.Lock() }
func (g *gate) Unlock() { g.mu.Unlock() }
