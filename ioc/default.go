package ioc

import (
	"context"
	"sync/atomic"
)

// std is the process-wide registry used by the package-level helpers.
var std atomic.Pointer[Registry]

func init() {
	std.Store(New())
}

// Default returns the process-wide Registry.
func Default() *Registry { return std.Load() }

// SetDefault replaces the process-wide Registry. A nil r is ignored.
// Hosts that build their own Registry (custom logger, explicit registrars)
// install it here before calling Init.
func SetDefault(r *Registry) {
	if r == nil {
		return
	}
	std.Store(r)
}

// Init initializes the process-wide Registry. See Registry.Init.
func Init(ctx context.Context) error { return Default().Init(ctx) }

// Get resolves T from the process-wide Registry. See Resolve.
func Get[T Service]() (T, bool) { return Resolve[T](Default()) }
