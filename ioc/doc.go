// Package ioc resolves service contracts to a single winning implementation.
//
// Packages declare implementations of shared contracts without knowing about
// each other. Each implementation is registered with a priority; for every
// contract the registry keeps the binding with the highest priority, and on a
// tie the one that registered first.
//
// # Contracts
//
// A contract is an interface that embeds Service:
//
//	type LogService interface {
//		ioc.Service
//		Log(msg string)
//	}
//
// Implementations embed Base for the default IsAvailable (always true).
//
// # Registration
//
// Registrations are usually generated. cmd/iocgen scans packages for types
// annotated with
//
//	//ioc:inject priority=5
//
// and emits a factory per type plus a Registrar that performs every
// registration. The generated package adds its Registrar from an init
// function, so importing it for side effects is enough:
//
//	import _ "example.com/app/internal/iocgen"
//
//	func main() {
//		if err := ioc.Init(ctx); err != nil { ... }
//		if log, ok := ioc.Get[contracts.LogService](); ok {
//			log.Log("ready")
//		}
//	}
//
// Manual registration follows the same rules:
//
//	ioc.RegisterFunc[contracts.LogService](reg, newFileLog, 10)
//
// # Resolution and degradation
//
// Resolve constructs the winner on first use and caches it for the life of
// the registry. Resolution never fails loudly. When a constructor returns nil
// the registry tries, in order, the stand-in registered for the contract
// (generated inert implementations whose methods return zero values), then a
// zero value of the implementation type, and finally reports absence through
// the ok result. A constructor that panics is not degraded: the panic
// reaches the caller.
//
// Registry is an explicit object so tests can use isolated instances;
// Default, Init and Get operate on a process-wide one.
package ioc
