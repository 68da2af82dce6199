// Package odisvc wires service contracts to implementations by priority.
//
// The repository has two halves:
//
//   - ioc: the runtime registry. Contracts are interfaces embedding
//     ioc.Service; each contract keeps the registration with the highest
//     priority and builds it lazily, at most once.
//   - cmd/iocgen: the build-time generator. It finds types annotated with
//     //ioc:inject, emits one factory per type and a registrar that hands
//     them all to the registry from an init function.
//
// A host imports the generated package for its side effects, calls ioc.Init
// and resolves contracts with ioc.Get. See examples/ for an end-to-end setup.
package odisvc
