// Command iocgen generates the registration code consumed by package ioc.
//
// iocgen loads the packages matching its patterns, finds every exported type
// annotated with an inject directive and writes, into a single output
// package:
//
//   - one factory per annotated type (<name>_factory.gen.go)
//   - one stand-in per contract (standins.gen.go)
//   - one Registrar that registers everything (registrar.gen.go)
//
// The Registrar adds itself to ioc from an init function, so a host only has
// to import the output package for side effects and call ioc.Init.
//
// # Directive
//
// The directive goes in the doc comment of the type:
//
//	//ioc:inject priority=10
//	type FileLog struct{ ioc.Base }
//
// Both keys are optional. priority defaults to 0 and may be negative.
// contract names the interface to bind when the type implements more than
// one contract; it may be given as Name, pkg.Name or importpath.Name.
// Without it the contract is the first interface, by qualified name, from
// the contracts namespace that the type implements.
//
// # Contracts
//
// A contract is an exported interface declared under one of the contracts
// prefixes (default <module>/contracts) whose method set includes
// IsAvailable() bool, usually by embedding ioc.Service.
//
// # Usage
//
//	//go:generate go run github.com/sghaida/odisvc/cmd/iocgen -out internal/iocgen ./...
//
// Flags:
//
//	-C          run as if started in dir
//	-out        output directory, relative to the module root (default internal/iocgen)
//	-pkg        output package name (default: base name of -out)
//	-contracts  comma separated contract package prefixes
//	-config     YAML file with the same settings (default iocgen.yaml, optional)
//	-dry-run    print generated files to stdout instead of writing them
//	-verbose    debug logging
//
// Flags override the config file; the config file overrides defaults.
//
// # Failure handling
//
// Loading or type-checking errors abort the run with exit status 1. Once
// discovery succeeds, problems with single declarations or single output
// files are logged and skipped, and the run exits 0. Files whose content did
// not change are left untouched, and generated files that no longer
// correspond to a declaration are removed.
package main
