package ioc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registrar applies a batch of registrations. iocgen emits one per output
// package; its init function hands it to AddRegistrar.
type Registrar interface {
	// Name identifies the registrar, usually the import path of the
	// generated package. Init applies registrars ordered by Name.
	Name() string
	// Register performs every registration of the batch.
	Register(r *Registry)
}

// Component is a lifecycle hook run by Init after all registrars.
type Component interface {
	OnInit(ctx context.Context) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx context.Context) error

// OnInit implements Component.
func (f ComponentFunc) OnInit(ctx context.Context) error { return f(ctx) }

var (
	registrarsMu sync.Mutex
	registrars   = make(map[string]Registrar)
)

// AddRegistrar makes reg available to every Registry that has not opted out
// with WithoutGlobalRegistrars. Like sql.Register it panics when reg is nil
// or when a registrar with the same name was already added.
func AddRegistrar(reg Registrar) {
	if isNil(reg) {
		panic("ioc: AddRegistrar registrar is nil")
	}
	name := reg.Name()

	registrarsMu.Lock()
	defer registrarsMu.Unlock()

	if _, dup := registrars[name]; dup {
		panic("ioc: AddRegistrar called twice for " + name)
	}
	registrars[name] = reg
}

// Registrars returns the globally added registrars ordered by name.
func Registrars() []Registrar {
	registrarsMu.Lock()
	out := make([]Registrar, 0, len(registrars))
	for _, reg := range registrars {
		out = append(out, reg)
	}
	registrarsMu.Unlock()

	sortRegistrars(out)
	return out
}

func sortRegistrars(regs []Registrar) {
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].Name() < regs[j].Name() })
}

// AddComponent queues c to run during Init. Components added after Init
// has run are not invoked.
func (r *Registry) AddComponent(c Component) {
	if isNil(c) {
		return
	}
	r.compMu.Lock()
	defer r.compMu.Unlock()
	r.components = append(r.components, c)
}

// Init performs one-time setup: it records ctx, applies every registrar and
// then runs the queued components in the order they were added. Only the
// first call does any work; later calls return the first call's result.
//
// Registration problems never fail Init. The returned error joins the errors
// of failing components.
func (r *Registry) Init(ctx context.Context) error {
	r.initOnce.Do(func() {
		r.initErr = r.init(ctx)
	})
	return r.initErr
}

func (r *Registry) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	for _, reg := range r.pendingRegistrars() {
		before := r.Len()
		reg.Register(r)
		r.log.Debug("registrar applied",
			zap.String("registrar", reg.Name()),
			zap.Int("bindings_before", before),
			zap.Int("bindings_after", r.Len()),
		)
	}

	r.compMu.Lock()
	comps := append([]Component(nil), r.components...)
	r.compMu.Unlock()

	var errs []error
	for _, c := range comps {
		if err := c.OnInit(ctx); err != nil {
			r.log.Error("component init failed", zap.String("component", fmt.Sprintf("%T", c)), zap.Error(err))
			errs = append(errs, fmt.Errorf("ioc: component %T: %w", c, err))
		}
	}
	return errors.Join(errs...)
}

// pendingRegistrars merges global and option-supplied registrars. When two
// share a name the global one is kept.
func (r *Registry) pendingRegistrars() []Registrar {
	var all []Registrar
	if r.useGlobal {
		all = Registrars()
	}

	seen := make(map[string]bool, len(all)+len(r.registrars))
	for _, reg := range all {
		seen[reg.Name()] = true
	}
	for _, reg := range r.registrars {
		if seen[reg.Name()] {
			r.log.Warn("duplicate registrar ignored", zap.String("registrar", reg.Name()))
			continue
		}
		seen[reg.Name()] = true
		all = append(all, reg)
	}

	sortRegistrars(all)
	return all
}

// Context returns the context given to Init, or context.Background before
// Init has run.
func (r *Registry) Context() context.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}
