package ioc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrNotInterface is reported when a concrete type is used as a contract.
	ErrNotInterface = errors.New("ioc: contract is not an interface type")

	// ErrNilConstructor is reported when a registration carries no constructor.
	ErrNilConstructor = errors.New("ioc: nil constructor")

	// ErrNotInstantiable is reported when the reflective fallback cannot
	// default-construct an implementation type.
	ErrNotInstantiable = errors.New("ioc: implementation cannot be default-constructed")
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for rejections, overrides and fallbacks.
// A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l.Named("ioc")
		}
	}
}

// WithRegistrars adds registrars applied by Init in addition to the ones
// collected through AddRegistrar.
func WithRegistrars(regs ...Registrar) Option {
	return func(r *Registry) {
		for _, reg := range regs {
			if reg != nil {
				r.registrars = append(r.registrars, reg)
			}
		}
	}
}

// WithoutGlobalRegistrars makes Init ignore registrars collected through
// AddRegistrar. Tests use it to get an isolated registry.
func WithoutGlobalRegistrars() Option {
	return func(r *Registry) { r.useGlobal = false }
}

// Registry maps each contract to its winning binding.
//
// All methods are safe for concurrent use. Lookups take a read lock only to
// find the binding; construction is serialized per binding.
type Registry struct {
	log *zap.Logger

	mu       sync.RWMutex
	bindings map[reflect.Type]*binding
	standIns map[reflect.Type]func() any
	ctx      context.Context

	registrars []Registrar
	useGlobal  bool

	compMu     sync.Mutex
	components []Component

	initOnce sync.Once
	initErr  error
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		log:       zap.NewNop(),
		bindings:  make(map[reflect.Type]*binding),
		standIns:  make(map[reflect.Type]func() any),
		useGlobal: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds c to the contract T with the given priority.
//
// It returns false without touching the registry when T is not an interface
// type, when c is nil, or when T already has a binding whose priority is
// greater than or equal to priority. Equal priorities keep the binding that
// registered first. A replaced binding is dropped together with any instance
// it already built.
func Register[T Service](r *Registry, c Constructor[T], priority int) bool {
	contract := reflect.TypeFor[T]()
	if isNil(c) {
		r.log.Debug("registration rejected",
			zap.Stringer("contract", contract),
			zap.Error(ErrNilConstructor),
		)
		return false
	}
	return r.register(contract, newFactory(c), priority)
}

// RegisterDefault registers c for T at MinPriority.
func RegisterDefault[T Service](r *Registry, c Constructor[T]) bool {
	return Register(r, c, MinPriority)
}

// RegisterFunc registers a plain constructor function for T.
func RegisterFunc[T Service](r *Registry, fn func() T, priority int) bool {
	return Register[T](r, ConstructorFunc[T](fn), priority)
}

func (r *Registry) register(contract reflect.Type, f *factory, priority int) bool {
	if contract.Kind() != reflect.Interface {
		r.log.Debug("registration rejected",
			zap.Stringer("contract", contract),
			zap.Error(ErrNotInterface),
		)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.bindings[contract]; ok {
		if priority <= old.priority {
			r.log.Debug("registration rejected by priority",
				zap.Stringer("contract", contract),
				zap.Int("priority", priority),
				zap.Int("current", old.priority),
			)
			return false
		}
		r.log.Info("binding overridden",
			zap.Stringer("contract", contract),
			zap.Int("priority", priority),
			zap.Int("previous", old.priority),
			zap.Bool("discarded_instance", old.factory.built()),
		)
	}

	r.bindings[contract] = &binding{
		contract: contract,
		priority: priority,
		factory:  f,
	}
	return true
}

// Resolve returns the winning implementation of T.
//
// ok is false when T has no binding or when neither the constructor nor any
// fallback produced a value. The first call constructs the instance; later
// calls return the same one.
func Resolve[T Service](r *Registry) (svc T, ok bool) {
	v := r.resolve(reflect.TypeFor[T]())
	if v == nil {
		return svc, false
	}
	svc, ok = v.(T)
	return svc, ok
}

// Available resolves T and reports whether the result is usable.
func Available[T Service](r *Registry) bool {
	svc, ok := Resolve[T](r)
	return ok && IsAvailable(svc)
}

func (r *Registry) resolve(contract reflect.Type) any {
	r.mu.RLock()
	b, ok := r.bindings[contract]
	r.mu.RUnlock()

	if !ok {
		return nil
	}
	return b.instance(r.fallback)
}

// RegisterStandIn records the inert implementation used for T when T's
// constructor yields nil. The first stand-in registered for a contract is
// kept; later ones return false.
func RegisterStandIn[T Service](r *Registry, fn func() T) bool {
	contract := reflect.TypeFor[T]()
	if contract.Kind() != reflect.Interface || fn == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.standIns[contract]; ok {
		return false
	}
	r.standIns[contract] = func() any { return fn() }
	return true
}

// fallback runs when a binding's constructor produced nil: stand-in first,
// then reflective default construction of the implementation type.
func (r *Registry) fallback(b *binding) any {
	r.mu.RLock()
	standIn := r.standIns[b.contract]
	r.mu.RUnlock()

	if standIn != nil {
		v, err := safeCall(standIn)
		if err == nil && !isNil(v) {
			r.log.Warn("constructor returned nil, using stand-in",
				zap.Stringer("contract", b.contract),
			)
			return v
		}
		r.log.Debug("stand-in unusable",
			zap.Stringer("contract", b.contract),
			zap.Error(err),
		)
	}

	v, err := instantiate(b.factory.impl, b.contract)
	if err != nil {
		r.log.Error("no usable implementation",
			zap.Stringer("contract", b.contract),
			zap.Error(err),
		)
		return nil
	}
	r.log.Warn("constructor returned nil, using default-constructed implementation",
		zap.Stringer("contract", b.contract),
		zap.Stringer("implementation", b.factory.impl),
	)
	return v
}

// safeCall converts a panic in fn into an error.
func safeCall(fn func() any) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = fmt.Errorf("ioc: stand-in panicked: %v", rec)
		}
	}()
	return fn(), nil
}

// instantiate builds the zero value of impl, the Go counterpart of calling a
// no-argument constructor. Pointer-to-struct implementations get a fresh
// allocation.
func instantiate(impl, contract reflect.Type) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = fmt.Errorf("%w: %v", ErrNotInstantiable, rec)
		}
	}()

	if impl == nil {
		return nil, fmt.Errorf("%w: implementation type unknown", ErrNotInstantiable)
	}

	var rv reflect.Value
	switch {
	case impl.Kind() == reflect.Pointer && impl.Elem().Kind() == reflect.Struct:
		rv = reflect.New(impl.Elem())
	case impl.Kind() == reflect.Struct:
		rv = reflect.New(impl).Elem()
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotInstantiable, impl)
	}

	if !rv.Type().Implements(contract) {
		return nil, fmt.Errorf("%w: %s does not implement %s", ErrNotInstantiable, impl, contract)
	}
	return rv.Interface(), nil
}

// Entry describes one binding in a Registry snapshot.
type Entry struct {
	Contract       reflect.Type
	Priority       int
	Implementation reflect.Type // nil when the constructor does not report it
	Instantiated   bool
}

// Entries returns the current bindings ordered by contract name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, Entry{
			Contract:       b.contract,
			Priority:       b.priority,
			Implementation: b.factory.impl,
			Instantiated:   b.factory.built(),
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Contract.String() < out[j].Contract.String()
	})
	return out
}

// Len returns the number of bound contracts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
