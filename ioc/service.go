package ioc

import "reflect"

// MinPriority is the priority used when a registration does not state one.
// Higher values win.
const MinPriority = 0

// Service is the marker every contract embeds.
//
// A contract is an interface type that embeds Service:
//
//	type LogService interface {
//		ioc.Service
//		Log(msg string)
//	}
//
// IsAvailable lets an implementation report that it exists but cannot serve
// right now. Implementations that have nothing to report embed Base.
type Service interface {
	IsAvailable() bool
}

// Base provides the default IsAvailable (always true).
// Embed it in implementation structs.
type Base struct{}

// IsAvailable implements Service.
func (Base) IsAvailable() bool { return true }

// Constructor builds a fresh instance of an implementation.
//
// Generated factories implement it. The registry wraps every Constructor in a
// memoizing factory, so NewInstance runs at most once per binding.
type Constructor[T Service] interface {
	NewInstance() T
}

// ConstructorFunc adapts a plain function to Constructor.
type ConstructorFunc[T Service] func() T

// NewInstance implements Constructor.
func (f ConstructorFunc[T]) NewInstance() T { return f() }

// Implementation is optionally implemented by constructors that know the
// concrete type they build. The registry uses it as the last fallback when
// NewInstance returns nil: the type is default-constructed reflectively.
type Implementation interface {
	Implementation() reflect.Type
}

// IsAvailable reports whether svc is non-nil and reports itself available.
func IsAvailable(svc Service) bool {
	if isNil(svc) {
		return false
	}
	return svc.IsAvailable()
}

// isNil reports whether v is nil or an interface holding a typed nil.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
