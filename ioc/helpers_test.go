package ioc

import (
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Contracts and implementations shared by the tests in this package.

type logService interface {
	Service
	Log(msg string) string
}

type toastService interface {
	Service
	Toast(msg string)
}

type fileLog struct {
	Base
	name string
}

func (l *fileLog) Log(msg string) string { return l.name + ":" + msg }

// countingLog builds *fileLog values and counts constructor runs.
type countingLog struct {
	name  string
	calls *atomic.Int32
}

func (c countingLog) NewInstance() logService {
	c.calls.Add(1)
	return &fileLog{name: c.name}
}

func newCounting(name string) (countingLog, *atomic.Int32) {
	calls := &atomic.Int32{}
	return countingLog{name: name, calls: calls}, calls
}

func logNamed(name string) ConstructorFunc[logService] {
	return func() logService { return &fileLog{name: name} }
}

// nilLog returns nil and reports *fileLog as its implementation type.
type nilLog struct{}

func (nilLog) NewInstance() logService { return nil }

func (nilLog) Implementation() reflect.Type { return reflect.TypeFor[*fileLog]() }

// typedNilLog returns a nil *fileLog wrapped in the interface.
type typedNilLog struct{}

func (typedNilLog) NewInstance() logService {
	var l *fileLog
	return l
}

// logStandIn is an inert logService.
type logStandIn struct{}

func (logStandIn) IsAvailable() bool { return false }

func (logStandIn) Log(string) string { return "" }

type funcRegistrar struct {
	name string
	fn   func(*Registry)
}

func (f funcRegistrar) Name() string { return f.name }

func (f funcRegistrar) Register(r *Registry) { f.fn(r) }

func observedRegistry(opts ...Option) (*Registry, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]Option{WithLogger(zap.New(core)), WithoutGlobalRegistrars()}, opts...)
	return New(opts...), logs
}

func nameOf(t *testing.T, r *Registry) string {
	t.Helper()
	svc, ok := Resolve[logService](r)
	if !ok {
		t.Fatalf("logService not resolvable")
	}
	return strings.TrimSuffix(svc.Log(""), ":")
}
