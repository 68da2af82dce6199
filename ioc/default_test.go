package ioc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Not parallel: these tests swap the process-wide registry.

func TestDefault_SetDefaultAndGet(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	r, _ := observedRegistry(WithRegistrars(funcRegistrar{name: "default-test", fn: func(r *Registry) {
		RegisterFunc[logService](r, func() logService { return &fileLog{name: "std"} }, 2)
	}}))
	SetDefault(r)
	require.Same(t, r, Default())

	_, ok := Get[logService]()
	assert.False(t, ok, "registrars are applied by Init")

	require.NoError(t, Init(context.Background()))
	svc, ok := Get[logService]()
	require.True(t, ok)
	assert.Equal(t, "std:hi", svc.Log("hi"))
}

func TestDefault_SetDefaultNilIgnored(t *testing.T) {
	prev := Default()
	require.NotNil(t, prev)

	SetDefault(nil)
	assert.Same(t, prev, Default())
}
