package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()
	defer r.Shutdown()

	first, err := r.InitDefault()
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = r.New("default", "test", false, false)
	assert.ErrorIs(t, err, ErrDuplicateName)

	// The original entry is left untouched.
	assert.Same(t, first, r.ByName("default"))
	assert.Same(t, first, r.Default())
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()
	defer r.Shutdown()

	a, err := r.New("alpha", "test", false, false)
	require.NoError(t, err)
	b, err := r.New("beta", "test", true, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, r.List())
	assert.Same(t, a, r.ByName("alpha"))
	assert.Same(t, b, r.ByID(b.ID))
	assert.Nil(t, r.ByName("missing"))
	assert.Nil(t, r.ByID("missing"))

	info := r.Info("alpha")
	require.NotNil(t, info)
	assert.Equal(t, "alpha", info.Name)
	assert.Equal(t, "test", info.Source)
	assert.False(t, info.Created.IsZero())
}

func TestRegistryCloseClearsDefault(t *testing.T) {
	r := NewRegistry()
	defer r.Shutdown()

	_, err := r.InitDefault()
	require.NoError(t, err)

	assert.True(t, r.Close("default"))
	assert.Nil(t, r.Default())
	assert.False(t, r.Close("default"), "closing an absent entry returns false")
}

func TestRegistryShutdownAll(t *testing.T) {
	r := NewRegistry()

	_, err := r.InitDefault()
	require.NoError(t, err)
	_, err = r.New("worker", "test", false, false)
	require.NoError(t, err)

	assert.True(t, r.Shutdown())
	assert.Empty(t, r.List())
	assert.Nil(t, r.Default())

	// Idempotent.
	assert.True(t, r.Shutdown())
}
