package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateGetRemove(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)

	rm := reg.Create()
	require.Len(t, rm.Code(), roomCodeLength)
	for _, ch := range rm.Code() {
		require.True(t, strings.ContainsRune(roomCodeAlphabet, ch), "unexpected code char %q", ch)
	}

	got, ok := reg.Get(rm.Code())
	require.True(t, ok)
	require.Same(t, rm, got)

	_, ok = reg.Get("???")
	require.False(t, ok)

	reg.Remove(rm.Code())
	_, ok = reg.Get(rm.Code())
	require.False(t, ok)
	require.Equal(t, 0, reg.Len())
}

func TestRegistry_CodesUniqueAmongActiveRooms(t *testing.T) {
	reg := NewRegistry(testLogger(), nil)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		rm := reg.Create()
		require.False(t, seen[rm.Code()], "duplicate code %s", rm.Code())
		seen[rm.Code()] = true
	}
	require.Equal(t, 200, reg.Len())
}
