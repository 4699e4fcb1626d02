package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()

	require.False(t, a.IsZero())
	require.False(t, b.IsZero())
	require.NotEqual(t, a, b, "two generated IDs should differ")
	require.Len(t, a.String(), 26, "canonical ULID form is 26 chars")
}

func TestNew_Monotonic(t *testing.T) {
	// IDs generated in sequence must sort in generation order.
	prev := New()
	for range 100 {
		next := New()
		require.Less(t, prev.String(), next.String())
		prev = next
	}
}

func TestNewAt_EmbedsTime(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)

	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}

func TestParse(t *testing.T) {
	id := New()

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	parsed, err = Parse("  " + id.String() + "  ")
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too short", "01ABC"},
		{"bad characters", "0000000000000000000000000U"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	require.Panics(t, func() {
		MustParse("not-a-ulid")
	})
}
