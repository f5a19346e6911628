package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccel(t *testing.T) {
	tests := []struct {
		in   string
		want Accel
	}{
		{"Ctrl+Shift+I", Accel{Mods: ModCtrl | ModShift, Key: "I"}},
		{"cmd+shift+i", Accel{Mods: ModSuper | ModShift, Key: "I"}},
		{"Alt+Space", Accel{Mods: ModAlt, Key: "Space"}},
		{"Option + Return", Accel{Mods: ModAlt, Key: "Enter"}},
		{"F9", Accel{Key: "F9"}},
		{"Control+F12", Accel{Mods: ModCtrl, Key: "F12"}},
		{"super+7", Accel{Mods: ModSuper, Key: "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAccel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAccelErrors(t *testing.T) {
	for _, in := range []string{"", "  ", "Ctrl+Shift", "Ctrl++I", "Ctrl+I+J", "Hyper+I", "F13", "F01", "Ctrl+Home"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAccel(in)
			assert.ErrorIs(t, err, ErrInvalidAccel)
		})
	}
}

func TestAccelString(t *testing.T) {
	a, err := ParseAccel("shift+cmd+alt+ctrl+k")
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Shift+Alt+Super+K", a.String())
}
