package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidAccel = errors.New("invalid accelerator")

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier is a bit set of modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper // Cmd on macOS
)

// Accel is a parsed accelerator such as "Ctrl+Shift+I".
type Accel struct {
	Mods Modifier
	// Key is the canonical key name: an upper case letter or digit, "Space",
	// "Enter", "Tab", "Escape" or "F1" to "F12".
	Key string
}

func (a Accel) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "Ctrl"}, {ModShift, "Shift"}, {ModAlt, "Alt"}, {ModSuper, "Super"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, a.Key), "+")
}

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
}

var namedKeys = map[string]string{
	"space":  "Space",
	"enter":  "Enter",
	"return": "Enter",
	"tab":    "Tab",
	"esc":    "Escape",
	"escape": "Escape",
}

// ParseAccel parses a "+" separated accelerator. Names are case insensitive
// and exactly one non-modifier key is required.
func ParseAccel(accel string) (Accel, error) {
	var a Accel
	if strings.TrimSpace(accel) == "" {
		return a, fmt.Errorf("%w: empty", ErrInvalidAccel)
	}

	for _, part := range strings.Split(accel, "+") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return Accel{}, fmt.Errorf("%w: %q", ErrInvalidAccel, accel)
		}
		if mod, ok := modifierNames[name]; ok {
			a.Mods |= mod
			continue
		}
		if a.Key != "" {
			return Accel{}, fmt.Errorf("%w: %q has more than one key", ErrInvalidAccel, accel)
		}
		key, err := canonicalKey(name)
		if err != nil {
			return Accel{}, fmt.Errorf("%w: %q: %v", ErrInvalidAccel, accel, err)
		}
		a.Key = key
	}

	if a.Key == "" {
		return Accel{}, fmt.Errorf("%w: %q has no key", ErrInvalidAccel, accel)
	}
	return a, nil
}

func canonicalKey(name string) (string, error) {
	if key, ok := namedKeys[name]; ok {
		return key, nil
	}
	if len(name) == 1 && (name[0] >= 'a' && name[0] <= 'z' || name[0] >= '0' && name[0] <= '9') {
		return strings.ToUpper(name), nil
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 12 && name == fmt.Sprintf("f%d", n) {
		return fmt.Sprintf("F%d", n), nil
	}
	return "", fmt.Errorf("unknown key %q", name)
}
