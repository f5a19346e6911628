package audio_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/tunetray/internal/audio"
	"github.com/petems/tunetray/internal/audio/audiotest"
)

func newCatalog(devices ...*audiotest.Device) (*audio.Catalog, *audiotest.Host) {
	host := audiotest.NewHost(devices...)
	return audio.NewCatalog(host, zerolog.Nop()), host
}

func TestListDevicesPrependsDefault(t *testing.T) {
	catalog, _ := newCatalog(
		audiotest.NewDevice("Built-in Microphone", 1, 8000, 48000),
		audiotest.NewDevice("USB Audio", 2, 44100, 96000),
	)

	names, err := catalog.ListDevices()
	require.NoError(t, err)
	assert.Equal(t, []string{"Default", "Built-in Microphone", "USB Audio"}, names)
}

func TestListDevicesFailsOnUnreadableName(t *testing.T) {
	broken := audiotest.NewDevice("", 1, 8000, 48000)
	broken.NameErr = errors.New("driver returned garbage")
	catalog, _ := newCatalog(audiotest.NewDevice("Mic", 1, 8000, 48000), broken)

	names, err := catalog.ListDevices()
	assert.Nil(t, names)

	var nameErr *audio.DeviceNameError
	require.ErrorAs(t, err, &nameErr)
	assert.Equal(t, 1, nameErr.Index)
}

func TestListDevicesEnumerationError(t *testing.T) {
	catalog, host := newCatalog()
	host.SetEnumerationError(errors.New("backend unavailable"))

	_, err := catalog.ListDevices()
	var enumErr *audio.EnumerationError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, "fake", enumErr.Host)
}

func TestResolveDefault(t *testing.T) {
	mic := audiotest.NewDevice("Mic", 1, 8000, 48000)
	usb := audiotest.NewDevice("USB", 2, 8000, 48000)
	catalog, host := newCatalog(mic, usb)

	for _, name := range []string{"", "Default"} {
		d, err := catalog.Resolve(name)
		require.NoError(t, err)
		assert.Same(t, mic, d, "name %q", name)
	}

	// The default is looked up at the moment of use.
	host.SetDefault(usb)
	d, err := catalog.Resolve("")
	require.NoError(t, err)
	assert.Same(t, usb, d)
}

func TestResolveNoDefault(t *testing.T) {
	catalog, host := newCatalog(audiotest.NewDevice("Mic", 1, 8000, 48000))
	host.SetDefault(nil)

	_, err := catalog.Resolve("Default")
	assert.ErrorIs(t, err, audio.ErrNoDeviceAvailable)
}

func TestResolveByName(t *testing.T) {
	broken := audiotest.NewDevice("", 1, 8000, 48000)
	broken.NameErr = errors.New("unreadable")
	usb := audiotest.NewDevice("USB", 2, 8000, 48000)
	catalog, _ := newCatalog(audiotest.NewDevice("Mic", 1, 8000, 48000), broken, usb)

	d, err := catalog.Resolve("USB")
	require.NoError(t, err)
	assert.Same(t, usb, d)

	_, err = catalog.Resolve("nonexistent-xyz")
	assert.ErrorIs(t, err, audio.ErrDeviceNotFound)
}

func TestResolveDuplicateNamesPicksFirst(t *testing.T) {
	first := audiotest.NewDevice("Headset", 1, 8000, 48000)
	second := audiotest.NewDevice("Headset", 2, 8000, 48000)
	catalog, _ := newCatalog(first, second)

	d, err := catalog.Resolve("Headset")
	require.NoError(t, err)
	assert.Same(t, first, d)
}

func TestExists(t *testing.T) {
	catalog, host := newCatalog(audiotest.NewDevice("Mic", 1, 8000, 48000))

	assert.True(t, catalog.Exists("Default"))
	assert.True(t, catalog.Exists(""))
	assert.True(t, catalog.Exists("Mic"))
	assert.False(t, catalog.Exists("nonexistent-xyz"))

	host.SetEnumerationError(errors.New("gone"))
	assert.False(t, catalog.Exists("Mic"))
}
