package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/barcode-mcp/internal/policy"
	"github.com/ironsheep/barcode-mcp/internal/region"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "options.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	require.NoError(t, o.Validate())

	assert.Equal(t, region.DOMElement, o.Region.DetectRegion)
	assert.True(t, o.Open.Enabled)
	assert.False(t, o.Open.ChangeFocus)
	assert.Equal(t, policy.OneTabEach, o.Open.Target)
	assert.Equal(t, policy.OpenAll, o.Open.Behavior)
	assert.Equal(t, 1000, o.Open.MaxCount)
	assert.True(t, o.Copy.Enabled)
	assert.Equal(t, policy.CopyAll, o.Copy.Behavior)
	assert.Equal(t, 300, o.Copy.IntervalMs)
	assert.Equal(t, 1000, o.Copy.MaxCount)
}

func TestLoadOptions_PartialFile(t *testing.T) {
	path := writeFile(t, `{
		"region": {"detect_region": "under-cursor", "tolerance_css_pixels": 8},
		"open": {"url_scheme_whitelist": ["https"], "behavior": "open-last"}
	}`)

	o, err := LoadOptions(path)
	require.NoError(t, err)

	assert.Equal(t, region.UnderCursor, o.Region.DetectRegion)
	assert.Equal(t, 8.0, o.Region.ToleranceCSSPixels)
	assert.True(t, o.Region.FallbackToUnderCursor, "absent field keeps default")
	assert.Equal(t, []string{"https"}, o.Open.URLSchemeWhitelist)
	assert.Equal(t, policy.OpenLast, o.Open.Behavior)
	assert.Equal(t, policy.OneTabEach, o.Open.Target)
	assert.Equal(t, 300, o.Copy.IntervalMs)
}

func TestLoadOptions_UnknownEnumKept(t *testing.T) {
	path := writeFile(t, `{"copy": {"behavior": "copy-middle"}}`)

	o, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, policy.CopyBehavior("copy-middle"), o.Copy.Behavior)
	assert.ErrorIs(t, o.Validate(), policy.ErrInvalidPolicy)
}

func TestLoadOptions_MissingAndMalformed(t *testing.T) {
	o, err := LoadOptions(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), o)

	o, err = LoadOptions(writeFile(t, `{not json`))
	assert.Error(t, err)
	assert.Equal(t, DefaultOptions(), o)
}

func TestSaveOptions_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	want := DefaultOptions()
	want.Open.URLSchemeBlacklist = []string{"javascript"}
	require.NoError(t, SaveOptions(path, want))

	got, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore(t *testing.T) {
	path := writeFile(t, `{"copy": {"interval_ms": 50}}`)
	s, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, 50, s.Snapshot().Copy.IntervalMs)

	require.NoError(t, os.WriteFile(path, []byte(`{"copy": {"interval_ms": 75}}`), 0o600))
	o, err := s.Reload()
	require.NoError(t, err)
	assert.Equal(t, 75, o.Copy.IntervalMs)
	assert.Equal(t, 75, s.Snapshot().Copy.IntervalMs)

	require.NoError(t, os.WriteFile(path, []byte(`garbage`), 0o600))
	_, err = s.Reload()
	assert.Error(t, err)
	assert.Equal(t, 75, s.Snapshot().Copy.IntervalMs, "failed reload keeps previous options")

	replaced := DefaultOptions()
	replaced.Copy.Enabled = false
	s.Replace(replaced)
	assert.False(t, s.Snapshot().Copy.Enabled)
}

func TestStore_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	want := DefaultOptions()
	want.Copy.IntervalMs = 120
	got, err := s.Update(want)
	require.NoError(t, err)
	assert.Equal(t, 120, got.Copy.IntervalMs)

	// Persisted: a fresh store reads the same file.
	fresh, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, 120, fresh.Snapshot().Copy.IntervalMs)

	bad := DefaultOptions()
	bad.Region.ToleranceCSSPixels = -1
	_, err = s.Update(bad)
	assert.ErrorIs(t, err, policy.ErrInvalidPolicy)
	assert.Equal(t, 120, s.Snapshot().Copy.IntervalMs, "invalid update keeps current options")
}

func TestStore_UpdateWithoutPath(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	o := DefaultOptions()
	o.Copy.Enabled = false
	_, err = s.Update(o)
	require.NoError(t, err)
	assert.False(t, s.Snapshot().Copy.Enabled)
}

func TestStore_SnapshotIsolated(t *testing.T) {
	s, err := NewStore("")
	require.NoError(t, err)

	o := DefaultOptions()
	o.Open.URLSchemeWhitelist = []string{"https"}
	s.Replace(o)

	snap := s.Snapshot()
	snap.Open.URLSchemeWhitelist[0] = "ftp"
	assert.Equal(t, []string{"https"}, s.Snapshot().Open.URLSchemeWhitelist)
}

func TestLoadSettings(t *testing.T) {
	env := map[string]string{
		EnvOptions:      "/etc/barcode/options.json",
		EnvLogLevel:     "debug",
		EnvSurfaces:     "LOCAL",
		EnvBadgeClearMs: "1000",
		EnvQueueDepth:   "8",
		EnvFetchTimeout: "5000",
		EnvAllowFiles:   "true",
	}
	s, err := LoadSettings(func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, "/etc/barcode/options.json", s.OptionsPath)
	assert.Equal(t, slog.LevelDebug, s.LogLevel)
	assert.Equal(t, SurfacesLocal, s.Surfaces)
	assert.Equal(t, time.Second, s.BadgeClear)
	assert.Equal(t, 8, s.QueueDepth)
	assert.Equal(t, 32, s.CacheSize)
	assert.Equal(t, 5*time.Second, s.FetchTimeout)
	assert.True(t, s.AllowFiles)
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings(func(string) string { return "" })
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
	assert.False(t, s.AllowFiles, "local files are off unless enabled")
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := map[string]string{
		EnvLogLevel:     "loud",
		EnvSurfaces:     "carrier-pigeon",
		EnvBadgeClearMs: "-5",
		EnvQueueDepth:   "0",
		EnvCacheSize:    "many",
		EnvAllowFiles:   "sometimes",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := LoadSettings(func(k string) string {
				if k == key {
					return val
				}
				return ""
			})
			assert.Error(t, err)
		})
	}
}
