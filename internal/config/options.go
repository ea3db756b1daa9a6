package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/barcode-mcp/internal/policy"
	"github.com/ironsheep/barcode-mcp/internal/region"
)

// Options is the user's detection and dispatch configuration.
type Options struct {
	Region region.Policy     `json:"region"`
	Open   policy.OpenPolicy `json:"open"`
	Copy   policy.CopyPolicy `json:"copy"`
}

// DefaultOptions returns Options populated with standard defaults.
func DefaultOptions() Options {
	return Options{
		Region: region.Policy{
			DetectRegion:          region.DOMElement,
			FallbackToUnderCursor: true,
			ToleranceCSSPixels:    0,
		},
		Open: policy.OpenPolicy{
			Enabled:            true,
			URLSchemeWhitelist: []string{},
			URLSchemeBlacklist: []string{},
			ChangeFocus:        false,
			Target:             policy.OneTabEach,
			Behavior:           policy.OpenAll,
			MaxCount:           1000,
		},
		Copy: policy.CopyPolicy{
			Enabled:    true,
			Behavior:   policy.CopyAll,
			IntervalMs: 300,
			MaxCount:   1000,
		},
	}
}

// Validate checks every policy. Unknown enum values are reported, never
// replaced by defaults.
func (o Options) Validate() error {
	return errors.Join(o.Region.Validate(), o.Open.Validate(), o.Copy.Validate())
}

// LoadOptions reads options from a JSON file over the defaults. Fields absent
// from the file keep their default values. A missing file yields the defaults.
// The result is not validated; each cycle validates what it uses.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("failed to open options: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&opts); err != nil {
		return DefaultOptions(), fmt.Errorf("failed to parse options %s: %w", path, err)
	}
	return opts, nil
}

// SaveOptions writes options as indented JSON.
func SaveOptions(path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(opts)
}

// Provider gives read-only snapshot access to the current options.
type Provider interface {
	Snapshot() Options
}

// Store holds the current options and swaps them atomically, so every
// Snapshot is internally consistent even while a reload is in progress.
type Store struct {
	path    string
	current atomic.Pointer[Options]
	reload  sync.Mutex
}

// NewStore loads options from path. An empty path keeps the defaults.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	opts, err := LoadOptions(path)
	s.current.Store(&opts)
	if err != nil {
		return s, err
	}
	return s, nil
}

// Path returns the options file the store reloads from.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the current options.
func (s *Store) Snapshot() Options {
	o := *s.current.Load()
	o.Open.URLSchemeWhitelist = append([]string(nil), o.Open.URLSchemeWhitelist...)
	o.Open.URLSchemeBlacklist = append([]string(nil), o.Open.URLSchemeBlacklist...)
	return o
}

// Reload re-reads the options file. On error the current options stay in
// place.
func (s *Store) Reload() (Options, error) {
	s.reload.Lock()
	defer s.reload.Unlock()
	opts, err := LoadOptions(s.path)
	if err != nil {
		return s.Snapshot(), err
	}
	s.current.Store(&opts)
	return s.Snapshot(), nil
}

// Replace installs opts as the current options.
func (s *Store) Replace(opts Options) {
	s.current.Store(&opts)
}

// Update validates opts, writes them to the options file when the store has
// one, and installs them. Invalid options and write failures leave the
// current options in place.
func (s *Store) Update(opts Options) (Options, error) {
	if err := opts.Validate(); err != nil {
		return s.Snapshot(), err
	}
	s.reload.Lock()
	defer s.reload.Unlock()
	if s.path != "" {
		if err := SaveOptions(s.path, opts); err != nil {
			return s.Snapshot(), fmt.Errorf("failed to save options: %w", err)
		}
	}
	s.current.Store(&opts)
	return s.Snapshot(), nil
}
