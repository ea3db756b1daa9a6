// Package policy decides which decoded payloads reach which destination and in
// what order.
//
// The open and copy destinations are planned independently over the same
// decode-ordered payload list: reorder by behavior, keep URL-eligible payloads
// (open only), then truncate to the configured maximum.
package policy

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidPolicy is returned when a policy carries a value outside its
// closed set (unknown behavior or target, non-positive max count, negative
// interval). A cycle that hits it must not dispatch anything.
var ErrInvalidPolicy = errors.New("invalid policy value")

// Order is the destination-independent reorder rule.
type Order int

const (
	OrderFirst Order = iota
	OrderLast
	OrderAll
	OrderAllReverse
)

// OpenBehavior selects which decoded URLs are opened.
type OpenBehavior string

const (
	OpenFirst      OpenBehavior = "open-first"
	OpenLast       OpenBehavior = "open-last"
	OpenAll        OpenBehavior = "open-all"
	OpenAllReverse OpenBehavior = "open-all-reverse"
)

// Order maps the behavior onto its reorder rule.
func (b OpenBehavior) Order() (Order, error) {
	switch b {
	case OpenFirst:
		return OrderFirst, nil
	case OpenLast:
		return OrderLast, nil
	case OpenAll:
		return OrderAll, nil
	case OpenAllReverse:
		return OrderAllReverse, nil
	default:
		return 0, fmt.Errorf("%w: open behavior %q", ErrInvalidPolicy, string(b))
	}
}

// OpenTarget selects how opened URLs are grouped into tabs and windows.
type OpenTarget string

const (
	OneTabEach    OpenTarget = "one-tab-each"
	OneWindowEach OpenTarget = "one-window-each"
	OneWindowAll  OpenTarget = "one-window-all"
)

// Validate reports whether the target is one of the known values.
func (t OpenTarget) Validate() error {
	switch t {
	case OneTabEach, OneWindowEach, OneWindowAll:
		return nil
	default:
		return fmt.Errorf("%w: open target %q", ErrInvalidPolicy, string(t))
	}
}

// CopyBehavior selects which decoded payloads are copied.
type CopyBehavior string

const (
	CopyFirst      CopyBehavior = "copy-first"
	CopyLast       CopyBehavior = "copy-last"
	CopyAll        CopyBehavior = "copy-all"
	CopyAllReverse CopyBehavior = "copy-all-reverse"
)

// Order maps the behavior onto its reorder rule.
func (b CopyBehavior) Order() (Order, error) {
	switch b {
	case CopyFirst:
		return OrderFirst, nil
	case CopyLast:
		return OrderLast, nil
	case CopyAll:
		return OrderAll, nil
	case CopyAllReverse:
		return OrderAllReverse, nil
	default:
		return 0, fmt.Errorf("%w: copy behavior %q", ErrInvalidPolicy, string(b))
	}
}

// OpenPolicy configures the "open as URL" destination.
type OpenPolicy struct {
	Enabled            bool         `json:"enabled"`
	URLSchemeWhitelist []string     `json:"url_scheme_whitelist"`
	URLSchemeBlacklist []string     `json:"url_scheme_blacklist"`
	ChangeFocus        bool         `json:"change_focus"`
	Target             OpenTarget   `json:"target"`
	Behavior           OpenBehavior `json:"behavior"`
	MaxCount           int          `json:"max_count"`
}

// Validate checks every enumerated and bounded field.
func (p OpenPolicy) Validate() error {
	if _, err := p.Behavior.Order(); err != nil {
		return err
	}
	if err := p.Target.Validate(); err != nil {
		return err
	}
	if p.MaxCount < 1 {
		return fmt.Errorf("%w: open max count %d", ErrInvalidPolicy, p.MaxCount)
	}
	return nil
}

// CopyPolicy configures the clipboard destination.
type CopyPolicy struct {
	Enabled    bool         `json:"enabled"`
	Behavior   CopyBehavior `json:"behavior"`
	IntervalMs int          `json:"interval_ms"`
	MaxCount   int          `json:"max_count"`
}

// Validate checks every enumerated and bounded field.
func (p CopyPolicy) Validate() error {
	if _, err := p.Behavior.Order(); err != nil {
		return err
	}
	if p.IntervalMs < 0 {
		return fmt.Errorf("%w: copy interval %d", ErrInvalidPolicy, p.IntervalMs)
	}
	if p.MaxCount < 1 {
		return fmt.Errorf("%w: copy max count %d", ErrInvalidPolicy, p.MaxCount)
	}
	return nil
}

// Reorder returns a new slice arranged by order. First and last always refer
// to the decode order of items, never to a reversed sequence. The input is
// not modified.
func Reorder[T any](items []T, order Order) []T {
	if len(items) == 0 {
		return []T{}
	}
	switch order {
	case OrderFirst:
		return []T{items[0]}
	case OrderLast:
		return []T{items[len(items)-1]}
	case OrderAllReverse:
		out := make([]T, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return out
	default:
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
}

// Truncate returns at most max leading items of items.
func Truncate[T any](items []T, max int) []T {
	if max < 0 {
		max = 0
	}
	if len(items) <= max {
		return items
	}
	return items[:max]
}

// NormalizeScheme lowercases a scheme list entry and strips a trailing colon,
// so "HTTPS:" and "https" compare equal.
func NormalizeScheme(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ":")
}

// URLScheme parses raw as an absolute URL and returns its lowercase scheme.
// ok is false for strings that do not parse or carry no scheme.
func URLScheme(raw string) (scheme string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme), true
}

// IsEligible reports whether raw may be opened under the scheme lists: with a
// non-empty whitelist the scheme must be listed, otherwise it must not be
// blacklisted. Unparseable strings are never eligible.
func IsEligible(raw string, whitelist, blacklist []string) bool {
	scheme, ok := URLScheme(raw)
	if !ok {
		return false
	}
	if len(whitelist) > 0 {
		return containsScheme(whitelist, scheme)
	}
	return !containsScheme(blacklist, scheme)
}

func containsScheme(list []string, scheme string) bool {
	for _, s := range list {
		if NormalizeScheme(s) == scheme {
			return true
		}
	}
	return false
}

// FilterEligible keeps the URL-eligible payloads in order and truncates the
// result to max. It is idempotent: applying it to its own output returns the
// same list.
func FilterEligible(payloads []string, whitelist, blacklist []string, max int) []string {
	out := make([]string, 0, len(payloads))
	for _, p := range payloads {
		if len(out) >= max {
			break
		}
		if IsEligible(p, whitelist, blacklist) {
			out = append(out, p)
		}
	}
	return out
}

// PlanOpen returns the ordered URLs to open. A disabled policy or empty input
// yields an empty plan. Invalid policy values return ErrInvalidPolicy even
// when there is nothing to open.
func PlanOpen(payloads []string, p OpenPolicy) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.Enabled || len(payloads) == 0 {
		return []string{}, nil
	}
	order, _ := p.Behavior.Order()
	return FilterEligible(Reorder(payloads, order), p.URLSchemeWhitelist, p.URLSchemeBlacklist, p.MaxCount), nil
}

// PlanCopy returns the ordered payloads to copy.
func PlanCopy(payloads []string, p CopyPolicy) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.Enabled || len(payloads) == 0 {
		return []string{}, nil
	}
	order, _ := p.Behavior.Order()
	return Truncate(Reorder(payloads, order), p.MaxCount), nil
}
