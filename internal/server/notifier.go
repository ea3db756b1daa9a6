package server

import (
	"context"

	"github.com/ironsheep/barcode-mcp/internal/badge"
	"github.com/ironsheep/barcode-mcp/internal/dispatch"
)

// Notification methods sent to the client.
const (
	MethodOpen  = "notifications/barcode/open"
	MethodCopy  = "notifications/barcode/copy"
	MethodBadge = "notifications/barcode/badge"
)

// BadgeParams is the payload of a badge notification.
type BadgeParams struct {
	State string `json:"state"`
	Count int    `json:"count"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Notifier hands open, copy and badge actions to the MCP client as
// notifications. It serves as dispatch.OpenSurface, dispatch.CopySurface and
// badge.Indicator when the client owns the browser and clipboard.
type Notifier struct {
	out *Transport
}

// NewNotifier creates a Notifier writing through out.
func NewNotifier(out *Transport) *Notifier {
	return &Notifier{out: out}
}

// Open sends one open request.
func (n *Notifier) Open(ctx context.Context, req dispatch.OpenRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.out.Notify(MethodOpen, req)
}

// Ensure is a no-op: the client's clipboard is always reachable while the
// transport is.
func (n *Notifier) Ensure(ctx context.Context) error {
	return ctx.Err()
}

// Copy sends the whole copy sequence. The client paces the writes.
func (n *Notifier) Copy(ctx context.Context, req dispatch.CopyRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.out.Notify(MethodCopy, req)
}

// Show sends the badge visual.
func (n *Notifier) Show(ctx context.Context, b badge.Badge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.out.Notify(MethodBadge, BadgeParams{
		State: b.State.Kind.String(),
		Count: b.State.Count,
		Text:  b.Text,
		Color: b.Hex(),
	})
}

var (
	_ dispatch.OpenSurface = (*Notifier)(nil)
	_ dispatch.CopySurface = (*Notifier)(nil)
	_ badge.Indicator      = (*Notifier)(nil)
)
