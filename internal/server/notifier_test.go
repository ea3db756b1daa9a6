package server

import (
	"bytes"
	"context"
	"testing"

	"github.com/ironsheep/barcode-mcp/internal/badge"
	"github.com/ironsheep/barcode-mcp/internal/dispatch"
	"github.com/ironsheep/barcode-mcp/internal/policy"
)

func TestNotifier_Open(t *testing.T) {
	var out bytes.Buffer
	n := NewNotifier(NewTransport(&out))

	err := n.Open(context.Background(), dispatch.OpenRequest{
		Target: policy.OneWindowAll,
		Items:  []dispatch.OpenItem{{Payload: "https://a.example"}, {Payload: "https://b.example"}},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	msgs := decodeLines(t, &out)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0]["method"] != MethodOpen {
		t.Errorf("method: got %v", msgs[0]["method"])
	}
	params := msgs[0]["params"].(map[string]interface{})
	if params["target"] != "one-window-all" {
		t.Errorf("target: got %v", params["target"])
	}
	if items := params["items"].([]interface{}); len(items) != 2 {
		t.Errorf("items: got %d", len(items))
	}
}

func TestNotifier_Copy(t *testing.T) {
	var out bytes.Buffer
	n := NewNotifier(NewTransport(&out))
	ctx := context.Background()

	if err := n.Ensure(ctx); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := n.Copy(ctx, dispatch.CopyRequest{Items: []string{"x", "y"}, IntervalMs: 300, MaxCount: 5}); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	msgs := decodeLines(t, &out)
	if len(msgs) != 1 || msgs[0]["method"] != MethodCopy {
		t.Fatalf("got %v", msgs)
	}
	params := msgs[0]["params"].(map[string]interface{})
	if params["interval_ms"] != float64(300) || params["max_count"] != float64(5) {
		t.Errorf("params: %v", params)
	}
}

func TestNotifier_Badge(t *testing.T) {
	var out bytes.Buffer
	n := NewNotifier(NewTransport(&out))

	b := badge.Visual(badge.State{Kind: badge.Complete, Count: 3})
	if err := n.Show(context.Background(), b); err != nil {
		t.Fatalf("Show: %v", err)
	}

	msgs := decodeLines(t, &out)
	if len(msgs) != 1 || msgs[0]["method"] != MethodBadge {
		t.Fatalf("got %v", msgs)
	}
	params := msgs[0]["params"].(map[string]interface{})
	if params["state"] != "complete" || params["count"] != float64(3) || params["text"] != "3" {
		t.Errorf("params: %v", params)
	}
	if params["color"] != b.Hex() {
		t.Errorf("color: got %v, want %s", params["color"], b.Hex())
	}
}

func TestNotifier_CanceledContext(t *testing.T) {
	var out bytes.Buffer
	n := NewNotifier(NewTransport(&out))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := n.Open(ctx, dispatch.OpenRequest{}); err == nil {
		t.Error("Open: expected error")
	}
	if err := n.Copy(ctx, dispatch.CopyRequest{}); err == nil {
		t.Error("Copy: expected error")
	}
	if err := n.Show(ctx, badge.Badge{}); err == nil {
		t.Error("Show: expected error")
	}
	if out.Len() != 0 {
		t.Errorf("wrote %q after cancel", out.String())
	}
}
