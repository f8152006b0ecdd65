package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/topthumb/internal/ipc"
	"github.com/1broseidon/topthumb/internal/runtimepath"
)

type fakePreview struct {
	status  ipc.StatusData
	down    bool
	resets  int
	crops   []ipc.CropPayload
	cropErr error
}

func (p *fakePreview) GetStatus() (*ipc.StatusData, error) {
	if p.down {
		return nil, errors.New("failed to connect to preview")
	}
	st := p.status
	return &st, nil
}

func (p *fakePreview) ResetCrop() error {
	p.resets++
	p.status.Phase = "idle"
	return nil
}

func (p *fakePreview) Crop(crop ipc.CropPayload) error {
	if p.cropErr != nil {
		return p.cropErr
	}
	p.crops = append(p.crops, crop)
	p.status.Phase = "completed"
	return nil
}

func newTestServer(t *testing.T, previews map[int]*fakePreview) *Server {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	s := NewServer(nil)
	s.listInstances = func() ([]runtimepath.Instance, error) {
		var out []runtimepath.Instance
		for _, pid := range []int{100, 200, 300} {
			if _, ok := previews[pid]; ok {
				out = append(out, runtimepath.Instance{PID: pid, Socket: socketName(pid)})
			}
		}
		return out, nil
	}
	s.dial = func(socketPath string) PreviewClient {
		for pid, p := range previews {
			if strings.HasSuffix(socketPath, socketSuffix(pid)) {
				return p
			}
		}
		return &fakePreview{down: true}
	}
	return s
}

func socketSuffix(pid int) string {
	return "topthumb-" + strconv.Itoa(pid) + ".sock"
}

func socketName(pid int) string {
	return "/run/test/" + socketSuffix(pid)
}

func connect(t *testing.T, s *Server) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	if _, err := s.mcpServer.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcpsdk.ClientSession, name string, args map[string]any, out any) *mcpsdk.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		if err != nil {
			t.Fatalf("marshal structured content: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("unmarshal structured content: %v", err)
		}
	}
	return res
}

func errorText(res *mcpsdk.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func TestListPreviews_ReportsRunningAndStale(t *testing.T) {
	s := newTestServer(t, map[int]*fakePreview{
		100: {status: ipc.StatusData{PID: 1, Title: "build log", Phase: "idle"}},
		200: {down: true},
	})
	cs := connect(t, s)

	var out ListPreviewsOutput
	res := callTool(t, cs, "list_previews", map[string]any{}, &out)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", errorText(res))
	}
	if len(out.Previews) != 2 {
		t.Fatalf("expected 2 previews, got %+v", out.Previews)
	}
	if !out.Previews[0].Running || out.Previews[0].Title != "build log" {
		t.Fatalf("unexpected first preview: %+v", out.Previews[0])
	}
	if out.Previews[1].Running || out.Previews[1].Error == "" {
		t.Fatalf("expected second preview to be stale: %+v", out.Previews[1])
	}
}

func TestGetPreviewStatus_DefaultsToOnlyRunning(t *testing.T) {
	s := newTestServer(t, map[int]*fakePreview{
		100: {down: true},
		200: {status: ipc.StatusData{PID: 9, Phase: "completed", Source: ipc.RectData{Left: 20, Top: 20, Right: 100, Bottom: 100}}},
	})
	cs := connect(t, s)

	var out PreviewStatusOutput
	res := callTool(t, cs, "get_preview_status", map[string]any{}, &out)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", errorText(res))
	}
	if out.Status.Phase != "completed" || out.Status.Source.Right != 100 {
		t.Fatalf("unexpected status: %+v", out)
	}
}

func TestGetPreviewStatus_AmbiguousWithoutPID(t *testing.T) {
	s := newTestServer(t, map[int]*fakePreview{
		100: {status: ipc.StatusData{Phase: "idle"}},
		300: {status: ipc.StatusData{Phase: "idle"}},
	})
	cs := connect(t, s)

	res := callTool(t, cs, "get_preview_status", map[string]any{}, nil)
	if !res.IsError || !strings.Contains(errorText(res), "pass pid") {
		t.Fatalf("expected ambiguity error, got %+v", res)
	}

	var out PreviewStatusOutput
	res = callTool(t, cs, "get_preview_status", map[string]any{"pid": 300}, &out)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", errorText(res))
	}
}

func TestCropAndReset(t *testing.T) {
	p := &fakePreview{status: ipc.StatusData{Phase: "idle"}}
	s := newTestServer(t, map[int]*fakePreview{100: p})
	cs := connect(t, s)

	var out PreviewStatusOutput
	res := callTool(t, cs, "crop_preview", map[string]any{"left": 10, "top": 10, "right": 50, "bottom": 50}, &out)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", errorText(res))
	}
	if out.Status.Phase != "completed" || len(p.crops) != 1 || p.crops[0] != (ipc.CropPayload{Left: 10, Top: 10, Right: 50, Bottom: 50}) {
		t.Fatalf("unexpected crop result: %+v crops=%+v", out, p.crops)
	}

	res = callTool(t, cs, "reset_crop", map[string]any{"pid": 100}, &out)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", errorText(res))
	}
	if out.Status.Phase != "idle" || p.resets != 1 {
		t.Fatalf("unexpected reset result: %+v resets=%d", out, p.resets)
	}
}

func TestCropPreview_Errors(t *testing.T) {
	p := &fakePreview{cropErr: errors.New("preview error: Failed to crop: crop gesture not idle: completed")}
	s := newTestServer(t, map[int]*fakePreview{100: p})
	cs := connect(t, s)

	res := callTool(t, cs, "crop_preview", map[string]any{"left": 10, "top": 10, "right": 10, "bottom": 50}, nil)
	if !res.IsError || !strings.Contains(errorText(res), "zero area") {
		t.Fatalf("expected zero area error, got %+v", res)
	}

	res = callTool(t, cs, "crop_preview", map[string]any{"left": 0, "top": 0, "right": 10, "bottom": 10}, nil)
	if !res.IsError || !strings.Contains(errorText(res), "not idle") {
		t.Fatalf("expected preview error, got %+v", res)
	}
}

func TestResolve_NoPreviews(t *testing.T) {
	s := newTestServer(t, map[int]*fakePreview{})
	if _, err := s.resolve(0); err == nil {
		t.Fatalf("expected error with no previews")
	}
}
