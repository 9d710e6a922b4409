package imagegen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"knolling-factory/modules/common/model"
)

type fakeBackend struct {
	data []byte
	err  error
	reqs []Request
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Render(ctx context.Context, req Request) ([]byte, error) {
	b.reqs = append(b.reqs, req)
	return b.data, b.err
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestClient(t *testing.T, b Backend) (*Client, *[]time.Duration) {
	t.Helper()
	c, err := NewClient(b, filepath.Join(t.TempDir(), "temp"), 20*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	c.now = func() time.Time { return time.Unix(0, 42) }
	return c, &waits
}

func TestGenerateSavesPNG(t *testing.T) {
	backend := &fakeBackend{data: testPNG(t)}
	c, waits := newTestClient(t, backend)

	dir := t.TempDir()
	wire := filepath.Join(dir, "wire.png")
	if err := os.WriteFile(wire, testPNG(t), 0o644); err != nil {
		t.Fatal(err)
	}
	item := model.WorkItem{
		Key: "knolling_05", Slot: model.SlotKnolling, PageNumber: 5, Prompt: "draw gear",
		Wireframe: wire, References: []string{filepath.Join(dir, "missing.png")},
	}

	path, err := c.Generate(context.Background(), item, "Fire Fighter!")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if want := "Fire_Fighter_Page05_42.png"; filepath.Base(path) != want {
		t.Fatalf("file = %s, want %s", filepath.Base(path), want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 20*time.Second {
		t.Fatalf("waits = %v", *waits)
	}

	req := backend.reqs[0]
	if req.Prompt != "draw gear" || len(req.Wireframe) == 0 || len(req.References) != 0 {
		t.Fatalf("request = prompt %q wireframe %d refs %d", req.Prompt, len(req.Wireframe), len(req.References))
	}
}

func TestGenerateCoverLabel(t *testing.T) {
	c, _ := newTestClient(t, &fakeBackend{data: testPNG(t)})
	path, err := c.Generate(context.Background(), model.WorkItem{Slot: model.SlotCover, PageNumber: 1}, "Chef")
	if err != nil {
		t.Fatal(err)
	}
	if !regexp.MustCompile(`^Chef_Cover_\d+\.png$`).MatchString(filepath.Base(path)) {
		t.Fatalf("file = %s", filepath.Base(path))
	}
}

func TestGenerateConvertsJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	c, _ := newTestClient(t, &fakeBackend{data: buf.Bytes()})

	path, err := c.Generate(context.Background(), model.WorkItem{Slot: model.SlotAction, PageNumber: 6}, "Chef")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("saved file is not PNG: %v", err)
	}
}

func TestGenerateNoImage(t *testing.T) {
	c, _ := newTestClient(t, &fakeBackend{})
	_, err := c.Generate(context.Background(), model.WorkItem{Slot: model.SlotAction, PageNumber: 6}, "Chef")
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateBackendError(t *testing.T) {
	c, _ := newTestClient(t, &fakeBackend{err: errors.New("503 unavailable")})
	_, err := c.Generate(context.Background(), model.WorkItem{Slot: model.SlotAction, PageNumber: 6}, "Chef")
	if err == nil || !strings.Contains(err.Error(), "Page06") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateCancelledBeforeCall(t *testing.T) {
	backend := &fakeBackend{data: testPNG(t)}
	c, _ := newTestClient(t, backend)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Generate(ctx, model.WorkItem{Slot: model.SlotAction}, "Chef"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(backend.reqs) != 0 {
		t.Fatal("backend should not be called after cancellation")
	}
}

func TestBuildPartsOrder(t *testing.T) {
	parts := buildParts(Request{Prompt: "p", Wireframe: []byte{1}, References: [][]byte{{2}, {3}}})
	if len(parts) != 7 {
		t.Fatalf("parts = %d", len(parts))
	}
	if !strings.HasPrefix(parts[0].Text, "WIREFRAME REFERENCE") || parts[1].InlineData == nil {
		t.Fatalf("wireframe must come first")
	}
	if !strings.HasPrefix(parts[2].Text, "STYLE REFERENCE") || parts[3].InlineData.Data[0] != 2 {
		t.Fatalf("style reference order wrong")
	}
	if parts[6].Text != "p" {
		t.Fatalf("prompt must be last, got %q", parts[6].Text)
	}
}

func TestImagenPrompt(t *testing.T) {
	if got := imagenPrompt(Request{Prompt: "p"}); got != "p" {
		t.Fatalf("got %q", got)
	}
	got := imagenPrompt(Request{Prompt: "p", Wireframe: []byte{1}})
	if !strings.HasPrefix(got, "CRITICAL INSTRUCTION: Follow the structural layout EXACTLY") || !strings.HasSuffix(got, "p") {
		t.Fatalf("got %q", got)
	}
}
