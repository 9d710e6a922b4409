package assembly

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"knolling-factory/modules/common/model"
)

func writePage(t *testing.T, dir, name string, fill color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, fill)
		}
	}
	img.Set(16, 16, color.RGBA{R: 250, G: 10, B: 10, A: 255})
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestAssembler(t *testing.T) *Assembler {
	t.Helper()
	a := NewAssembler(filepath.Join(t.TempDir(), "output"), filepath.Join(t.TempDir(), "fonts"), false)
	a.now = func() time.Time { return time.Unix(1700000000, 0) }
	return a
}

func TestMaskZones(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	img.Set(1, 0, color.RGBA{R: 20, G: 230, B: 40, A: 255})
	img.Set(2, 0, color.RGBA{R: 0, G: 0, B: 0, A: 255})
	img.Set(3, 0, color.RGBA{R: 120, G: 60, B: 200, A: 255})

	out := MaskZones(img)
	if out.GrayAt(0, 0).Y <= 250 || out.GrayAt(1, 0).Y <= 250 {
		t.Fatalf("zone pixels not whitened: %v %v", out.GrayAt(0, 0), out.GrayAt(1, 0))
	}
	if out.GrayAt(2, 0).Y != 0 {
		t.Fatalf("black line changed: %v", out.GrayAt(2, 0))
	}
	if y := out.GrayAt(3, 0).Y; y == 255 || y == 0 {
		t.Fatalf("non-zone color should become a mid gray, got %d", y)
	}
}

func TestAssembleWritesVerifiedPDF(t *testing.T) {
	dir := t.TempDir()
	pages := []model.Artifact{
		{Key: "cover", Slot: model.SlotCover, PageNumber: 1, Path: writePage(t, dir, "cover.png", color.White)},
		{Key: "knolling", Slot: model.SlotKnolling, PageNumber: 5, Path: writePage(t, dir, "knolling.png", color.White)},
		{Key: "action", Slot: model.SlotAction, PageNumber: 6, Path: writePage(t, dir, "action.png", color.White)},
	}
	a := newTestAssembler(t)

	out, err := a.Assemble(context.Background(), "Fire Fighter", pages)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if filepath.Base(out) != "Knolling_Adventure_Fire_Fighter_1700000000000000000.pdf" {
		t.Fatalf("output = %s", out)
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		t.Fatalf("pdf missing or empty: %v", err)
	}
	n, err := CountPages(out)
	if err != nil || n != 3 {
		t.Fatalf("pages = %d, %v", n, err)
	}
}

func TestAssembleSameThemeWithinOneSecond(t *testing.T) {
	dir := t.TempDir()
	pages := []model.Artifact{
		{Key: "cover", Slot: model.SlotCover, PageNumber: 1, Path: writePage(t, dir, "cover.png", color.White)},
	}
	a := newTestAssembler(t)
	tick := time.Unix(1700000000, 0)
	a.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	first, err := a.Assemble(context.Background(), "Ocean", pages)
	if err != nil {
		t.Fatalf("first Assemble: %v", err)
	}
	second, err := a.Assemble(context.Background(), "Ocean", pages)
	if err != nil {
		t.Fatalf("second Assemble: %v", err)
	}
	if first == second {
		t.Fatalf("runs in the same second share %s", first)
	}
	for _, out := range []string{first, second} {
		if _, err := os.Stat(out); err != nil {
			t.Fatalf("%s: %v", out, err)
		}
	}
}

func TestAssembleSkipsUnusablePages(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(broken, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	pages := []model.Artifact{
		{Key: "mission", Slot: model.SlotMission, Path: writePage(t, dir, "mission.png", color.White)},
		{Key: "missing", Slot: model.SlotAction, Path: filepath.Join(dir, "missing.png")},
		{Key: "broken", Slot: model.SlotAction, Path: broken},
		{Key: "certificate", Slot: model.SlotCertificate, Path: writePage(t, dir, "cert.png", color.White)},
	}

	out, err := newTestAssembler(t).Assemble(context.Background(), "Chef", pages)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if n, err := CountPages(out); err != nil || n != 2 {
		t.Fatalf("pages = %d, %v", n, err)
	}
}

func TestAssembleDebugMode(t *testing.T) {
	dir := t.TempDir()
	a := newTestAssembler(t)
	a.debug = true
	pages := []model.Artifact{
		{Key: "parents", Slot: model.SlotParents, Path: writePage(t, dir, "parents.png", color.White)},
	}
	if _, err := a.Assemble(context.Background(), "Chef", pages); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
}

func TestAssembleNoPages(t *testing.T) {
	a := newTestAssembler(t)
	if _, err := a.Assemble(context.Background(), "Chef", nil); !errors.Is(err, ErrNoPages) {
		t.Fatalf("err = %v", err)
	}
	pages := []model.Artifact{{Key: "gone", Slot: model.SlotAction, Path: filepath.Join(t.TempDir(), "gone.png")}}
	if _, err := a.Assemble(context.Background(), "Chef", pages); !errors.Is(err, ErrNoPages) {
		t.Fatalf("err = %v", err)
	}
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pages := []model.Artifact{{Key: "cover", Slot: model.SlotCover, Path: writePage(t, t.TempDir(), "c.png", color.White)}}
	if _, err := newTestAssembler(t).Assemble(ctx, "Chef", pages); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestOverlayFor(t *testing.T) {
	size := 8.75
	if lines := overlayFor(model.SlotCover, "Chef", size); lines != nil {
		t.Fatalf("cover overlay = %v", lines)
	}
	if lines := overlayFor(model.SlotAction, "Chef", size); lines != nil {
		t.Fatalf("action overlay = %v", lines)
	}
	if lines := overlayFor(model.SlotKnolling, "space pirate", size); len(lines) != 1 || lines[0].Text != "SPACE PIRATE GEAR" {
		t.Fatalf("knolling overlay = %v", lines)
	}

	parents := overlayFor(model.SlotParents, "Chef", size)
	if len(parents) != 4 || !strings.HasPrefix(parents[3].Text, "Copyright ©") {
		t.Fatalf("parents overlay = %v", parents)
	}
	for _, slot := range []model.SlotType{model.SlotMission, model.SlotParents, model.SlotIntro, model.SlotKnolling, model.SlotCertificate} {
		for _, line := range overlayFor(slot, "Chef", size) {
			if line.Y <= 0 || line.Y >= size {
				t.Fatalf("%s line %q outside page: %.2f", slot, line.Text, line.Y)
			}
		}
	}
}
