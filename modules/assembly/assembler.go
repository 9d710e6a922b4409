package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"

	"knolling-factory/modules/common/config"
	"knolling-factory/modules/common/model"
	"knolling-factory/modules/common/utils"
)

// ErrNoPages - 조립할 페이지가 없음
var ErrNoPages = errors.New("no pages to assemble")

// Assembler - 통과한 페이지들을 인쇄용 PDF로 조립
type Assembler struct {
	outputDir string
	fontsDir  string
	debug     bool
	pageSize  float64
	now       func() time.Time
}

func NewAssembler(outputDir, fontsDir string, debug bool) *Assembler {
	if debug {
		log.Printf("🔍 [Assembly] PDF DEBUG MODE ENABLED: text renders in MAGENTA")
	}
	return &Assembler{
		outputDir: outputDir,
		fontsDir:  fontsDir,
		debug:     debug,
		pageSize:  config.PageSize,
		now:       time.Now,
	}
}

// Assemble - 이미지 레이어 → 텍스트 레이어 순으로 페이지를 쌓고 파일 경로 반환
func (a *Assembler) Assemble(ctx context.Context, theme string, pages []model.Artifact) (string, error) {
	if len(pages) == 0 {
		return "", ErrNoPages
	}
	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	doc := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "in",
		Size:    fpdf.SizeType{Wd: a.pageSize, Ht: a.pageSize},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	fonts := registerFonts(doc, a.fontsDir)

	added := 0
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		data, err := preparePage(page.Path, page.Slot.FullColor())
		if err != nil {
			log.Printf("⚠️  [Assembly] Skipping %s: %v", page.Key, err)
			continue
		}

		name := fmt.Sprintf("page_%03d", i)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		doc.AddPage()
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		doc.ImageOptions(name, 0, 0, a.pageSize, a.pageSize, false, opts, 0, "")

		a.drawOverlay(doc, fonts, overlayFor(page.Slot, theme, a.pageSize))
		if doc.Err() {
			return "", fmt.Errorf("failed to render page %s: %w", page.Key, doc.Error())
		}
		added++
		log.Printf("📄 [Assembly] Page %d/%d: %s", added, len(pages), page.Key)
	}
	if added == 0 {
		return "", fmt.Errorf("%w: none of %d pages could be loaded", ErrNoPages, len(pages))
	}

	out := filepath.Join(a.outputDir, fmt.Sprintf("Knolling_Adventure_%s_%d.pdf", utils.SafeFileName(theme), a.now().UnixNano()))
	if err := doc.OutputFileAndClose(out); err != nil {
		return "", fmt.Errorf("failed to write PDF: %w", err)
	}

	if n, err := CountPages(out); err != nil {
		return "", fmt.Errorf("failed to verify PDF: %w", err)
	} else if n != added {
		return "", fmt.Errorf("PDF has %d pages, expected %d", n, added)
	}

	log.Printf("✅ [Assembly] PDF complete: %s (%d pages)", out, added)
	return out, nil
}

func (a *Assembler) drawOverlay(doc *fpdf.Fpdf, fonts *fontSet, lines []textLine) {
	if len(lines) == 0 {
		return
	}
	if a.debug {
		doc.SetTextColor(255, 0, 255)
	} else {
		doc.SetTextColor(0, 0, 0)
	}
	for _, line := range lines {
		text := fonts.use(doc, line.Font, line.Size, line.Text)
		w := doc.GetStringWidth(text)
		doc.Text((a.pageSize-w)/2, line.Y, text)
	}
}

// CountPages - 저장된 PDF를 다시 열어 페이지 수 확인
func CountPages(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}
