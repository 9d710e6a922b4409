package assembly

import (
	"log"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
)

var fontFiles = map[string]string{
	fontTitle:    "TitanOne-Regular.ttf",
	fontSubtitle: "FredokaOne-Regular.ttf",
	fontBody:     "Quicksand-Regular.ttf",
	fontLegal:    "Sniglet-Regular.ttf",
}

// fontSet - 등록된 TTF 폰트. 없는 폰트는 Helvetica로 대체
type fontSet struct {
	registered map[string]bool
	translate  func(string) string
}

func registerFonts(pdf *fpdf.Fpdf, dir string) *fontSet {
	fs := &fontSet{
		registered: map[string]bool{},
		translate:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
	for name, file := range fontFiles {
		path := filepath.Join(dir, file)
		if _, err := os.Stat(path); err != nil {
			log.Printf("⚠️  [Assembly] Font file not found: %s", path)
			continue
		}
		pdf.AddUTF8Font(name, "", path)
		if pdf.Err() {
			log.Printf("❌ [Assembly] Failed to register font %s: %v", name, pdf.Error())
			pdf.ClearError()
			continue
		}
		fs.registered[name] = true
	}
	return fs
}

// use - 폰트 선택 후 출력할 문자열 반환 (core 폰트는 cp1252 변환)
func (fs *fontSet) use(pdf *fpdf.Fpdf, name string, size float64, text string) string {
	if fs.registered[name] {
		pdf.SetFont(name, "", size)
		return text
	}
	style := ""
	if name == fontTitle || name == fontSubtitle {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, size)
	return fs.translate(text)
}
