package assembly

import (
	"strings"

	"knolling-factory/modules/common/model"
)

// textLine - 페이지 위에 얹는 텍스트 한 줄 (y는 위에서부터 inch)
type textLine struct {
	Font string
	Size float64
	Y    float64
	Text string
}

// 폰트 역할
const (
	fontTitle    = "TitanOne"
	fontSubtitle = "FredokaOne"
	fontBody     = "Quicksand"
	fontLegal    = "Sniglet"
)

const copyrightLine = "Copyright © 2025 by PapaBingo. All rights reserved."

// overlayFor - 슬롯별 텍스트 레이어. 커버와 action 페이지는 없음
func overlayFor(slot model.SlotType, theme string, size float64) []textLine {
	switch slot {
	case model.SlotMission:
		return []textLine{
			{fontTitle, 30, 1.0, "KNOLLING ADVENTURES"},
			{fontSubtitle, 20, size/2 - 0.5, "THIS BOOK BELONGS TO:"},
			{fontBody, 12, size - 1.5, "1. COLOR  2. OBSERVE  3. LEARN"},
		}
	case model.SlotParents:
		return []textLine{
			{fontTitle, 40, size * 0.15, "A NOTE TO PARENTS:"},
			{fontBody, 18, size * 0.40, "This book is best used with crayons or colored pencils."},
			{fontBody, 18, size*0.40 + 25.0/72, "If using MARKERS, please place a protective sheet behind the page!"},
			{fontLegal, 10, size - 0.5, copyrightLine},
		}
	case model.SlotIntro:
		return []textLine{
			{fontTitle, 30, 1.5, "ARE YOU READY TO EXPLORE?"},
			{fontTitle, 30, size - 1.5, "TURN THE PAGE TO START YOUR FIRST MISSION!"},
		}
	case model.SlotKnolling:
		caption := "THEME GEAR"
		if t := strings.TrimSpace(theme); t != "" {
			caption = strings.ToUpper(t) + " GEAR"
		}
		return []textLine{{fontTitle, 24, size - 1.0, caption}}
	case model.SlotCertificate:
		return []textLine{
			{fontTitle, 60, 2.0, "CONGRATULATIONS!"},
			{fontTitle, 45, size / 2, "OFFICIAL EXPLORER"},
		}
	}
	return nil
}
