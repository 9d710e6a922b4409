package prompt

import (
	"fmt"
	"strings"

	"knolling-factory/modules/common/model"
)

const (
	lineArtRule = "CRITICAL: The Wireframe contains COLORED ZONES (red and green blocks). " +
		"They only mark where objects and text space go. Do NOT reproduce those colors. " +
		"Render everything as pure BLACK & WHITE line art: thick clean outlines, white fills, no shading, no gray."
	fullColorRule = "Output full color: vibrant, print-ready cover art with clean shapes. " +
		"The wireframe zones only mark layout, do not paint the zone colors."
)

// Brief - 테마별 주인공/장비
type Brief struct {
	MainCharacter string   `json:"main_character"`
	GearObjects   []string `json:"gear_objects"`
}

// DefaultBrief - 모델 없이 테마만으로 만든 기본 brief
func DefaultBrief(theme string) Brief {
	return Brief{
		MainCharacter: fmt.Sprintf("a cheerful young %s explorer", theme),
		GearObjects: []string{
			theme + " helmet", theme + " badge", "backpack", "flashlight", "map", "water bottle",
		},
	}
}

// PageInput - 프롬프트 한 장을 만드는 재료
type PageInput struct {
	Series    string
	Theme     string
	Page      PageSlot
	Spec      SlotSpec
	Brief     Brief
	StyleDNA  string
	Layout    string
	Wireframe bool
}

// BuildPagePrompt - 슬롯 프롬프트 본문 (색상 규칙 제외)
func BuildPagePrompt(in PageInput) string {
	fill := strings.NewReplacer(
		"{theme}", in.Theme,
		"{character}", in.Brief.MainCharacter,
		"{gear}", strings.Join(in.Brief.GearObjects, ", "),
	)

	var b strings.Builder
	fmt.Fprintf(&b, "%s coloring book, theme %q, %s page (page %d).\n",
		in.Series, in.Theme, in.Page.Slot, in.Page.PageNumber)
	b.WriteString("SCENE: ")
	b.WriteString(fill.Replace(strings.TrimSpace(in.Spec.Brief)))
	b.WriteString("\n")
	if in.StyleDNA != "" {
		b.WriteString("STYLE DNA (match this visual language): ")
		b.WriteString(strings.TrimSpace(in.StyleDNA))
		b.WriteString("\n")
	}
	if in.Layout != "" {
		b.WriteString("LAYOUT SPEC:\n")
		b.WriteString(in.Layout)
		b.WriteString("\n")
	}
	if in.Wireframe {
		b.WriteString("Follow the attached wireframe layout exactly, keep every zone in place.\n")
	}
	b.WriteString("Square 1:1 composition, safe margins on all sides.")
	return b.String()
}

// ColorRule - 슬롯별 색상 규칙
func ColorRule(slot model.SlotType) string {
	if slot.FullColor() {
		return fullColorRule
	}
	return lineArtRule
}

// Finalize - 색상 규칙과 negative prompt를 붙여 최종 프롬프트 생성
func Finalize(body string, slot model.SlotType, negative string) string {
	out := strings.TrimSpace(body) + "\n\n" + ColorRule(slot)
	if !slot.FullColor() && strings.TrimSpace(negative) != "" {
		out += "\n--negative_prompt " + strings.Join(strings.Fields(negative), " ")
	}
	return out
}

// RefineInstruction - 텍스트 모델에게 프롬프트 다듬기를 요청하는 지시문
func RefineInstruction(body string, slot model.SlotType) string {
	return "You are the executive creative director of a children's coloring book series.\n" +
		"Rewrite the draft below into ONE vivid, concrete image generation prompt. " +
		"Keep every layout and style requirement. Do not add text to the image.\n" +
		ColorRule(slot) + "\n" +
		"Return only the prompt.\n\nDRAFT:\n" + body
}

// BriefInstruction - 테마 brief 요청 지시문
func BriefInstruction(theme string) string {
	return fmt.Sprintf("Plan a children's knolling coloring book with the theme %q.\n"+
		"Reply with JSON only: {\"main_character\": string, \"gear_objects\": [6 to 8 short object names]}.\n"+
		"Objects must be simple, recognizable and safe for kids.", theme)
}
