package prompt

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"knolling-factory/modules/common/model"
)

//go:embed page_catalog.yaml
var defaultCatalogYAML []byte

// SlotSpec - 슬롯별 프롬프트 재료
type SlotSpec struct {
	Section   string `yaml:"section"`
	Wireframe string `yaml:"wireframe"`
	Style     string `yaml:"style"`
	Brief     string `yaml:"brief"`
}

// Catalog - 시리즈 전체 페이지 카탈로그
type Catalog struct {
	Series          string                      `yaml:"series"`
	Negative        string                      `yaml:"negative"`
	StyleReferences map[string]string           `yaml:"style_references"`
	Slots           map[model.SlotType]SlotSpec `yaml:"slots"`
}

// ParseCatalog - YAML 파싱 + 필수 슬롯 검증
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse page catalog: %w", err)
	}
	for _, slot := range []model.SlotType{
		model.SlotCover, model.SlotMission, model.SlotParents, model.SlotIntro,
		model.SlotKnolling, model.SlotAction, model.SlotCertificate,
	} {
		spec, ok := c.Slots[slot]
		if !ok || strings.TrimSpace(spec.Brief) == "" {
			return nil, fmt.Errorf("page catalog is missing slot %q", slot)
		}
	}
	return &c, nil
}

// DefaultCatalog - 내장 카탈로그
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog - 파일이 있으면 파일, 없으면 내장 카탈로그
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read page catalog: %w", err)
	}
	log.Printf("📖 [Prompt] Using page catalog %s", path)
	return ParseCatalog(data)
}

// Spec - 슬롯 스펙 (없는 슬롯은 action 스펙으로 대체)
func (c *Catalog) Spec(slot model.SlotType) SlotSpec {
	if spec, ok := c.Slots[slot]; ok {
		return spec
	}
	return c.Slots[model.SlotAction]
}

// PageSlot - 페이지 번호와 슬롯
type PageSlot struct {
	Slot       model.SlotType
	PageNumber int
}

// PagePlan - 커버(1), 미션, 부모 안내, 인트로, 이후 knolling/action 교차, 마지막은 수료증
func PagePlan(pageCount int) []PageSlot {
	if pageCount < 2 {
		pageCount = 2
	}
	fixed := []model.SlotType{model.SlotMission, model.SlotParents, model.SlotIntro}

	plan := []PageSlot{{Slot: model.SlotCover, PageNumber: 1}}
	for page := 2; page < pageCount; page++ {
		slot := model.SlotKnolling
		switch {
		case page-2 < len(fixed):
			slot = fixed[page-2]
		case (page-5)%2 == 1:
			slot = model.SlotAction
		}
		plan = append(plan, PageSlot{Slot: slot, PageNumber: page})
	}
	return append(plan, PageSlot{Slot: model.SlotCertificate, PageNumber: pageCount})
}
