package prompt

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"knolling-factory/modules/common/config"
	"knolling-factory/modules/common/fallback"
	"knolling-factory/modules/common/model"
	"knolling-factory/modules/common/utils"
)

// Writer - 텍스트 모델 호출
type Writer interface {
	Complete(ctx context.Context, instruction string) (string, error)
}

// Options - Service 구성
type Options struct {
	Catalog    *Catalog
	StyleGuide string
	AssetsDir  string
	PageCount  int
	Targets    config.PageSet
	Writer     Writer
	Extractor  StyleExtractor
	Delay      time.Duration
}

// Service - 테마 하나에 대한 전체 프롬프트 배치 생성
type Service struct {
	opts  Options
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService - Prompt Service 생성
func NewService(opts Options) *Service {
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog()
	}
	if opts.PageCount < 2 {
		opts.PageCount = 50
	}
	return &Service{opts: opts, sleep: utils.SleepCtx}
}

// GenerateBatch - 커버를 맨 앞에 두고 전체 페이지 Work Item 반환
func (s *Service) GenerateBatch(ctx context.Context, theme string) ([]model.WorkItem, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, fmt.Errorf("theme is required")
	}

	plan := s.targetPlan()
	log.Printf("📝 [Prompt] Building %d prompts for theme %q (target: %s)", len(plan), theme, s.opts.Targets)

	brief, err := s.brief(ctx, theme)
	if err != nil {
		return nil, err
	}

	// 배치 단위 캐시
	cache := NewStyleCache(s.opts.Extractor, s.rateLimit)

	interior := make([]model.WorkItem, 0, len(plan))
	var cover *model.WorkItem
	for _, page := range plan {
		item, err := s.buildItem(ctx, theme, page, brief, cache)
		if err != nil {
			return nil, fmt.Errorf("page %d (%s): %w", page.PageNumber, page.Slot, err)
		}
		if page.Slot == model.SlotCover {
			cover = &item
			continue
		}
		interior = append(interior, item)
	}

	batch := interior
	if cover != nil {
		batch = append([]model.WorkItem{*cover}, interior...)
	}
	for i := range batch {
		batch[i].Ordinal = i
	}
	log.Printf("✅ [Prompt] %d prompts ready (%d style extractions)", len(batch), cache.Extractions())
	return batch, nil
}

// targetPlan - 대상 페이지만 남긴 page plan. 대상 밖 페이지는 프롬프트도 만들지 않음
func (s *Service) targetPlan() []PageSlot {
	plan := PagePlan(s.opts.PageCount)
	if s.opts.Targets.Unrestricted() {
		return plan
	}
	selected := plan[:0]
	for _, page := range plan {
		if s.opts.Targets.Contains(page.PageNumber) {
			selected = append(selected, page)
		}
	}
	return selected
}

func (s *Service) buildItem(ctx context.Context, theme string, page PageSlot, brief Brief, cache *StyleCache) (model.WorkItem, error) {
	spec := s.opts.Catalog.Spec(page.Slot)

	refPath := s.asset(s.opts.Catalog.StyleReferences[spec.Style])
	dna, err := cache.Get(ctx, spec.Style, refPath)
	if err != nil {
		return model.WorkItem{}, err
	}

	wireframe := s.asset(spec.Wireframe)
	body := BuildPagePrompt(PageInput{
		Series:    s.opts.Catalog.Series,
		Theme:     theme,
		Page:      page,
		Spec:      spec,
		Brief:     brief,
		StyleDNA:  dna,
		Layout:    ExtractSection(s.opts.StyleGuide, spec.Section),
		Wireframe: wireframe != "",
	})

	if s.opts.Writer != nil {
		if err := s.rateLimit(ctx); err != nil {
			return model.WorkItem{}, err
		}
		refined, err := s.opts.Writer.Complete(ctx, RefineInstruction(body, page.Slot))
		if err != nil {
			return model.WorkItem{}, fmt.Errorf("prompt refinement failed: %w", err)
		}
		if strings.TrimSpace(refined) != "" {
			body = refined
		}
	}

	item := model.WorkItem{
		Slot:       page.Slot,
		PageNumber: page.PageNumber,
		Prompt:     Finalize(body, page.Slot, s.opts.Catalog.Negative),
		Wireframe:  wireframe,
		State:      model.ItemPending,
	}
	if refPath != "" {
		item.References = []string{refPath}
	}
	return item, nil
}

// brief - 텍스트 모델로 주인공/장비 결정. 응답이 이상하면 기본값
func (s *Service) brief(ctx context.Context, theme string) (Brief, error) {
	def := DefaultBrief(theme)
	if s.opts.Writer == nil {
		return def, nil
	}
	if err := s.rateLimit(ctx); err != nil {
		return def, err
	}
	reply, err := s.opts.Writer.Complete(ctx, BriefInstruction(theme))
	if err != nil {
		if ctx.Err() != nil {
			return def, ctx.Err()
		}
		log.Printf("⚠️  [Prompt] Brief generation failed, using defaults: %v", err)
		return def, nil
	}
	return ParseBrief(reply, def), nil
}

// ParseBrief - 모델 JSON 응답 파싱
func ParseBrief(reply string, def Brief) Brief {
	m, err := fallback.DecodeLooseJSON(reply)
	if err != nil {
		log.Printf("⚠️  [Prompt] Brief reply not usable, using defaults: %v", err)
		return def
	}
	return Brief{
		MainCharacter: fallback.SafeString(m["main_character"], def.MainCharacter),
		GearObjects:   fallback.SafeStringList(m["gear_objects"], def.GearObjects),
	}
}

// asset - ASSETS_DIR 기준 경로. 파일이 없으면 빈 문자열
func (s *Service) asset(rel string) string {
	if rel == "" {
		return ""
	}
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.opts.AssetsDir, rel)
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (s *Service) rateLimit(ctx context.Context) error {
	return s.sleep(ctx, s.opts.Delay)
}
