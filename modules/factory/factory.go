package factory

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"knolling-factory/modules/assembly"
	"knolling-factory/modules/common/config"
	"knolling-factory/modules/common/database"
	"knolling-factory/modules/common/gemini"
	"knolling-factory/modules/common/storage"
	"knolling-factory/modules/common/vertexai"
	"knolling-factory/modules/coordinator"
	"knolling-factory/modules/imagegen"
	"knolling-factory/modules/prompt"
	"knolling-factory/modules/qa"
	"knolling-factory/modules/tracking"
)

// App - 설정으로 조립된 Coordinator와 정리 함수
type App struct {
	Coordinator *coordinator.Coordinator
	Database    *database.Client

	closers []func()
}

// Close - 외부 클라이언트 정리
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Build - 티어/QA/저장소 전략을 고르고 Coordinator 생성
func Build(ctx context.Context, cfg *config.Config, opts ...coordinator.Option) (*App, error) {
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	log.Println(cfg.StatusMessage())

	keys := cfg.APIKeys()
	pool, err := gemini.NewPool(keys)
	if err != nil {
		return nil, fmt.Errorf("gemini pool: %w", err)
	}

	prompts, err := buildPrompts(cfg, keys, app)
	if err != nil {
		return nil, err
	}

	generator, err := imagegen.NewClient(imageBackend(cfg, pool), cfg.TempDir, cfg.ImageDelay)
	if err != nil {
		return nil, err
	}

	evaluator, err := buildEvaluator(ctx, cfg, pool, app)
	if err != nil {
		return nil, err
	}

	deps := coordinator.Dependencies{
		Prompts:   prompts,
		Generator: generator,
		Gate:      qa.NewGate(evaluator, cfg.QADelay),
		Assembler: assembly.NewAssembler(cfg.OutputDir, cfg.FontsDir, cfg.PDFDebugMode),
		Tracker:   buildTracker(cfg, app),
	}

	publisher, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.Publisher = publisher

	opts = append([]coordinator.Option{coordinator.WithTargetPages(cfg.TargetPages)}, opts...)
	c, err := coordinator.New(deps, opts...)
	if err != nil {
		return nil, err
	}
	app.Coordinator = c

	if !cfg.TargetPages.Unrestricted() {
		log.Printf("🎯 [Factory] Target pages: %s", cfg.TargetPages)
	}
	ok = true
	return app, nil
}

func buildPrompts(cfg *config.Config, keys []string, app *App) (*prompt.Service, error) {
	catalog, err := prompt.LoadCatalog(filepath.Join(cfg.AssetsDir, "page_catalog.yaml"))
	if err != nil {
		return nil, err
	}

	writer, err := prompt.NewGeminiWriter(keys, cfg.PromptModel)
	if err != nil {
		return nil, fmt.Errorf("prompt writer: %w", err)
	}
	app.closers = append(app.closers, writer.Close)

	return prompt.NewService(prompt.Options{
		Catalog:    catalog,
		StyleGuide: prompt.LoadStyleGuide(cfg.StyleGuidePath),
		AssetsDir:  cfg.AssetsDir,
		PageCount:  cfg.PageCount,
		Targets:    cfg.TargetPages,
		Writer:     writer,
		Extractor:  writer,
		Delay:      cfg.PromptDelay,
	}), nil
}

// imageBackend - PAID는 Imagen, FREE는 Gemini 멀티모달
func imageBackend(cfg *config.Config, pool *gemini.Pool) imagegen.Backend {
	if cfg.Tier == config.TierPaid {
		return imagegen.NewImagenBackend(pool, cfg.GenModelID)
	}
	return imagegen.NewGeminiBackend(pool, cfg.GenModelID)
}

func buildEvaluator(ctx context.Context, cfg *config.Config, pool *gemini.Pool, app *App) (qa.Evaluator, error) {
	if cfg.QABackend != config.QABackendVertex {
		return qa.NewGeminiEvaluator(pool, cfg.QAModel), nil
	}

	client, err := vertexai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() {
		if err := client.Close(); err != nil {
			log.Printf("⚠️  [Factory] Failed to close Vertex AI client: %v", err)
		}
	})
	return qa.NewVertexEvaluator(client, cfg.QAModel), nil
}

// buildTracker - 로그는 항상, Supabase는 설정돼 있을 때만
func buildTracker(cfg *config.Config, app *App) coordinator.Tracker {
	trackers := tracking.Multi{tracking.LogTracker{}}
	if !cfg.HasSupabase() {
		return trackers
	}

	db, err := database.NewClient(cfg)
	if err != nil {
		log.Printf("⚠️  [Factory] Supabase tracking disabled: %v", err)
		return trackers
	}
	app.Database = db
	return append(trackers, tracking.NewSupabaseTracker(db))
}
