package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Tier - 배포 티어 (생성 모델과 rate limit 딜레이 결정)
type Tier string

const (
	TierFree Tier = "FREE"
	TierPaid Tier = "PAID"
)

// 스토리지 백엔드
const (
	StorageLocal    = "local"
	StorageSupabase = "supabase"
	StorageS3       = "s3"
)

// QA 백엔드
const (
	QABackendGemini = "gemini"
	QABackendVertex = "vertex"
)

// 인쇄 사양 (inch)
const (
	TrimSize   = 8.5
	BleedSize  = 0.125
	SafeMargin = 0.375
	PageSize   = TrimSize + 2*BleedSize
)

// TierProfile - 티어별 모델/딜레이 묶음
type TierProfile struct {
	GenModelID  string
	ImageDelay  time.Duration
	QADelay     time.Duration
	PromptDelay time.Duration
}

// ProfileFor - 티어에 맞는 기본 프로필 반환 (알 수 없는 값은 FREE)
func ProfileFor(tier Tier) TierProfile {
	if tier == TierPaid {
		return TierProfile{
			GenModelID:  "imagen-4.0-generate-001",
			ImageDelay:  500 * time.Millisecond,
			QADelay:     500 * time.Millisecond,
			PromptDelay: 500 * time.Millisecond,
		}
	}
	// FREE: 분당 요청 제한이 빡빡함
	return TierProfile{
		GenModelID:  "gemini-2.0-flash-exp-image-generation",
		ImageDelay:  20 * time.Second,
		QADelay:     35 * time.Second,
		PromptDelay: 5 * time.Second,
	}
}

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Pipeline
	Tier        Tier
	GenModelID  string
	QAModel     string
	PromptModel string
	ImageDelay  time.Duration
	QADelay     time.Duration
	PromptDelay time.Duration
	PageCount   int
	TargetPages PageSet

	// Gemini API
	GeminiAPIKey  string
	GeminiAPIKeys []string

	// QA / Vertex AI
	QABackend        string
	VertexAIProject  string
	VertexAILocation string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string
	SupabaseBucket         string

	// Storage
	StorageBackend string
	S3Bucket       string
	S3Region       string
	S3Prefix       string

	// Paths
	AssetsDir      string
	FontsDir       string
	StyleGuidePath string
	TempDir        string
	OutputDir      string
	PDFDebugMode   bool

	// Server
	Port string
}

var globalConfig *Config

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := FromEnv()

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   %s", cfg.StatusMessage())
	log.Printf("   QA: %s (%s), Prompt: %s", cfg.QAModel, cfg.QABackend, cfg.PromptModel)
	log.Printf("   Pages: %d (target: %s)", cfg.PageCount, cfg.TargetPages)
	log.Printf("   Storage: %s", cfg.StorageBackend)
	log.Printf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)

	return cfg, nil
}

// FromEnv - 검증 없이 현재 환경변수로 Config 생성
func FromEnv() *Config {
	tier := Tier(strings.ToUpper(getEnv("DEPLOYMENT_TIER", string(TierFree))))
	if tier != TierPaid {
		tier = TierFree
	}
	profile := ProfileFor(tier)

	// PAGE_COUNT 파싱 (숫자가 아니면 무시)
	pageCount := 50
	if raw := os.Getenv("PAGE_COUNT"); raw != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && parsed > 0 {
			pageCount = parsed
		} else {
			log.Printf("⚠️  Ignoring invalid PAGE_COUNT: %q", raw)
		}
	}

	return &Config{
		Tier:        tier,
		GenModelID:  getEnv("GEN_MODEL_ID", profile.GenModelID),
		QAModel:     getEnv("QA_MODEL_NAME", "gemini-2.5-pro"),
		PromptModel: getEnv("PROMPT_MODEL_NAME", "gemini-1.5-flash"),
		ImageDelay:  profile.ImageDelay,
		QADelay:     profile.QADelay,
		PromptDelay: profile.PromptDelay,
		PageCount:   pageCount,
		TargetPages: ParseTargetPages(os.Getenv("TARGET_PAGES")),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiAPIKeys: splitList(os.Getenv("GEMINI_API_KEYS")),

		QABackend:        strings.ToLower(getEnv("QA_BACKEND", QABackendGemini)),
		VertexAIProject:  getEnv("VERTEXAI_PROJECT", ""),
		VertexAILocation: getEnv("VERTEXAI_LOCATION", "us-central1"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getBool("REDIS_USE_TLS", false),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),
		SupabaseBucket:         getEnv("SUPABASE_BUCKET", "knolling"),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", ""),
		S3Prefix:       getEnv("S3_PREFIX", "knolling"),

		AssetsDir:      getEnv("ASSETS_DIR", "assets"),
		FontsDir:       getEnv("FONTS_DIR", "assets/fonts"),
		StyleGuidePath: getEnv("STYLE_GUIDE_PATH", "assets/series_bible.md"),
		TempDir:        getEnv("TEMP_DIR", "temp"),
		OutputDir:      getEnv("OUTPUT_DIR", "output"),
		PDFDebugMode:   getBool("PDF_DEBUG_MODE", false),

		Port: getEnv("PORT", "8080"),
	}
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// SetTier - 티어 변경 시 모델/딜레이도 같이 교체 (GEN_MODEL_ID 명시값은 유지)
func (c *Config) SetTier(tier Tier) {
	tier = Tier(strings.ToUpper(string(tier)))
	if tier != TierPaid {
		tier = TierFree
	}
	prev := ProfileFor(c.Tier)
	next := ProfileFor(tier)
	if c.GenModelID == "" || c.GenModelID == prev.GenModelID {
		c.GenModelID = next.GenModelID
	}
	c.Tier = tier
	c.ImageDelay = next.ImageDelay
	c.QADelay = next.QADelay
	c.PromptDelay = next.PromptDelay
}

// StatusMessage - 현재 티어 상태 문자열
func (c *Config) StatusMessage() string {
	if c.Tier == TierPaid {
		return fmt.Sprintf("🚀 Running in PAID mode (%s) - Max Speed", c.GenModelID)
	}
	return fmt.Sprintf("🐢 Running in FREE mode (%s) - Safe Limits Active", c.GenModelID)
}

// APIKeys - 429 로테이션에 사용할 키 목록 (기본 키 우선, 중복 제거)
func (c *Config) APIKeys() []string {
	seen := map[string]bool{}
	keys := []string{}
	for _, k := range append([]string{c.GeminiAPIKey}, c.GeminiAPIKeys...) {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.PageCount < 2 {
		return fmt.Errorf("PAGE_COUNT must be at least 2, got %d", c.PageCount)
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for supabase storage")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %s", c.StorageBackend)
	}
	switch c.QABackend {
	case QABackendGemini:
	case QABackendVertex:
		if c.VertexAIProject == "" {
			return fmt.Errorf("VERTEXAI_PROJECT is required for vertex QA backend")
		}
	default:
		return fmt.Errorf("unknown QA_BACKEND: %s", c.QABackend)
	}
	return nil
}

// HasSupabase - Supabase 접속 정보가 있는지
func (c *Config) HasSupabase() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
