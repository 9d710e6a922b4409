package qa

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"knolling-factory/modules/common/fallback"
	"knolling-factory/modules/common/model"
	"knolling-factory/modules/common/utils"
)

const inspection = `You are a senior pre-press quality manager for a children's coloring book.
Inspect this page and decide if it can be printed as is.
FAIL it for any of: colored fills or gray shading on an interior page, red or green layout blocks left visible,
garbled text or letters, broken or sketchy outlines, cropped or overlapping objects, extra limbs or distorted faces,
content that is not safe for children.
Reply with JSON only: {"pass": true|false, "reason": "<short reason when failing>"}`

// Evaluator - 이미지 1장을 비전 모델에 보내고 응답 텍스트 반환
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, png []byte, instruction string) (string, error)
}

// Gate - Quality Gate. 기술적 실패도 FAIL 판정으로 돌려줌
type Gate struct {
	evaluator Evaluator
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewGate(evaluator Evaluator, delay time.Duration) *Gate {
	return &Gate{evaluator: evaluator, delay: delay, sleep: utils.SleepCtx}
}

// Check - 호출 전 고정 대기 후 판정
func (g *Gate) Check(ctx context.Context, path string) model.Verdict {
	if err := g.sleep(ctx, g.delay); err != nil {
		return model.FailVerdict("qa wait interrupted: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("❌ [QA] Cannot read %s: %v", path, err)
		return model.FailVerdict("artifact unreadable: %v", err)
	}
	img, format, err := utils.DecodeImage(data)
	if err != nil {
		log.Printf("❌ [QA] Cannot decode %s: %v", path, err)
		return model.FailVerdict("artifact undecodable: %v", err)
	}
	if format != "png" {
		if data, err = utils.EncodePNG(img); err != nil {
			return model.FailVerdict("artifact re-encode failed: %v", err)
		}
	}

	if g.evaluator == nil {
		return model.FailVerdict("no evaluator configured")
	}

	log.Printf("🔍 [QA] Inspecting %s via %s", path, g.evaluator.Name())
	reply, err := g.evaluator.Evaluate(ctx, data, inspection)
	if err != nil {
		log.Printf("⚠️  [QA] Evaluation failed for %s: %v", path, err)
		return model.FailVerdict("evaluation failed: %v", err)
	}

	v := ParseVerdict(reply)
	if v.Pass {
		log.Printf("✅ [QA] PASS %s", path)
	} else {
		log.Printf("⚠️  [QA] %s %s", v, path)
	}
	return v
}

// ParseVerdict - JSON {"pass","reason"} 또는 PASS/FAIL로 시작하는 텍스트
func ParseVerdict(reply string) model.Verdict {
	reply = strings.TrimSpace(reply)
	if m, err := fallback.DecodeLooseJSON(reply); err == nil {
		raw, ok := m["pass"]
		if !ok {
			raw = m["verdict"]
		}
		reason := fallback.SafeString(m["reason"], "")
		if fallback.SafeBool(raw, false) {
			return model.PassVerdict()
		}
		if reason == "" {
			reason = "rejected by evaluator"
		}
		return model.FailVerdict("%s", reason)
	}

	upper := strings.ToUpper(reply)
	switch {
	case strings.HasPrefix(upper, "PASS"):
		return model.PassVerdict()
	case strings.HasPrefix(upper, "FAIL"):
		reason := strings.TrimSpace(strings.TrimLeft(reply[len("FAIL"):], ":- "))
		if reason == "" {
			reason = "rejected by evaluator"
		}
		return model.FailVerdict("%s", reason)
	}
	return model.FailVerdict("unrecognized evaluator reply: %.80s", reply)
}
