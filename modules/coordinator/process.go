package coordinator

import (
	"context"
	"fmt"
	"log"

	"knolling-factory/modules/common/model"
)

// processItem - 생성 → QA 루프. 생성 에러는 즉시 반환(치명적), QA 실패만 재시도
// 같은 프롬프트로 최대 maxAttempts번 생성하고, 끝까지 실패하면 REJECTED
func (c *Coordinator) processItem(ctx context.Context, run *model.Run, item *model.WorkItem) (bool, error) {
	for item.Attempts < c.maxAttempts {
		item.Attempts++
		item.State = model.ItemGenerating
		log.Printf("🎨 [Coordinator] %s attempt %d/%d", item.Key, item.Attempts, c.maxAttempts)

		path, err := c.deps.Generator.Generate(ctx, *item, run.Theme)
		if err != nil {
			return false, fmt.Errorf("%w: %s (attempt %d): %w", ErrGeneration, item.Key, item.Attempts, err)
		}
		item.ArtifactPath = path
		item.State = model.ItemAwaitingQA

		verdict := c.deps.Gate.Check(ctx, path)
		verdict.Checked = true
		item.Verdict = verdict
		if verdict.Pass {
			item.State = model.ItemPassed
			log.Printf("✅ [Coordinator] %s passed QA on attempt %d", item.Key, item.Attempts)
			return true, nil
		}

		item.State = model.ItemFailedQA
		log.Printf("🔍 [Coordinator] %s failed QA (attempt %d/%d): %s",
			item.Key, item.Attempts, c.maxAttempts, verdict.Reason)
	}

	item.State = model.ItemRejected
	log.Printf("⚠️  [Coordinator] %s rejected after %d attempts, dropping from document", item.Key, item.Attempts)
	return false, nil
}
