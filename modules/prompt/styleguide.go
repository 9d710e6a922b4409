package prompt

import (
	"log"
	"os"
	"strings"
)

// LoadStyleGuide - 시리즈 바이블 로드. 없으면 빈 문자열
func LoadStyleGuide(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️  [Prompt] Style guide not available (%s): %v", path, err)
		return ""
	}
	return string(data)
}

// ExtractSection - "#### [TAG]" 헤더부터 다음 "####" 헤더 전까지
func ExtractSection(guide, tag string) string {
	if guide == "" || tag == "" {
		return ""
	}

	var out []string
	inSection := false
	for _, line := range strings.Split(guide, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "####") {
			if inSection {
				break
			}
			inSection = strings.Contains(trimmed, tag)
		}
		if inSection {
			out = append(out, line)
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
