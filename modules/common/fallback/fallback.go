package fallback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractJSONObject - 모델 응답에서 첫 번째 {...} 블록만 잘라냄 (```json 펜스 포함 대응)
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

// DecodeLooseJSON - 모델 텍스트 응답을 map으로 파싱
func DecodeLooseJSON(text string) (map[string]interface{}, error) {
	raw := ExtractJSONObject(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON in response: %w", err)
	}
	return out, nil
}

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeBool accepts bools and the usual string spellings.
func SafeBool(value interface{}, fallback bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "PASS", "YES":
			return true
		case "FAIL", "NO":
			return false
		}
	}
	return fallback
}

// SafeStringList collects non-empty strings from a JSON array or a comma separated string.
func SafeStringList(value interface{}, fallback []string) []string {
	var out []string
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if s := SafeString(item, ""); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
