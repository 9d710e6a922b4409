package config

import (
	"sort"
	"strconv"
	"strings"
)

// PageSet - 생성 대상 페이지 번호 집합. 비어있으면 제한 없음
type PageSet map[int]struct{}

// ParseTargetPages - "1,3,5-7" 형식 파싱. 형식이 하나라도 잘못되면 빈 집합(전체 대상) 반환
func ParseTargetPages(raw string) PageSet {
	set := PageSet{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return set
	}

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return PageSet{}
		}

		lo, hi, ok := parsePageRange(token)
		if !ok {
			return PageSet{}
		}
		for n := lo; n <= hi; n++ {
			set[n] = struct{}{}
		}
	}
	return set
}

func parsePageRange(token string) (int, int, bool) {
	if from, to, isRange := strings.Cut(token, "-"); isRange {
		lo, err1 := strconv.Atoi(strings.TrimSpace(from))
		hi, err2 := strconv.Atoi(strings.TrimSpace(to))
		if err1 != nil || err2 != nil || lo < 1 || hi < lo {
			return 0, 0, false
		}
		return lo, hi, true
	}

	n, err := strconv.Atoi(token)
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return n, n, true
}

// Unrestricted - 제한이 없는지
func (s PageSet) Unrestricted() bool {
	return len(s) == 0
}

// Contains - 페이지가 대상인지 (제한 없으면 항상 true)
func (s PageSet) Contains(page int) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[page]
	return ok
}

// Sorted - 오름차순 페이지 목록
func (s PageSet) Sorted() []int {
	pages := make([]int, 0, len(s))
	for p := range s {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

func (s PageSet) String() string {
	if len(s) == 0 {
		return "all"
	}
	parts := make([]string, 0, len(s))
	for _, p := range s.Sorted() {
		parts = append(parts, strconv.Itoa(p))
	}
	return strings.Join(parts, ",")
}
