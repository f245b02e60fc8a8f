package parody

import "strings"

// History accumulates the parody titles accepted so far in one run. It only grows,
// and its contents are fed back to the model as examples to avoid.
type History struct {
	titles []string
}

func (h *History) Add(r Record) {
	if r.ParodyTitle == "" || r.IsPlaceholder() {
		return
	}
	h.titles = append(h.titles, r.ParodyTitle)
}

func (h *History) Len() int { return len(h.titles) }

// PromptBlock is appended to the generation prompt; empty until something was accepted.
func (h *History) PromptBlock() string {
	if len(h.titles) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n## (매우 중요) 중복 패러디 방지\n")
	b.WriteString("- 아래 제목들은 이번 회차에 이미 사용되었습니다.\n")
	b.WriteString("- 아래 목록과 비슷한 내용이나 말투의 parody_title은 만들지 마세요.\n")
	b.WriteString("- 완전히 새로운 제목과 농담을 만드세요.\n\n")
	b.WriteString("### 이미 생성된 제목 목록:\n")
	for _, title := range h.titles {
		b.WriteString("- ")
		b.WriteString(title)
		b.WriteString("\n")
	}
	return b.String()
}
