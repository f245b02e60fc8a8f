package parody

import (
	"fmt"
	"strings"

	"stock-parody/manager-go/internal/news"
)

// PromptBuilder renders the generation prompt for one news item.
type PromptBuilder func(item news.Item, date, disclaimer string) string

// DefaultPick is how many ids the ranking prompt asks for.
const DefaultPick = 20

func BuildRankPrompt(items []news.Item, pick int) string {
	if pick <= 0 {
		pick = DefaultPick
	}
	var b strings.Builder
	b.WriteString("당신은 증권 뉴스 편집장입니다. 아래 뉴스 목록에서 오늘 투자자에게 가장 중요하고 화제성이 높은 뉴스를 ")
	fmt.Fprintf(&b, "중요도 순으로 %d개 골라주세요.\n\n", pick)
	for i, item := range items {
		fmt.Fprintf(&b, "ID: %d\n제목: %s\n\n", i, item.Title)
	}
	b.WriteString("## 출력 형식\n")
	b.WriteString("- 다른 설명 없이 ID 숫자만 쉼표로 구분해서 출력하세요.\n")
	b.WriteString("- 예시: 5,12,3,0,8\n")
	return b.String()
}

// BuildParodyPrompt is the default PromptBuilder.
func BuildParodyPrompt(item news.Item, date, disclaimer string) string {
	example := fmt.Sprintf(`{
  "date": %q,
  "original_title": %q,
  "parody_title": "패러디 제목",
  "setup": "뉴스 상황을 짧게 비튼 도입",
  "punchline": "한 방에 웃기는 마무리",
  "humor_lesson": "개미 투자자를 위한 한 줄 교훈",
  "disclaimer": %q,
  "source_url": %q
}`, date, item.Title, disclaimer, item.Link)

	var b strings.Builder
	b.WriteString("당신은 증권 뉴스 패러디 전문가입니다. 아래 뉴스를 바탕으로 주식 투자자가 공감할 수 있는 짧은 유머 카드를 만들어주세요.\n\n")
	b.WriteString("## 뉴스\n")
	fmt.Fprintf(&b, "- 날짜: %s\n", date)
	b.WriteString(item.Content())
	b.WriteString("\n## 규칙\n")
	b.WriteString("- parody_title은 20자 이내로 작성하세요.\n")
	b.WriteString("- punchline은 35자 이내로 작성하세요.\n")
	b.WriteString("- 특정 기관이나 개인을 비방하지 말고, 투자 조언처럼 들리지 않게 하세요.\n")
	b.WriteString("- 이모지는 사용하지 마세요.\n")
	fmt.Fprintf(&b, "- disclaimer는 반드시 \"%s\" 그대로 쓰세요.\n", disclaimer)
	b.WriteString("\n## 출력 형식\n")
	b.WriteString("아래 JSON 형식 하나만 ```json ... ``` 코드 블록 안에 출력하세요. 모든 키를 채워야 합니다.\n")
	b.WriteString("```json\n")
	b.WriteString(example)
	b.WriteString("\n```\n")
	return b.String()
}

// RepairMessage is the user turn sent after a malformed response. It quotes the
// rejected output and the validation error verbatim.
func RepairMessage(raw string, cause error) string {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	var b strings.Builder
	b.WriteString("이전 응답에 오류가 있었습니다. 오류를 수정해서 다시 유효한 JSON만 출력해주세요.\n\n")
	b.WriteString("## 이전 응답 (잘못된 부분)\n")
	b.WriteString(raw)
	b.WriteString("\n\n## 발생한 오류\n")
	b.WriteString(msg)
	b.WriteString("\n\n위 오류를 참고하여, 유효한 JSON 형식에 맞춰 수정된 응답을 ```json ... ``` 코드 블록 안에 다시 생성해주세요.")
	return b.String()
}
