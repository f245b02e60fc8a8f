// Package publish uploads the finished video and announces it.
package publish

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCategory = "24"
	DefaultPrivacy  = "private"
)

var DefaultTags = []string{"OU증권", "주식", "증시", "패러디", "AI", "주식유머", "투자", "경제뉴스", "밈", "자동생성"}

// defaultTemplate is used when no metadata file is configured.
const defaultTemplate = `title: "{{.Date}} 주식뉴스 | AI가 분석한 오늘의 증시 핵심 포인트 | OU증권 경제뉴스 패러디. 이 포스팅은 쿠팡파트너스 활동으로 일정보수를 지급받습니다."
description: |
  매일 아침 AI가 전하는 재미있는 주식 뉴스!

  이 포스팅은 쿠팡파트너스 활동으로 일정보수를 지급받습니다.

  딱딱한 증권방송은 이제 그만! OU증권의 AI가 오늘의 핫한 경제뉴스를 위트 넘치는 밈과 패러디로 재해석해드립니다.
  복잡한 주식 시장 소식을 쉽고 재미있게 이해하고, 투자 인사이트까지 얻어가세요!

  ▶ 이런 분들께 추천:
  - 주식 초보자도 쉽게 이해할 수 있는 경제뉴스가 필요한 분
  - 재미있게 투자 정보를 얻고 싶은 분
  - 매일 아침 간단한 시장 브리핑이 필요한 직장인
  - AI가 분석한 시장 트렌드가 궁금한 분

  ▶ 매일 업데이트되는 콘텐츠:
  - 당일 주요 경제/주식 뉴스 패러디
  - AI 기반 시장 분석
  - 투자자들이 놓치기 쉬운 숨은 포인트
  - 밈으로 보는 증시 동향

  구독과 좋아요로 매일 아침 재미있는 투자 정보를 받아보세요!

  {{.Disclaimer}}
  ※ 본 콘텐츠는 정보 제공 목적이며, 투자 권유가 아닙니다. 투자 결정은 본인 판단하에 신중히 하시기 바랍니다.

  #주식뉴스 #AI증시분석 #경제뉴스 #투자정보 #OU증권 #주식초보 #증시패러디 #경제유머 #투자교육 #시장분석 #주식밈 #AI투자 #매일경제뉴스 #주식방송 #투자유튜브
category_id: "24"
privacy: private
`

type Metadata struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	CategoryID  string   `yaml:"category_id"`
	Privacy     string   `yaml:"privacy"`
}

// TemplateData is what {{.Field}} placeholders in the metadata file can reference.
type TemplateData struct {
	Date       string
	ISODate    string
	Disclaimer string
}

func NewTemplateData(day time.Time, disclaimer string) TemplateData {
	return TemplateData{
		Date:       day.Format("2006년 01월 02일"),
		ISODate:    day.Format("2006-01-02"),
		Disclaimer: disclaimer,
	}
}

// LoadMetadata renders the YAML template at path, or the built-in one when path is
// empty or absent.
func LoadMetadata(path string, data TemplateData) (Metadata, error) {
	raw := []byte(defaultTemplate)
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			raw = b
		case errors.Is(err, os.ErrNotExist):
		default:
			return Metadata{}, err
		}
	}
	return RenderMetadata(raw, data)
}

func RenderMetadata(raw []byte, data TemplateData) (Metadata, error) {
	var m Metadata
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Metadata{}, fmt.Errorf("metadata yaml: %w", err)
	}
	var err error
	if m.Title, err = render("title", m.Title, data); err != nil {
		return Metadata{}, err
	}
	if m.Description, err = render("description", m.Description, data); err != nil {
		return Metadata{}, err
	}
	for i, tag := range m.Tags {
		if m.Tags[i], err = render("tag", tag, data); err != nil {
			return Metadata{}, err
		}
	}
	if len(m.Tags) == 0 {
		m.Tags = append([]string(nil), DefaultTags...)
	}
	if m.CategoryID == "" {
		m.CategoryID = DefaultCategory
	}
	if m.Privacy == "" {
		m.Privacy = DefaultPrivacy
	}
	if strings.TrimSpace(m.Title) == "" {
		return Metadata{}, errors.New("metadata title is empty")
	}
	return m, nil
}

func render(name, text string, data TemplateData) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("metadata %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("metadata %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
