// Package card draws one portrait PNG per parody record.
package card

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"stock-parody/manager-go/internal/parody"
	"stock-parody/manager-go/internal/utils"
)

const (
	FilePattern = "parody_card_%02d.png"
	pageLabel   = "[오늘의 유머 %d/%d]"
	titleLabel  = "[오유_제목]"
	lessonLabel = "[오유_교훈]"
)

var (
	Blue  = color.RGBA{0, 60, 200, 255}
	Black = color.RGBA{34, 34, 34, 255}
	Gray  = color.RGBA{120, 120, 120, 255}
)

type Layout struct {
	Width, Height  int
	Left, Right    int
	Top, Bottom    int
	LineSpacing    float64
	SectionGap     int
	DateSize       float64
	TitleSize      float64
	BodySize       float64
	LessonSize     float64
	FootnoteSize   float64
	FootnoteFactor float64
}

func DefaultLayout() Layout {
	return Layout{
		Width:          1080,
		Height:         1920,
		Left:           80,
		Right:          80,
		Top:            300,
		Bottom:         200,
		LineSpacing:    1.2,
		SectionGap:     40,
		DateSize:       45,
		TitleSize:      70,
		BodySize:       48,
		LessonSize:     60,
		FootnoteSize:   28,
		FootnoteFactor: 1.3,
	}
}

type faces struct {
	date, title, body, lesson, footnote font.Face
}

type Renderer struct {
	Layout   Layout
	template image.Image
	faces    faces
}

// NewRenderer loads the background and fonts once. Missing assets are logged and
// replaced by a white canvas and the built-in bitmap face.
func NewRenderer(templatePath, regularFont, boldFont string, layout Layout) *Renderer {
	logger := utils.Stage("card")
	r := &Renderer{Layout: layout}
	if templatePath != "" {
		img, err := gg.LoadImage(templatePath)
		if err != nil {
			logger.Warn("card template unavailable, using white canvas", "path", templatePath, "err", err)
		} else {
			r.template = img
		}
	}
	r.faces = faces{
		date:     loadFace(regularFont, layout.DateSize),
		title:    loadFace(boldFont, layout.TitleSize),
		body:     loadFace(regularFont, layout.BodySize),
		lesson:   loadFace(boldFont, layout.LessonSize),
		footnote: loadFace(regularFont, layout.FootnoteSize),
	}
	return r
}

func loadFace(path string, size float64) font.Face {
	if path != "" {
		face, err := gg.LoadFontFace(path, size)
		if err == nil {
			return face
		}
		utils.Stage("card").Warn("font unavailable, using default face", "path", path, "size", size, "err", err)
	}
	return basicfont.Face7x13
}

// RenderAll clears old cards in dir and writes one card per record. A card that
// fails is logged and skipped.
func (r *Renderer) RenderAll(records []parody.Record, dir string) ([]string, error) {
	logger := utils.Stage("card")
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}
	if _, err := utils.RemoveGlob(filepath.Join(dir, "*.png")); err != nil {
		return nil, err
	}
	var paths []string
	for i, rec := range records {
		out := filepath.Join(dir, fmt.Sprintf(FilePattern, i+1))
		if err := r.Render(rec, i+1, len(records), out); err != nil {
			logger.Error("card failed", "index", i+1, "title", rec.OriginalTitle, "err", err)
			continue
		}
		logger.Info("card saved", "index", i+1, "total", len(records), "path", out)
		paths = append(paths, out)
	}
	return paths, nil
}

func (r *Renderer) Render(rec parody.Record, page, total int, out string) error {
	l := r.Layout
	dc := gg.NewContext(l.Width, l.Height)
	r.background(dc)
	maxWidth := float64(l.Width - l.Left - l.Right)
	left := float64(l.Left)
	gap := float64(l.SectionGap)

	y := float64(l.Top)
	r.drawLine(dc, r.faces.date, Gray, fmt.Sprintf(pageLabel, page, total), left, y)
	y += l.DateSize + 20

	if rec.Date != "" {
		r.drawLine(dc, r.faces.date, Gray, FormatCardDate(rec.Date), left, y)
		y += l.DateSize + gap
	}
	if rec.OriginalTitle != "" {
		y = r.drawText(dc, r.faces.body, Black, rec.OriginalTitle, left, y, maxWidth, l.BodySize, l.LineSpacing)
		y += float64(int(gap * 0.7))
	}
	if rec.Setup != "" {
		y = r.drawText(dc, r.faces.body, Black, rec.Setup, left, y, maxWidth, l.BodySize, l.LineSpacing)
		y += gap
	}
	if rec.Punchline != "" {
		y = r.drawText(dc, r.faces.body, Black, rec.Punchline, left, y, maxWidth, l.BodySize, l.LineSpacing)
		y += l.BodySize * 2
		if rec.ParodyTitle != "" {
			y = r.drawText(dc, r.faces.body, Blue, titleLabel, left, y, maxWidth, l.BodySize, 1.5)
			y = r.drawText(dc, r.faces.title, Blue, rec.ParodyTitle, left, y, maxWidth, l.TitleSize, l.LineSpacing)
			y += gap * 1.5
		}
	}
	if rec.HumorLesson != "" {
		y = r.drawText(dc, r.faces.body, Blue, lessonLabel, left, y, maxWidth, l.BodySize, 1.5)
		r.drawText(dc, r.faces.lesson, Blue, rec.HumorLesson, left, y, maxWidth, l.LessonSize, 1.5)
	}

	// Footer is laid out upwards from the bottom margin.
	bottom := float64(l.Height - l.Bottom)
	if source := SourceLine(rec.OriginalTitle, rec.SourceURL); source != "" {
		start := bottom - l.FootnoteSize
		r.drawLine(dc, r.faces.footnote, Gray, source, left, start)
		bottom = start - 20
	}
	if disclaimer := DisclaimerText(rec.Disclaimer); disclaimer != "" {
		lines := WrapWords(disclaimer, maxWidth, r.measure(dc, r.faces.footnote))
		height := float64(len(lines) * int(l.FootnoteSize*l.FootnoteFactor))
		r.drawText(dc, r.faces.footnote, Gray, disclaimer, left, bottom-height, maxWidth, l.FootnoteSize, 1.5)
	}
	return dc.SavePNG(out)
}

func (r *Renderer) background(dc *gg.Context) {
	dc.SetColor(color.White)
	dc.Clear()
	if r.template == nil {
		return
	}
	b := r.template.Bounds()
	dc.Push()
	dc.Scale(float64(r.Layout.Width)/float64(b.Dx()), float64(r.Layout.Height)/float64(b.Dy()))
	dc.DrawImage(r.template, 0, 0)
	dc.Pop()
}

func (r *Renderer) measure(dc *gg.Context, face font.Face) func(string) float64 {
	return func(s string) float64 {
		dc.SetFontFace(face)
		w, _ := dc.MeasureString(s)
		return w
	}
}

// drawLine places text with its top edge at y.
func (r *Renderer) drawLine(dc *gg.Context, face font.Face, c color.Color, text string, x, y float64) {
	dc.SetFontFace(face)
	dc.SetColor(c)
	dc.DrawStringAnchored(text, x, y, 0, 1)
}

// drawText wraps text to maxWidth and returns the y below the last line.
func (r *Renderer) drawText(dc *gg.Context, face font.Face, c color.Color, text string, x, y, maxWidth, size, ratio float64) float64 {
	lineHeight := size * ratio
	for _, line := range WrapWords(text, maxWidth, r.measure(dc, face)) {
		r.drawLine(dc, face, c, line, x, y)
		y += lineHeight
	}
	return y
}
