package docxtpl

import (
	"regexp"
	"strings"

	"github.com/fumiama/go-docx"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// walkParagraphs visits body paragraphs and every paragraph of every table
// cell, nested tables included.
func walkParagraphs(items []interface{}, fn func(*docx.Paragraph)) {
	for _, it := range items {
		switch v := it.(type) {
		case *docx.Paragraph:
			fn(v)
		case *docx.Table:
			walkTable(v, fn)
		}
	}
}

func walkTable(t *docx.Table, fn func(*docx.Paragraph)) {
	for _, row := range t.TableRows {
		for _, cell := range row.TableCells {
			for _, p := range cell.Paragraphs {
				fn(p)
			}
			for _, nested := range cell.Tables {
				walkTable(nested, fn)
			}
		}
	}
}

// ParagraphText concatenates the text of all runs of p. Word splits visible
// text into runs arbitrarily, so this is the only reliable view for matching.
func ParagraphText(p *docx.Paragraph) string {
	var sb strings.Builder
	for _, c := range p.Children {
		r, ok := c.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range r.Children {
			if t, ok := rc.(*docx.Text); ok {
				sb.WriteString(t.Text)
			}
		}
	}
	return sb.String()
}

// CellText joins the paragraphs of a cell with newlines.
func CellText(c *docx.WTableCell) string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		parts = append(parts, ParagraphText(p))
	}
	return strings.Join(parts, "\n")
}

// setParagraphText puts text into the first text-bearing run, keeping that
// run's formatting, and strips text from every other run. Runs left empty are
// dropped; tabs, breaks and drawings stay where they were.
func setParagraphText(p *docx.Paragraph, text string) {
	placed := false
	children := p.Children[:0]
	for _, c := range p.Children {
		r, ok := c.(*docx.Run)
		if !ok {
			children = append(children, c)
			continue
		}
		rc := make([]interface{}, 0, len(r.Children))
		for _, x := range r.Children {
			if _, isText := x.(*docx.Text); !isText {
				rc = append(rc, x)
				continue
			}
			if !placed {
				rc = append(rc, textNodes(text)...)
				placed = true
			}
		}
		r.Children = rc
		if len(r.Children) == 0 && r.InstrText == "" {
			continue
		}
		children = append(children, r)
	}
	p.Children = children
}

// textNodes renders s as w:t nodes separated by w:br for embedded newlines.
func textNodes(s string) []interface{} {
	lines := strings.Split(s, "\n")
	out := make([]interface{}, 0, len(lines)*2)
	for i, line := range lines {
		if i > 0 {
			out = append(out, &docx.BarterRabbet{})
		}
		out = append(out, &docx.Text{Text: line, XMLSpace: "preserve"})
	}
	return out
}

// substitute replaces every known {{key}} in p and returns the number of
// replacements. Unknown keys are left as they are.
func substitute(p *docx.Paragraph, reps map[string]string) int {
	text := ParagraphText(p)
	if !strings.Contains(text, "{{") {
		return 0
	}
	n := 0
	out := placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := reps[key]
		if !ok {
			return m
		}
		n++
		return v
	})
	if n > 0 {
		setParagraphText(p, out)
	}
	return n
}

// emboldenLabel splits the runs of p so the text up to and including the
// first colon is bold and the rest is not, when the paragraph text starts with
// one of labels. Tabs, breaks and drawings keep their position and follow the
// weight of the text around them. It reports whether p changed.
func emboldenLabel(p *docx.Paragraph, labels []string) bool {
	text := ParagraphText(p)
	trimmed := strings.TrimLeft(text, " \t")
	for _, label := range labels {
		if label == "" || !strings.HasPrefix(trimmed, label) {
			continue
		}
		cut := strings.Index(text, ":") + 1
		if cut == 0 {
			cut = len(text) - len(trimmed) + len(label)
		}
		p.Children = splitRuns(p.Children, cut)
		return true
	}
	return false
}

// splitRuns re-emits runs so that the first cut bytes of text are bold.
func splitRuns(children []interface{}, cut int) []interface{} {
	out := make([]interface{}, 0, len(children)+1)
	pos := 0
	for _, c := range children {
		r, ok := c.(*docx.Run)
		if !ok || r.InstrText != "" {
			out = append(out, c)
			continue
		}

		var cur *docx.Run
		curBold := false
		emit := func(bold bool, x interface{}) {
			if cur == nil || curBold != bold {
				if cur != nil {
					out = append(out, cur)
				}
				cur = &docx.Run{RunProperties: cloneProps(r.RunProperties)}
				if bold {
					cur.Bold()
				} else {
					cur.RunProperties.Bold = nil
				}
				curBold = bold
			}
			cur.Children = append(cur.Children, x)
		}

		for _, x := range r.Children {
			t, isText := x.(*docx.Text)
			if !isText {
				emit(pos < cut, x)
				continue
			}
			if pos < cut && pos+len(t.Text) > cut {
				k := cut - pos
				emit(true, &docx.Text{Text: t.Text[:k], XMLSpace: "preserve"})
				emit(false, &docx.Text{Text: t.Text[k:], XMLSpace: "preserve"})
			} else {
				emit(pos < cut, t)
			}
			pos += len(t.Text)
		}
		if cur != nil {
			out = append(out, cur)
		}
	}
	return out
}

func cloneProps(rp *docx.RunProperties) *docx.RunProperties {
	if rp == nil {
		return &docx.RunProperties{}
	}
	c := *rp
	return &c
}
