package spans_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/sokinpui/kubectl-watch.go/internal/spans"
	"github.com/sokinpui/kubectl-watch.go/model"
)

func def(s string) model.Span { return model.Span{Text: s, Color: model.ColorDefault} }
func red(s string) model.Span { return model.Span{Text: s, Color: model.ColorRemoved} }
func grn(s string) model.Span { return model.Span{Text: s, Color: model.ColorAdded} }

func TestWrapFits(t *testing.T) {
	line := model.Line{def("name: "), red("a")}
	assert.Equal(t, []model.Line{line}, spans.Wrap(line, 20))
	assert.Equal(t, []model.Line{line}, spans.Wrap(line, 0))
}

func TestWrapAtWhitespace(t *testing.T) {
	line := model.Line{def("hello "), grn("world")}

	got := spans.Wrap(line, 8)

	want := []model.Line{
		{def("hello")},
		{grn("world")},
	}
	assert.Equal(t, want, got)
}

func TestWrapSplitsSpanWithoutMerging(t *testing.T) {
	line := model.Line{def("aa "), red("bb cc"), grn(" dd")}

	got := spans.Wrap(line, 5)

	want := []model.Line{
		{def("aa "), red("bb")},
		{red("cc"), grn(" dd")},
	}
	assert.Equal(t, want, got)
}

func TestWrapLongWord(t *testing.T) {
	got := spans.Wrap(model.Line{red("abcdefgh")}, 3)
	want := []model.Line{{red("abc")}, {red("def")}, {red("gh")}}
	assert.Equal(t, want, got)
}

func TestWrapKeepsIndentOnFirstLine(t *testing.T) {
	got := spans.Wrap(model.Line{def("    key: value")}, 10)
	assert.Equal(t, "    key:", got[0].Text())
	assert.Equal(t, "value", got[1].Text())
}

func TestWrapPreservesOrderAndContent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "spans")
		var line model.Line
		for i := 0; i < n; i++ {
			line = append(line, model.Span{
				Text:  rapid.StringMatching(`[a-z ]{1,12}`).Draw(t, "text"),
				Color: model.ColorTag(rapid.IntRange(0, 2).Draw(t, "color")),
			})
		}
		width := rapid.IntRange(1, 20).Draw(t, "width")

		wrapped := spans.Wrap(line, width)

		var nonSpace, wantNonSpace []rune
		for _, l := range wrapped {
			if spans.Width(l) > width {
				t.Fatalf("line %q wider than %d", l.Text(), width)
			}
			for _, s := range l {
				for _, r := range s.Text {
					if r != ' ' {
						nonSpace = append(nonSpace, r)
					}
				}
			}
		}
		for _, s := range line {
			for _, r := range s.Text {
				if r != ' ' {
					wantNonSpace = append(wantNonSpace, r)
				}
			}
		}
		if string(nonSpace) != string(wantNonSpace) {
			t.Fatalf("content changed: got %q want %q", string(nonSpace), string(wantNonSpace))
		}
	})
}

func TestExpandTabs(t *testing.T) {
	line := model.Line{def("a\tb"), red("\tc")}
	got := spans.ExpandTabs(line, 4)
	assert.Equal(t, model.Line{def("a   b"), red("   c")}, got)
}

func TestPadAndWidth(t *testing.T) {
	line := spans.Pad(model.Line{def("ab")}, 5)
	assert.Equal(t, 5, spans.Width(line))
	assert.Equal(t, "ab   ", line.Text())
	assert.Equal(t, 3, spans.Width(spans.Pad(model.Line{def("abc")}, 2)))
	assert.Equal(t, 4, spans.Width(model.Line{def("日本")}))
}

func TestCompact(t *testing.T) {
	got := spans.Compact(model.Line{def("a"), def("b"), red(""), red("c"), grn("d")})
	assert.Equal(t, model.Line{def("ab"), red("c"), grn("d")}, got)
}
