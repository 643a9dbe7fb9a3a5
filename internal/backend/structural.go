package backend

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/sokinpui/kubectl-watch.go/internal/spans"
	"github.com/sokinpui/kubectl-watch.go/model"
)

const (
	LanguageYAML = "YAML"
	LanguageJSON = "JSON"
	LanguageText = "Text"
)

// Structural compares the parsed document trees of both sides, so that key
// order and formatting do not count as changes.
type Structural struct {
	// Language overrides detection when set.
	Language       string
	MissingAsEmpty bool
	Limits         Limits
}

func (s *Structural) Name() string {
	return string(KindStructural)
}

// Compute diffs the two artifacts. Inputs past the byte or graph limit are
// compared line by line instead and the result is marked Degraded.
func (s *Structural) Compute(before, after model.Artifact, cfg DisplayConfig) (*Result, error) {
	a, err := readArtifact(before, s.MissingAsEmpty)
	if err != nil {
		return nil, err
	}
	b, err := readArtifact(after, s.MissingAsEmpty)
	if err != nil {
		return nil, err
	}

	limits := s.Limits.resolved()
	res := &Result{
		Before:   labelOf(before),
		After:    labelOf(after),
		Language: detectLanguage(s.Language, before, after, a, b),
		InVCS:    cfg.InVCS,
	}

	al, bl := splitLines(a), splitLines(b)
	rows := align(al, bl)

	switch {
	case len(a) > limits.ByteLimit || len(b) > limits.ByteLimit:
		res.degrade(fmt.Sprintf("exceeded byte limit of %d", limits.ByteLimit))
		fillLines(rows, al, bl, false)
	case res.Language != LanguageYAML && res.Language != LanguageJSON:
		fillLines(rows, al, bl, cfg.SyntaxHighlight)
	default:
		da, errA := parseDocuments(a)
		db, errB := parseDocuments(b)
		if errA != nil || errB != nil {
			res.Language = LanguageText
			fillLines(rows, al, bl, cfg.SyntaxHighlight)
			break
		}
		if size := countDocuments(da) * countDocuments(db); size > limits.GraphLimit {
			res.degrade(fmt.Sprintf("exceeded graph limit of %d", limits.GraphLimit))
			fillLines(rows, al, bl, false)
			break
		}
		d := &treeDiff{left: newSideMarks(al), right: newSideMarks(bl)}
		d.documents(da, db)
		fillMarked(rows, d.left, d.right)
	}

	finish(res, rows, a == b, cfg)
	return res, nil
}

func (r *Result) degrade(reason string) {
	r.Degraded = true
	r.Reason = reason
	r.Language = LanguageText
}

// detectLanguage picks the override, then the file extension, then sniffs
// the content.
func detectLanguage(override string, before, after model.Artifact, a, b string) string {
	if override != "" {
		switch strings.ToLower(override) {
		case "yaml", "yml":
			return LanguageYAML
		case "json":
			return LanguageJSON
		default:
			return LanguageText
		}
	}

	for _, p := range []string{after.Path, before.Path} {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			return LanguageYAML
		case ".json":
			return LanguageJSON
		}
	}

	for _, text := range []string{b, a} {
		if strings.TrimSpace(text) != "" {
			return sniff(text)
		}
	}
	return LanguageText
}

func sniff(text string) string {
	docs, err := parseDocuments(text)
	if err != nil || len(docs) == 0 || docs[0] == nil {
		return LanguageText
	}
	root := docs[0]
	if root.Kind != yaml.MappingNode && root.Kind != yaml.SequenceNode {
		return LanguageText
	}
	switch strings.TrimLeftFunc(text, unicode.IsSpace)[0] {
	case '{', '[':
		return LanguageJSON
	}
	return LanguageYAML
}

// parseDocuments returns the root node of every document in the stream. An
// empty document contributes a nil root.
func parseDocuments(text string) ([]*yaml.Node, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var roots []*yaml.Node
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return roots, nil
		}
		if err != nil {
			return nil, err
		}
		var root *yaml.Node
		if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
			root = doc.Content[0]
		}
		roots = append(roots, root)
	}
}

func countDocuments(docs []*yaml.Node) int {
	c := 1
	for _, n := range docs {
		c += countNodes(n)
	}
	return c
}

func countNodes(n *yaml.Node) int {
	if n == nil {
		return 1
	}
	c := 1
	for _, child := range n.Content {
		c += countNodes(child)
	}
	return c
}

// fingerprint renders a subtree canonically, with mapping keys sorted, so
// that reordered but equal subtrees compare equal.
func fingerprint(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		pairs := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, fingerprint(n.Content[i])+"="+fingerprint(n.Content[i+1]))
		}
		sort.Strings(pairs)
		return "{" + strings.Join(pairs, ",") + "}"
	case yaml.SequenceNode:
		items := make([]string, len(n.Content))
		for i, c := range n.Content {
			items[i] = fingerprint(c)
		}
		return "[" + strings.Join(items, ",") + "]"
	case yaml.DocumentNode:
		if len(n.Content) > 0 {
			return fingerprint(n.Content[0])
		}
		return ""
	case yaml.AliasNode:
		return "*" + n.Value
	default:
		return n.ShortTag() + strconv.Quote(n.Value)
	}
}

type colRange struct {
	from, to int // rune columns; to < 0 runs to the end of the line
}

// sideMarks records the novel tokens on one side.
type sideMarks struct {
	lines []string
	marks map[int][]colRange
}

func newSideMarks(lines []string) *sideMarks {
	return &sideMarks{lines: lines, marks: make(map[int][]colRange)}
}

func (s *sideMarks) add(line, from, to int) {
	if line < 0 || line >= len(s.lines) || from < 0 || (to >= 0 && to <= from) {
		return
	}
	s.marks[line] = append(s.marks[line], colRange{from: from, to: to})
}

// node marks a whole subtree as novel.
func (s *sideMarks) node(n *yaml.Node) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			s.node(c)
		}
	case yaml.ScalarNode:
		s.scalar(n)
	case yaml.AliasNode:
		s.add(n.Line-1, n.Column-1, n.Column+len([]rune(n.Value)))
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			s.add(n.Line-1, n.Column-1, -1)
		}
		for _, c := range n.Content {
			s.node(c)
		}
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			s.add(n.Line-1, n.Column-1, -1)
		}
		for _, c := range n.Content {
			s.item(n, c)
		}
	}
}

// item marks a sequence entry together with its block dash.
func (s *sideMarks) item(seq, n *yaml.Node) {
	if seq.Style&yaml.FlowStyle == 0 {
		line, col := n.Line-1, n.Column-1
		if line >= 0 && line < len(s.lines) {
			if runes := []rune(s.lines[line]); col >= 2 && col-2 < len(runes) && runes[col-2] == '-' {
				s.add(line, col-2, col-1)
			}
		}
	}
	s.node(n)
}

func (s *sideMarks) scalar(n *yaml.Node) {
	line, col := n.Line-1, n.Column-1
	if line < 0 || line >= len(s.lines) {
		return
	}

	if n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		s.add(line, col, -1)
		if n.Value == "" {
			return
		}
		body := strings.Count(strings.TrimSuffix(n.Value, "\n"), "\n") + 1
		for k := 1; k <= body && line+k < len(s.lines); k++ {
			text := s.lines[line+k]
			indent := len([]rune(text)) - len([]rune(strings.TrimLeft(text, " ")))
			s.add(line+k, indent, -1)
		}
		return
	}

	end := tokenEnd([]rune(s.lines[line]), col, n)
	s.add(line, col, end)
	if end < 0 {
		s.continuation(line, col)
	}
}

// continuation marks the folded lines of a flow scalar that starts at col on
// line. They are the lines indented past the owning key, or at least as far
// as the scalar itself when it has no key.
func (s *sideMarks) continuation(line, col int) {
	runes := []rune(s.lines[line])
	base := 0
	for base < len(runes) {
		if runes[base] == ' ' {
			base++
			continue
		}
		if runes[base] == '-' && base+1 < len(runes) && runes[base+1] == ' ' {
			base += 2
			continue
		}
		break
	}
	least := base + 1
	if col <= base {
		least = base
	}

	for k := line + 1; k < len(s.lines); k++ {
		text := s.lines[k]
		trimmed := strings.TrimLeft(text, " ")
		if trimmed == "" {
			continue
		}
		indent := len([]rune(text)) - len([]rune(trimmed))
		if indent < least {
			return
		}
		s.add(k, indent, -1)
	}
}

// tokenEnd finds where the scalar starting at col ends on its line, or -1
// when it runs on past the line.
func tokenEnd(runes []rune, col int, n *yaml.Node) int {
	if col >= len(runes) {
		return -1
	}
	switch {
	case n.Style&yaml.DoubleQuotedStyle != 0:
		for i := col + 1; i < len(runes); i++ {
			if runes[i] == '\\' {
				i++
				continue
			}
			if runes[i] == '"' {
				return i + 1
			}
		}
		return -1
	case n.Style&yaml.SingleQuotedStyle != 0:
		for i := col + 1; i < len(runes); i++ {
			if runes[i] != '\'' {
				continue
			}
			if i+1 < len(runes) && runes[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
		return -1
	}
	if strings.HasPrefix(string(runes[col:]), n.Value) {
		return col + len([]rune(n.Value))
	}
	return -1
}

// line builds the spans of one source line, colouring the marked columns.
func (s *sideMarks) line(idx int, color model.ColorTag) model.Line {
	text := s.lines[idx]
	ranges := s.marks[idx]
	if len(ranges) == 0 {
		return plain(text)
	}

	runes := []rune(text)
	novel := make([]bool, len(runes))
	for _, r := range ranges {
		to := r.to
		if to < 0 || to > len(runes) {
			to = len(runes)
		}
		for i := r.from; i < to; i++ {
			novel[i] = true
		}
	}

	var line model.Line
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && novel[i] == novel[start] {
			continue
		}
		c := model.ColorDefault
		if novel[start] {
			c = color
		}
		line = append(line, model.Span{Text: string(runes[start:i]), Color: c})
		start = i
	}
	return spans.Compact(line)
}

// treeDiff walks both trees in step and marks what only one side has.
type treeDiff struct {
	left, right *sideMarks
}

func (d *treeDiff) compare(a, b *yaml.Node) {
	switch {
	case a == nil && b == nil:
		return
	case a == nil:
		d.right.node(b)
		return
	case b == nil:
		d.left.node(a)
		return
	case a.Kind != b.Kind:
		d.left.node(a)
		d.right.node(b)
		return
	}

	switch a.Kind {
	case yaml.DocumentNode:
		var ca, cb *yaml.Node
		if len(a.Content) > 0 {
			ca = a.Content[0]
		}
		if len(b.Content) > 0 {
			cb = b.Content[0]
		}
		d.compare(ca, cb)
	case yaml.MappingNode:
		d.mapping(a, b)
	case yaml.SequenceNode:
		d.sequence(a, b)
	default:
		if a.Value != b.Value || a.ShortTag() != b.ShortTag() {
			d.left.node(a)
			d.right.node(b)
		}
	}
}

// documents pairs the documents of both streams in order. Documents only one
// side has are novel as a whole.
func (d *treeDiff) documents(a, b []*yaml.Node) {
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y *yaml.Node
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		d.compare(x, y)
	}
}

// mapping matches entries by key; repeated keys pair up in order.
func (d *treeDiff) mapping(a, b *yaml.Node) {
	index := make(map[string][]int)
	for j := 0; j+1 < len(b.Content); j += 2 {
		k := b.Content[j].Value
		index[k] = append(index[k], j)
	}

	matched := make(map[int]bool)
	for i := 0; i+1 < len(a.Content); i += 2 {
		key, value := a.Content[i], a.Content[i+1]
		candidates := index[key.Value]
		if len(candidates) == 0 {
			d.left.node(key)
			d.left.node(value)
			continue
		}
		j := candidates[0]
		index[key.Value] = candidates[1:]
		matched[j] = true
		d.compare(value, b.Content[j+1])
	}

	for j := 0; j+1 < len(b.Content); j += 2 {
		if !matched[j] {
			d.right.node(b.Content[j])
			d.right.node(b.Content[j+1])
		}
	}
}

// sequence aligns items by fingerprint. Replaced items are compared pairwise
// so only the parts that differ get marked.
func (d *treeDiff) sequence(a, b *yaml.Node) {
	fa := make([]string, len(a.Content))
	for i, c := range a.Content {
		fa[i] = fingerprint(c)
	}
	fb := make([]string, len(b.Content))
	for i, c := range b.Content {
		fb[i] = fingerprint(c)
	}

	m := difflib.NewMatcherWithJunk(fa, fb, false, nil)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				d.left.item(a, a.Content[i])
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				d.right.item(b, b.Content[j])
			}
		case 'r':
			n, k := op.I2-op.I1, op.J2-op.J1
			for x := 0; x < n || x < k; x++ {
				switch {
				case x < n && x < k:
					d.compare(a.Content[op.I1+x], b.Content[op.J1+x])
				case x < n:
					d.left.item(a, a.Content[op.I1+x])
				default:
					d.right.item(b, b.Content[op.J1+x])
				}
			}
		}
	}
}

// fillMarked colours rows from the recorded marks. A row counts as changed
// only when it carries a mark, whatever the raw text equality says.
func fillMarked(rows []Row, left, right *sideMarks) {
	for i := range rows {
		row := &rows[i]
		row.Changed = false
		if row.Left != nil {
			row.Left.Line = left.line(row.Left.Num-1, model.ColorRemoved)
			row.Changed = row.Changed || painted(row.Left.Line)
		}
		if row.Right != nil {
			row.Right.Line = right.line(row.Right.Num-1, model.ColorAdded)
			row.Changed = row.Changed || painted(row.Right.Line)
		}
	}
}

func painted(line model.Line) bool {
	for _, s := range line {
		if s.Color != model.ColorDefault {
			return true
		}
	}
	return false
}
