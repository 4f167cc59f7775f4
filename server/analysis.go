package server

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/chrono/vm"
)

// document is an open program file together with its bracket analysis.
// The program is the text with line breaks removed, exactly what the CLI
// hands to the engine, so program indices differ from text offsets.
type document struct {
	text      string
	program   string
	positions []protocol.Position // program index → document position
	tables    *vm.DualJumpTable
}

func analyze(text string) *document {
	d := &document{text: text}

	var prog strings.Builder
	var line, col protocol.UInteger
	for off := 0; off < len(text); {
		r, size := utf8.DecodeRuneInString(text[off:])
		if r == '\n' || r == '\r' {
			// \r\n counts once, at the \n; a lone \r ends a line by itself.
			if r == '\n' || !strings.HasPrefix(text[off+size:], "\n") {
				line++
				col = 0
			}
			off += size
			continue
		}
		for i := 0; i < size; i++ {
			d.positions = append(d.positions, protocol.Position{Line: line, Character: col})
			prog.WriteByte(text[off+i])
		}
		col += protocol.UInteger(len(utf16.Encode([]rune{r})))
		off += size
	}

	d.program = prog.String()
	d.tables = vm.NewDualJumpTable(d.program)
	return d
}

// indexAt returns the program index under pos, or -1. Multi-byte
// characters resolve to their first byte.
func (d *document) indexAt(pos protocol.Position) int {
	i := sort.Search(len(d.positions), func(i int) bool {
		p := d.positions[i]
		return p.Line > pos.Line || (p.Line == pos.Line && p.Character >= pos.Character)
	})
	if i < len(d.positions) && d.positions[i] == pos {
		return i
	}
	return -1
}

// rangeOf covers the single character at program index i.
func (d *document) rangeOf(i int) protocol.Range {
	start := d.positions[i]
	end := start
	end.Character++
	return protocol.Range{Start: start, End: end}
}

// match returns the partner of the bracket at i in the table used by mode,
// or vm.NoMatch. ok is false when i is not a bracket.
func (d *document) match(i int, mode vm.Mode) (partner int, ok bool) {
	image := d.program
	if mode == vm.Reverse {
		image = vm.Mirror(d.program)
	}
	table := d.tables.For(mode)
	switch image[i] {
	case vm.GlyphOpen:
		return table.Forward[i], true
	case vm.GlyphClose:
		return table.Backward[i], true
	}
	return 0, false
}

func (d *document) diagnostics() []protocol.Diagnostic {
	source := lspName
	var out []protocol.Diagnostic

	warning := protocol.DiagnosticSeverityWarning
	for _, i := range d.tables.Standard.Unmatched() {
		out = append(out, protocol.Diagnostic{
			Range:    d.rangeOf(i),
			Severity: &warning,
			Source:   &source,
			Message:  fmt.Sprintf("unmatched %q: jumping here is fatal in forward mode", d.program[i]),
		})
	}

	// Reverse mode is only reachable through R. Mirroring a balanced
	// program unpairs every bracket, so report it once.
	mirrored := d.tables.Mirrored.Unmatched()
	if len(mirrored) == 0 || strings.IndexByte(d.program, vm.GlyphReverse) < 0 {
		return out
	}
	info := protocol.DiagnosticSeverityInformation
	out = append(out, protocol.Diagnostic{
		Range:    d.rangeOf(mirrored[0]),
		Severity: &info,
		Source:   &source,
		Message: fmt.Sprintf("%d of %d brackets have no partner in the mirrored program: jumping through them is fatal in reverse mode",
			len(mirrored), strings.Count(d.program, "{")+strings.Count(d.program, "}")),
	})
	return out
}

func (d *document) hover(i int) *protocol.Hover {
	c := d.program[i]
	g, ok := vm.LookupGlyph(c)
	if !ok {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%c** (%s), program index %d\n\n", c, g.Name, i)
	fmt.Fprintf(&b, "- forward: %s\n", g.Forward)
	fmt.Fprintf(&b, "- reverse: %s\n", g.Reverse)

	if vm.IsBracket(c) {
		b.WriteString("\n")
		for _, mode := range []vm.Mode{vm.Forward, vm.Reverse} {
			partner, _ := d.match(i, mode)
			if partner == vm.NoMatch {
				fmt.Fprintf(&b, "%s: no partner\n\n", mode)
				continue
			}
			p := d.positions[partner]
			fmt.Fprintf(&b, "%s: matches index %d (line %d, column %d)\n\n", mode, partner, p.Line+1, p.Character+1)
		}
	}

	r := d.rangeOf(i)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &r,
	}
}

func completionItems() []protocol.CompletionItem {
	var items []protocol.CompletionItem
	kind := protocol.CompletionItemKindOperator
	for _, g := range vm.Glyphs() {
		label := string(rune(g.Glyph))
		detail := g.Name
		doc := fmt.Sprintf("forward: %s\nreverse: %s", g.Forward, g.Reverse)
		items = append(items, protocol.CompletionItem{
			Label:         label,
			Kind:          &kind,
			Detail:        &detail,
			Documentation: doc,
			InsertText:    &label,
		})
	}
	return items
}
