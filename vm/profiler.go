package vm

import "sort"

// Profiler counts how often each instruction index executes and how often
// the chrono-stack redirects control. It is owned by a single engine and is
// not safe for concurrent use.
type Profiler struct {
	counts    map[int]uint64
	glyphs    map[int]byte
	redirects uint64
	total     uint64
}

// InstructionProfile is the execution count of one instruction index.
type InstructionProfile struct {
	Index int
	Glyph byte
	Count uint64
}

// NewProfiler creates an empty profiler.
func NewProfiler() *Profiler {
	return &Profiler{
		counts: make(map[int]uint64),
		glyphs: make(map[int]byte),
	}
}

// RecordInstruction notes that glyph executed at index ip.
func (p *Profiler) RecordInstruction(ip int, glyph byte) {
	if p == nil {
		return
	}
	p.counts[ip]++
	p.glyphs[ip] = glyph
	p.total++
}

// RecordRedirect notes a chrono-stack redirect.
func (p *Profiler) RecordRedirect() {
	if p != nil {
		p.redirects++
	}
}

// Total is the number of instructions recorded.
func (p *Profiler) Total() uint64 {
	if p == nil {
		return 0
	}
	return p.total
}

// Redirects is the number of chrono-stack redirects recorded.
func (p *Profiler) Redirects() uint64 {
	if p == nil {
		return 0
	}
	return p.redirects
}

// Hot returns up to n of the most executed instruction indices, busiest
// first, ties broken by index.
func (p *Profiler) Hot(n int) []InstructionProfile {
	if p == nil {
		return nil
	}
	out := make([]InstructionProfile, 0, len(p.counts))
	for ip, c := range p.counts {
		out = append(out, InstructionProfile{Index: ip, Glyph: p.glyphs[ip], Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Index < out[j].Index
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
