// Package diff maps line positions between two versions of a file so the
// blame view can keep the cursor on the same content after a re-blame.
package diff

import (
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// Stats counts how the lines of two versions relate.
type Stats struct {
	Added     int
	Removed   int
	Unchanged int
}

// Changed reports whether the two versions differ at all.
func (s Stats) Changed() bool {
	return s.Added > 0 || s.Removed > 0
}

// Mapping relates line indexes of an old version to a new version.
type Mapping struct {
	ops    []difflib.OpCode
	newLen int
}

// Compute matches the lines of from against to.
func Compute(from, to []string) *Mapping {
	m := &Mapping{newLen: len(to)}

	ops, err := generateOpCodes(from, to)
	if err != nil {
		// Positional fallback: every line maps to the same index.
		ops = positionalOpCodes(len(from), len(to))
	}
	m.ops = ops
	return m
}

// MapLine returns the zero-based index in the new version that best
// corresponds to index i in the old one. Removed lines map to the position
// where they used to be. The result is always a valid index into the new
// version, or 0 if it is empty.
func (m *Mapping) MapLine(i int) int {
	if m.newLen == 0 {
		return 0
	}

	for _, op := range m.ops {
		if i < op.I1 || i >= op.I2 {
			continue
		}
		switch op.Tag {
		case 'e':
			return clamp(op.J1+(i-op.I1), m.newLen)
		case 'r':
			return clamp(op.J1+min(i-op.I1, op.J2-op.J1-1), m.newLen)
		case 'd':
			return clamp(op.J1, m.newLen)
		}
	}
	return clamp(i, m.newLen)
}

// Stats summarises the differences.
func (m *Mapping) Stats() Stats {
	var s Stats
	for _, op := range m.ops {
		switch op.Tag {
		case 'e':
			s.Unchanged += op.I2 - op.I1
		case 'd':
			s.Removed += op.I2 - op.I1
		case 'i':
			s.Added += op.J2 - op.J1
		case 'r':
			s.Removed += op.I2 - op.I1
			s.Added += op.J2 - op.J1
		}
	}
	return s
}

// MapLine is Compute(from, to).MapLine(i).
func MapLine(from, to []string, i int) int {
	return Compute(from, to).MapLine(i)
}

func generateOpCodes(from, to []string) (opcodes []difflib.OpCode, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("line matcher failed: %v", r)
		}
	}()

	matcher := difflib.NewMatcher(from, to)
	return matcher.GetOpCodes(), nil
}

func positionalOpCodes(oldLen, newLen int) []difflib.OpCode {
	common := min(oldLen, newLen)
	var ops []difflib.OpCode
	if common > 0 {
		ops = append(ops, difflib.OpCode{Tag: 'r', I1: 0, I2: common, J1: 0, J2: common})
	}
	if oldLen > common {
		ops = append(ops, difflib.OpCode{Tag: 'd', I1: common, I2: oldLen, J1: common, J2: common})
	}
	if newLen > common {
		ops = append(ops, difflib.OpCode{Tag: 'i', I1: common, I2: common, J1: common, J2: newLen})
	}
	return ops
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
