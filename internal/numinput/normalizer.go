// Package numinput keeps a free-text numeric input field valid while the user
// types and tidies its value when the field loses focus.
package numinput

import (
	"strings"
	"unicode/utf8"
)

// Separator is the only accepted decimal separator.
const Separator = '.'

// Input is the field a Normalizer is bound to.
type Input interface {
	Value() string
	SetValue(v string)
	Focused() bool
}

// KeyPressEvent describes a keystroke about to be applied to an Input.
// Selection bounds are byte offsets into the current value; a collapsed
// selection is a plain caret.
type KeyPressEvent struct {
	Key            string
	SelectionStart int
	SelectionEnd   int

	prevented bool
}

// PreventDefault suppresses the keystroke.
func (e *KeyPressEvent) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether the keystroke was suppressed.
func (e *KeyPressEvent) DefaultPrevented() bool { return e.prevented }

// Normalizer enforces decimal syntax and precision on a single Input.
type Normalizer struct {
	input     Input
	precision int
}

// New binds a Normalizer to input. precision is the maximum number of
// fractional digits; negative values are treated as zero.
func New(input Input, precision int) *Normalizer {
	if precision < 0 {
		precision = 0
	}
	return &Normalizer{input: input, precision: precision}
}

// Precision returns the configured maximum number of fractional digits.
func (n *Normalizer) Precision() int { return n.precision }

// OnKeyPress prevents keystrokes that would leave the field holding an
// invalid decimal. Named keys such as "Enter" or "Backspace" pass through.
// The field value itself is never modified here.
func (n *Normalizer) OnKeyPress(ev *KeyPressEvent) {
	if ev == nil || utf8.RuneCountInString(ev.Key) != 1 {
		return
	}
	candidate := insert(n.input.Value(), ev.Key, ev.SelectionStart, ev.SelectionEnd)
	if !Valid(candidate, n.precision) {
		ev.PreventDefault()
	}
}

// OnBlur rewrites the value once the field has lost focus: fractional digits
// beyond the precision are cut and insignificant trailing zeros removed.
// It does nothing while the field is still focused.
func (n *Normalizer) OnBlur() {
	if n.input.Focused() {
		return
	}
	v := n.input.Value()
	if nv := Normalize(v, n.precision); nv != v {
		n.input.SetValue(nv)
	}
}

func insert(value, key string, start, end int) string {
	if start > end {
		start, end = end, start
	}
	start = clamp(start, 0, len(value))
	end = clamp(end, 0, len(value))
	return value[:start] + key + value[end:]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Valid reports whether s is an acceptable, possibly partial, decimal: digits
// with at most one separator and no more than precision fractional digits.
// The empty string and a lone separator are valid while typing.
func Valid(s string, precision int) bool {
	seenSep := false
	fraction := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == Separator:
			if seenSep || precision <= 0 {
				return false
			}
			seenSep = true
		case c >= '0' && c <= '9':
			if seenSep {
				fraction++
				if fraction > precision {
					return false
				}
			}
		default:
			return false
		}
	}
	return true
}

// isNumber reports whether s is digits with at most one separator and at
// least one digit.
func isNumber(s string) bool {
	digits := 0
	seenSep := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == Separator:
			if seenSep {
				return false
			}
			seenSep = true
		case c >= '0' && c <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0
}

// AdjustPrecision truncates fractional digits beyond precision. Text that is
// not a number is returned unchanged.
func AdjustPrecision(s string, precision int) string {
	if !isNumber(s) {
		return s
	}
	i := strings.IndexByte(s, Separator)
	if i < 0 {
		return s
	}
	if precision <= 0 {
		return s[:i]
	}
	if len(s)-i-1 > precision {
		return s[:i+1+precision]
	}
	return s
}

// RemoveExcessZeros strips trailing zeros from the fractional part and a bare
// trailing separator, keeping the numeric value. Text that is not a number is
// returned unchanged.
func RemoveExcessZeros(s string) string {
	if !isNumber(s) || strings.IndexByte(s, Separator) < 0 {
		return s
	}
	out := strings.TrimRight(s, "0")
	out = strings.TrimSuffix(out, string(Separator))
	if out == "" {
		return "0"
	}
	return out
}

// Normalize applies AdjustPrecision and then RemoveExcessZeros.
func Normalize(s string, precision int) string {
	return RemoveExcessZeros(AdjustPrecision(s, precision))
}
