// Package label turns the values a form widget produces back into the
// integer codes the risk model was trained on.
//
// A widget either hands over a code directly (a numeric selector) or a
// display label that embeds the code, e.g. "Typical angina (3)". Decoding
// never fails: ambiguous input falls back to a caller-supplied default.
package label

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Value is a raw widget selection: either a Code or a Display label.
type Value interface {
	decode(def int) int
}

// Code is a selection that already is the model's integer code.
type Code int

// Display is a human-readable label that may embed the code in parentheses.
type Display string

var parenCode = regexp.MustCompile(`\((\p{Nd}+)\)`)

func (c Code) decode(int) int { return int(c) }

func (d Display) decode(def int) int {
	s := string(d)

	// Only the first parenthesised group counts.
	if m := parenCode.FindStringSubmatch(s); m != nil {
		if n, ok := atoi(m[1]); ok {
			return n
		}
		return def
	}

	if n, ok := atoi(s); ok {
		return n
	}
	return def
}

// atoi reads the decimal digits of s in order, skipping everything else.
// Any Unicode decimal digit counts, so "٤٢" reads as 42.
func atoi(s string) (int, bool) {
	var digits strings.Builder
	for _, r := range s {
		if v, ok := digitValue(r); ok {
			digits.WriteByte(byte('0' + v))
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	return n, err == nil
}

// digitValue returns the value of a decimal digit rune. Decimal digits come
// in contiguous runs of ten starting at zero, so the offset into the run
// gives the value.
func digitValue(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	if !unicode.Is(unicode.Nd, r) {
		return 0, false
	}
	for _, rg := range unicode.Nd.R16 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return int(r-rune(rg.Lo)) % 10, true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return int(r-rune(rg.Lo)) % 10, true
		}
	}
	return 0, false
}

// Decode maps v to the integer code the model expects.
//
// Resolution order: a Code is returned unchanged; a Display label yields the
// integer inside its first "(digits)" group, else every digit in the text
// concatenated in order, else def. Digits are any Unicode decimal digit
// (category Nd), e.g. Arabic-Indic "٣" reads as 3. Other numeric runes such
// as superscripts are ignored. A nil Value yields def.
func Decode(v Value, def int) int {
	if v == nil {
		return def
	}
	return v.decode(def)
}

// Parse converts command-line text into a Value. Plain integers become a
// Code; anything else is kept as a Display label.
func Parse(s string) Value {
	t := strings.TrimSpace(s)
	if n, err := strconv.Atoi(t); err == nil {
		return Code(n)
	}
	return Display(s)
}

// Field carries a Value through JSON. Numbers decode to Code and strings to
// Display, so callers downstream never inspect the dynamic type themselves.
type Field struct {
	Value Value
}

// Decode resolves the field with the given default.
func (f Field) Decode(def int) int {
	return Decode(f.Value, def)
}

// IsSet reports whether the field was present in the input.
func (f Field) IsSet() bool {
	return f.Value != nil
}

func (f *Field) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		f.Value = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f.Value = Display(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("label must be a string or integer: %w", err)
	}
	i, err := n.Int64()
	if err != nil {
		// Non-integral numbers are treated like free text.
		f.Value = Display(n.String())
		return nil
	}
	f.Value = Code(int(i))
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	switch v := f.Value.(type) {
	case Code:
		return json.Marshal(int(v))
	case Display:
		return json.Marshal(string(v))
	default:
		return []byte("null"), nil
	}
}
