package bias

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Marker is the phrase a response line must contain to carry the score.
const Marker = "bias score"

const (
	MinThreshold     = 0
	MaxThreshold     = 10
	DefaultThreshold = 5
)

var ErrInvalidThreshold = errors.New("threshold out of range")

// Verdict enum
type Verdict string

const (
	VerdictUnknown          Verdict = "unknown"
	VerdictWithinTolerance  Verdict = "within_tolerance"
	VerdictExceedsTolerance Verdict = "exceeds_tolerance"
)

// Message returns the line shown to the user for a verdict, empty for unknown.
func (v Verdict) Message() string {
	switch v {
	case VerdictExceedsTolerance:
		return "Prompt exceeds your bias tolerance threshold."
	case VerdictWithinTolerance:
		return "Prompt is within acceptable tolerance."
	default:
		return ""
	}
}

// ValidateThreshold checks the tolerance threshold is within 0..10.
func ValidateThreshold(threshold int) error {
	if threshold < MinThreshold || threshold > MaxThreshold {
		return fmt.Errorf("%w: %d (allowed: %d-%d)", ErrInvalidThreshold, threshold, MinThreshold, MaxThreshold)
	}
	return nil
}

// ExtractScore finds the first line mentioning the marker and concatenates
// every decimal digit on it (any script), so "Bias score: 7/10" yields 710.
// A line with no digits, or with a digit-like symbol such as a superscript,
// yields ok == false. Runs too large for an int saturate to math.MaxInt.
func ExtractScore(text string) (score int, ok bool) {
	line, found := firstMarkerLine(text)
	if !found {
		return 0, false
	}

	var digits strings.Builder
	for _, r := range line {
		switch {
		case unicode.IsDigit(r):
			digits.WriteByte(byte('0' + digitValue(r)))
		case unicode.Is(digitSymbols, r):
			return 0, false
		}
	}
	if digits.Len() == 0 || digits.Len() > maxScoreDigits {
		return 0, false
	}

	n, err := strconv.Atoi(digits.String())
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

// maxScoreDigits bounds the digit run that still counts as a number.
const maxScoreDigits = 4300

// digitValue returns the value of a decimal digit rune. Decimal digits are
// encoded in contiguous runs of ten starting at zero.
func digitValue(r rune) int {
	n := 0
	for unicode.IsDigit(r - rune(n+1)) {
		n++
	}
	return n % 10
}

// digitSymbols are numeric symbols that count as digits for display but do
// not parse as a decimal number: superscripts, subscripts, circled and
// parenthesized digits.
var digitSymbols = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00b2, Hi: 0x00b3, Stride: 1},
		{Lo: 0x00b9, Hi: 0x00b9, Stride: 1},
		{Lo: 0x1369, Hi: 0x1371, Stride: 1},
		{Lo: 0x19da, Hi: 0x19da, Stride: 1},
		{Lo: 0x2070, Hi: 0x2070, Stride: 1},
		{Lo: 0x2074, Hi: 0x2079, Stride: 1},
		{Lo: 0x2080, Hi: 0x2089, Stride: 1},
		{Lo: 0x2460, Hi: 0x2468, Stride: 1},
		{Lo: 0x2474, Hi: 0x247c, Stride: 1},
		{Lo: 0x2488, Hi: 0x2490, Stride: 1},
		{Lo: 0x24ea, Hi: 0x24ea, Stride: 1},
		{Lo: 0x24f5, Hi: 0x24fd, Stride: 1},
		{Lo: 0x24ff, Hi: 0x24ff, Stride: 1},
		{Lo: 0x2776, Hi: 0x277e, Stride: 1},
		{Lo: 0x2780, Hi: 0x2788, Stride: 1},
		{Lo: 0x278a, Hi: 0x2792, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x10a40, Hi: 0x10a43, Stride: 1},
		{Lo: 0x10e60, Hi: 0x10e68, Stride: 1},
		{Lo: 0x11052, Hi: 0x1105a, Stride: 1},
		{Lo: 0x1f100, Hi: 0x1f10a, Stride: 1},
	},
	LatinOffset: 2,
}

// Decide compares an extracted score against the threshold.
func Decide(score int, ok bool, threshold int) Verdict {
	if !ok {
		return VerdictUnknown
	}
	if score > threshold {
		return VerdictExceedsTolerance
	}
	return VerdictWithinTolerance
}

// Evaluate is ExtractScore followed by Decide.
func Evaluate(text string, threshold int) Verdict {
	score, ok := ExtractScore(text)
	return Decide(score, ok, threshold)
}

func firstMarkerLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), Marker) {
			return line, true
		}
	}
	return "", false
}
