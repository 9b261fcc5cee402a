package pattern

import (
	"strings"

	"github.com/shopspring/decimal"
)

// numberPattern is a parsed number pattern such as "$ #,##0.00" or "0.0%".
type numberPattern struct {
	prefix, suffix string
	minInt         int
	minFrac        int
	maxFrac        int
	grouping       int // group size, 0 disables grouping
	percent        bool
}

func parseNumberPattern(p string) numberPattern {
	// only the positive sub-pattern is used; negatives get a leading minus
	if i := strings.IndexByte(p, ';'); i >= 0 {
		p = p[:i]
	}
	start := strings.IndexAny(p, "#0")
	if start < 0 {
		return numberPattern{prefix: p, minInt: 1}
	}
	end := strings.LastIndexAny(p, "#0,.") + 1
	np := numberPattern{prefix: p[:start], suffix: p[end:]}
	body := p[start:end]

	intPart, fracPart := body, ""
	if i := strings.IndexByte(body, '.'); i >= 0 {
		intPart, fracPart = body[:i], body[i+1:]
	}
	if i := strings.LastIndexByte(intPart, ','); i >= 0 {
		np.grouping = len(intPart) - i - 1
	}
	np.minInt = strings.Count(intPart, "0")
	np.minFrac = strings.Count(fracPart, "0")
	np.maxFrac = np.minFrac + strings.Count(fracPart, "#")
	np.percent = strings.Contains(np.prefix, "%") || strings.Contains(np.suffix, "%")
	return np
}

// Number formats d with a number pattern. The "$" and "¤" placeholders are
// replaced by the currency symbol. Without a pattern the plain decimal
// representation is returned.
func (f *Formatter) Number(d decimal.Decimal, pattern string) string {
	if pattern == "" {
		return d.String()
	}
	np := parseNumberPattern(pattern)
	if np.percent {
		d = d.Mul(decimal.NewFromInt(100))
	}
	neg := d.Sign() < 0
	d = d.Abs().Round(int32(np.maxFrac))

	fixed := d.StringFixed(int32(np.maxFrac))
	intDigits, fracDigits := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intDigits, fracDigits = fixed[:i], fixed[i+1:]
	}
	for len(fracDigits) > np.minFrac && strings.HasSuffix(fracDigits, "0") {
		fracDigits = fracDigits[:len(fracDigits)-1]
	}
	if intDigits == "0" && np.minInt == 0 {
		intDigits = ""
	}
	for len(intDigits) < np.minInt {
		intDigits = "0" + intDigits
	}
	if np.grouping > 0 {
		intDigits = group(intDigits, np.grouping, f.group)
	}

	var b strings.Builder
	if neg && !d.IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(f.affix(np.prefix))
	b.WriteString(intDigits)
	if fracDigits != "" {
		b.WriteString(f.decimal)
		b.WriteString(fracDigits)
	}
	b.WriteString(f.affix(np.suffix))
	return b.String()
}

func (f *Formatter) affix(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "¤", f.currency)
	return strings.ReplaceAll(s, "$", f.currency)
}

func group(digits string, size int, sep string) string {
	if len(digits) <= size {
		return digits
	}
	var parts []string
	for len(digits) > size {
		parts = append([]string{digits[len(digits)-size:]}, parts...)
		digits = digits[:len(digits)-size]
	}
	parts = append([]string{digits}, parts...)
	return strings.Join(parts, sep)
}
