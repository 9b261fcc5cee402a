// Package pattern formats bound values for display using number and date
// patterns in the style of CLDR ("#,##0.00", "d. MMMM yyyy").
package pattern

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/goodsign/monday"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	// ErrInvalidLocale is returned for a locale whose language is not one of
	// de, en, es, fr and it.
	ErrInvalidLocale = errors.New("pattern: invalid locale")
	// ErrInvalidCurrency is returned for an unknown ISO code or for a symbol
	// that would be ambiguous inside a number pattern.
	ErrInvalidCurrency = errors.New("pattern: invalid currency symbol")
)

// DefaultLocale is used when a report does not name one.
const DefaultLocale = "en"

// calendars maps the supported languages to the month and day names used by
// date patterns.
var calendars = map[string]monday.Locale{
	"de": monday.LocaleDeDE,
	"en": monday.LocaleEnUS,
	"es": monday.LocaleEsES,
	"fr": monday.LocaleFrFR,
	"it": monday.LocaleItIT,
}

// Locales returns the supported language codes. Any region of these
// languages is accepted as well ("de-CH", "en_GB").
func Locales() []string {
	codes := make([]string, 0, len(calendars))
	for c := range calendars {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Formatter formats values for one locale and currency symbol. It is
// immutable and safe for concurrent use.
type Formatter struct {
	tag      language.Tag
	calendar monday.Locale
	currency string
	decimal  string
	group    string
}

// New creates a Formatter. An empty locale selects DefaultLocale. cur is
// either a symbol used verbatim or a three letter ISO 4217 code, which is
// replaced by its symbol in the locale.
func New(locale, cur string) (*Formatter, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}
	base, _ := tag.Base()
	cal, ok := calendars[base.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}
	sym, err := currencySymbol(tag, cur)
	if err != nil {
		return nil, err
	}
	f := &Formatter{tag: tag, calendar: cal, currency: sym}
	f.decimal, f.group = separators(tag)
	return f, nil
}

func currencySymbol(tag language.Tag, c string) (string, error) {
	if isISOCode(c) {
		unit, err := currency.ParseISO(c)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidCurrency, c, err)
		}
		c = message.NewPrinter(tag).Sprint(currency.Symbol(unit))
	}
	for _, r := range c {
		if unicode.IsDigit(r) || unicode.IsControl(r) || strings.ContainsRune("#.,;%'", r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, c)
		}
	}
	return c, nil
}

func isISOCode(c string) bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

// separators reads the decimal and grouping symbols of tag from the CLDR
// data by formatting a sample value.
func separators(tag language.Tag) (dec, grp string) {
	s := message.NewPrinter(tag).Sprint(number.Decimal(1234567.8, number.Scale(1)))
	i1 := strings.IndexByte(s, '1') + 1
	i2 := strings.IndexByte(s, '2')
	i7 := strings.IndexByte(s, '7') + 1
	i8 := strings.LastIndexByte(s, '8')
	if i1 <= 0 || i2 < i1 || i7 <= 0 || i8 <= i7 {
		return ".", ","
	}
	return s[i7:i8], s[i1:i2]
}

// Locale returns the canonical locale tag, such as "de" or "de-CH".
func (f *Formatter) Locale() string { return f.tag.String() }

// Currency returns the currency symbol.
func (f *Formatter) Currency() string { return f.currency }

// Format renders any bound value. Decimals and times honor pattern; other
// values ignore it.
func (f *Formatter) Format(v any, pattern string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return f.Number(x, pattern)
	case *decimal.Decimal:
		if x == nil {
			return ""
		}
		return f.Number(*x, pattern)
	case time.Time:
		return f.Date(x, pattern)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = f.Format(item, pattern)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
