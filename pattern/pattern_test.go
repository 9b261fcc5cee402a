package pattern

import (
	"testing"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLocale(t *testing.T) {
	_, err := New("pt", "")
	assert.ErrorIs(t, err, ErrInvalidLocale)

	_, err = New("de", "1€")
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	f, err := New("", "$")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocale, f.Locale())

	f, err = New("DE", "€")
	require.NoError(t, err)
	assert.Equal(t, "de", f.Locale())

	f, err = New("de_CH", "CHF")
	require.NoError(t, err, "regions of a supported language are accepted")
	assert.Equal(t, "de-CH", f.Locale())

	_, err = New("en", "XYZ")
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	assert.Equal(t, []string{"de", "en", "es", "fr", "it"}, Locales())
}

func TestISOCurrencyCodesUseLocaleSymbol(t *testing.T) {
	de, err := New("de", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "€", de.Currency())
	assert.Equal(t, "12,00 €", de.Number(decimal.NewFromInt(12), "#,##0.00 ¤"))

	custom, err := New("en", "Fr.")
	assert.ErrorIs(t, err, ErrInvalidCurrency, "dots clash with the pattern syntax")
	assert.Nil(t, custom)
}

func TestSeparatorsFollowLocaleData(t *testing.T) {
	for _, tc := range []struct{ locale, dec, grp string }{
		{"en", ".", ","},
		{"de", ",", "."},
		{"it", ",", "."},
	} {
		f, err := New(tc.locale, "")
		require.NoError(t, err)
		assert.Equal(t, tc.dec, f.decimal, tc.locale)
		assert.Equal(t, tc.grp, f.group, tc.locale)
	}

	fr, err := New("fr", "")
	require.NoError(t, err)
	assert.Equal(t, ",", fr.decimal)
	r, _ := utf8.DecodeRuneInString(fr.group)
	assert.True(t, unicode.IsSpace(r), "french groups with a space, got %q", fr.group)
}

func TestNumber(t *testing.T) {
	de, _ := New("de", "€")
	en, _ := New("en", "$")
	fr, _ := New("fr", "€")

	cases := []struct {
		f       *Formatter
		value   string
		pattern string
		want    string
	}{
		{de, "1234.5", "#,##0.00", "1.234,50"},
		{en, "1234.5", "#,##0.00", "1,234.50"},
		{fr, "1234567.891", "#,##0.##", "1" + fr.group + "234" + fr.group + "567,89"},
		{en, "14.25", "0.###", "14.25"},
		{en, "0.5", "#.00", ".50"},
		{en, "-3.456", "0.00", "-3.46"},
		{en, "-0.001", "0.00", "0.00"},
		{de, "99.9", "#,##0.00 $", "99,90 €"},
		{en, "42", "$#,##0", "$42"},
		{en, "0.256", "0.0%", "25.6%"},
		{en, "7", "000", "007"},
		{en, "12.3400", "", "12.34"},
	}
	for _, c := range cases {
		got := c.f.Number(decimal.RequireFromString(c.value), c.pattern)
		assert.Equal(t, c.want, got, "%s with %q", c.value, c.pattern)
	}
}

func TestDate(t *testing.T) {
	de, _ := New("de", "")
	en, _ := New("en", "")
	ts := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

	assert.Equal(t, "5. März 2024", de.Date(ts, "d. MMMM yyyy"))
	assert.Equal(t, "Dienstag, 5. März", de.Date(ts, "EEEE, d. MMMM"))
	assert.Equal(t, "05.03.24", de.Date(ts, "dd.MM.yy"))
	assert.Equal(t, "Tuesday, Mar 5", en.Date(ts, "EEEE, MMM d"))
	assert.Equal(t, "02:07 PM", en.Date(ts, "hh:mm a"))
	assert.Equal(t, "14:07:09 o'clock", en.Date(ts, "HH:mm:ss 'o''clock'"))

	assert.Equal(t, "2024-03-05 14:07:09", en.Date(ts, ""))
	assert.Equal(t, "2024-03-05", en.Date(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), ""))
}

func TestFormatDispatch(t *testing.T) {
	en, _ := New("en", "")
	assert.Equal(t, "", en.Format(nil, ""))
	assert.Equal(t, "true", en.Format(true, ""))
	assert.Equal(t, "text", en.Format("text", "0.00"))
	assert.Equal(t, "1.50", en.Format(decimal.RequireFromString("1.5"), "0.00"))
	assert.Equal(t, "1, 2", en.Format([]any{decimal.NewFromInt(1), decimal.NewFromInt(2)}, ""))
}
