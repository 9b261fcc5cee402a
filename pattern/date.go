package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// Date formats t with a CLDR date pattern. Supported fields are y, M, d, E,
// H, h, m, s and a; text inside single quotes is copied verbatim. Month and
// day names come from the calendar of the locale. Without a
// pattern the ISO date is returned, followed by the time when it is not
// midnight.
func (f *Formatter) Date(t time.Time, pattern string) string {
	if pattern == "" {
		switch {
		case t.Second() != 0:
			return t.Format("2006-01-02 15:04:05")
		case t.Hour() != 0 || t.Minute() != 0:
			return t.Format("2006-01-02 15:04")
		}
		return t.Format("2006-01-02")
	}

	var b strings.Builder
	rs := []rune(pattern)
	for i := 0; i < len(rs); {
		c := rs[i]
		if c == '\'' {
			if i+1 < len(rs) && rs[i+1] == '\'' {
				b.WriteRune('\'')
				i += 2
				continue
			}
			j := i + 1
			for j < len(rs) {
				if rs[j] == '\'' {
					if j+1 < len(rs) && rs[j+1] == '\'' {
						b.WriteRune('\'')
						j += 2
						continue
					}
					break
				}
				b.WriteRune(rs[j])
				j++
			}
			i = j + 1
			continue
		}
		n := 1
		for i+n < len(rs) && rs[i+n] == c {
			n++
		}
		b.WriteString(f.dateField(t, c, n))
		i += n
	}
	return b.String()
}

func (f *Formatter) dateField(t time.Time, c rune, n int) string {
	switch c {
	case 'y':
		if n == 2 {
			return fmt.Sprintf("%02d", t.Year()%100)
		}
		return fmt.Sprintf("%0*d", n, t.Year())
	case 'M', 'L':
		switch {
		case n >= 4:
			return f.name(t, "January")
		case n == 3:
			return f.name(t, "Jan")
		}
		return pad(int(t.Month()), n)
	case 'd':
		return pad(t.Day(), n)
	case 'E':
		if n >= 4 {
			return f.name(t, "Monday")
		}
		return f.name(t, "Mon")
	case 'H':
		return pad(t.Hour(), n)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, n)
	case 'm':
		return pad(t.Minute(), n)
	case 's':
		return pad(t.Second(), n)
	case 'a':
		return f.name(t, "PM")
	}
	return strings.Repeat(string(c), n)
}

// name renders a single Go layout element in the calendar of the locale.
func (f *Formatter) name(t time.Time, layout string) string {
	return monday.Format(t, layout, f.calendar)
}

func pad(v, n int) string {
	return fmt.Sprintf("%0*d", n, v)
}
