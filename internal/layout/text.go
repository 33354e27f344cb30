package layout

import (
	"strings"
	"unicode/utf8"
)

// Columns returns the character budget of a paper width.
func Columns(widthMm int) int {
	if widthMm == 58 {
		return 32
	}
	return 48
}

// Wrap breaks text into lines of at most width runes. Words are never split
// unless a single word is longer than width, in which case it is cut into
// width-sized chunks.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}

	var (
		lines []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if n > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, word := range strings.Fields(text) {
		wn := utf8.RuneCountInString(word)

		if wn > width {
			flush()
			chunks := split(word, width)
			// the last chunk may still share a line with the next word
			lines = append(lines, chunks[:len(chunks)-1]...)
			last := chunks[len(chunks)-1]
			cur.WriteString(last)
			n = utf8.RuneCountInString(last)
			continue
		}

		if n > 0 && n+1+wn > width {
			flush()
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(word)
		n += wn
	}
	flush()

	return lines
}

func split(word string, width int) []string {
	runes := []rune(word)
	chunks := make([]string, 0, len(runes)/width+1)
	for len(runes) > width {
		chunks = append(chunks, string(runes[:width]))
		runes = runes[width:]
	}
	return append(chunks, string(runes))
}

// Center pads s on the left so it sits in the middle of width columns.
func Center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}

// Columnar lays out a label and a right-aligned value. When both do not fit
// on one line the label wraps, and the value stays on the first line.
func Columnar(label, value string, width int) []string {
	vn := utf8.RuneCountInString(value)
	avail := width - vn - 1
	if avail < 1 {
		return append(Wrap(label, width), pad(value, width))
	}

	lines := Wrap(label, avail)
	if len(lines) == 0 {
		return []string{pad(value, width)}
	}

	first := lines[0]
	out := []string{first + pad(value, width-utf8.RuneCountInString(first))}
	if len(lines) > 1 {
		rest := strings.Join(lines[1:], " ")
		out = append(out, Wrap(rest, width)...)
	}
	return out
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}

func rule(width int) string {
	return strings.Repeat("-", width)
}
