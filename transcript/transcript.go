// Package transcript turns a structured recognition result into the plain
// text and the time-aligned markup stored on a completed job. Both
// transforms are pure: the same result always yields the same output.
package transcript

import (
	"html"
	"strconv"
	"strings"

	"hark/asr"
)

// Text joins the best alternative of every segment with newlines.
func Text(result *asr.Result) string {
	var b strings.Builder
	first := true
	for _, segment := range result.Segments {
		if len(segment.Alternatives) == 0 {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		b.WriteString(segment.Alternatives[0].Transcript)
		first = false
	}
	return b.String()
}

// Markup renders every recognized word as a span carrying its start and end
// time in fractional seconds, grouped into one sentence container per
// segment. Containers are concatenated in recognition order with single
// spaces. The spans are what makes the rendered transcript clickable: a
// viewer seeks the audio player to data-start-time.
func Markup(result *asr.Result) string {
	var b strings.Builder
	first := true
	for _, segment := range result.Segments {
		if len(segment.Alternatives) == 0 {
			continue
		}
		if !first {
			b.WriteString(" ")
		}
		first = false
		b.WriteString(`<p class="sentence">`)
		for j, word := range segment.Alternatives[0].Words {
			if j > 0 {
				b.WriteString(" ")
			}
			writeWordSpan(&b, word)
		}
		b.WriteString(`</p>`)
	}
	return b.String()
}

func writeWordSpan(b *strings.Builder, word asr.Word) {
	b.WriteString(`<span data-start-time="`)
	b.WriteString(formatSeconds(word.StartTime))
	b.WriteString(`" data-end-time="`)
	b.WriteString(formatSeconds(word.EndTime))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(word.Word))
	b.WriteString(`</span>`)
}

func formatSeconds(o asr.Offset) string {
	return strconv.FormatFloat(o.Float64(), 'f', -1, 64)
}
