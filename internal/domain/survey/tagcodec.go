package survey

import (
	"log/slog"
	"strings"
)

// Comments of an internal response hold one block per category, separated by
// blank lines. A block starts with an [[internal]] or [[internal|<category>]]
// tag; category names must not contain ']' or '|'. Untagged blocks are legacy
// free text and anything tag-like that does not parse is carried through
// verbatim so no evaluator input is ever dropped.
const tagPrefix = "[[internal"

const blockSeparator = "\n\n"

type DecodedComments struct {
	ByCategory    map[string]string
	Uncategorized string
}

type block struct {
	category string
	text     string
	tagged   bool
}

// EncodeBlock renders one tagged comment block. Whitespace-only text encodes
// to the empty string so empty segments never reach storage.
func EncodeBlock(category, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if category == "" {
		return tagPrefix + "]] " + text
	}
	return tagPrefix + "|" + category + "]] " + text
}

// DecodeBlocks splits a stored comment into tagged category texts and the
// uncategorized remainder. When the same category appears more than once the
// last block wins.
func DecodeBlocks(comment string) DecodedComments {
	decoded := DecodedComments{ByCategory: map[string]string{}}
	var loose []string
	for _, b := range parseBlocks(comment) {
		if b.tagged {
			decoded.ByCategory[b.category] = b.text
			continue
		}
		loose = append(loose, b.text)
	}
	decoded.Uncategorized = strings.Join(loose, blockSeparator)
	return decoded
}

func parseBlocks(comment string) []block {
	var out []block
	for _, raw := range splitBlocks(comment) {
		if category, text, ok := parseTag(raw); ok {
			out = append(out, block{category: category, text: text, tagged: true})
			continue
		}
		if strings.HasPrefix(raw, "[[") {
			slog.Warn("unrecognized comment tag kept as plain text", "block", truncate(raw, 40))
		}
		out = append(out, block{text: raw})
	}
	return out
}

func renderBlocks(blocks []block) string {
	var segments []string
	for _, b := range blocks {
		var segment string
		if b.tagged {
			segment = EncodeBlock(b.category, b.text)
		} else {
			segment = strings.TrimSpace(b.text)
		}
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return strings.Join(segments, blockSeparator)
}

// splitBlocks cuts the comment at runs of one or more blank lines.
func splitBlocks(comment string) []string {
	var blocks []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.TrimSpace(strings.Join(current, "\n")))
			current = nil
		}
	}
	for _, line := range strings.Split(comment, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func parseTag(raw string) (category, text string, ok bool) {
	if !strings.HasPrefix(raw, tagPrefix) {
		return "", "", false
	}
	rest := raw[len(tagPrefix):]
	if strings.HasPrefix(rest, "]]") {
		return "", strings.TrimSpace(rest[2:]), true
	}
	if !strings.HasPrefix(rest, "|") {
		return "", "", false
	}
	inner := rest[1:]
	end := strings.IndexAny(inner, "]|")
	if end < 0 || !strings.HasPrefix(inner[end:], "]]") {
		return "", "", false
	}
	return inner[:end], strings.TrimSpace(inner[end+2:]), true
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max] + "..."
}
