package chunker

import "strings"

// splitToLines breaks raw text into sentence-respecting lines, each bounded to
// MaxTokensPerLine, using the boundary rules for the configured format.
func splitToLines(text string, opts Options, counter TokenCounter) []string {
	if opts.Format == FormatMarkdown {
		return splitMarkdownLines(text, opts.MaxTokensPerLine, counter)
	}
	return packSentences(splitSentences(text), opts.MaxTokensPerLine, counter)
}

// splitSentences breaks text on sentence-ending punctuation and newlines,
// keeping the delimiter with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}
	for _, r := range text {
		b.WriteRune(r)
		switch r {
		case '.', '!', '?', ';', '\n':
			flush()
		}
	}
	flush()
	return sentences
}

// packSentences packs consecutive sentences into lines of at most maxTokens.
// A sentence that alone exceeds the bound is split on word boundaries instead
// of being dropped.
func packSentences(sentences []string, maxTokens int, counter TokenCounter) []string {
	var lines []string
	var cur []string
	curTokens := 0
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
			cur = cur[:0]
			curTokens = 0
		}
	}
	for _, sentence := range sentences {
		st := counter.CountTokens(sentence)
		if st > maxTokens {
			flush()
			lines = append(lines, splitByWords(sentence, maxTokens, counter)...)
			continue
		}
		if curTokens+st > maxTokens {
			flush()
		}
		cur = append(cur, sentence)
		curTokens += st
	}
	flush()
	return lines
}

// splitByWords greedily packs words into lines of at most maxTokens. A single
// word over the bound becomes its own line.
func splitByWords(text string, maxTokens int, counter TokenCounter) []string {
	var lines []string
	var cur []string
	curTokens := 0
	for _, word := range strings.Fields(text) {
		wt := counter.CountTokens(word)
		if len(cur) > 0 && curTokens+wt > maxTokens {
			lines = append(lines, strings.Join(cur, " "))
			cur = cur[:0]
			curTokens = 0
		}
		cur = append(cur, word)
		curTokens += wt
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}

// splitMarkdownLines splits markdown into lines without breaking inside code
// fences, list items, or headings. Prose lines fall back to sentence rules.
func splitMarkdownLines(text string, maxTokens int, counter TokenCounter) []string {
	var lines []string
	inFence := false
	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)

		if isFenceDelimiter(trimmed) {
			inFence = !inFence
			lines = append(lines, raw)
			continue
		}
		if inFence {
			lines = append(lines, raw)
			continue
		}
		if trimmed == "" {
			continue
		}
		if isListItem(trimmed) || strings.HasPrefix(trimmed, "#") {
			lines = append(lines, raw)
			continue
		}
		lines = append(lines, packSentences(splitSentences(raw), maxTokens, counter)...)
	}
	return lines
}

func isFenceDelimiter(s string) bool {
	return strings.HasPrefix(s, "```") || strings.HasPrefix(s, "~~~")
}

func isListItem(s string) bool {
	if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") || strings.HasPrefix(s, "+ ") {
		return true
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(s) && s[i] == '.' && s[i+1] == ' '
}
