package ingest

import (
	"regexp"
	"strings"
)

// Markdown is stripped down to plain prose before chunking: code blocks and
// inline code carry little retrieval signal, and syntax characters pollute
// the embeddings.
var (
	frontmatterRe = regexp.MustCompile(`(?s)^---.*?---\n`)
	codeBlockRe   = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`[^`]*`")
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headerRe      = regexp.MustCompile(`#+\s+`)
	boldRe        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe      = regexp.MustCompile(`\*([^*]+)\*`)
)

// CleanMarkdown strips YAML frontmatter and markdown syntax, leaving plain
// text. Links keep their label, bold and italic keep their content.
func CleanMarkdown(text string) string {
	text = frontmatterRe.ReplaceAllString(text, "")
	text = codeBlockRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = headerRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// ChunkText splits text into chunks of approximately chunkSize words.
// Word boundaries are whitespace; the final chunk holds the remainder.
func ChunkText(text string, chunkSize int) []string {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(words); start += chunkSize {
		end := min(start+chunkSize, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
