package ingest

import (
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
	"github.com/amlandas/newsgraph/internal/ner"
)

// wordCount approximates a token count by whitespace-delimited words, the
// same coarse token proxy the pipeline uses everywhere chunk sizing matters
// (no tokenizer is wired in).
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// Chunk splits cleaned text into chunks of at most size tokens with overlap
// tokens of repeated trailing content between consecutive chunks, aligned to
// sentence boundaries: a sentence straddles two chunks only if it alone
// exceeds size.
func Chunk(cleaned string, sentences []ner.Sentence, size, overlap int) []domain.Chunk {
	if size <= 0 {
		size = 200
	}
	if overlap < 0 {
		overlap = 0
	}
	if len(sentences) == 0 {
		sentences = ner.Segment(cleaned)
	}
	if len(sentences) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	idx := 0
	i := 0
	for i < len(sentences) {
		start := sentences[i].Start
		tokens := 0
		j := i
		for j < len(sentences) {
			st := wordCount(sentences[j].Text)
			if tokens > 0 && tokens+st > size {
				break
			}
			tokens += st
			j++
			if tokens >= size {
				break
			}
		}
		if j == i {
			// A single sentence alone exceeds size; keep it whole.
			j = i + 1
		}
		end := sentences[j-1].End
		content := strings.TrimSpace(cleaned[start:end])
		if content != "" {
			chunks = append(chunks, domain.Chunk{
				Index:     idx,
				Content:   content,
				StartChar: start,
				EndChar:   end,
			})
			idx++
		}

		if j >= len(sentences) {
			break
		}

		// Step back by roughly `overlap` tokens worth of trailing sentences.
		back := j
		overlapTokens := 0
		for back > i && overlapTokens < overlap {
			back--
			overlapTokens += wordCount(sentences[back].Text)
		}
		if back <= i {
			i = j
		} else {
			i = back
		}
	}
	return chunks
}
