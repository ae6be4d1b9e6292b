package ingest

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators split on paragraph breaks first, then lines, then words,
// and finally individual characters when nothing else fits.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into chunks of at most ChunkSize runes, preferring to
// break at paragraph and line boundaries, with ChunkOverlap runes carried
// between adjacent chunks for context continuity.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter returns a splitter with the given size and overlap in runes.
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split breaks text into chunks. Whitespace-only output is dropped, so empty
// input yields no chunks.
func (s *Splitter) Split(text string) []string {
	return s.split(text, defaultSeparators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var chunks []string
	var good []string
	for _, piece := range splitOn(text, separator) {
		if utf8.RuneCountInString(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good, separator)...)
			good = nil
		}
		if len(next) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good, separator)...)
	}
	return chunks
}

// merge greedily packs pieces into chunks up to ChunkSize, rejoining them
// with the separator they were split on and keeping ChunkOverlap runes of
// trailing pieces for the next chunk.
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)

	var chunks []string
	var current []string
	total := 0
	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if len(current) > 0 && total+pieceLen+sepLen > s.ChunkSize {
			if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Drop leading pieces until the carried tail fits the overlap.
			for total > s.ChunkOverlap || (total+pieceLen+sepLen > s.ChunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += pieceLen
		if len(current) > 1 {
			total += sepLen
		}
	}
	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func splitOn(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	var pieces []string
	for _, piece := range strings.Split(text, separator) {
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}
