package chunking

import (
	"fmt"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 10
)

// separators are tried in order; the first one found inside the cut window wins.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("? "),
	[]rune("! "),
	[]rune(" "),
}

// Splitter cuts text into passages of at most ChunkSize runes. Consecutive
// passages share exactly Overlap runes, so dropping the first Overlap runes of
// every passage after the first and concatenating yields the input.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new splitter",
			fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, chunkSize))
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}, nil
}

func (s *Splitter) Split(text string) []domain.Passage {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]domain.Passage, 0, len(runes)/(s.ChunkSize-s.Overlap)+1)
	start := 0
	for {
		if len(runes)-start <= s.ChunkSize {
			out = append(out, domain.Passage{Position: len(out), Offset: start, Text: string(runes[start:])})
			return out
		}
		end := s.cutPoint(runes, start)
		out = append(out, domain.Passage{Position: len(out), Offset: start, Text: string(runes[start:end])})
		start = end - s.Overlap
	}
}

// cutPoint returns the exclusive end of the passage starting at start. The end
// always lies in (start+Overlap, start+ChunkSize] so the next start advances.
func (s *Splitter) cutPoint(runes []rune, start int) int {
	window := runes[start : start+s.ChunkSize]
	for _, sep := range separators {
		idx := lastIndex(window, sep)
		if idx < 0 {
			continue
		}
		if end := idx + len(sep); end > s.Overlap {
			return start + end
		}
	}
	return start + s.ChunkSize
}

func lastIndex(haystack, needle []rune) int {
	for i := len(haystack) - len(needle); i >= 0; i-- {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
