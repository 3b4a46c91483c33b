package ingestion

import "strings"

// defaultSeparators orders split points from coarsest to finest. The empty
// string is the character-level last resort, so no piece can stay over budget
// indefinitely.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter breaks text into chunks of at most chunkSize tokens, with adjacent
// chunks sharing chunkOverlap tokens of trailing context. It tries each
// separator in turn and recurses into the finer ones whenever a piece still
// exceeds the budget.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	length       TokenCounter
}

func NewSplitter(chunkSize, chunkOverlap int, length TokenCounter) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	if length == nil {
		length = func(text string) int { return len(text) }
	}

	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
		length:       length,
	}
}

// Split chunks the text. An empty or whitespace-only input yields no chunks;
// an input under the budget yields exactly one.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	remaining := []string{}
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			separator = candidate
			remaining = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, separator)

	final := make([]string, 0, len(splits))
	withinBudget := make([]string, 0, len(splits))
	for _, piece := range splits {
		if s.length(piece) <= s.chunkSize {
			withinBudget = append(withinBudget, piece)
			continue
		}

		// Flush what fits before descending into the oversized piece.
		if len(withinBudget) > 0 {
			final = append(final, s.merge(withinBudget, separator)...)
			withinBudget = withinBudget[:0]
		}

		if len(remaining) == 0 {
			// A single indivisible unit; kept whole rather than dropped.
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, remaining)...)
		}
	}
	if len(withinBudget) > 0 {
		final = append(final, s.merge(withinBudget, separator)...)
	}

	return final
}

// merge packs consecutive pieces into chunks up to the budget. When a chunk is
// emitted, pieces are dropped from the front until the carried tail is within
// the overlap allowance; the tail then seeds the next chunk.
func (s *Splitter) merge(splits []string, separator string) []string {
	separatorLen := s.length(separator)

	chunks := make([]string, 0)
	current := make([]string, 0)
	total := 0

	for _, piece := range splits {
		pieceLen := s.length(piece)

		if len(current) > 0 && total+pieceLen+separatorLen > s.chunkSize {
			if chunk := joinPieces(current, separator); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for len(current) > 0 &&
				(total > s.chunkOverlap || total+pieceLen+separatorLen > s.chunkSize) {
				total -= s.length(current[0])
				if len(current) > 1 {
					total -= separatorLen
				}
				current = current[1:]
			}
		}

		if len(current) > 0 {
			total += separatorLen
		}
		current = append(current, piece)
		total += pieceLen
	}

	if chunk := joinPieces(current, separator); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = strings.Split(text, "")
	} else {
		parts = strings.Split(text, separator)
	}

	filtered := parts[:0]
	for _, part := range parts {
		if part != "" {
			filtered = append(filtered, part)
		}
	}
	return filtered
}

func joinPieces(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}
