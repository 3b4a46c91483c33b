package ingestion

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures text length for the splitter. Chunk budgets are
// expressed in tokens, not characters.
type TokenCounter func(text string) int

// NewTiktokenCounter counts tokens with the cl100k_base encoding.
func NewTiktokenCounter() (TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}

	return func(text string) int {
		return len(encoding.Encode(text, nil, nil))
	}, nil
}
