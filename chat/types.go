package chat

// Response is a generated answer plus the ordered, de-duplicated source
// labels of the chunks that were offered as context.
type Response struct {
	Answer  string
	Sources []string
}
