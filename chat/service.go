// Package chat binds retrieved chunks to citation markers and produces a
// grounded answer from a single generation call.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fabfab/mini-rag/llm"
	"github.com/fabfab/mini-rag/retrieval"
)

// Retriever supplies the context chunks for a question, best first.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]retrieval.RankedChunk, error)
}

type Service struct {
	retriever Retriever
	llm       llm.Client
	logger    *log.Logger
}

func NewService(retriever Retriever, llmClient llm.Client, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		retriever: retriever,
		llm:       llmClient,
		logger:    logger,
	}
}

// Answer retrieves context for the question and generates a cited answer.
// With an empty index the model is still invoked over an empty context and is
// instructed to say it does not know.
func (s *Service) Answer(ctx context.Context, question string) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, fmt.Errorf("question cannot be empty")
	}
	if s.retriever == nil {
		return Response{}, fmt.Errorf("retriever not configured")
	}
	if s.llm == nil {
		return Response{}, fmt.Errorf("llm client not configured")
	}

	chunks, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return Response{}, fmt.Errorf("retrieve context: %w", err)
	}
	if len(chunks) == 0 {
		s.logger.Printf("answer: no context retrieved for question")
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: formatUserPrompt(question, formatContext(chunks))},
	}

	answer, err := s.llm.Generate(ctx, messages)
	if err != nil {
		return Response{}, fmt.Errorf("generate answer: %w", err)
	}

	return Response{
		Answer:  strings.TrimSpace(answer),
		Sources: sourceLabels(chunks),
	}, nil
}

const systemPrompt = "You are a helpful assistant for question-answering tasks. " +
	"Use the pieces of retrieved context to answer the question. " +
	"If you don't know the answer, just say that you don't know, and be graceful about it. " +
	"Generate a concise answer and provide inline citations from the documents, " +
	"formatted as [Source ID]."

// formatContext renders each chunk as a labeled block. Chunks carrying page
// metadata get a human-readable Source ID; the rest carry content only.
func formatContext(chunks []retrieval.RankedChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if page, ok := chunk.Metadata["page"]; ok && page != "" {
			blocks = append(blocks, fmt.Sprintf("Source: Page %s\nContent: %s", page, chunk.Content))
		} else {
			blocks = append(blocks, "Content: "+chunk.Content)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func formatUserPrompt(question, context string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// sourceLabels lists the distinct page labels present among the chunks, in
// first-seen order. It is computed from the chunks actually passed to the
// model, independent of whichever citations the model chose to emit inline.
func sourceLabels(chunks []retrieval.RankedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	labels := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		page, ok := chunk.Metadata["page"]
		if !ok || page == "" {
			continue
		}
		label := "Page " + page
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}
