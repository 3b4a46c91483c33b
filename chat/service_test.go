package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/fabfab/mini-rag/llm"
	"github.com/fabfab/mini-rag/retrieval"
)

type stubRetriever struct {
	chunks []retrieval.RankedChunk
	err    error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string) ([]retrieval.RankedChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks, nil
}

var _ Retriever = (*stubRetriever)(nil)

type stubLLM struct {
	answer   string
	err      error
	messages []llm.Message
	calls    int
}

func (s *stubLLM) Generate(_ context.Context, messages []llm.Message) (string, error) {
	s.calls++
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

var _ llm.Client = (*stubLLM)(nil)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func pageChunk(page, content string) retrieval.RankedChunk {
	metadata := map[string]string{}
	if page != "" {
		metadata["page"] = page
	}
	return retrieval.RankedChunk{Content: content, Metadata: metadata}
}

func TestAnswerDeduplicatesSourcesInOrder(t *testing.T) {
	retriever := &stubRetriever{chunks: []retrieval.RankedChunk{
		pageChunk("4", "fourth page, first hit"),
		pageChunk("2", "second page"),
		pageChunk("4", "fourth page, second hit"),
	}}
	generator := &stubLLM{answer: "An answer [Source ID]."}
	svc := NewService(retriever, generator, testLogger())

	resp, err := svc.Answer(context.Background(), "what do the pages say?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	want := []string{"Page 4", "Page 2"}
	if len(resp.Sources) != len(want) {
		t.Fatalf("expected %d sources, got %v", len(want), resp.Sources)
	}
	for i, label := range want {
		if resp.Sources[i] != label {
			t.Fatalf("source %d: got %q, want %q", i, resp.Sources[i], label)
		}
	}
}

func TestAnswerLabelsPagedChunksInContext(t *testing.T) {
	retriever := &stubRetriever{chunks: []retrieval.RankedChunk{
		pageChunk("7", "paged content"),
		pageChunk("", "unpaged content"),
	}}
	generator := &stubLLM{answer: "ok"}
	svc := NewService(retriever, generator, testLogger())

	if _, err := svc.Answer(context.Background(), "question"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if len(generator.messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(generator.messages))
	}
	prompt := generator.messages[1].Content
	if !strings.Contains(prompt, "Source: Page 7\nContent: paged content") {
		t.Fatalf("expected paged chunk to carry a Source label, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Content: unpaged content") {
		t.Fatalf("expected unpaged chunk content in prompt, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "Source: Page \n") {
		t.Fatal("unpaged chunk must not carry an empty Source label")
	}
	if !strings.Contains(prompt, "Question: question") {
		t.Fatal("expected the question in the prompt")
	}
}

func TestAnswerWithoutChunksStillInvokesModel(t *testing.T) {
	generator := &stubLLM{answer: "I don't know."}
	svc := NewService(&stubRetriever{}, generator, testLogger())

	resp, err := svc.Answer(context.Background(), "anything indexed?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if generator.calls != 1 {
		t.Fatalf("expected exactly one generation call, got %d", generator.calls)
	}
	if resp.Answer != "I don't know." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("expected no sources, got %v", resp.Sources)
	}
}

func TestAnswerUnpagedChunksYieldAnswerWithoutSources(t *testing.T) {
	retriever := &stubRetriever{chunks: []retrieval.RankedChunk{
		pageChunk("", "Paris is the capital of France."),
	}}
	generator := &stubLLM{answer: "Paris is the capital of France."}
	svc := NewService(retriever, generator, testLogger())

	resp, err := svc.Answer(context.Background(), "what is the capital of France?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if resp.Answer == "" {
		t.Fatal("expected an answer")
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("expected empty sources for unpaged chunks, got %v", resp.Sources)
	}
}

func TestAnswerEmptyQuestionRejected(t *testing.T) {
	svc := NewService(&stubRetriever{}, &stubLLM{}, testLogger())

	if _, err := svc.Answer(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestAnswerRetrievalFailurePropagates(t *testing.T) {
	svc := NewService(&stubRetriever{err: errors.New("vector store unreachable")}, &stubLLM{}, testLogger())

	if _, err := svc.Answer(context.Background(), "question"); err == nil {
		t.Fatal("expected retrieval failure to propagate")
	}
}

func TestAnswerGenerationFailurePropagates(t *testing.T) {
	svc := NewService(&stubRetriever{}, &stubLLM{err: errors.New("model unavailable")}, testLogger())

	if _, err := svc.Answer(context.Background(), "question"); err == nil {
		t.Fatal("expected generation failure to propagate")
	}
}
