package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"jurisrag/internal/ai"
	"jurisrag/internal/metrics"
	"jurisrag/internal/vectorstore"
)

const (
	defaultTopK             = 5
	defaultMaxContextTokens = 6000

	NoInformationAnswer = "I couldn't find any relevant legal information to answer your question."
	DegradedAnswer      = "The AI service is temporarily unavailable due to usage limits. The most relevant legal sources found for your question are listed below."
	FailedAnswer        = "An error occurred while generating the answer. The most relevant legal sources found for your question are listed below."
)

const legalSystemPrompt = "You are an expert legal assistant. Use only the provided legal context to answer questions accurately and precisely. Cite the relevant documents when possible."

const legalPromptTemplate = `You are an expert legal assistant. Use the following pieces of legal context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
Always cite the specific laws, articles, or legal documents that support your answer.

CONTEXT:
%s

QUESTION: %s

ANSWER:`

// Searcher is the read path of the vector store.
type Searcher interface {
	Search(ctx context.Context, query string, filter map[string]any, topK int) ([]vectorstore.SearchResult, error)
}

// Completer is the chat completion backend.
type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

type QAService struct {
	searcher  Searcher
	llm       Completer
	chatCfg   ai.ChatConfig
	topK      int
	maxTokens int
	tokens    TokenCounter
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

type QAOption func(*QAService)

func WithTokenCounter(tc TokenCounter) QAOption {
	return func(s *QAService) { s.tokens = tc }
}

func WithMaxContextTokens(n int) QAOption {
	return func(s *QAService) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

func WithDefaultTopK(k int) QAOption {
	return func(s *QAService) {
		if k > 0 {
			s.topK = k
		}
	}
}

func WithQALogger(l zerolog.Logger) QAOption {
	return func(s *QAService) { s.log = l }
}

func WithQAMetrics(m *metrics.Metrics) QAOption {
	return func(s *QAService) { s.metrics = m }
}

func NewQAService(searcher Searcher, llm Completer, chatCfg ai.ChatConfig, opts ...QAOption) *QAService {
	s := &QAService{
		searcher:  searcher,
		llm:       llm,
		chatCfg:   chatCfg,
		topK:      defaultTopK,
		maxTokens: defaultMaxContextTokens,
		tokens:    EstimateTokens,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AskInput struct {
	Question string
	Filter   map[string]any
	TopK     int
}

// Source is a retrieved chunk returned alongside an answer.
type Source struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"document_metadata"`
	Score    float64        `json:"score"`
}

type AskResult struct {
	Answer  string    `json:"answer"`
	Sources []Source  `json:"sources"`
	Scores  []float64 `json:"scores"`
}

type SearchInput struct {
	Query  string
	Filter map[string]any
	Limit  int
}

// Search returns ranked sources without calling the language model.
func (s *QAService) Search(ctx context.Context, input SearchInput) ([]Source, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	limit := input.Limit
	if limit <= 0 {
		limit = s.topK
	}
	results, err := s.searcher.Search(ctx, query, input.Filter, limit)
	if err != nil {
		return nil, fmt.Errorf("search legal documents: %w", err)
	}
	return toSources(results), nil
}

// Ask retrieves the top chunks and asks the model to answer from them. A failed
// completion still returns the sources with a canned answer.
func (s *QAService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	topK := input.TopK
	if topK <= 0 {
		topK = s.topK
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.QADuration.Observe(time.Since(start).Seconds())
		}
	}()

	results, err := s.searcher.Search(ctx, question, input.Filter, topK)
	if err != nil {
		return nil, fmt.Errorf("search legal documents: %w", err)
	}
	if len(results) == 0 {
		s.observe("no_results")
		return &AskResult{Answer: NoInformationAnswer, Sources: []Source{}, Scores: []float64{}}, nil
	}

	sources := toSources(results)
	scores := make([]float64, len(sources))
	for i, src := range sources {
		scores[i] = src.Score
	}

	messages := []ai.ChatMessage{
		{Role: "system", Content: legalSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(legalPromptTemplate, s.buildContext(results), question)},
	}
	answer, err := s.llm.Complete(ctx, s.chatCfg, messages)
	if err != nil {
		class := ai.ClassifyCompletionError(err)
		s.log.Error().Err(err).Int("sources", len(sources)).Msg("legal answer completion failed")
		if class == ai.CompletionUnavailable {
			s.observe("degraded")
			return &AskResult{Answer: DegradedAnswer, Sources: sources, Scores: scores}, nil
		}
		s.observe("failed")
		return &AskResult{Answer: FailedAnswer, Sources: sources, Scores: scores}, nil
	}

	s.observe("ok")
	return &AskResult{Answer: strings.TrimSpace(answer), Sources: sources, Scores: scores}, nil
}

// buildContext labels each chunk and stops adding documents once the token budget
// is spent. The first document is always kept.
func (s *QAService) buildContext(results []vectorstore.SearchResult) string {
	var b strings.Builder
	used := 0
	for i, r := range results {
		entry := fmt.Sprintf("Document %d:\n%s\n", i+1, r.Text)
		n := s.tokens(entry)
		if i > 0 && used+n > s.maxTokens {
			s.log.Debug().Int("kept", i).Int("dropped", len(results)-i).Msg("context token budget reached")
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(entry)
		used += n
	}
	return b.String()
}

func (s *QAService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.QACompletions.WithLabelValues(outcome).Inc()
	}
}

// toSources is shared by Search and Ask so both report the same sources.
func toSources(results []vectorstore.SearchResult) []Source {
	out := make([]Source, len(results))
	for i, r := range results {
		out[i] = Source{Content: r.Text, Metadata: r.Metadata, Score: r.Score}
	}
	return out
}
