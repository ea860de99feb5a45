package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/quizgen/internal/domain"
	"github.com/cloo-solutions/quizgen/internal/logger"
	"github.com/cloo-solutions/quizgen/internal/telemetry"
)

const (
	chatMaxTokens     = 800
	extendedMaxTokens = 600
)

// ChatMode selects how far an answer may reach beyond the document.
type ChatMode string

const (
	ChatModeDocument ChatMode = "document"
	ChatModeExtended ChatMode = "extended"
)

// ChatRequest asks a question about one document.
type ChatRequest struct {
	File    domain.SourceFile `json:"file"`
	Message string            `json:"message"`
	History []ChatTurn        `json:"history"`
	Mode    ChatMode          `json:"mode"`
}

// ChatSource is a passage an answer was grounded on.
type ChatSource struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// ChatResponse is the answer to a ChatRequest.
type ChatResponse struct {
	Answer   string       `json:"answer"`
	Extended string       `json:"extended,omitempty"`
	Sources  []ChatSource `json:"sources"`
}

// ChatService answers questions about a document from its most relevant
// passages.
type ChatService struct {
	store     *ContentStore
	fetcher   SourceFetcher
	retriever *Retriever
	completer Completer
	prompts   *PromptBuilder
	log       *logger.Logger
}

func NewChatService(store *ContentStore, fetcher SourceFetcher, retriever *Retriever, completer Completer, prompts *PromptBuilder, log *logger.Logger) *ChatService {
	if prompts == nil {
		prompts = NewPromptBuilder(DefaultPromptMaxChars)
	}
	return &ChatService{
		store:     store,
		fetcher:   fetcher,
		retriever: retriever,
		completer: completer,
		prompts:   prompts,
		log:       logger.OrNop(log),
	}
}

func validateChat(req *ChatRequest) error {
	if strings.TrimSpace(req.File.URL) == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "file.url is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "message is required")
	}
	switch req.Mode {
	case "":
		req.Mode = ChatModeDocument
	case ChatModeDocument, ChatModeExtended:
	default:
		return domain.NewDomainError(domain.ErrCodeValidation, "mode must be document or extended")
	}
	return nil
}

// Answer retrieves the passages closest to the message and asks the
// completion endpoint to answer from them. In extended mode a second call adds
// general knowledge; its failure leaves the document answer intact.
func (s *ChatService) Answer(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := validateChat(&req); err != nil {
		return nil, err
	}
	if s.completer == nil {
		return nil, domain.ErrGeneratorUnavailable
	}

	name := req.File.DisplayName()
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Answer", telemetry.SpanAttributes{
		Document:  name,
		Operation: "chat",
	})
	defer span.End()

	modTime, err := s.fetcher.ModifiedTime(ctx, req.File.URL)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	doc, _, err := s.store.GetOrBuild(ctx, name, modTime, s.fetcher.PDFLoader(req.File.URL, name))
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	ranked, err := s.retriever.TopK(ctx, doc, req.Message, DefaultTopK)
	if err != nil {
		s.log.Warn("chat: retrieval failed, using leading chunks", "document", name, "error", err)
		ranked = Rank(doc, nil, DefaultTopK)
	}

	passages := make([]string, len(ranked))
	sources := make([]ChatSource, len(ranked))
	for i, sc := range ranked {
		passages[i] = sc.Chunk.Text
		sources[i] = ChatSource{Text: sc.Chunk.Text, Score: sc.Score}
	}

	answer, err := s.completer.Complete(ctx, s.prompts.BuildChat(req.Message, passages, req.History), chatMaxTokens)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "answer generation failed", err)
	}

	resp := &ChatResponse{Answer: strings.TrimSpace(answer), Sources: sources}
	if req.Mode == ChatModeExtended {
		extended, err := s.completer.Complete(ctx, s.prompts.BuildExtended(req.Message, resp.Answer), extendedMaxTokens)
		if err != nil {
			s.log.Warn("chat: extended answer failed", "document", name, "error", err)
		} else {
			resp.Extended = strings.TrimSpace(extended)
		}
	}
	return resp, nil
}
