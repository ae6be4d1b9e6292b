package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"docchat/internal/apperr"
	"docchat/internal/contextutil"
	"docchat/internal/index"
	"docchat/internal/llm"
	"docchat/internal/vectorstore"
)

//go:generate mockgen -source=chain.go -destination=mocks/mock_chain.go -package=mocks

// LLMClient produces a chat completion for a message sequence.
type LLMClient interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Retriever returns the documents most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]vectorstore.Document, error)
}

const (
	// fallbackAnswer is returned when the model produces nothing; the
	// request still succeeds.
	fallbackAnswer = "No answer generated."

	maxAnswerRunes = 4096
)

// Chain answers questions over an indexed document set in three stages:
// rewrite the question to be standalone, retrieve context for it, then
// answer the original question grounded in that context. A Chain is
// stateless; conversation history is passed per call.
type Chain struct {
	llm       LLMClient
	retriever Retriever
	params    llm.ChatParams
}

// NewChain builds a chain over the given clients. Both are required.
func NewChain(llmClient LLMClient, retriever Retriever, params llm.ChatParams) (*Chain, error) {
	const op = "rag.NewChain"

	if llmClient == nil {
		return nil, apperr.Msg(op, apperr.ErrState, "llm client is required")
	}
	if retriever == nil {
		return nil, apperr.Msg(op, apperr.ErrState, "retriever is required")
	}
	return &Chain{llm: llmClient, retriever: retriever, params: params}, nil
}

// LoadRetriever opens the existing index at dir and builds a retriever over
// it. The returned manager owns the open index and must be closed by the
// caller when the session ends. A directory without an index fails with
// ErrState.
func LoadRetriever(ctx context.Context, dir string, embedder index.Embedder, opts index.Options) (*index.Manager, *index.Retriever, error) {
	const op = "rag.LoadRetriever"

	if !vectorstore.Exists(dir) {
		return nil, nil, apperr.Msg(op, apperr.ErrState, "no index at %s, upload documents first", dir)
	}

	mgr := index.NewManager(dir, embedder)
	if _, err := mgr.LoadOrCreate(ctx, nil, nil); err != nil {
		return nil, nil, err
	}
	retriever, err := mgr.Retriever(opts)
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}
	return mgr, retriever, nil
}

// Invoke runs the full pipeline for one user turn and returns the answer.
// History is the prior conversation, oldest first, without the current input.
func (c *Chain) Invoke(ctx context.Context, input string, history []llm.Message) (string, error) {
	const op = "rag.Invoke"
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(input) == "" {
		return "", apperr.Msg(op, apperr.ErrValidation, "input must not be empty")
	}

	standalone, err := c.rewriteQuestion(ctx, input, history)
	if err != nil {
		return "", fmt.Errorf("rewriting question: %w", err)
	}

	docs, err := c.retriever.Retrieve(ctx, standalone)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	logger.Debug("context retrieved", "query", standalone, "documents", len(docs))

	answer, err := c.answer(ctx, input, history, docs)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		logger.Warn("model produced no answer", "input", input)
		return fallbackAnswer, nil
	}
	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		return "", apperr.Msg(op, apperr.ErrValidation, "answer exceeds %d characters", maxAnswerRunes)
	}
	return answer, nil
}

// rewriteQuestion makes the input standalone using the conversation history.
// With no history the input already stands alone and the model is not
// called.
func (c *Chain) rewriteQuestion(ctx context.Context, input string, history []llm.Message) (string, error) {
	if len(history) == 0 {
		return input, nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: rewriteSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})

	rewritten, err := c.llm.Complete(ctx, messages, c.params)
	if err != nil {
		return "", err
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return input, nil
	}
	return rewritten, nil
}

func (c *Chain) answer(ctx context.Context, input string, history []llm.Message, docs []vectorstore.Document) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(answerSystemPrompt, formatDocs(docs)),
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})

	return c.llm.Complete(ctx, messages, c.params)
}

func formatDocs(docs []vectorstore.Document) string {
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = doc.Text
	}
	return strings.Join(parts, "\n\n")
}
