// Package rag answers questions by retrieving material passages from the
// index and generating an answer with a language model.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/tomes/pkg/index"
	"github.com/papercomputeco/tomes/pkg/llm"
)

// DefaultTopK is the number of passages retrieved per question.
const DefaultTopK = 4

// Retriever is the part of *index.Index the pipeline needs.
type Retriever interface {
	QueryQuestion(ctx context.Context, collection, question string, topK int) (*index.Result, error)
}

// Config configures a Pipeline.
type Config struct {
	Retriever Retriever
	Client    llm.Client

	// Collection defaults to index.DefaultCollection.
	Collection string

	// TopK defaults to DefaultTopK.
	TopK int

	// Model overrides the client's default model.
	Model string

	// Temperature is passed through when set.
	Temperature *float64

	Logger *zap.Logger
}

// Pipeline runs the retrieve then generate state machine. It keeps no state
// between calls.
type Pipeline struct {
	retriever   Retriever
	client      llm.Client
	collection  string
	topK        int
	model       string
	temperature *float64
	logger      *zap.Logger
}

// Answer is the result of one Ask.
type Answer struct {
	Question string   `json:"question"`
	Context  string   `json:"context"`
	Answer   string   `json:"answer"`
	Passages []string `json:"passages,omitempty"`
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if cfg.Client == nil {
		return nil, errors.New("llm client is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = index.DefaultCollection
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pipeline{
		retriever:   cfg.Retriever,
		client:      cfg.Client,
		collection:  cfg.Collection,
		topK:        cfg.TopK,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}, nil
}

// Ask answers question from the configured collection. A retrieval with no
// hits still generates, with an empty context.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	started := time.Now()
	answer := &Answer{Question: question}
	state, effect, err := Transition(StateStart, EventAsked)

	for err == nil {
		var event Event
		var stepErr error

		switch effect {
		case EffectRetrieve:
			stepErr = p.retrieve(ctx, answer)
			event = EventRetrieved
		case EffectGenerate:
			stepErr = p.generate(ctx, answer)
			event = EventGenerated
		case EffectReturn:
			p.logger.Debug("answered question",
				zap.String("collection", p.collection),
				zap.Int("passages", len(answer.Passages)),
				zap.Duration("took", time.Since(started)),
			)
			return answer, nil
		default:
			return nil, fmt.Errorf("unexpected effect %d in %s", effect, state)
		}

		if stepErr != nil {
			failedIn := state
			if _, _, terr := Transition(state, EventErrored); terr != nil {
				return nil, terr
			}
			p.logger.Error("pipeline failed",
				zap.String("state", failedIn.String()),
				zap.Error(stepErr),
			)
			return nil, &PipelineError{State: failedIn, Err: stepErr}
		}

		state, effect, err = Transition(state, event)
	}
	return nil, err
}

func (p *Pipeline) retrieve(ctx context.Context, answer *Answer) error {
	result, err := p.retriever.QueryQuestion(ctx, p.collection, answer.Question, p.topK)
	if err != nil {
		return err
	}
	answer.Passages = result.Documents
	answer.Context = JoinContext(result.Documents)
	return nil
}

func (p *Pipeline) generate(ctx context.Context, answer *Answer) error {
	resp, err := p.client.Chat(ctx, &llm.ChatRequest{
		Model:       p.model,
		System:      SystemInstruction,
		Messages:    []llm.Message{llm.NewTextMessage(llm.RoleUser, HumanMessage(answer.Question, answer.Context))},
		Temperature: p.temperature,
	})
	if err != nil {
		return err
	}
	answer.Answer = strings.TrimSpace(resp.Message.GetText())
	return nil
}
