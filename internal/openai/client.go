package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/resilience"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel answers questions and runs the classification prompts
	DefaultChatModel = openai.GPT4oMini

	operationEmbeddings = "openai.embeddings"
	operationChat       = "openai.chat"

	dimensionProbeText = "dimension probe"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrNoChoices is returned when a chat completion carries no message
	ErrNoChoices = errors.New("no completion choices returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// ChatAPI runs a single system + user turn and returns the reply text.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CallObserver receives the latency of every provider call.
type CallObserver interface {
	ObserveProviderCall(operation string, duration time.Duration, err error)
}

// Client wraps the OpenAI API client
type Client struct {
	api        EmbeddingAPI
	chat       ChatAPI
	dimensions int
	exec       *resilience.Executor
	observer   CallObserver

	// probeMu serializes the model probe; probed holds its result.
	probeMu sync.Mutex
	probed  atomic.Int64
}

type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientCfg),
		embeddingModel: model,
		chatModel:      chatModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateChatCompletion sends the prompts at temperature zero so the
// classification and extraction prompts stay repeatable.
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.chatModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	Resilience          *resilience.Executor
	Observer            CallObserver
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	adapter := NewOpenAIAdapter(cfg)
	return &Client{
		api:        adapter,
		chat:       adapter,
		dimensions: cfg.EmbeddingDimensions,
		exec:       cfg.Resilience,
		observer:   cfg.Observer,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var embedding []float32
	err := c.run(ctx, operationEmbeddings, func(ctx context.Context) error {
		var err error
		embedding, err = c.api.CreateEmbeddings(ctx, text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if want := c.knownDimensions(); want > 0 && len(embedding) != want {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

func (c *Client) knownDimensions() int {
	if c.dimensions > 0 {
		return c.dimensions
	}
	return int(c.probed.Load())
}

// Dimensions returns the configured vector size. Without one the model is
// probed; a failed probe is retried on the next call.
func (c *Client) Dimensions(ctx context.Context) (int, error) {
	if n := c.knownDimensions(); n > 0 {
		return n, nil
	}

	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	if n := c.probed.Load(); n > 0 {
		return int(n), nil
	}
	embedding, err := c.GenerateEmbedding(ctx, dimensionProbeText)
	if err != nil {
		return 0, err
	}
	c.probed.Store(int64(len(embedding)))
	return len(embedding), nil
}

// Complete runs one chat turn and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.chat == nil {
		return "", errors.New("chat completions not configured")
	}

	var reply string
	err := c.run(ctx, operationChat, func(ctx context.Context) error {
		var err error
		reply, err = c.chat.CreateChatCompletion(ctx, systemPrompt, userPrompt)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func (c *Client) run(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	var err error
	if c.exec != nil {
		err = c.exec.Execute(ctx, operation, fn, classifyError)
	} else {
		err = fn(ctx)
	}
	if c.observer != nil {
		c.observer.ObserveProviderCall(operation, time.Since(start), err)
	}
	if err != nil && resilience.IsCircuitOpen(err) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamUnavailable, domain.ErrUpstreamUnavailable.Message, err)
	}
	return err
}

// classifyError retries rate limits, server errors and network failures.
// Client errors such as a bad key or an oversized input are final.
func classifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	if status, ok := httpStatus(err); ok {
		retryable := isRetryableHTTPStatus(status)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func httpStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
