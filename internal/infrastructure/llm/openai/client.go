package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/oncoassist/triage/internal/core/domain"
	"github.com/oncoassist/triage/internal/infrastructure/resilience"
)

type Config struct {
	APIKey            string
	BaseURL           string
	EmbedModel        string
	ChatModel         string
	Dimensions        int
	RequestsPerSecond float64
	Burst             int
}

// Client shares one OpenAI connection, rate limiter and resilience
// executor between the embedder and the semantic classifier.
type Client struct {
	api      *goopenai.Client
	cfg      Config
	limiter  *rate.Limiter
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = string(goopenai.SmallEmbedding3)
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = goopenai.GPT4oMini
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}

	apiConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		api:      goopenai.NewClientWithConfig(apiConfig),
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		executor: executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	c := e.client

	var vector []float32
	err := c.executor.Execute(ctx, "openai_embed", func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input:          []string{text},
			Model:          goopenai.EmbeddingModel(c.cfg.EmbedModel),
			EncodingFormat: goopenai.EmbeddingEncodingFormatFloat,
			Dimensions:     c.cfg.Dimensions,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("empty embedding response")
		}
		vector = resp.Data[0].Embedding
		return nil
	}, classifyProviderError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed text", err)
	}

	if len(vector) != c.cfg.Dimensions {
		return nil, domain.WrapError(
			domain.ErrEmbeddingUnavailable,
			"embed text",
			fmt.Errorf("unexpected embedding size %d, want %d", len(vector), c.cfg.Dimensions),
		)
	}
	return vector, nil
}

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) ClassifyText(ctx context.Context, text string) (domain.SemanticOutcome, error) {
	raw, err := c.client.completeJSON(ctx, buildClassificationPrompt(text))
	if err != nil {
		return domain.SemanticOutcome{}, domain.WrapError(domain.ErrClassificationParse, "classify text", err)
	}
	return parseOutcome(raw)
}

func (c *Client) completeJSON(ctx context.Context, prompt string) (string, error) {
	var content string
	err := c.executor.Execute(ctx, "openai_chat", func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:       c.cfg.ChatModel,
			Temperature: 0.1,
			ResponseFormat: &goopenai.ChatCompletionResponseFormat{
				Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleSystem, Content: classificationSystemPrompt},
				{Role: goopenai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	}, classifyProviderError)
	return strings.TrimSpace(content), err
}

// parseOutcome turns the model reply into a tagged outcome. A payload
// that cannot be parsed still reaches the caller through Raw.
func parseOutcome(raw string) (domain.SemanticOutcome, error) {
	var payload struct {
		Category   string   `json:"category"`
		Confidence *float64 `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return domain.SemanticOutcome{Raw: raw},
			domain.WrapError(domain.ErrClassificationParse, "parse classification", err)
	}

	category, err := domain.ParseCategory(payload.Category)
	if err != nil {
		return domain.SemanticOutcome{Raw: raw},
			domain.WrapError(domain.ErrClassificationParse, "parse classification", err)
	}

	// Absent confidence defaults to 0.5; out-of-range values clamp.
	confidence := 0.5
	if payload.Confidence != nil {
		confidence = *payload.Confidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return domain.SemanticOutcome{
		Parsed:    true,
		Signal:    domain.ClassifierSignal{Category: category, Confidence: confidence},
		Reasoning: strings.TrimSpace(payload.Reasoning),
		Raw:       raw,
	}, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
