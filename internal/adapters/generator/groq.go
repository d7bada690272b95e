package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Amund211/lana/internal/config"
	"github.com/Amund211/lana/internal/constants"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/ratelimiting"
	"github.com/Amund211/lana/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Requests per minute allowed by the groq free tier
const groqRequestsPerMinute = 30

// Don't start waiting for quota unless there is at least this much time left afterwards
const groqMinOperationTime = 3 * time.Second

const groqChatCompletionsURL = "https://api.groq.com/openai/v1/chat/completions"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type groqGenerator struct {
	httpClient HttpClient
	apiKey     string
	url        string
	timeout    time.Duration
	limiter    *ratelimiting.WindowLimiter

	tracer  trace.Tracer
	metrics generatorMetricsCollection
}

func NewGroqGenerator(httpClient HttpClient, apiKey string, timeout time.Duration, limiter *ratelimiting.WindowLimiter) (Generator, error) {
	metrics, err := setupGeneratorMetrics(otel.Meter("lana/generator"))
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &groqGenerator{
		httpClient: httpClient,
		apiKey:     apiKey,
		url:        groqChatCompletionsURL,
		timeout:    timeout,
		limiter:    limiter,

		tracer:  otel.Tracer("lana/generator/groq"),
		metrics: metrics,
	}, nil
}

func (g *groqGenerator) Generate(ctx context.Context, request Request) (string, error) {
	ctx, span := g.tracer.Start(ctx, "GroqGenerator.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("model", request.Params.Model))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		content string
		err     error
	)
	ran := g.limiter.Do(ctx, groqMinOperationTime, func() bool {
		content, err = g.complete(ctx, request)
		// Requests that never reached groq do not use up quota
		return !errors.Is(err, errRequestNotSent)
	})
	if !ran && err == nil {
		err = fmt.Errorf("%w: no groq request quota available before the deadline", domain.ErrTransport)
	}

	g.metrics.recordCall(ctx, request.Params.Model, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return content, nil
}

var errRequestNotSent = errors.New("request not sent")

func (g *groqGenerator) complete(ctx context.Context, request Request) (string, error) {
	logger := logging.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w: %w", domain.ErrTransport, errRequestNotSent, err)
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: request.Params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: request.SystemPrompt},
			{Role: "user", Content: request.UserPayload},
		},
		Temperature: request.Params.Temperature,
		MaxTokens:   request.Params.MaxTokens,
		TopP:        request.Params.TopP,
		Stream:      false,
	})
	if err != nil {
		err := fmt.Errorf("%w: %w: failed to marshal request: %w", domain.ErrTransport, errRequestNotSent, err)
		reporting.Report(ctx, err)
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		err := fmt.Errorf("%w: %w: failed to create request: %w", domain.ErrTransport, errRequestNotSent, err)
		reporting.Report(ctx, err)
		return "", err
	}
	req.Header.Set("User-Agent", constants.USER_AGENT)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		err := fmt.Errorf("%w: failed to send request: %w", domain.ErrTransport, err)
		logger.ErrorContext(ctx, "groq request failed", "error", err.Error())
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %w", domain.ErrTransport, err)
	}
	logger.InfoContext(ctx, "groq request completed", "status", resp.StatusCode, "duration", time.Since(start).String())

	return contentFromGroqResponse(ctx, resp.StatusCode, data)
}

func contentFromGroqResponse(ctx context.Context, statusCode int, data []byte) (string, error) {
	if statusCode != http.StatusOK {
		err := fmt.Errorf("%w: groq returned status code %d", domain.ErrTransport, statusCode)
		// Throttling and outages are expected from time to time
		if statusCode != http.StatusTooManyRequests && statusCode < 500 {
			reporting.Report(ctx, err, map[string]string{
				"status": strconv.Itoa(statusCode),
				"data":   string(data),
			})
		}
		return "", err
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return "", fmt.Errorf("%w: failed to parse groq response: %w", domain.ErrMalformedContent, err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: groq response has no content", domain.ErrMalformedContent)
	}

	return response.Choices[0].Message.Content, nil
}

func NewGeneratorOrMock(conf config.Config, httpClient HttpClient) (Generator, error) {
	if conf.GroqAPIKey() != "" {
		limiter := ratelimiting.NewWindowLimiter(groqRequestsPerMinute, time.Minute, time.Now, time.After)
		return NewGroqGenerator(httpClient, conf.GroqAPIKey(), conf.GeneratorTimeout(), limiter)
	}
	if conf.IsDevelopment() {
		return NewMockedGenerator(), nil
	}
	return nil, fmt.Errorf("%w: missing groq API key in non-development environment", config.ErrMissingRequiredValue)
}

type generatorMetricsCollection struct {
	calls metric.Int64Counter
}

func setupGeneratorMetrics(meter metric.Meter) (generatorMetricsCollection, error) {
	calls, err := meter.Int64Counter(
		"generator/calls",
		metric.WithDescription("Number of content generator calls by result"),
	)
	if err != nil {
		return generatorMetricsCollection{}, fmt.Errorf("failed to create metric: %w", err)
	}

	return generatorMetricsCollection{calls: calls}, nil
}

func (m generatorMetricsCollection) recordCall(ctx context.Context, model string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMalformedContent):
		result = "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "transport"
	}
	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("result", result),
	))
}
