package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"teamflow/internal/automation"
	"teamflow/internal/config"
	"teamflow/internal/constants"
	"teamflow/internal/logger"
	"teamflow/pkg/circuitbreaker"
	"teamflow/pkg/models"
	"teamflow/pkg/retry"
)

// WebhookCaller delivers WEBHOOK_CALL actions over HTTP with a bounded
// timeout, an explicit (default off) retry policy and a circuit breaker
// shared across all webhook targets.
type WebhookCaller struct {
	client  *http.Client
	breaker *circuitbreaker.Wrapper
	policy  retry.Policy
	logger  logger.Logger
}

func NewWebhookCaller(cfg config.WebhookConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) *WebhookCaller {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultWebhookTimeout
	}

	policy := retry.None()
	if cfg.Retry.MaxAttempts > 1 {
		policy = retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      cfg.Retry.Multiplier,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		}
	}

	breakerCfg := circuitbreaker.DefaultConfig("webhook")
	if cbCfg.Enabled {
		if cbCfg.MaxRequests > 0 {
			breakerCfg.MaxRequests = cbCfg.MaxRequests
		}
		if cbCfg.Interval > 0 {
			breakerCfg.Interval = cbCfg.Interval
		}
		if cbCfg.Timeout > 0 {
			breakerCfg.Timeout = cbCfg.Timeout
		}
	}

	return &WebhookCaller{
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.NewWrapper(breakerCfg),
		policy:  policy,
		logger:  log,
	}
}

// Call sends the configured request, with the task event as the payload when
// the action does not carry a body of its own. Any non-2xx response is a
// failure.
func (w *WebhookCaller) Call(ctx context.Context, action automation.WebhookCallAction, event models.TaskEvent) error {
	body, err := w.requestBody(action, event)
	if err != nil {
		return err
	}

	return retry.Retry(ctx, w.policy, func() error {
		_, err := w.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return nil, w.send(ctx, action, body)
		})
		w.breaker.RecordRequest(err == nil)
		return err
	})
}

func (w *WebhookCaller) requestBody(action automation.WebhookCallAction, event models.TaskEvent) (string, error) {
	if action.Body != "" {
		return action.Body, nil
	}
	if strings.ToUpper(action.Method) == http.MethodGet {
		return "", nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return string(payload), nil
}

func (w *WebhookCaller) send(ctx context.Context, action automation.WebhookCallAction, body string) error {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(action.Method), action.URL, reader)
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range action.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.logger.DebugwCtx(ctx, "Webhook delivered",
		"url", action.URL,
		"method", action.Method,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return nil
}
