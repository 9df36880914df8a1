package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/template"
)

// WebhookHandler calls a configured URL with the node payload merged with
// run context. Non-2xx responses are a recorded outcome, not an error.
type WebhookHandler struct {
	caller HTTPCaller
}

func NewWebhookHandler(caller HTTPCaller) *WebhookHandler {
	return &WebhookHandler{caller: caller}
}

func (h *WebhookHandler) Kind() models.ActionKind { return models.ActionKindWebhook }

func (h *WebhookHandler) External() bool { return false }

func (h *WebhookHandler) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":     map[string]any{"type": "string"},
			"method":  map[string]any{"type": "string"},
			"headers": map[string]any{"type": "object"},
			"payload": map[string]any{"type": "object"},
		},
		"required": []any{"url"},
	}
}

func (h *WebhookHandler) Execute(ctx context.Context, req Request) (Fragment, error) {
	if h.caller == nil {
		return Fragment{"called": false, "unavailable": true, "reason": "http provider not configured"}, nil
	}

	url := template.Render(stringConfig(req.Node.Config, "url"), req.Context)
	if url == "" {
		return Fragment{"called": false, "reason": "missing url"}, nil
	}

	method := stringConfig(req.Node.Config, "method")
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)
	if configured, ok := req.Node.Config["headers"].(map[string]any); ok {
		for k, v := range configured {
			headers[k] = template.Render(fmt.Sprintf("%v", v), req.Context)
		}
	}

	payload, _ := req.Node.Config["payload"].(map[string]any)
	body := template.RenderMap(payload, req.Context)

	if body == nil {
		body = make(map[string]any)
	}

	// The run context rides along so the receiver sees what the workflow saw.
	body["payload"] = req.Context.Payload
	body["contact"] = req.Context.Contact

	result, err := h.caller.Call(ctx, url, method, headers, body)
	if err != nil {
		return Fragment{"called": false, "reason": err.Error()}, nil
	}

	return Fragment{"called": true, "status": result.Status, "ok": result.OK}, nil
}

// DefaultHTTPCaller performs webhook calls with a bounded-timeout client.
type DefaultHTTPCaller struct {
	Client *http.Client
}

func NewDefaultHTTPCaller() *DefaultHTTPCaller {
	return &DefaultHTTPCaller{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (c *DefaultHTTPCaller) Call(ctx context.Context, url, method string, headers map[string]string, body map[string]any) (HTTPResult, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return HTTPResult{}, fmt.Errorf("failed to encode webhook body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return HTTPResult{}, fmt.Errorf("failed to build webhook request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		request.Header.Set(k, v)
	}

	response, err := c.Client.Do(request)
	if err != nil {
		return HTTPResult{}, fmt.Errorf("webhook call failed: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	return HTTPResult{
		Status: response.StatusCode,
		OK:     response.StatusCode >= 200 && response.StatusCode < 300,
	}, nil
}
