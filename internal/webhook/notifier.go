package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mattjoyce/tfboot/internal/log"
)

const (
	// DefaultTimeout bounds a single delivery attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultSignatureHeader carries the HMAC signature when a secret is set.
	DefaultSignatureHeader = "X-Tfboot-Signature-256"

	maxErrorBody = 1024
)

// ErrDelivery wraps every failed callback.
var ErrDelivery = errors.New("webhook delivery failed")

// Config configures outbound callbacks.
type Config struct {
	Timeout         time.Duration
	Secret          string
	SignatureHeader string
}

// Notifier posts execution results to callback URLs.
type Notifier struct {
	client *http.Client
	config Config
	logger *slog.Logger
}

// NewNotifier creates a notifier. Zero-valued fields take defaults.
func NewNotifier(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = DefaultSignatureHeader
	}
	return &Notifier{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: log.WithComponent("webhook"),
	}
}

// Deliver POSTs payload as JSON to url once.
func (n *Notifier) Deliver(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.config.Secret != "" {
		req.Header.Set(n.config.SignatureHeader, Sign(body, n.config.Secret))
	}

	start := time.Now()
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", "url", url, "error", err)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		n.logger.Warn("webhook rejected", "url", url, "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	n.logger.Info("webhook delivered", "url", url, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
