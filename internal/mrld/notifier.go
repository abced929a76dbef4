package mrld

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/logger"
	"github.com/majkolla/Optimization-of-Magnetic-Reference-Layer/pkg/utils"
)

// ErrInvalidCallbackURL is returned for callback URLs that cannot be posted to
var ErrInvalidCallbackURL = errors.New("invalid callback url")

// CallbackSecretHeader carries the client-supplied callback secret
const CallbackSecretHeader = "X-MRL-Callback-Secret"

// NotificationPayload represents the JSON payload sent to the callback URL
type NotificationPayload struct {
	RunID           string         `json:"run_id"`
	Status          RunStatus      `json:"status"`
	Problem         string         `json:"problem,omitempty"`
	Solver          string         `json:"solver,omitempty"`
	CreatedAtUnixMs int64          `json:"created_at_unix_ms"`
	StartedAtUnixMs int64          `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64          `json:"ended_at_unix_ms,omitempty"`
	Error           string         `json:"error,omitempty"`
	Progress        Progress       `json:"progress"`
	Result          map[string]any `json:"result,omitempty"`
	Timestamp       int64          `json:"timestamp"` // When notification was sent
}

// Notifier posts run completion notifications to client callback URLs
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    *utils.ExponentialBackoff
	wg         sync.WaitGroup
}

// NewNotifier creates a new notification service
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		backoff:    utils.NewExponentialBackoff(time.Second, 30*time.Second, 2),
	}
}

// ValidateCallbackURL accepts absolute http(s) URLs with a host
func ValidateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCallbackURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidCallbackURL)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidCallbackURL)
	}
	return nil
}

// Notify sends a notification to the callback URL asynchronously.
// A {run_id} placeholder in the URL is replaced by the run ID.
func (n *Notifier) Notify(callbackURL string, callbackSecret string, rec RunRecord) {
	if callbackURL == "" {
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", rec.Run.ID)
	progress := rec.Run.Progress
	if math.IsNaN(progress.BestValue) || math.IsInf(progress.BestValue, 0) {
		progress.BestValue, progress.HasBest = 0, false
	}
	payload := NotificationPayload{
		RunID:           rec.Run.ID,
		Status:          rec.Run.Status,
		Problem:         rec.Run.Problem,
		Solver:          rec.Run.Solver,
		CreatedAtUnixMs: rec.Run.CreatedAtUnixMs,
		StartedAtUnixMs: rec.Run.StartedAtUnixMs,
		EndedAtUnixMs:   rec.Run.EndedAtUnixMs,
		Error:           rec.Run.Error,
		Progress:        progress,
		Result:          safeMap(rec.Result),
		Timestamp:       time.Now().UTC().UnixMilli(),
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.sendNotification(finalURL, callbackSecret, payload)
	}()
}

// Wait blocks until pending notifications are delivered or abandoned
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// sendNotification performs the actual HTTP POST with retry logic
func (n *Notifier) sendNotification(callbackURL string, callbackSecret string, payload NotificationPayload) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(payloadJSON))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "mrld/1.0")
		if callbackSecret != "" {
			req.Header.Set(CallbackSecretHeader, callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		responseBody := string(bodyBytes)
		if len(responseBody) > 200 {
			responseBody = responseBody[:200] + "..."
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent",
				"run_id", payload.RunID,
				"status", string(payload.Status),
				"status_code", resp.StatusCode)
			return
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"status_code", resp.StatusCode,
			"response_body", responseBody,
			"attempt", attempt+1)
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"run_id", payload.RunID,
		"status", string(payload.Status),
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}
