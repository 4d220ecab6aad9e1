package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/treefrog-dev/frogup/internal/storage"
	"github.com/treefrog-dev/frogup/internal/waiter"
)

// Notifier sends webhook notifications when a dependency changes readiness.
type Notifier struct {
	webhookURL string
	cooldown   time.Duration
	client     *http.Client
	lastNotify map[string]time.Time
	mu         sync.Mutex
	logger     *slog.Logger
}

// New creates a new Notifier. Pass nil logger to use the default logger.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		client:     &http.Client{Timeout: 10 * time.Second},
		lastNotify: make(map[string]time.Time),
		logger:     logger,
	}
}

type webhookPayload struct {
	Dependency     string `json:"dependency"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	Error          string `json:"error"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Attempts       int    `json:"attempts"`
	At             string `json:"at"`
	Source         string `json:"source"`
}

// Notify sends a webhook if the dependency readiness has changed and the
// cooldown has elapsed. It matches the waiter's outcome callback signature.
func (n *Notifier) Notify(o waiter.Outcome, previousStatus *string) {
	// No previous outcome means first observation, nothing to compare.
	if previousStatus == nil {
		return
	}
	status := storage.StatusUnready
	if o.Result.Healthy {
		status = storage.StatusReady
	}
	// Only state changes are interesting.
	if status == *previousStatus {
		return
	}

	// Check cooldown.
	n.mu.Lock()
	last, exists := n.lastNotify[o.Dependency.Name]
	if exists && time.Since(last) < n.cooldown {
		n.mu.Unlock()
		n.logger.Info("notification suppressed by cooldown", "dependency", o.Dependency.Name)
		return
	}
	n.lastNotify[o.Dependency.Name] = time.Now()
	n.mu.Unlock()

	// Send asynchronously so Notify doesn't block the waiter.
	go n.send(o, status, *previousStatus)
}

func (n *Notifier) send(o waiter.Outcome, status, prevStatus string) {
	payload := webhookPayload{
		Dependency:     o.Dependency.Name,
		Status:         status,
		PreviousStatus: prevStatus,
		Error:          o.Result.Error,
		ResponseTimeMs: o.Result.ResponseTime.Milliseconds(),
		Attempts:       o.Attempts,
		At:             time.Now().UTC().Format(time.RFC3339),
		Source:         "frogup",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("marshaling webhook payload", "dependency", o.Dependency.Name, "error", err)
		return
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Error("sending webhook", "dependency", o.Dependency.Name, "url", n.webhookURL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook returned non-2xx status",
			"dependency", o.Dependency.Name,
			"status", resp.StatusCode,
		)
	}
}
