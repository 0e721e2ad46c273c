package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chronos/internal/model"
	"chronos/pkg/logger"
)

// maxListedTasks caps the task lines rendered into one card
const maxListedTasks = 20

// FeishuNotifier sends late task alerts to a Feishu (Lark) webhook
type FeishuNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewFeishuNotifier creates a notifier; an empty URL disables it
func NewFeishuNotifier(webhookURL string) *FeishuNotifier {
	if webhookURL == "" {
		logger.Warnf("Feishu webhook URL not configured, late task alerts will only be logged")
	}
	return &FeishuNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook is configured
func (f *FeishuNotifier) Enabled() bool {
	return f != nil && f.webhookURL != ""
}

// SendLateTasks posts one interactive card listing the late tasks
func (f *FeishuNotifier) SendLateTasks(ctx context.Context, today model.Date, tasks []model.LateTask) error {
	if !f.Enabled() {
		return nil
	}
	if len(tasks) == 0 {
		return nil
	}

	payload, err := json.Marshal(buildLateTaskCard(today, tasks))
	if err != nil {
		return fmt.Errorf("failed to marshal Feishu message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Feishu notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Feishu API returned status code: %d", resp.StatusCode)
	}

	logger.InfoCtx(ctx, "Feishu late task alert sent, %d tasks", len(tasks))
	return nil
}

func buildLateTaskCard(today model.Date, tasks []model.LateTask) map[string]interface{} {
	lines := make([]string, 0, len(tasks)+1)
	for i, t := range tasks {
		if i == maxListedTasks {
			lines = append(lines, fmt.Sprintf("... and %d more", len(tasks)-maxListedTasks))
			break
		}
		lines = append(lines, fmt.Sprintf("**%s** · %s / %s · due %s · %d%%",
			t.Employee, t.Project, t.SubTask, t.EndDate.String(), t.Progress))
	}

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"template": "red",
				"title": map[string]interface{}{
					"content": fmt.Sprintf("Late tasks (%d)", len(tasks)),
					"tag":     "plain_text",
				},
			},
			"elements": []interface{}{
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"content": strings.Join(lines, "\n"),
						"tag":     "lark_md",
					},
				},
				map[string]interface{}{
					"tag": "hr",
				},
				map[string]interface{}{
					"tag": "note",
					"elements": []interface{}{
						map[string]interface{}{
							"content": fmt.Sprintf("Checked on %s", today.String()),
							"tag":     "plain_text",
						},
					},
				},
			},
		},
	}
}
