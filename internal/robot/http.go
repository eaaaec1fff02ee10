package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdrpinto/roboroute"
)

// maxResponseBody caps how much of a robot reply is read for error messages.
const maxResponseBody = 4 << 10

// HTTPDispatcher implements Dispatcher using the EV3's HTTP API.
type HTTPDispatcher struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPDispatcher creates a dispatcher for the robot at baseURL
// (for example "http://192.168.0.1:5000").
func NewHTTPDispatcher(baseURL string, timeout time.Duration) *HTTPDispatcher {
	return &HTTPDispatcher{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SendCommand posts {"command": command} to /command.
func (d *HTTPDispatcher) SendCommand(ctx context.Context, command string) error {
	return d.post(ctx, "/command", map[string]string{"command": command})
}

// SendPath posts {"path": [[row, col], ...]} to /path.
func (d *HTTPDispatcher) SendPath(ctx context.Context, path []roboroute.Cell) error {
	return d.post(ctx, "/path", map[string][]roboroute.Cell{"path": path})
}

func (d *HTTPDispatcher) post(ctx context.Context, endpoint string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned %d: %s", endpoint, resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
