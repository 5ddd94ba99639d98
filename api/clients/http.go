package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Per-call budgets. Informational GETs are cheap; sign, bootstrap,
// encapsulate and decapsulate perform post-quantum cryptography downstream
// and get the larger budget.
const (
	infoTimeout   = 4 * time.Second
	cryptoTimeout = 8 * time.Second
)

// apiError is a non-200 downstream response, kept with its status and body
// so callers can classify it.
type apiError struct {
	StatusCode int
	Body       []byte
}

func (e *apiError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, string(e.Body))
}

// doJSON performs one bounded JSON round trip and decodes the response into
// a generic map for alias-tolerant field access. Non-200 responses come
// back as *apiError.
func doJSON(ctx context.Context, client *http.Client, method, url string, body any, timeout time.Duration) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read backend response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: respBody}
	}

	parsed := map[string]any{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("could not parse backend response: %w", err)
		}
	}

	return parsed, nil
}
