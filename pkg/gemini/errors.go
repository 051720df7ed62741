package gemini

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/salesbrain-ai/salesbrain/pkg/core"
)

// apiError represents an error response from the Gemini API.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// parseError parses an error response from Gemini into a typed *core.Error.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Can't parse error, return generic
		return &core.Error{
			Type:    core.ErrAPI,
			Message: string(body),
		}
	}

	// Map Gemini RPC statuses to our error types
	var errType core.ErrorType
	switch parsed.Error.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		errType = core.ErrAuthentication
	case "RESOURCE_EXHAUSTED":
		errType = core.ErrRateLimit
	case "UNAVAILABLE":
		errType = core.ErrOverloaded
	default:
		errType = core.ErrAPI
	}

	// Also check HTTP status code
	if resp.StatusCode == 429 {
		errType = core.ErrRateLimit
	}
	if resp.StatusCode == 503 {
		errType = core.ErrOverloaded
	}
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		errType = core.ErrAuthentication
	}

	return &core.Error{
		Type:          errType,
		Message:       parsed.Error.Message,
		Code:          parsed.Error.Status,
		ProviderError: parsed.Error,
	}
}
