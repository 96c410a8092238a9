package a11yclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// UpstreamFailure reports a response the scanning service did not mark as
// successful. Document is the full response.
type UpstreamFailure struct {
	Document any
}

func (e *UpstreamFailure) Error() string {
	data, err := json.Marshal(e.Document)
	if err != nil {
		return fmt.Sprintf("a11yclient: unsuccessful response: %v", e.Document)
	}
	return "a11yclient: unsuccessful response: " + string(data)
}

// CheckSuccess requires "success": true on an object response, or on every
// item of an array response.
func CheckSuccess(doc any) error {
	switch v := doc.(type) {
	case map[string]any:
		if v["success"] == true {
			return nil
		}
	case []any:
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok || obj["success"] != true {
				return &UpstreamFailure{Document: doc}
			}
		}
		return nil
	}
	return &UpstreamFailure{Document: doc}
}

// Probe reports whether target answers a GET with a 2xx or 3xx status.
// Redirects are followed, up to the HTTP client's limit, and the final
// response decides. A redirect loop or too many hops counts as down.
func (c *Client) Probe(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 399
}
