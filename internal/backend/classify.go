package backend

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxInspectBytes bounds how much of a response body is buffered for classification
const maxInspectBytes = 1 << 20

// Backend wording that signals a dead token even on a non-401/403 status.
// The status check is the reliable signal; this list is best effort.
var expiredPhrases = []string{
	"invalid token",
	"expired token",
	"jwt expired",
	"token expired",
	"invalid/expired",
}

// Classification reasons
const (
	reasonStatus  = "status"
	reasonMessage = "message"
)

type replayBody struct {
	io.Reader
	io.Closer
}

// classifyAuthFailure reports whether resp means the session is no longer valid.
// The body is restored so the caller can still read it.
func classifyAuthFailure(resp *http.Response) (bool, string) {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return true, reasonStatus
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return false, ""
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxInspectBytes+1))
	resp.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(buf), resp.Body), Closer: resp.Body}
	if err != nil || len(buf) > maxInspectBytes {
		return false, ""
	}
	if messageSignalsExpiry(buf) {
		return true, reasonMessage
	}
	return false, ""
}

func messageSignalsExpiry(body []byte) bool {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	for _, raw := range []json.RawMessage{payload.Error, payload.Message} {
		text := strings.ToLower(rawText(raw))
		if text == "" {
			continue
		}
		for _, phrase := range expiredPhrases {
			if strings.Contains(text, phrase) {
				return true
			}
		}
	}
	return false
}

// rawText returns a JSON string's value, or the raw JSON for objects
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
