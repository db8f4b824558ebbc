package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// extractMessage pulls a human-readable message out of a non-2xx response
// body. The backend answers in several shapes depending on which layer
// rejected the request, so this is an ordered chain of matchers; the first
// one that produces a non-empty message wins.
//
// Shapes, in precedence order:
//  1. a bare JSON array of error objects
//  2. an object with an "errors" array
//  3. a flat object of field -> message(s), with no "message"/"error" keys
//  4. an object with a "message" field (generic validation messages are
//     replaced by sibling field details when present)
//  5. an object with both "error" and "message"
//
// Anything else falls back to the raw body text, the status text, or a
// generic status line.
func extractMessage(status int, body []byte, statusText string) string {
	fallback := fmt.Sprintf("HTTP error! status: %d", status)

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			return text
		}
		if statusText != "" {
			return statusText
		}
		return fallback
	}

	switch v := payload.(type) {
	case []any:
		if msg := joinErrorList(v); msg != "" {
			return msg
		}
	case map[string]any:
		if list, ok := v["errors"].([]any); ok {
			if msg := joinErrorList(list); msg != "" {
				return msg
			}
		}

		_, hasMessage := v["message"]
		_, hasError := v["error"]
		if !hasMessage && !hasError {
			if msg := joinFieldMap(v); msg != "" {
				return msg
			}
		}

		msg := fallback
		if m, ok := v["message"].(string); ok && m != "" {
			if strings.Contains(strings.ToLower(m), "validation") {
				if details := siblingDetails(v); details != "" {
					return details
				}
			}
			msg = m
		}
		if e, ok := v["error"].(string); ok && e != "" {
			if m, ok := v["message"].(string); ok && m != "" {
				msg = e + ": " + m
			}
		}
		return msg
	}

	return fallback
}

// joinErrorList handles validation-error lists: plain strings, or objects
// carrying message/defaultMessage plus an optional field name.
func joinErrorList(list []any) string {
	var msgs []string
	for _, item := range list {
		switch e := item.(type) {
		case string:
			if e != "" {
				msgs = append(msgs, e)
			}
		case map[string]any:
			field, _ := e["field"].(string)
			def, _ := e["defaultMessage"].(string)
			m, _ := e["message"].(string)
			switch {
			case field != "" && def != "":
				msgs = append(msgs, field+": "+def)
			case m != "":
				msgs = append(msgs, m)
			case def != "":
				msgs = append(msgs, def)
			}
		}
	}
	return strings.Join(msgs, ", ")
}

// joinFieldMap handles flat field -> message objects, where a field's value
// is either a string or a list of strings. Keys are sorted so the joined
// message is stable.
func joinFieldMap(v map[string]any) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msgs []string
	for _, k := range keys {
		switch val := v[k].(type) {
		case string:
			if val != "" {
				msgs = append(msgs, k+": "+val)
			}
		case []any:
			if joined := joinStrings(val); joined != "" {
				msgs = append(msgs, k+": "+joined)
			}
		}
	}
	return strings.Join(msgs, ", ")
}

// siblingDetails re-scans an error object whose "message" is a generic
// validation banner, looking for more specific per-field text. This mirrors
// the backend's current error layout and must be revalidated if that
// layout changes.
func siblingDetails(v map[string]any) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		switch k {
		case "message", "error", "status", "timestamp":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var details []string
	for _, k := range keys {
		switch val := v[k].(type) {
		case string:
			if val != "" {
				details = append(details, val)
			}
		case []any:
			for _, item := range val {
				if s, ok := item.(string); ok && s != "" {
					details = append(details, s)
				}
			}
		}
	}
	return strings.Join(details, ", ")
}

func joinStrings(list []any) string {
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}
