package logger

import (
	"encoding/json"
	"net/http"
	"strings"
)

// secretKeys are redacted down to their last four characters.
var secretKeys = []string{"secret", "token", "server_key", "signature_key", "authorization"}

// contactKeys hold donor contact details that Midtrans echoes back in notifications.
var contactKeys = []string{"email", "phone"}

type maskKind int

const (
	maskNone maskKind = iota
	maskSecret
	maskContact
)

// MaskAuthorization keeps the bearer scheme and the last four token characters.
func MaskAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if scheme, token, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return "Bearer " + tail4(token)
	}
	return tail4(value)
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(value), "@")
	if !ok || local == "" {
		return tail4(value)
	}
	return local[:1] + "***@" + domain
}

// MaskPayload decodes a gateway JSON body and masks it for logging. Anything that is not a
// JSON object is reduced to its size.
func MaskPayload(payload []byte) map[string]any {
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil || decoded == nil {
		return map[string]any{"bytes": len(payload)}
	}
	return MaskJSON(decoded)
}

// MaskHeaders flattens headers and masks credentials.
func MaskHeaders(headers http.Header) map[string]string {
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		joined := strings.Join(values, ",")
		if classify(key) == maskSecret {
			joined = MaskAuthorization(joined)
		}
		masked[key] = joined
	}
	return masked
}

// MaskJSON deep-copies input with secrets and contact fields masked.
func MaskJSON(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = maskField(classify(key), value)
	}
	return out
}

func maskField(kind maskKind, value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return MaskJSON(typed)
	case []any:
		items := make([]any, len(typed))
		for i, entry := range typed {
			items[i] = maskField(kind, entry)
		}
		return items
	case string:
		switch kind {
		case maskSecret:
			return tail4(typed)
		case maskContact:
			if strings.Contains(typed, "@") {
				return MaskEmail(typed)
			}
			return tail4(typed)
		}
		return typed
	default:
		if kind != maskNone {
			return "****"
		}
		return value
	}
}

func classify(key string) maskKind {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, needle := range secretKeys {
		if strings.Contains(key, needle) {
			return maskSecret
		}
	}
	for _, needle := range contactKeys {
		if strings.Contains(key, needle) {
			return maskContact
		}
	}
	return maskNone
}

func tail4(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case len(value) <= 4:
		return "****"
	default:
		return "****" + value[len(value)-4:]
	}
}
