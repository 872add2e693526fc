package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskherd/internal/store"
)

// parseParameters accepts the two command-line parameter forms: a JSON
// object (detected by a leading '{') or a comma-separated k=v list where
// each value is parsed as JSON when possible, else kept as a string.
func parseParameters(value string) (store.Parameters, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if strings.HasPrefix(value, "{") {
		var params store.Parameters
		if err := json.Unmarshal([]byte(value), &params); err != nil {
			return nil, fmt.Errorf("parameters must be a JSON object: %w", err)
		}
		return params, nil
	}

	params := make(store.Parameters)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, raw, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("parameter %q is not in k=v form", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("parameter %q has an empty key", pair)
		}
		raw = strings.TrimSpace(raw)
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			params[key] = parsed
		} else {
			params[key] = raw
		}
	}
	return params, nil
}

// resolveCheckoutTarget applies the facade rule for checkout arguments:
// an all-digits target is a task id, anything else is a queue name.
func resolveCheckoutTarget(target string) (queueName string, taskID int64, err error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", 0, fmt.Errorf("checkout target is required")
	}
	if isAllDigits(target) {
		id, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("invalid task id %q", target)
		}
		return "", id, nil
	}
	return target, 0, nil
}

func isAllDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(value) > 0
}

// defaultWorkerID generates a worker identity when --worker is omitted.
func defaultWorkerID() string {
	return "worker-" + uuid.NewString()[:8]
}

func parseTaskIDArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format(time.RFC3339)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return formatTime(*value)
}

func formatOptional(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatParameters(params store.Parameters) string {
	if len(params) == 0 {
		return "-"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "-"
	}
	return string(data)
}
