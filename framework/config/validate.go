package config

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// ── Types ────────────────────────────────────────────────────────────────────

// ValidationError holds every rule failure by configuration key.
type ValidationError struct {
	Bag map[string][]string `json:"errors"`
}

func (e *ValidationError) add(key, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[key] = append(e.Bag[key], msg)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Bag))
	for k := range e.Bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var msgs []string
	for _, k := range keys {
		msgs = append(msgs, e.Bag[k]...)
	}
	return "config: " + strings.Join(msgs, " ")
}

// First returns the first error for a key.
func (e *ValidationError) First(key string) string {
	if msgs, ok := e.Bag[key]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// rules is a map of key → pipe-separated rule string.
type rules map[string]string

var configRules = rules{
	"APP_NAME":        "required",
	"APP_ENV":         "required|in:local,production,testing",
	"APP_PORT":        "required|integer|between:1,65535",
	"LOG_LEVEL":       "in:debug,info,warn,error",
	"LOG_FORMAT":      "in:console,json",
	"METRICS_PATH":    "required|starts_with:/",
	"SESSION_COOKIE":  "required",
	"SESSION_MAX_AGE": "integer|between:1,2592000",
}

// Validate checks the loaded values, including the container error kind
// names. It returns a *ValidationError listing every failure.
func (c *Config) Validate() error {
	data := map[string]string{
		"APP_NAME":        c.App.Name,
		"APP_ENV":         c.App.Env,
		"APP_PORT":        c.App.Port,
		"LOG_LEVEL":       c.Log.Level,
		"LOG_FORMAT":      c.Log.Format,
		"METRICS_PATH":    c.Metrics.Path,
		"SESSION_COOKIE":  c.Session.Cookie,
		"SESSION_MAX_AGE": strconv.Itoa(c.Session.MaxAge),
	}
	verr := check(data, configRules)
	if _, err := c.Container.IgnoredKinds(); err != nil {
		verr.add("CONTAINER_IGNORE_ERRORS", err.Error())
	}
	if len(verr.Bag) > 0 {
		return verr
	}
	return nil
}

// ── Core validation loop ─────────────────────────────────────────────────────

func check(data map[string]string, rs rules) *ValidationError {
	verr := &ValidationError{}
	for key, ruleStr := range rs {
		value := data[key]
		for _, rule := range strings.Split(ruleStr, "|") {
			name, param, _ := strings.Cut(strings.TrimSpace(rule), ":")
			if !applyRule(verr, key, value, name, param) {
				break // stop on first failure per key
			}
		}
	}
	return verr
}

// applyRule returns true if the rule passes. Rules other than required
// pass on empty values.
func applyRule(verr *ValidationError, key, value, rule, param string) bool {
	if rule != "required" && value == "" {
		return true
	}
	switch rule {
	case "required":
		if strings.TrimSpace(value) == "" {
			verr.add(key, fmt.Sprintf("The %s field is required.", key))
			return false
		}

	case "integer":
		if _, err := strconv.Atoi(value); err != nil {
			verr.add(key, fmt.Sprintf("The %s must be an integer.", key))
			return false
		}

	case "between":
		lo, hi, _ := strings.Cut(param, ",")
		n, _ := strconv.Atoi(value)
		min, _ := strconv.Atoi(lo)
		max, _ := strconv.Atoi(hi)
		if n < min || n > max {
			verr.add(key, fmt.Sprintf("The %s must be between %d and %d.", key, min, max))
			return false
		}

	case "in":
		if !slices.Contains(strings.Split(param, ","), value) {
			verr.add(key, fmt.Sprintf("The selected %s is invalid.", key))
			return false
		}

	case "starts_with":
		if !strings.HasPrefix(value, param) {
			verr.add(key, fmt.Sprintf("The %s must start with %s.", key, param))
			return false
		}
	}
	return true
}
