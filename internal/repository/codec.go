package repository

import (
	"encoding/json"
	"strconv"
	"strings"

	"exam-room/internal/logger"

	"go.uber.org/zap"
)

// EncodeJSON serializes v for a json column. A nil slice or map is stored as
// its empty JSON form.
func EncodeJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Get().Warn("Failed to encode json cell", zap.Error(err))
		return ""
	}
	if string(b) == "null" {
		return ""
	}
	return string(b)
}

// DecodeJSON parses a json cell into T. Empty or unparsable input yields
// fallback; the failure is logged at debug and never returned.
func DecodeJSON[T any](cell string, fallback T) T {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return fallback
	}
	var out T
	if err := json.Unmarshal([]byte(cell), &out); err != nil {
		logger.Get().Debug("Degraded unparsable json cell", zap.Error(err), zap.Int("length", len(cell)))
		return fallback
	}
	return out
}

// ParseBool accepts TRUE/FALSE in any case as well as 1/0.
func ParseBool(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func FormatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// ParseInt returns 0 for anything that is not a number. Decimal values are truncated.
func ParseInt(cell string) int {
	cell = strings.TrimSpace(cell)
	if n, err := strconv.Atoi(cell); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return int(f)
	}
	return 0
}

// ParseFloat returns 0 for anything that is not a number.
func ParseFloat(cell string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseOptionalFloat returns nil for empty or non-numeric cells.
func ParseOptionalFloat(cell string) *float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &f
}

func FormatInt(n int) string {
	return strconv.Itoa(n)
}

func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
