package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   "FATAL",
}

var statusValues = map[string]struct{}{
	"ok": {}, "fail": {}, "skip": {}, "retry": {}, "expired": {}, "rejected": {}, "cancelled": {},
}

var outcomeValues = map[string]struct{}{
	"ok": {}, "fail": {}, "cancelled": {}, "rejected": {}, "expired": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

// normalizeEnum lowercases v and reports whether it belongs to the allowed set.
func normalizeEnum(v string, allowed map[string]struct{}) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	_, ok := allowed[v]
	return v, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"session_key",
	"step",
	"state",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"thread_id",
	"author_id",
	"property_type",
	"property_size",
	"images",
	"marker",
	"http_code",
	"sessions",
	"removed",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
}
