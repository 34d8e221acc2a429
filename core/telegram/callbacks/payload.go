package callbacks

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadSep separates the session key from the selected value.
const PayloadSep = ":"

// ErrMalformedPayload is returned when a payload lacks the key/value pair.
var ErrMalformedPayload = errors.New("callbacks: malformed payload")

// EncodePayload joins a session key and value into button data.
func EncodePayload(key, value string) string {
	if value == "" {
		return key
	}
	return key + PayloadSep + value
}

// DecodePayload splits raw button data into session key and value.
// The value may be empty for buttons that carry only the key.
func DecodePayload(raw string) (string, string, error) {
	key, value, _ := strings.Cut(raw, PayloadSep)
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", ErrMalformedPayload
	}
	return key, strings.TrimSpace(value), nil
}

// PayloadKeyValue decodes the current callback payload.
func PayloadKeyValue(c tele.Context) (string, string, error) {
	return DecodePayload(CallbackPayload(c))
}
