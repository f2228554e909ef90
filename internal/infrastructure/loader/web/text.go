package web

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

func extractPlainText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text body: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("text body is not valid utf-8")
	}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
