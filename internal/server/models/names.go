package models

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophdrive/internal/common"
)

// CleanName strips leading and trailing path separators.
func CleanName(name string) (string, error) {
	clean := strings.Trim(name, "/")
	if clean == "" {
		return "", fmt.Errorf("%w: empty name %q", common.ErrorValidation, name)
	}
	return clean, nil
}

// EncodeName makes a cleaned name safe for use as one key segment.
func EncodeName(name string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(name))
}

func DecodeName(encoded string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: bad encoded name %q", common.ErrorValidation, encoded)
	}
	return string(b), nil
}
