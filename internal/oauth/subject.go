package oauth

import (
	"encoding/base64"
	"errors"
	"unicode/utf8"

	"github.com/AOSC-Dev/pakreq-web/internal/apperr"
)

// DecodeSubject unpacks the provider's packed subject claim: base64 (standard
// alphabet, no padding) over [tag, length, utf8 bytes...]. The external
// identifier is the declared-length slice starting at byte 2.
func DecodeSubject(subject string) (string, error) {
	decoded, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(subject)
	if err != nil {
		return "", apperr.New(apperr.BadRequest, err)
	}
	if len(decoded) < 3 {
		return "", apperr.New(apperr.BadRequest, errors.New("subject field is too short"))
	}
	n := int(decoded[1])
	if n+2 > len(decoded) {
		return "", apperr.New(apperr.BadRequest, errors.New("subject field contains invalid length specifier"))
	}
	name := decoded[2 : n+2]
	if !utf8.Valid(name) {
		return "", apperr.New(apperr.BadRequest, errors.New("subject field is not valid UTF-8"))
	}
	return string(name), nil
}
