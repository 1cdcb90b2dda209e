package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const MaxNicknameLength = 20

var errNickname = apperr.ErrInvalidInput.WithMessage("nickname must be 1-20 characters")

// NormalizeNickname trims and NFC-normalizes a nickname for display and derives the
// case-folded key used for uniqueness inside a room.
func NormalizeNickname(raw string) (display, key string, err error) {
	display = norm.NFC.String(strings.TrimSpace(raw))
	n := utf8.RuneCountInString(display)
	if n == 0 || n > MaxNicknameLength {
		return "", "", errNickname
	}
	for _, r := range display {
		if unicode.IsControl(r) {
			return "", "", errNickname
		}
	}
	key = norm.NFC.String(cases.Fold().String(display))
	return display, key, nil
}
