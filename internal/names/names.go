// Package names derives directory login handles and surnames from display names.
package names

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupportedScript is returned when a Han-only operation gets any other script.
var ErrUnsupportedScript = errors.New("unsupported script")

// CJK Unified Ideographs block.
const (
	hanFirst = '\u4e00'
	hanLast  = '\u9fff'
)

// compoundSurnameLen is the name length from which the first two characters
// are taken as the surname.
const compoundSurnameLen = 4

func normalize(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// IsHan reports whether every character of name is a CJK unified ideograph.
// An empty name is not Han.
func IsHan(name string) bool {
	name = normalize(name)
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < hanFirst || r > hanLast {
			return false
		}
	}
	return true
}

var pinyinArgs = pinyin.NewArgs()

// readings looks up the toneless readings of one character.
var readings = func(r rune) []string { return pinyin.SinglePinyin(r, pinyinArgs) }

// Pinyin concatenates the first toneless reading of each character, e.g. "zhangsan".
// A character without a reading fails the whole name.
func Pinyin(name string) (string, error) {
	name = normalize(name)
	if !IsHan(name) {
		return "", fmt.Errorf("%w: %q is not Han script", ErrUnsupportedScript, name)
	}

	var b strings.Builder
	for _, r := range name {
		rs := readings(r)
		if len(rs) == 0 || rs[0] == "" {
			return "", fmt.Errorf("%w: no reading for %q in %q", ErrUnsupportedScript, r, name)
		}
		b.WriteString(rs[0])
	}
	return b.String(), nil
}

// Surname returns the first character of name, or the first two when the name
// has four or more characters.
func Surname(name string) (string, error) {
	name = normalize(name)
	if !IsHan(name) {
		return "", fmt.Errorf("%w: %q is not Han script", ErrUnsupportedScript, name)
	}

	runes := []rune(name)
	if len(runes) < compoundSurnameLen {
		return string(runes[:1]), nil
	}
	return string(runes[:2]), nil
}

// LoginHandle returns the pinyin of a Han name and the trimmed name otherwise.
func LoginHandle(name string) string {
	if handle, err := Pinyin(name); err == nil {
		return handle
	}
	return normalize(name)
}
