package directory

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // {SSHA} is what OpenLDAP verifies by default
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/names"
	"golang.org/x/crypto/bcrypt"
)

// PasswordScheme selects the userPassword hash format.
type PasswordScheme string

const (
	SchemeSSHA   PasswordScheme = "ssha"
	SchemeBcrypt PasswordScheme = "bcrypt"
)

const (
	sshaPrefix  = "{SSHA}"
	cryptPrefix = "{CRYPT}"
	saltSize    = 8
)

// DefaultPassword is the pinyin of the name followed by the last four
// characters of the mobile number.
func DefaultPassword(cn, mobile string) (string, error) {
	py, err := names.Pinyin(cn)
	if err != nil {
		return "", err
	}
	if len(mobile) > 4 {
		mobile = mobile[len(mobile)-4:]
	}
	return py + mobile, nil
}

// HashPassword returns secret hashed with a fresh salt in userPassword syntax.
func HashPassword(scheme PasswordScheme, secret string) (string, error) {
	switch scheme {
	case SchemeSSHA, "":
		salt := make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		return sshaPrefix + base64.StdEncoding.EncodeToString(ssha(secret, salt)), nil
	case SchemeBcrypt:
		h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return cryptPrefix + string(h), nil
	default:
		return "", fmt.Errorf("unknown password scheme %q", scheme)
	}
}

// VerifyPassword checks secret against a hash produced by HashPassword.
func VerifyPassword(hash, secret string) bool {
	switch {
	case strings.HasPrefix(hash, sshaPrefix):
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(hash, sshaPrefix))
		if err != nil || len(raw) <= sha1.Size {
			return false
		}
		return subtle.ConstantTimeCompare(raw, ssha(secret, raw[sha1.Size:])) == 1
	case strings.HasPrefix(hash, cryptPrefix):
		return bcrypt.CompareHashAndPassword([]byte(strings.TrimPrefix(hash, cryptPrefix)), []byte(secret)) == nil
	default:
		return false
	}
}

func ssha(secret string, salt []byte) []byte {
	h := sha1.New() //nolint:gosec
	h.Write([]byte(secret))
	h.Write(salt)
	return append(h.Sum(nil), salt...)
}
