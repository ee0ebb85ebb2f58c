package member

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/secmun/podium/core"
)

var (
	salt    = []byte("podium.core.member.token_gen")
	NowFunc = time.Now // mockable

	secretKey                 []byte
	passwordResetTimeoutDelta time.Duration

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// InitTokenGenerator seeds the token generator from the app config.
func InitTokenGenerator(conf *core.Config) {
	secretKey = conf.SecretKey
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
}

// EncodeUID base64 encodes given Member ID
func EncodeUID(mbr Member) string {
	return base64.RawURLEncoding.EncodeToString([]byte(mbr.ID))
}

// DecodeUID base64 decodes given UID
func DecodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakeToken generates a password reset token for a given Member.
func MakeToken(mbr Member) (string, error) {
	return makeTokenWithTimestamp(mbr, numDaysSince2001(NowFunc()))
}

// verifyToken checks that a password reset token for a given Member is valid.
func verifyToken(mbr Member, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}
	tsB32 := parts[0]

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(tsB32)
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := makeTokenWithTimestamp(mbr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(time.Now()) - ts) > int(passwordResetTimeoutDelta/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func makeTokenWithTimestamp(mbr Member, ts int) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := sign(hashValue(mbr, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func sign(val []byte) (string, error) {
	key := sha256.Sum256(append(salt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func hashValue(mbr Member, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(mbr.ID)
	val.Write(mbr.PasswordHash)
	if !mbr.LastLogin.IsZero() {
		val.WriteString(mbr.LastLogin.String())
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
