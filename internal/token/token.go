// Package token signs the handles given to a shell when it mounts a screen.
// Only the holder of a handle can unmount that screen.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("token expired")
)

type payload struct {
	ScreenID string `json:"s"`
	Screen   string `json:"n"`
	TS       int64  `json:"t"`
}

// Handle is the verified content of a token.
type Handle struct {
	ScreenID string
	Screen   string
	IssuedAt time.Time
}

// Generate creates a signed token for a mounted screen instance.
func Generate(screenID, screen string, secret []byte) (string, error) {
	data, err := json.Marshal(payload{ScreenID: screenID, Screen: screen, TS: time.Now().Unix()})
	if err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(data) + "." + enc.EncodeToString(sign(data, secret)), nil
}

// Verify checks integrity and expiry. A zero ttl never expires.
func Verify(tok string, secret []byte, ttl time.Duration) (Handle, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return Handle{}, ErrInvalid
	}
	enc := base64.RawURLEncoding
	data, err := enc.DecodeString(parts[0])
	if err != nil {
		return Handle{}, ErrInvalid
	}
	sig, err := enc.DecodeString(parts[1])
	if err != nil {
		return Handle{}, ErrInvalid
	}
	if !hmac.Equal(sign(data, secret), sig) {
		return Handle{}, ErrInvalid
	}

	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return Handle{}, ErrInvalid
	}
	issued := time.Unix(pl.TS, 0)
	if ttl > 0 && time.Since(issued) > ttl {
		return Handle{}, ErrExpired
	}
	return Handle{ScreenID: pl.ScreenID, Screen: pl.Screen, IssuedAt: issued}, nil
}

func sign(data, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return mac.Sum(nil)
}
