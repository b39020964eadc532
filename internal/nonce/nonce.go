// Package nonce issues and checks action tokens tied to a session. A token
// is valid for one action and one session, and expires after at most
// Lifetime.
package nonce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Actions tokens are issued for.
const (
	ActionSubmitReport = "SUBMIT_REPORT"
	ActionSaveSettings = "SAVE_SETTINGS"
)

const (
	DefaultLifetime = 24 * time.Hour
	tokenBytes      = 12
)

type Issuer struct {
	key      []byte
	Lifetime time.Duration
	Now      func() time.Time
}

// NewIssuer derives the signing key from secret with HKDF.
func NewIssuer(secret string, lifetime time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("nonce: empty secret")
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("bugreport nonce v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("nonce: derive key: %w", err)
	}

	return &Issuer{key: key, Lifetime: lifetime, Now: time.Now}, nil
}

// Create returns the token for action in the given session. It changes every
// Lifetime/2.
func (i *Issuer) Create(action, sessionID string) string {
	return i.sign(i.tick(), action, sessionID)
}

// Verify accepts tokens from the current or the previous tick.
func (i *Issuer) Verify(token, action, sessionID string) bool {
	if token == "" {
		return false
	}
	tick := i.tick()
	for _, t := range []int64{tick, tick - 1} {
		if hmac.Equal([]byte(token), []byte(i.sign(t, action, sessionID))) {
			return true
		}
	}
	return false
}

func (i *Issuer) tick() int64 {
	half := int64(i.Lifetime / 2 / time.Second)
	if half <= 0 {
		half = 1
	}
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}
	return now().Unix()/half + 1
}

func (i *Issuer) sign(tick int64, action, sessionID string) string {
	mac := hmac.New(sha256.New, i.key)
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(action))
	mac.Write([]byte{'|'})
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:tokenBytes])
}
