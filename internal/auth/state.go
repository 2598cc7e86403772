package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBadToken   = errors.New("bad token")
	ErrBadSig     = errors.New("invalid signature")
	ErrExpired    = errors.New("expired")
	ErrBadPayload = errors.New("bad payload")
)

// StateSigner produces the OAuth state parameter that ties a Strava
// callback back to the user who started the flow.
type StateSigner struct {
	Secret []byte
	Now    func() time.Time
}

func NewStateSigner(secret string) StateSigner {
	return StateSigner{Secret: []byte(secret), Now: time.Now}
}

func (s StateSigner) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Sign returns payload.signature, both raw URL-safe base64
func (s StateSigner) Sign(userID uuid.UUID, exp time.Time) string {
	msg := userID.String() + "|" + strconv.FormatInt(exp.Unix(), 10)
	pl := base64.RawURLEncoding.EncodeToString([]byte(msg))
	return pl + "." + s.mac([]byte(msg))
}

func (s StateSigner) mac(msg []byte) string {
	m := hmac.New(sha256.New, s.Secret)
	m.Write(msg)
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

func (s StateSigner) Verify(state string) (uuid.UUID, error) {
	parts := strings.SplitN(state, ".", 2)
	if len(parts) != 2 {
		return uuid.Nil, ErrBadToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return uuid.Nil, ErrBadToken
	}

	if !hmac.Equal([]byte(s.mac(payload)), []byte(parts[1])) {
		return uuid.Nil, ErrBadSig
	}

	fields := strings.SplitN(string(payload), "|", 2)
	if len(fields) != 2 {
		return uuid.Nil, ErrBadPayload
	}
	userID, err := uuid.Parse(fields[0])
	if err != nil {
		return uuid.Nil, ErrBadPayload
	}
	expUnix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return uuid.Nil, ErrBadPayload
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return uuid.Nil, ErrExpired
	}
	return userID, nil
}
