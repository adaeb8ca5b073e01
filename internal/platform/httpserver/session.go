package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

const (
	SessionCookieName = "sessionId"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// SessionCodec reads and writes the voter session cookie. With a secret the
// cookie value is "<session>.<hex hmac-sha256>"; without one it is the bare
// session id.
type SessionCodec struct {
	secret []byte
}

func NewSessionCodec(secret string) SessionCodec {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return SessionCodec{}
	}
	return SessionCodec{secret: []byte(secret)}
}

// Read returns the session carried by r, or "" when the cookie is missing
// or its signature does not verify.
func (c SessionCodec) Read(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	session, ok := c.decode(cookie.Value)
	if !ok {
		return ""
	}
	return session
}

func (c SessionCodec) Cookie(session string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    c.encode(session),
		Path:     "/",
		MaxAge:   int(sessionMaxAge / time.Second),
		Expires:  time.Now().Add(sessionMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c SessionCodec) encode(session string) string {
	if len(c.secret) == 0 {
		return session
	}
	return session + "." + c.sign(session)
}

func (c SessionCodec) decode(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if len(c.secret) == 0 {
		return value, true
	}
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return "", false
	}
	session, signature := value[:idx], value[idx+1:]
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	expected, _ := hex.DecodeString(c.sign(session))
	if !hmac.Equal(provided, expected) {
		return "", false
	}
	return session, true
}

func (c SessionCodec) sign(session string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(session))
	return hex.EncodeToString(mac.Sum(nil))
}
