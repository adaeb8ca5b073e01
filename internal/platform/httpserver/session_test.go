package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func requestWithCookie(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: value})
	}
	return req
}

func TestSessionCodecSignedRoundTrip(t *testing.T) {
	codec := NewSessionCodec("secret")
	cookie := codec.Cookie("session-1")

	assert.NotEqual(t, "session-1", cookie.Value)
	assert.Equal(t, "session-1", codec.Read(requestWithCookie(cookie.Value)))
}

func TestSessionCodecRejectsBadSignatures(t *testing.T) {
	codec := NewSessionCodec("secret")
	signed := codec.Cookie("session-1").Value

	for _, value := range []string{
		"session-1",
		"session-1.",
		".abcd",
		"session-1.not-hex",
		"session-2" + signed[len("session-1"):],
		NewSessionCodec("other").Cookie("session-1").Value,
	} {
		assert.Empty(t, codec.Read(requestWithCookie(value)), value)
	}
	assert.Empty(t, codec.Read(requestWithCookie("")))
}

func TestSessionCodecWithoutSecretUsesBareID(t *testing.T) {
	codec := NewSessionCodec("  ")
	cookie := codec.Cookie("session-1")

	assert.Equal(t, "session-1", cookie.Value)
	assert.Equal(t, "session-1", codec.Read(requestWithCookie(cookie.Value)))
}
