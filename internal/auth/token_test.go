package auth

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "github.com/hongminglow/ledger-be/internal/log"
	"github.com/hongminglow/ledger-be/internal/models"
)

var alice = models.User{ID: "7f9c2ba4-e88f-4a8b-9b3c-6a2f1d0e5c11", Name: "Alice", Email: "a@x.com"}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerateAndVerify(t *testing.T) {
	tokens := NewTokenManager("s3cret", "ledger-test", 7*24*time.Hour)

	raw, err := tokens.Generate(alice)
	require.NoError(t, err)

	subject, err := tokens.Verify(t.Context(), raw)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, subject)
}

func TestVerifyEmbedsSevenDayExpiry(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewTokenManager("s3cret", "ledger-test", 7*24*time.Hour)
	tokens.now = fixedClock(issued)

	raw, err := tokens.Generate(alice)
	require.NoError(t, err)

	tokens.now = fixedClock(issued.Add(7*24*time.Hour - time.Minute))
	_, err = tokens.Verify(t.Context(), raw)
	assert.NoError(t, err, "token should still be valid just before expiry")

	tokens.now = fixedClock(issued.Add(7*24*time.Hour + time.Minute))
	_, err = tokens.Verify(t.Context(), raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejects(t *testing.T) {
	tokens := NewTokenManager("s3cret", "ledger-test", time.Hour)
	valid, err := tokens.Generate(alice)
	require.NoError(t, err)

	otherSecret, err := NewTokenManager("other", "ledger-test", time.Hour).Generate(alice)
	require.NoError(t, err)

	otherIssuer, err := NewTokenManager("s3cret", "someone-else", time.Hour).Generate(alice)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": "ledger-test",
		"sub": alice.ID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "ledger-test",
		"sub": alice.ID,
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "ledger-test",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"tampered":     valid[:len(valid)-2] + "xx",
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"alg none":     unsigned,
		"no expiry":    noExpiry,
		"no subject":   noSubject,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Verify(t.Context(), raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRejectReason(t *testing.T) {
	assert.Equal(t, "expired", rejectReason(jwt.ErrTokenExpired))
	assert.Equal(t, "malformed", rejectReason(jwt.ErrTokenMalformed))
	assert.Equal(t, "bad signature", rejectReason(jwt.ErrTokenSignatureInvalid))
}

func TestVerifyLogsRejectReasonOnRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: "debug", Format: "json", Output: &buf}).
		With(applog.FieldRequestID, "req_123")
	ctx := applog.WithLogger(t.Context(), logger)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := NewTokenManager("secret", "ledger-test", time.Hour)
	issuer.now = fixedClock(now)
	raw, err := issuer.Generate(alice)
	require.NoError(t, err)

	verifier := NewTokenManager("secret", "ledger-test", time.Hour)
	verifier.now = fixedClock(now.Add(2 * time.Hour))
	_, err = verifier.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "token rejected", line["msg"])
	assert.Equal(t, "req_123", line[applog.FieldRequestID])
	assert.Equal(t, applog.ComponentAuth, line[applog.FieldComponent])
	assert.Equal(t, "expired", line["reason"])
}
