package auth

import (
	"strconv"
	"testing"
	"time"

	"recipebox/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestTokenManager_IssueAndVerify(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager(testSecret, "", time.Hour)

	tok, err := tm.Issue(42)
	require.NoError(t, err)

	userID, err := tm.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestTokenManager_IssueRejectsEmptyInputs(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager(testSecret, "", time.Hour).Issue(0)
	assert.Error(t, err)

	_, err = NewTokenManager("", "", time.Hour).Issue(1)
	assert.Error(t, err)
}

func TestTokenManager_VerifyFailures(t *testing.T) {
	t.Parallel()

	tm := NewTokenManager(testSecret, "recipebox-api", time.Hour)

	expired := NewTokenManager(testSecret, "recipebox-api", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredTok, err := expired.Issue(7)
	require.NoError(t, err)

	otherSecretTok, err := NewTokenManager("another-secret-key-1234567890123456", "recipebox-api", time.Hour).Issue(7)
	require.NoError(t, err)

	otherIssuerTok, err := NewTokenManager(testSecret, "someone-else", time.Hour).Issue(7)
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		s, signErr := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, signErr)
		return s
	}
	baseClaims := func(sub string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "recipebox-api",
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	noneTok := sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, baseClaims("7"))
	badSubjectTok := sign(jwt.SigningMethodHS256, []byte(testSecret), baseClaims("not-a-number"))
	zeroSubjectTok := sign(jwt.SigningMethodHS256, []byte(testSecret), baseClaims(strconv.Itoa(0)))
	noExpClaims := baseClaims("7")
	noExpClaims.ExpiresAt = nil
	noExpTok := sign(jwt.SigningMethodHS256, []byte(testSecret), noExpClaims)

	tests := []struct {
		name  string
		token string
	}{
		{"Malformed", "not.a.jwt"},
		{"Empty", ""},
		{"Expired", expiredTok},
		{"Wrong secret", otherSecretTok},
		{"Wrong issuer", otherIssuerTok},
		{"Unsigned", noneTok},
		{"Non numeric subject", badSubjectTok},
		{"Zero subject", zeroSubjectTok},
		{"Missing expiry", noExpTok},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			userID, err := tm.Verify(tt.token)
			require.Error(t, err)
			assert.Zero(t, userID)
			assert.True(t, models.HasCode(err, models.CodeInvalidToken), "got %v", err)
		})
	}
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()

	tok, err := ExtractBearer("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	for _, header := range []string{"", "Bearer", "Basic dXNlcjpwYXNz", "Bearer a b", "bearer abc"} {
		_, err := ExtractBearer(header)
		assert.Error(t, err, header)
	}
}
