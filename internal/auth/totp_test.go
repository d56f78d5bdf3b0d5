package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

func TestTOTPValidateWindow(t *testing.T) {
	// Aligned to a 30s step boundary.
	t0 := time.Unix(1_700_000_010, 0).UTC()
	code := codeAt(t, testTOTPSecret, t0)

	cases := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"same step", 29 * time.Second, true},
		{"one step later", 30 * time.Second, true},
		{"one step earlier", -30 * time.Second, true},
		{"replayed after 90s", 90 * time.Second, false},
		{"two steps earlier", -60 * time.Second, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewTOTP("test", fixedClock(t0.Add(tc.offset)))
			assert.Equal(t, tc.want, v.Validate(code, testTOTPSecret))
		})
	}
}

func TestTOTPRejectsGarbage(t *testing.T) {
	v := NewTOTP("test", nil)
	assert.False(t, v.Validate("", testTOTPSecret))
	assert.False(t, v.Validate("123456", ""))
	assert.False(t, v.Validate("abcdef", testTOTPSecret))
}

func TestTOTPGenerate(t *testing.T) {
	v := NewTOTP("SalonHub", nil)
	enr, err := v.Generate("owner@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, enr.Secret)
	assert.True(t, strings.HasPrefix(enr.URL, "otpauth://totp/"))
	assert.Contains(t, enr.URL, "issuer=SalonHub")

	now := time.Now()
	code := codeAt(t, enr.Secret, now)
	assert.True(t, NewTOTP("SalonHub", fixedClock(now)).Validate(code, enr.Secret))
}
