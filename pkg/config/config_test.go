package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// t.Setenv を使うため、このファイルのテストは並列実行しない。

func TestGetEnvHelpers(t *testing.T) {
	t.Run("未設定の場合はデフォルト値を返す", func(t *testing.T) {
		assert.Equal(t, "default", GetEnvOr("PULSE_TEST_UNSET", "default"))
		assert.Equal(t, 7, GetEnvInt("PULSE_TEST_UNSET", 7))
		assert.Equal(t, 3*time.Second, GetEnvDuration("PULSE_TEST_UNSET", 3*time.Second))
		assert.True(t, GetEnvBool("PULSE_TEST_UNSET", true))
		assert.Equal(t, []string{"a"}, GetEnvList("PULSE_TEST_UNSET", []string{"a"}))
	})

	t.Run("設定値をパースして返す", func(t *testing.T) {
		t.Setenv("PULSE_TEST_INT", "42")
		t.Setenv("PULSE_TEST_DURATION", "1500ms")
		t.Setenv("PULSE_TEST_BOOL", "false")
		t.Setenv("PULSE_TEST_FLOAT", "2.5")
		t.Setenv("PULSE_TEST_LIST", " a, ,b ,c")

		assert.Equal(t, 42, GetEnvInt("PULSE_TEST_INT", 0))
		assert.Equal(t, 1500*time.Millisecond, GetEnvDuration("PULSE_TEST_DURATION", 0))
		assert.False(t, GetEnvBool("PULSE_TEST_BOOL", true))
		assert.InDelta(t, 2.5, GetEnvFloat("PULSE_TEST_FLOAT", 0), 0.0001)
		assert.Equal(t, []string{"a", "b", "c"}, GetEnvList("PULSE_TEST_LIST", nil))
	})

	t.Run("不正な値はデフォルト値にフォールバックする", func(t *testing.T) {
		t.Setenv("PULSE_TEST_INT", "abc")
		t.Setenv("PULSE_TEST_DURATION", "forever")

		assert.Equal(t, 5, GetEnvInt("PULSE_TEST_INT", 5))
		assert.Equal(t, time.Minute, GetEnvDuration("PULSE_TEST_DURATION", time.Minute))
	})
}

func TestLoadCommon(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("JWT_EXPIRES_IN", "1h")

	cfg := LoadCommon("post", "8082", "post.db")

	assert.Equal(t, "post", cfg.Service)
	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "dev-secret-key", cfg.JWTSecret)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "post.db", cfg.DBDSN)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
}
