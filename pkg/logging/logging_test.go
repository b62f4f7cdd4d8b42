package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	t.Run("JSON形式でserviceフィールドが付与される", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewWithWriter(&buf, "post", "info", "json")
		logger.WithField("post_id", "p-1").Info("投稿を作成しました")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "post", entry["service"])
		assert.Equal(t, "p-1", entry["post_id"])
		assert.Equal(t, "投稿を作成しました", entry["msg"])
	})

	t.Run("不正なレベルはinfoとして扱う", func(t *testing.T) {
		t.Parallel()

		logger := NewWithWriter(&bytes.Buffer{}, "auth", "verbose", "json")
		assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	})

	t.Run("text形式ではテキストで出力される", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewWithWriter(&buf, "tweet", "debug", "text")
		logger.Debug("デバッグ")

		assert.True(t, strings.Contains(buf.String(), "service=tweet"))
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	})
}
