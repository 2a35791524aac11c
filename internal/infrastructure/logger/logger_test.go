package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{input: "debug", want: zapcore.DebugLevel},
		{input: "INFO", want: zapcore.InfoLevel},
		{input: "", want: zapcore.InfoLevel},
		{input: "warning", want: zapcore.WarnLevel},
		{input: "error", want: zapcore.ErrorLevel},
		{input: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := New(&Config{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("writes json to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.log")
		log, err := New(&Config{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)

		log.Info("sync finished", zap.String("published_product_id", "p-1"))
		require.NoError(t, log.Sync())

		body, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"msg":"sync finished"`)
		assert.Contains(t, string(body), `"published_product_id":"p-1"`)
	})

	t.Run("extra cores receive every entry", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		log, err := New(&Config{Level: "error", Output: "stderr"}, core)
		require.NoError(t, err)

		log.Info("bridged")
		assert.Equal(t, 1, recorded.FilterMessage("bridged").Len())
	})

	t.Run("unwritable file path fails", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.Error(t, err)
	})
}
