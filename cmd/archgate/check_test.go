package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archgate/internal/access/models"
	"archgate/internal/platform/config"
)

func testEnv() runtimeEnv {
	return runtimeEnv{
		cfg: &config.Config{
			Env: config.EnvDevelopment,
			Access: config.AccessConfig{
				SourceTimeout:      time.Second,
				DecisionCache:      config.CacheNone,
				ClearanceTTL:       time.Second,
				ClearanceCacheSize: 16,
				AdminBypassEmbargo: true,
				Timezone:           "UTC",
			},
			Audit: config.AuditConfig{
				Store:         config.AuditStoreMemory,
				Shards:        1,
				ShardBuffer:   8,
				RetryCapacity: 8,
				RetryInterval: time.Second,
				WriteTimeout:  time.Second,
			},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunCheck(t *testing.T) {
	t.Run("unrestricted object is granted in full", func(t *testing.T) {
		var out bytes.Buffer
		err := runCheck(context.Background(), testEnv(), checkOptions{
			objectID: "42",
			action:   "view",
			asOf:     "2026-05-01",
			explain:  true,
		}, &out)
		require.NoError(t, err)

		var got checkOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, int64(42), got.ObjectID)
		assert.Equal(t, "2026-05-01", got.AsOf)
		assert.True(t, got.Decision.Granted)
		assert.Equal(t, models.LevelFull, got.Decision.Level)
		assert.Equal(t, "PUBLIC", got.ClearanceLevel)
		assert.Empty(t, got.Unavailable)
	})

	t.Run("unknown action is rejected before evaluation", func(t *testing.T) {
		err := runCheck(context.Background(), testEnv(), checkOptions{objectID: "42", action: "print"}, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown action")
	})

	t.Run("malformed as-of date", func(t *testing.T) {
		err := runCheck(context.Background(), testEnv(), checkOptions{objectID: "42", action: "view", asOf: "01/05/2026"}, io.Discard)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--as-of")
	})

	t.Run("malformed object id is reported", func(t *testing.T) {
		var out bytes.Buffer
		err := runCheck(context.Background(), testEnv(), checkOptions{objectID: "abc", action: "view"}, &out)
		require.Error(t, err)
		assert.Empty(t, out.String())
	})
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "check", "migrate", "token"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
