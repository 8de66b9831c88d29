package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	t.Run("filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		l := slog.New(NewHandler(&buf, &Options{Level: slog.LevelWarn, NoColor: true}))
		l.Info("hidden")
		l.Warn("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "[WARN] shown")
	})

	t.Run("component and attrs", func(t *testing.T) {
		var buf bytes.Buffer
		l := slog.New(NewHandler(&buf, &Options{NoColor: true})).
			With("component", "player", "guildID", "42")
		l.Info("advance", "title", "two words")

		out := buf.String()
		assert.Contains(t, out, "[INFO] [PLAYER] advance")
		assert.Contains(t, out, "guildID=42")
		assert.Contains(t, out, `title="two words"`)
	})

	t.Run("groups prefix keys", func(t *testing.T) {
		var buf bytes.Buffer
		l := slog.New(NewHandler(&buf, &Options{NoColor: true})).WithGroup("store")
		l.Error("save failed", "path", "x.json")
		assert.Contains(t, buf.String(), "store.path=x.json")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
