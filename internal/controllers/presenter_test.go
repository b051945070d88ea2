package controllers

import (
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/bbr/taskbot/internal/i18n"
	"github.com/bbr/taskbot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf16Units(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func TestFormatTasks(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 30, 59, 0, time.UTC)

	t.Run("empty list", func(t *testing.T) {
		assert.Equal(t, "У вас нет задач.", FormatTasks(nil, i18n.LangRU))
		assert.Equal(t, "You have no tasks.", FormatTasks(nil, i18n.LangEN))
	})

	t.Run("marks done and pending tasks", func(t *testing.T) {
		out := FormatTasks([]models.Task{
			{Position: 1, Text: "buy milk", Done: true, CreatedAt: created},
			{Position: 2, Text: "call mom", CreatedAt: created},
		}, i18n.LangRU)

		assert.Equal(t, "[✅] 1. buy milk (2024-05-01 10:30)\n[✳️] 2. call mom (2024-05-01 10:30)", out)
	})
}

func TestSplitMessage(t *testing.T) {
	t.Run("short text is untouched", func(t *testing.T) {
		assert.Equal(t, []string{"hello"}, SplitMessage("hello", 10))
	})

	t.Run("splits on line breaks", func(t *testing.T) {
		chunks := SplitMessage("aaaa\nbbbb\ncccc", 9)
		assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, chunks)
	})

	t.Run("hard splits long lines", func(t *testing.T) {
		chunks := SplitMessage("abcdefghij\nxy", 4)
		assert.Equal(t, []string{"abcd", "efgh", "ij", "xy"}, chunks)
	})

	t.Run("counts characters, not bytes", func(t *testing.T) {
		line := strings.Repeat("я", 3)
		chunks := SplitMessage(line+"\n"+line, 7)
		assert.Equal(t, []string{line + "\n" + line}, chunks)
	})

	t.Run("emoji count as two units", func(t *testing.T) {
		text := strings.Repeat("😀", 5000)

		chunks := SplitMessage(text, maxMessageLength)
		require.Len(t, chunks, 3)
		assert.Equal(t, maxMessageLength, utf16Units(chunks[0]))
		assert.Equal(t, maxMessageLength, utf16Units(chunks[1]))
		assert.Equal(t, text, strings.Join(chunks, ""))
	})

	t.Run("an emoji is never cut in half", func(t *testing.T) {
		assert.Equal(t, []string{"a", "😀", "b"}, SplitMessage("a😀b", 2))
	})

	t.Run("every chunk fits the Telegram limit", func(t *testing.T) {
		var lines []string
		for i := 0; i < 500; i++ {
			lines = append(lines, "[✳️] 100. "+strings.Repeat("задача 😀 ", 5))
		}
		text := strings.Join(lines, "\n")

		chunks := SplitMessage(text, maxMessageLength)
		assert.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf16Units(c), maxMessageLength)
		}
		assert.Equal(t, text, strings.Join(chunks, "\n"))
	})
}
