package controllers

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/bbr/taskbot/internal/i18n"
	"github.com/bbr/taskbot/internal/models"
)

// Telegram rejects messages longer than this many UTF-16 code units.
const maxMessageLength = 4096

const listTimeLayout = "2006-01-02 15:04"

// FormatTasks renders the list shown by /list.
func FormatTasks(tasks []models.Task, lang string) string {
	if len(tasks) == 0 {
		return i18n.GetMessage(lang, "no_tasks")
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		status := "[✳️]"
		if t.Done {
			status = "[✅]"
		}
		lines = append(lines, fmt.Sprintf("%s %d. %s (%s)", status, t.Position, t.Text, t.CreatedAt.Format(listTimeLayout)))
	}
	return strings.Join(lines, "\n")
}

// SplitMessage cuts text into chunks of at most limit UTF-16 code units, the unit
// Telegram counts message length in, preferring line breaks.
func SplitMessage(text string, limit int) []string {
	if textLen(text) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		for runesLen(runes) > limit {
			flush()
			cut := fitRunes(runes, limit)
			chunks = append(chunks, string(runes[:cut]))
			runes = runes[cut:]
		}

		n := runesLen(runes)
		need := n
		if size > 0 {
			need++
		}
		if size+need > limit {
			flush()
			need = n
		}
		if size > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(string(runes))
		size += need
	}
	flush()
	return chunks
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runesLen(runes []rune) int {
	n := 0
	for _, r := range runes {
		n += runeUnits(r)
	}
	return n
}

// fitRunes returns how many leading runes fit into limit units, at least one.
func fitRunes(runes []rune, limit int) int {
	n := 0
	for i, r := range runes {
		n += runeUnits(r)
		if n > limit {
			return max(i, 1)
		}
	}
	return len(runes)
}
