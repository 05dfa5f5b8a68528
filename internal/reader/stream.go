package reader

import (
	"strings"
	"time"
)

// ContextWindow is a snapshot of the words around a reading position.
// Both sides are in reading order.
type ContextWindow struct {
	Before []Word
	After  []Word
}

// BeforeText joins the words already read.
func (c ContextWindow) BeforeText() string {
	return joinWords(c.Before)
}

// AfterText joins the words still to come.
func (c ContextWindow) AfterText() string {
	return joinWords(c.After)
}

func joinWords(words []Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.text
	}
	return strings.Join(parts, " ")
}

// Stream is a fixed sequence of words with a forward-moving cursor.
// It is not safe for concurrent use.
type Stream struct {
	words  []Word
	cursor int
}

// NewStream wraps words. The slice is copied.
func NewStream(words []Word) *Stream {
	cp := make([]Word, len(words))
	copy(cp, words)
	return &Stream{words: cp}
}

// FromContent tokenizes content into a new stream.
func FromContent(content string, p Pacing) *Stream {
	return &Stream{words: Tokenize(content, p)}
}

// PeekNext returns the word at the cursor without moving it.
func (s *Stream) PeekNext() (Word, bool) {
	if s.cursor >= len(s.words) {
		return Word{}, false
	}
	return s.words[s.cursor], true
}

// Advance returns the word at the cursor and moves past it.
func (s *Stream) Advance() (Word, bool) {
	w, ok := s.PeekNext()
	if ok {
		s.cursor++
	}
	return w, ok
}

// IsExhausted reports whether every word has been delivered.
func (s *Stream) IsExhausted() bool {
	return s.cursor >= len(s.words)
}

// MoveToStart rewinds the cursor to the first word.
func (s *Stream) MoveToStart() {
	s.cursor = 0
}

// Position returns the number of words already delivered.
func (s *Stream) Position() int {
	return s.cursor
}

// Len returns the total number of words.
func (s *Stream) Len() int {
	return len(s.words)
}

// Words returns a copy of every word in the stream.
func (s *Stream) Words() []Word {
	cp := make([]Word, len(s.words))
	copy(cp, s.words)
	return cp
}

// Remaining sums the durations of the words not yet delivered.
func (s *Stream) Remaining() time.Duration {
	var total time.Duration
	for _, w := range s.words[s.cursor:] {
		total += w.Duration()
	}
	return total
}

// ContextAround returns up to n delivered words before the cursor and up to n
// pending words from the cursor on.
func (s *Stream) ContextAround(n int) ContextWindow {
	if n < 0 {
		n = 0
	}
	start := s.cursor - min(n, s.cursor)
	end := s.cursor + min(n, len(s.words)-s.cursor)
	before := make([]Word, s.cursor-start)
	copy(before, s.words[start:s.cursor])
	after := make([]Word, end-s.cursor)
	copy(after, s.words[s.cursor:end])
	return ContextWindow{Before: before, After: after}
}
