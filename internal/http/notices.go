package httpx

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Notice is one entry on the board.
type Notice struct {
	Title    string
	Body     string
	Author   string
	PostedAt time.Time
}

const (
	maxNoticeTitle = 200
	maxNoticeBody  = 4000
)

// ErrInvalidNotice is returned for empty or oversized notices.
var ErrInvalidNotice = errors.New("invalid notice")

// NoticeBoard is an in-memory, concurrency-safe list of notices.
type NoticeBoard struct {
	mu      sync.RWMutex
	notices []Notice
	now     func() time.Time
}

// NewNoticeBoard creates a board seeded with notices.
func NewNoticeBoard(seed ...Notice) *NoticeBoard {
	return &NoticeBoard{notices: slices.Clone(seed), now: time.Now}
}

// List returns the notices newest first.
func (b *NoticeBoard) List() []Notice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := slices.Clone(b.notices)
	slices.Reverse(out)
	return out
}

// Post validates and appends a notice.
func (b *NoticeBoard) Post(title, body, author string) (Notice, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || utf8.RuneCountInString(title) > maxNoticeTitle || utf8.RuneCountInString(body) > maxNoticeBody {
		return Notice{}, ErrInvalidNotice
	}
	n := Notice{Title: title, Body: body, Author: author, PostedAt: b.now()}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	return n, nil
}
