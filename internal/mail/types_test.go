package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThread_Latest(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		thread Thread
		wantID string
		wantOK bool
	}{
		{
			name:   "empty thread",
			thread: Thread{ID: "t"},
			wantOK: false,
		},
		{
			name: "chronological",
			thread: Thread{ID: "t", Messages: []Message{
				{ID: "a", SentAt: base},
				{ID: "b", SentAt: base.Add(time.Hour)},
			}},
			wantID: "b",
			wantOK: true,
		},
		{
			name: "out of order",
			thread: Thread{ID: "t", Messages: []Message{
				{ID: "a", SentAt: base.Add(2 * time.Hour)},
				{ID: "b", SentAt: base},
			}},
			wantID: "a",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.thread.Latest()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestThreadLink(t *testing.T) {
	assert.Equal(t, "https://mail.google.com/mail/u/0/#all/abc123", ThreadLink("abc123"))
}
