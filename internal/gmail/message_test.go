package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gmail "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestConvertMessage_Multipart(t *testing.T) {
	m := &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: 1709629200000,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "subject", Value: "Quarterly report"},
				{Name: "From", Value: "Jane <jane@example.com>"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("Plain body")}},
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>HTML body</p>")}},
					},
				},
				{MimeType: "application/pdf", Filename: "report.pdf", Body: &gmail.MessagePartBody{AttachmentId: "a1"}},
				{MimeType: "text/plain", Filename: "notes.txt", Body: &gmail.MessagePartBody{Data: b64("attached")}},
			},
		},
	}

	got := convertMessage(m)

	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, "t1", got.ThreadID)
	assert.Equal(t, "Quarterly report", got.Subject)
	assert.Equal(t, "Jane <jane@example.com>", got.From)
	assert.True(t, got.SentAt.Equal(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Plain body", got.Body)
	assert.Equal(t, []string{"report.pdf", "notes.txt"}, got.AttachmentNames)
}

func TestConvertMessage_HTMLOnly(t *testing.T) {
	m := &gmail.Message{
		Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body: &gmail.MessagePartBody{Data: b64(
				`<html><head><style>p{color:red}</style></head><body>` +
					`<p>Hello &amp; welcome</p><div>Second   line<br>third</div>` +
					`<script>alert(1)</script></body></html>`)},
		},
	}

	got := convertMessage(m)

	assert.Equal(t, "Hello & welcome\nSecond line\nthird", got.Body)
	assert.Empty(t, got.AttachmentNames)
}

func TestConvertMessage_NoBody(t *testing.T) {
	got := convertMessage(&gmail.Message{Id: "m", Payload: &gmail.MessagePart{MimeType: "multipart/mixed"}})
	assert.Empty(t, got.Body)
	assert.Empty(t, got.Subject)
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "no markup", want: "no markup"},
		{name: "entities", in: "a &lt;b&gt; &quot;c&quot;", want: `a <b> "c"`},
		{name: "list", in: "<ul><li>one</li><li>two</li></ul>", want: "one\ntwo"},
		{name: "collapses blank lines", in: "<p>a</p><p></p><p></p><p>b</p>", want: "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}

func TestHeaderValue(t *testing.T) {
	m := &gmail.Message{Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
		{Name: "X-Test", Value: "first"},
		{Name: "x-test", Value: "second"},
	}}}

	assert.Equal(t, "first", HeaderValue(m, "x-TEST"))
	assert.Empty(t, HeaderValue(m, "Missing"))
	assert.Empty(t, HeaderValue(&gmail.Message{}, "Subject"))
	assert.Empty(t, HeaderValue(nil, "Subject"))
}

func TestConvertThread_LabelNames(t *testing.T) {
	th := &gmail.Thread{
		Id: "t1",
		Messages: []*gmail.Message{
			{Id: "a", LabelIds: []string{"INBOX", "Label_1"}, Payload: &gmail.MessagePart{}},
			{Id: "b", LabelIds: []string{"Label_1", "Label_2"}, Payload: &gmail.MessagePart{}},
		},
	}
	names := map[string]string{"INBOX": "INBOX", "Label_1": "Work"}

	got := convertThread(th, names)

	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, []string{"INBOX", "Work", "Label_2"}, got.Labels)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, "t1", got.Messages[1].ThreadID)
}
