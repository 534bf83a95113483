package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Parameter keys as they appear in the parameters table.
const (
	KeyEmailCount         = "emailCount"
	KeyModel              = "model"
	KeyAPIKey             = "apiKey"
	KeyResorting          = "resorting"
	KeyStyle              = "style"
	KeyDayCount           = "dayCount"
	KeyMaxWords           = "maxWords"
	KeySummaryDays        = "summary_days"
	KeySummaryCount       = "summary_count"
	KeySummaryTimeMinutes = "summary_time_minutes"
	KeySummaryEmails      = "summary_emails"
	KeySummaryPrompt      = "summary_prompt"
	KeySummaryCompression = "summary_compression"
)

// APIKeyPlaceholder is the apiKey value meaning "not configured".
const APIKeyPlaceholder = "API_KEY"

// Compression controls how verbose each thread summary is.
type Compression string

const (
	CompressionDetailed     Compression = "detailed"
	CompressionStandard     Compression = "standard"
	CompressionSuccinct     Compression = "succinct"
	CompressionVerySuccinct Compression = "very succinct"
)

// ParseCompression returns the compression level named by s.
func ParseCompression(s string) (Compression, bool) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case CompressionDetailed, CompressionStandard, CompressionSuccinct, CompressionVerySuccinct:
		return c, true
	}
	return "", false
}

// Style selects which inbox threads the labeling job inspects.
type Style string

const (
	// StyleCount inspects the newest EmailCount inbox threads.
	StyleCount Style = "count"
	// StyleDays inspects inbox threads received in the last DayCount days.
	StyleDays Style = "days"
)

// Parameters is the fully defaulted set of run settings.
type Parameters struct {
	EmailCount int
	Model      string
	APIKey     string
	Resorting  bool
	Style      Style
	DayCount   int
	MaxWords   int

	SummaryDays        int
	SummaryCount       int
	SummaryTimeMinutes int
	// SummaryEmails is the raw comma separated recipient list. Empty means
	// the mailbox owner.
	SummaryEmails      string
	SummaryPrompt      string
	SummaryCompression Compression
}

// HasAPIKey reports whether a usable API key is configured.
func (p Parameters) HasAPIKey() bool {
	k := strings.TrimSpace(p.APIKey)
	return k != "" && k != APIKeyPlaceholder
}

// Recipients splits SummaryEmails on commas, dropping empty entries.
// Entries are not validated.
func (p Parameters) Recipients() []string {
	var out []string
	for _, r := range strings.Split(p.SummaryEmails, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// FieldError records a parameter value that was rejected in favor of its
// default.
type FieldError struct {
	Key   string
	Value string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s, using default", e.Value, e.Key)
}

// ParseParameters applies rows on top of defaults. Each recognized key has
// one coercion rule; values that fail it keep the default and are reported
// in the returned slice. Unknown keys are ignored.
func ParseParameters(rows []Row, defaults Parameters) (Parameters, []FieldError) {
	p := defaults
	var rejected []FieldError

	positive := func(dst *int, r Row) {
		n, err := strconv.Atoi(strings.TrimSpace(r.Value))
		if err != nil || n <= 0 {
			rejected = append(rejected, FieldError{Key: r.Key, Value: r.Value})
			return
		}
		*dst = n
	}

	for _, r := range rows {
		switch r.Key {
		case KeyEmailCount:
			positive(&p.EmailCount, r)
		case KeyDayCount:
			positive(&p.DayCount, r)
		case KeyMaxWords:
			positive(&p.MaxWords, r)
		case KeySummaryDays:
			positive(&p.SummaryDays, r)
		case KeySummaryCount:
			positive(&p.SummaryCount, r)
		case KeySummaryTimeMinutes:
			positive(&p.SummaryTimeMinutes, r)
		case KeyModel:
			p.Model = r.Value
		case KeyAPIKey:
			p.APIKey = r.Value
		case KeySummaryEmails:
			p.SummaryEmails = r.Value
		case KeySummaryPrompt:
			p.SummaryPrompt = r.Value
		case KeyResorting:
			switch strings.ToUpper(strings.TrimSpace(r.Value)) {
			case "T", "TRUE":
				p.Resorting = true
			case "F", "FALSE":
				p.Resorting = false
			default:
				rejected = append(rejected, FieldError{Key: r.Key, Value: r.Value})
			}
		case KeyStyle:
			switch s := Style(strings.ToLower(strings.TrimSpace(r.Value))); s {
			case StyleCount, StyleDays:
				p.Style = s
			default:
				rejected = append(rejected, FieldError{Key: r.Key, Value: r.Value})
			}
		case KeySummaryCompression:
			c, ok := ParseCompression(r.Value)
			if !ok {
				rejected = append(rejected, FieldError{Key: r.Key, Value: r.Value})
				continue
			}
			p.SummaryCompression = c
		}
	}
	return p, rejected
}
