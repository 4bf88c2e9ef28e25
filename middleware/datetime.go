package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/switchboard-dev/switchboard/model"
)

// Sentinels delimiting the temporal block inside the system message. HTML
// comments are inert to the model, so the block can be found and replaced on
// later calls without duplication.
const (
	DatetimeStart = "<!-- datetime:start -->"
	DatetimeEnd   = "<!-- datetime:end -->"
)

// DatetimeMode selects how much temporal context is injected.
type DatetimeMode string

const (
	// DatetimeMinimal is the compact block used for specialists.
	DatetimeMinimal DatetimeMode = "minimal"
	// DatetimeFull adds pre-computed reference dates and a phrase guide. The
	// supervisor uses it because it is the one interpreting relative dates in
	// user queries.
	DatetimeFull DatetimeMode = "full"
)

// ParseDatetimeMode maps a configuration string to a mode. Anything other
// than "full" is minimal.
func ParseDatetimeMode(s string) DatetimeMode {
	if strings.EqualFold(strings.TrimSpace(s), string(DatetimeFull)) {
		return DatetimeFull
	}
	return DatetimeMinimal
}

// PhraseHint tells the model how to resolve one relative date phrase against
// the reference dates in the full block.
type PhraseHint struct {
	Phrase  string
	Meaning string
}

// PhraseGuide is the phrase interpretation table appended in full mode.
// Replace it at startup to localize; it is read on every block format.
var PhraseGuide = []PhraseHint{
	{"today", "the current date"},
	{"yesterday", "the yesterday reference date"},
	{"last week", "the last 7 days window"},
	{"last month", "start of last month up to start of this month"},
	{"this month", "start of month up to now"},
	{"recently", "the last 7 days unless the query says otherwise"},
}

// DatetimeOptions configure the DatetimeContext middleware.
type DatetimeOptions struct {
	// Now supplies the clock. Tests pin it for stable blocks.
	Now func() time.Time
	// CacheTTL bounds how stale a formatted block may get. Calls within a
	// burst reuse the cached text; a stale read inside the TTL is harmless
	// because the value is idempotent.
	CacheTTL time.Duration
}

// DatetimeContext keeps the temporal block of the system message current. On
// every call it strips any previous block and appends a fresh one at the end,
// which leaves the static prompt prefix untouched for providers that cache
// system message prefixes.
type DatetimeContext struct {
	mode  DatetimeMode
	now   func() time.Time
	cache *expirable.LRU[string, string]
}

// NewDatetimeContext creates the middleware for one agent.
func NewDatetimeContext(mode DatetimeMode, optFns ...func(o *DatetimeOptions)) *DatetimeContext {
	opts := DatetimeOptions{
		Now:      time.Now,
		CacheTTL: time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if mode != DatetimeFull {
		mode = DatetimeMinimal
	}
	return &DatetimeContext{
		mode:  mode,
		now:   opts.Now,
		cache: expirable.NewLRU[string, string](2, nil, opts.CacheTTL),
	}
}

// Name identifies the middleware in chain diagnostics.
func (m *DatetimeContext) Name() string { return "datetime_context" }

// BeforeModel rewrites the temporal block in the request's system message.
func (m *DatetimeContext) BeforeModel(_ context.Context, req *model.Request) error {
	req.System = appendDatetimeBlock(req.System, m.block())
	return nil
}

func (m *DatetimeContext) block() string {
	key := string(m.mode)
	if block, ok := m.cache.Get(key); ok {
		return block
	}
	block := formatDatetimeBlock(m.mode, m.now().UTC())
	m.cache.Add(key, block)
	return block
}

// stripDatetimeBlock removes every sentinel delimited block from system,
// including the blank separator that appendDatetimeBlock adds before it.
func stripDatetimeBlock(system string) string {
	for {
		start := strings.Index(system, DatetimeStart)
		if start < 0 {
			return system
		}
		rest := system[start:]
		end := strings.Index(rest, DatetimeEnd)
		if end < 0 {
			// A torn block without its end marker; drop the remainder.
			return strings.TrimRight(system[:start], "\n")
		}
		system = strings.TrimRight(system[:start], "\n") + rest[end+len(DatetimeEnd):]
	}
}

func appendDatetimeBlock(system, block string) string {
	system = strings.TrimRight(stripDatetimeBlock(system), "\n")
	if system == "" {
		return block
	}
	return system + "\n\n" + block
}

func formatDatetimeBlock(mode DatetimeMode, now time.Time) string {
	var b strings.Builder
	b.WriteString(DatetimeStart)
	b.WriteString("\n## Current DateTime Context\n")
	fmt.Fprintf(&b, "- **Current UTC time**: %s UTC\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **Current date**: %s\n", now.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "- **ISO format**: %s\n", now.Format(time.RFC3339))
	if mode == DatetimeFull {
		writeReferenceDates(&b, now)
		writePhraseGuide(&b)
	}
	b.WriteString("\nUse this when interpreting timestamps, logs, or relative dates in queries.\n")
	b.WriteString(DatetimeEnd)
	return b.String()
}

func writeReferenceDates(b *strings.Builder, now time.Time) {
	day := now.Truncate(24 * time.Hour)
	weekStart := day.AddDate(0, 0, -int((now.Weekday()+6)%7))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	b.WriteString("\n### Reference dates (ISO 8601 UTC)\n")
	fmt.Fprintf(b, "- **Yesterday**: %s\n", day.AddDate(0, 0, -1).Format(time.RFC3339))
	fmt.Fprintf(b, "- **Last 24 hours**: since %s\n", now.Add(-24*time.Hour).Format(time.RFC3339))
	fmt.Fprintf(b, "- **Last 7 days**: since %s\n", day.AddDate(0, 0, -7).Format(time.RFC3339))
	fmt.Fprintf(b, "- **Last 30 days**: since %s\n", day.AddDate(0, 0, -30).Format(time.RFC3339))
	fmt.Fprintf(b, "- **Start of week**: %s\n", weekStart.Format(time.RFC3339))
	fmt.Fprintf(b, "- **Start of month**: %s\n", monthStart.Format(time.RFC3339))
	fmt.Fprintf(b, "- **Start of last month**: %s\n", monthStart.AddDate(0, -1, 0).Format(time.RFC3339))
}

func writePhraseGuide(b *strings.Builder) {
	if len(PhraseGuide) == 0 {
		return
	}
	b.WriteString("\n### Phrase guide\n")
	for _, hint := range PhraseGuide {
		fmt.Fprintf(b, "- %q means %s\n", hint.Phrase, hint.Meaning)
	}
}
