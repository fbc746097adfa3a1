package parser

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)

func newTestParser() *Parser {
	return NewWithClock(func() time.Time { return fixedNow })
}

const bankPhishing = "TITLE: Bank Phishing Alert\nSOURCE: BBC\nSUMMARY: Fake bank emails steal credentials.\nHOW IT WORKS: Links lead to spoofed login pages.\nWARNING: Never click unsolicited links.\nURL: https://bbc.com/x\n---"

func TestParseWellFormedBlock(t *testing.T) {
	records := newTestParser().Parse(bankPhishing, "email phishing online banking scam news 2024 2025")
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Bank Phishing Alert", rec.Title)
	assert.Equal(t, "BBC", rec.Source)
	assert.Equal(t, "Fake bank emails steal credentials. Links lead to spoofed login pages.", rec.Description)
	assert.Equal(t, "Never click unsolicited links.", rec.Warning)
	assert.Equal(t, "https://bbc.com/x", rec.URL)
	assert.Equal(t, fixedNow, rec.Timestamp)
	assert.Equal(t, fixedNow, rec.FetchedAt)
	assert.Equal(t, "email phishing online banking scam news 2024 2025", rec.Query)
}

func TestParseNDistinctBlocks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&b, "TITLE: Distinct scam headline %d\nSUMMARY: Summary %d\nURL: https://news.example/%d\n---\n", i, i, i)
	}
	records := newTestParser().Parse(b.String(), "q")
	require.Len(t, records, 4)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("Distinct scam headline %d", i), rec.Title)
	}
}

func TestParseBlockWithoutTitle(t *testing.T) {
	text := "SOURCE: CNN\nSUMMARY: No headline here.\nURL: https://cnn.com/a\n---\n"
	assert.Empty(t, newTestParser().Parse(text, "q"))
}

func TestParseDefaults(t *testing.T) {
	rec, ok := ParseBlock("TITLE: Police impersonation calls rise")
	require.True(t, ok)
	assert.Equal(t, DefaultSource, rec.Source)
	assert.Equal(t, DefaultWarning, rec.Warning)
	assert.Empty(t, rec.Description)
	assert.Equal(t, "https://www.google.com/search?q=Police+impersonation+calls+rise", rec.URL)
}

func TestParseURLFallbackForSearchQuery(t *testing.T) {
	rec, ok := ParseBlock("TITLE: Fake parcel texts\nURL: search query for fake parcel texts")
	require.True(t, ok)
	assert.Equal(t, "https://www.google.com/search?q=Fake+parcel+texts", rec.URL)
}

func TestParseContinuationLines(t *testing.T) {
	block := strings.Join([]string{
		"TITLE: Crypto wallet drainers",
		"spread on Telegram",
		"SUMMARY: Victims are lured",
		"",
		"  with fake airdrops.  ",
		"HOW IT WORKS: A malicious contract",
		"empties the wallet.",
		"URL: https://example.com/story",
		"this line must not join the url",
		"WARNING: Check contracts",
		"before signing.",
	}, "\n")

	rec, ok := ParseBlock(block)
	require.True(t, ok)
	assert.Equal(t, "Crypto wallet drainers spread on Telegram", rec.Title)
	assert.Equal(t, "Victims are lured with fake airdrops. A malicious contract empties the wallet.", rec.Description)
	assert.Equal(t, "https://example.com/story", rec.URL)
	assert.Equal(t, "Check contracts before signing.", rec.Warning)
}

func TestParseIgnoresLinesBeforeFirstLabel(t *testing.T) {
	rec, ok := ParseBlock("Here are the articles you asked for:\n\nTITLE: Romance scammers target widowers\nSOURCE: FTC.gov")
	require.True(t, ok)
	assert.Equal(t, "Romance scammers target widowers", rec.Title)
	assert.Equal(t, "FTC.gov", rec.Source)
}

func TestParseOnlyMechanism(t *testing.T) {
	rec, ok := ParseBlock("TITLE: Tech support popups return\nHOW IT WORKS: A fake virus warning asks you to call.")
	require.True(t, ok)
	assert.Equal(t, "A fake virus warning asks you to call.", rec.Description)
}

func TestParseSkipsEmptyAndMalformedBlocks(t *testing.T) {
	text := "---\n\n---\nrandom chatter without labels\n---\nTITLE: Delivery fee text messages\n---"
	records := newTestParser().Parse(text, "q")
	require.Len(t, records, 1)
	assert.Equal(t, "Delivery fee text messages", records[0].Title)
}

func TestParseEmptyText(t *testing.T) {
	assert.Empty(t, newTestParser().Parse("", "q"))
}
