package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/parser"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
)

func candidate(title, description string) alerts.CandidateRecord {
	return alerts.CandidateRecord{Title: title, Description: description}
}

func TestClassifyBankPhishingExample(t *testing.T) {
	rec, ok := parser.ParseBlock("TITLE: Bank Phishing Alert\nSOURCE: BBC\nSUMMARY: Fake bank emails steal credentials.\nHOW IT WORKS: Links lead to spoofed login pages.\nWARNING: Never click unsolicited links.\nURL: https://bbc.com/x\n---")
	assert.True(t, ok)

	got := Default().Classify(rec)
	assert.Equal(t, "Email Phishing", got.Category)
	// "Alert" in the title is a medium keyword.
	assert.Equal(t, alerts.SeverityMedium, got.Severity)
	assert.Equal(t, rec, got.CandidateRecord)
}

func TestClassifyCategoryPriority(t *testing.T) {
	tests := []struct {
		name string
		rec  alerts.CandidateRecord
		want string
	}{
		{"phone beats impersonation", candidate("Callers pose as police officers", ""), "Phone Scam"},
		{"delivery", candidate("Parcel redelivery texts", "Courier fees requested"), "Delivery Scam"},
		{"crypto", candidate("Bitcoin ATM losses climb", ""), "Cryptocurrency Scam"},
		{"social media substring dm", candidate("Admin accounts hijacked", ""), "Social Media Scam"},
		{"tech support phrase", candidate("Tech support fraud targets seniors", "Fake technicians demand remote access"), "Tech Support Scam"},
		{"description counts", candidate("New scheme spreads", "Victims receive a phishing message"), "Email Phishing"},
		{"nothing matches", candidate("Grandparent scheme resurfaces", "Scammers need bail money"), alerts.CategoryOther},
	}
	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.rec).Category)
		})
	}
}

func TestClassifySeverity(t *testing.T) {
	c := Default()
	assert.Equal(t, alerts.SeverityHigh, c.Classify(candidate("Account frozen notices", "Beware of fake warnings")).Severity)
	assert.Equal(t, alerts.SeverityMedium, c.Classify(candidate("Consumers told to beware", "")).Severity)
	assert.Equal(t, alerts.SeverityLow, c.Classify(candidate("Fake bank emails steal credentials", "")).Severity)
}

func TestClassifyIsDeterministicAndTotal(t *testing.T) {
	c := Default()
	recs := []alerts.CandidateRecord{
		candidate("", ""),
		candidate("URGENT: IRS arrest threats", "criminal charges"),
		candidate("Dating app matches ask for crypto", ""),
	}
	first := c.ClassifyAll(recs)
	second := c.ClassifyAll(recs)
	assert.Equal(t, first, second)
	for _, r := range first {
		assert.NotEmpty(t, r.Category)
		assert.Contains(t, []alerts.Severity{alerts.SeverityHigh, alerts.SeverityMedium, alerts.SeverityLow}, r.Severity)
	}
}

func TestClassifyCustomTablesAreCaseInsensitive(t *testing.T) {
	c := New(config.ClassifierConfig{
		Categories:     []config.CategoryRule{{Name: "Lottery", Keywords: []string{"JACKPOT"}}},
		HighSeverity:   []string{"WIRE"},
		MediumSeverity: []string{""},
	})
	got := c.Classify(candidate("You won the jackpot", "Send a wire transfer"))
	assert.Equal(t, "Lottery", got.Category)
	assert.Equal(t, alerts.SeverityHigh, got.Severity)
	assert.Equal(t, alerts.SeverityLow, c.Classify(candidate("quiet headline text", "")).Severity)
}
