package core

import (
	"strings"
	"testing"
	"time"
)

func TestNewStoredReport(t *testing.T) {
	doc := "Great  phone.\n\nBattery   lasts " + strings.Repeat("long ", 50)
	roles := []string{RoleQuality, RoleTechnical}
	report := &ConsensusReport{
		FinalSentiment:   SentimentPositive,
		FinalConfidence:  0.8,
		AgreementLevel:   AgreementHigh,
		ConsensusReached: true,
		Rounds:           []Round{{Index: 0}, {Index: 1}},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	s := NewStoredReport("r1", doc, roles, report, now)

	if s.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt should be UTC, got %v", s.CreatedAt.Location())
	}
	if len(s.DocumentDigest) != 64 {
		t.Errorf("DocumentDigest length = %d, want 64", len(s.DocumentDigest))
	}
	if !strings.HasPrefix(s.DocumentPreview, "Great phone. Battery lasts") {
		t.Errorf("DocumentPreview = %q, whitespace should be collapsed", s.DocumentPreview)
	}
	if n := len([]rune(s.DocumentPreview)); n > PreviewLength+3 {
		t.Errorf("DocumentPreview has %d runes, want <= %d", n, PreviewLength+3)
	}

	roles[0] = "changed"
	if s.Roles[0] != RoleQuality {
		t.Error("Roles must be copied")
	}

	sum := s.Summary()
	if sum.Rounds != 2 || sum.FinalSentiment != SentimentPositive || !sum.ConsensusReached {
		t.Errorf("Summary() = %+v", sum)
	}

	again := NewStoredReport("r2", doc, nil, report, now)
	if again.DocumentDigest != s.DocumentDigest {
		t.Error("digest should depend only on the document")
	}
}

func TestConsensusReport_FinalRound(t *testing.T) {
	var empty ConsensusReport
	if _, ok := empty.FinalRound(); ok {
		t.Error("FinalRound() on empty report should report false")
	}
	if empty.DiscussionRounds() != 0 {
		t.Errorf("DiscussionRounds() = %d, want 0", empty.DiscussionRounds())
	}

	r := ConsensusReport{Rounds: []Round{{Index: 0}, {Index: 1}, {Index: 2}}}
	final, ok := r.FinalRound()
	if !ok || final.Index != 2 {
		t.Errorf("FinalRound() = %v, %v", final.Index, ok)
	}
	if r.DiscussionRounds() != 2 {
		t.Errorf("DiscussionRounds() = %d, want 2", r.DiscussionRounds())
	}
}
