package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// LowConfidenceFloor is the final confidence under which a report is
// flagged as low confidence.
const LowConfidenceFloor = 0.05

// Advisory is the optional business-facing narrative attached to a report.
type Advisory struct {
	Narrative       string   `json:"narrative"`
	Recommendations []string `json:"recommendations,omitempty"`
	Priority        string   `json:"priority,omitempty"`
}

// ConsensusReport is the outcome of one analysis. It deliberately carries no
// clock or identity data so identical runs serialize identically.
type ConsensusReport struct {
	FinalSentiment   Sentiment             `json:"final_sentiment"`
	FinalConfidence  float64               `json:"final_confidence"`
	AgreementLevel   AgreementLevel        `json:"agreement_level"`
	Rounds           []Round               `json:"rounds"`
	ConsensusReached bool                  `json:"consensus_reached"`
	LowConfidence    bool                  `json:"low_confidence"`
	VoteWeights      map[Sentiment]float64 `json:"vote_weights"`
	Advisory         *Advisory             `json:"advisory,omitempty"`
	AdvisoryError    string                `json:"advisory_error,omitempty"`
}

// FinalRound returns the last round of the report.
func (r *ConsensusReport) FinalRound() (Round, bool) {
	if r == nil || len(r.Rounds) == 0 {
		return Round{}, false
	}
	return r.Rounds[len(r.Rounds)-1], true
}

// DiscussionRounds returns how many rounds followed the initial one.
func (r *ConsensusReport) DiscussionRounds() int {
	if r == nil || len(r.Rounds) == 0 {
		return 0
	}
	return len(r.Rounds) - 1
}

// StoredReport wraps a report with the identity assigned when it is persisted.
type StoredReport struct {
	ID              string           `json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	DocumentDigest  string           `json:"document_digest"`
	DocumentPreview string           `json:"document_preview"`
	Roles           []string         `json:"roles"`
	Report          *ConsensusReport `json:"report"`
}

// PreviewLength caps the document excerpt kept with a stored report.
const PreviewLength = 120

// NewStoredReport wraps report for persistence. The document itself is not
// kept, only its digest and a short preview.
func NewStoredReport(id, document string, roles []string, report *ConsensusReport, now time.Time) *StoredReport {
	sum := sha256.Sum256([]byte(document))
	preview := strings.Join(strings.Fields(document), " ")
	return &StoredReport{
		ID:              id,
		CreatedAt:       now.UTC(),
		DocumentDigest:  hex.EncodeToString(sum[:]),
		DocumentPreview: Truncate(preview, PreviewLength),
		Roles:           append([]string{}, roles...),
		Report:          report,
	}
}

// ReportSummary is the listing view of a stored report.
type ReportSummary struct {
	ID               string         `json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	DocumentPreview  string         `json:"document_preview"`
	FinalSentiment   Sentiment      `json:"final_sentiment"`
	FinalConfidence  float64        `json:"final_confidence"`
	AgreementLevel   AgreementLevel `json:"agreement_level"`
	ConsensusReached bool           `json:"consensus_reached"`
	Rounds           int            `json:"rounds"`
}

// Summary returns the listing view of s.
func (s *StoredReport) Summary() ReportSummary {
	sum := ReportSummary{
		ID:              s.ID,
		CreatedAt:       s.CreatedAt,
		DocumentPreview: s.DocumentPreview,
	}
	if s.Report != nil {
		sum.FinalSentiment = s.Report.FinalSentiment
		sum.FinalConfidence = s.Report.FinalConfidence
		sum.AgreementLevel = s.Report.AgreementLevel
		sum.ConsensusReached = s.Report.ConsensusReached
		sum.Rounds = len(s.Report.Rounds)
	}
	return sum
}
