// Package ech0222 implements the semantic comparator for the Swiss
// federal eCH-0222 1.2.0 e-voting result standard (spec.md §4.6). It
// replaces a fragile byte-exact XML re-emission with a diff between the
// officially delivered result document and one built straight from the
// election context and tally artifacts.
package ech0222

import (
	"encoding/xml"
	"fmt"

	"github.com/vocdoni/evote-verifier/dataset"
)

// Document is the parsed eCH-0222 XML envelope, reduced to the fields the
// comparator needs (spec.md §3's rawData tree plus the envelope wrapper).
type Document struct {
	XMLName xml.Name `xml:"delivery"`
	Data    RawData  `xml:"votingResultsDelivery>resultData"`
}

// RawData is the semantic root compared by Compare (spec.md §3).
type RawData struct {
	ContestIdentification string           `xml:"contestIdentification"`
	CountingCircles        []CountingCircle `xml:"countingCircleResults"`
}

// CountingCircle aggregates one administrative unit's results.
type CountingCircle struct {
	ID                   string                     `xml:"countingCircleId"`
	ValidVotingCards     int                        `xml:"votingCardsInformation>countOfReceivedValidVotingCardsTotal"`
	InvalidVotingCards   int                        `xml:"votingCardsInformation>countOfInvalidVotingCardsTotal"`
	Votes                []VoteRawData              `xml:"voteRawData"`
	ElectionGroupBallots []ElectionGroupBallotRawData `xml:"electionGroupBallotRawData"`
}

// VoteRawData is one votation's ballots within a counting circle.
type VoteRawData struct {
	VoteIdentification string            `xml:"voteIdentification"`
	Ballots            []BallotRawData   `xml:"ballotRawData"`
}

// BallotRawData is one cast ballot's per-question answers for a votation.
type BallotRawData struct {
	VotesCasted []VoteCasted `xml:"voteInformation"`
}

// VoteCasted is one question's answer on a ballot.
type VoteCasted struct {
	QuestionIdentification string `xml:"questionIdentification"`
	AnswerIdentification   string `xml:"answerIdentification"`
}

// ElectionGroupBallotRawData is one election group's ballots within a
// counting circle.
type ElectionGroupBallotRawData struct {
	ElectionGroupIdentification string            `xml:"electionGroupIdentification"`
	Elections                   []ElectionRawData `xml:"electionRawData"`
}

// ElectionRawData is one election's ballot content within an election
// group ballot.
type ElectionRawData struct {
	ElectionIdentification string           `xml:"electionIdentification"`
	ListIdentification     *string          `xml:"listIdentification"`
	BallotPositions        []BallotPosition `xml:"ballotPosition"`
	IsUnchangedBallot      bool             `xml:"isUnchangedBallot"`
}

// BallotPositionKind discriminates the three shapes a ballot position can
// take (spec.md §3).
type BallotPositionKind int

const (
	Empty BallotPositionKind = iota
	WriteIn
	Candidate
)

// BallotPosition is one position on an election ballot: empty, a
// write-in, or a reference to a declared candidate.
type BallotPosition struct {
	Kind                         BallotPositionKind
	WriteInText                  string
	CandidateIdentification     string
	CandidateReferenceOnPosition string
}

// Parse decodes raw eCH-0222 XML bytes into a Document.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing eCH-0222 document: %w", err)
	}
	return &doc, nil
}

// ParseImported reads and parses the official result document carried by
// a tally dataset.
func ParseImported(tally *dataset.TallyTree) (*RawData, error) {
	raw, err := tally.ECH0222Bytes()
	if err != nil {
		return nil, err
	}
	doc, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return &doc.Data, nil
}
