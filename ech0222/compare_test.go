package ech0222

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vocdoni/evote-verifier/anomaly"
)

func TestCompareIdenticalProducesNoAnomalies(t *testing.T) {
	data := &RawData{
		ContestIdentification: "contest-1",
		CountingCircles: []CountingCircle{
			{
				ID:               "cc-1",
				ValidVotingCards: 10,
				Votes: []VoteRawData{
					{VoteIdentification: "vote-1", Ballots: []BallotRawData{{}, {}}},
				},
			},
		},
	}

	out := Compare(data, data)
	require.Empty(t, out)
}

func TestCompareDetectsCountingCardMismatch(t *testing.T) {
	imported := &RawData{
		ContestIdentification: "contest-1",
		CountingCircles: []CountingCircle{
			{ID: "cc-1", ValidVotingCards: 10, InvalidVotingCards: 1},
		},
	}
	calculated := &RawData{
		ContestIdentification: "contest-1",
		CountingCircles: []CountingCircle{
			{ID: "cc-1", ValidVotingCards: 9, InvalidVotingCards: 1},
		},
	}

	out := Compare(imported, calculated)
	require.Len(t, out, 1)
	require.Equal(t, anomaly.Failure, out[0].Kind)
	require.Contains(t, out[0].Message, "imported 10, calculated 9")
}

func TestCompareDetectsMissingCountingCircle(t *testing.T) {
	imported := &RawData{
		CountingCircles: []CountingCircle{{ID: "cc-1"}, {ID: "cc-2"}},
	}
	calculated := &RawData{
		CountingCircles: []CountingCircle{{ID: "cc-1"}},
	}

	out := Compare(imported, calculated)
	require.Len(t, out, 1)
	require.Equal(t, "cc-2", out[0].Location.File)
	require.Contains(t, out[0].Message, "absent in calculated")
}

func TestCompareElectionBallotPositionOrderSensitive(t *testing.T) {
	list := "list-1"
	imported := &RawData{
		CountingCircles: []CountingCircle{{
			ID: "cc-1",
			ElectionGroupBallots: []ElectionGroupBallotRawData{{
				ElectionGroupIdentification: "eg-1",
				Elections: []ElectionRawData{{
					ElectionIdentification: "el-1",
					ListIdentification:     &list,
					BallotPositions: []BallotPosition{
						{Kind: Candidate, CandidateIdentification: "c1"},
						{Kind: Candidate, CandidateIdentification: "c2"},
					},
				}},
			}},
		}},
	}
	calculated := &RawData{
		CountingCircles: []CountingCircle{{
			ID: "cc-1",
			ElectionGroupBallots: []ElectionGroupBallotRawData{{
				ElectionGroupIdentification: "eg-1",
				Elections: []ElectionRawData{{
					ElectionIdentification: "el-1",
					ListIdentification:     &list,
					BallotPositions: []BallotPosition{
						{Kind: Candidate, CandidateIdentification: "c2"},
						{Kind: Candidate, CandidateIdentification: "c1"},
					},
				}},
			}},
		}},
	}

	out := Compare(imported, calculated)
	require.Len(t, out, 2)
}
