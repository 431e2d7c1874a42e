package ech0222

import (
	"fmt"
	"strings"

	"github.com/vocdoni/evote-verifier/dataset"
)

// ContestConfig names the contest the calculated RawData is built under.
// It is just the election event context, named separately here because
// the caller (verification/tally) already has it in hand from opening
// the dataset and should not have to re-derive it.
type ContestConfig struct {
	Context *dataset.ContextDocument
}

// Build constructs data_calculated from the election event context and
// the decoded tally artifacts, per spec.md §4.6's construction algorithm.
func Build(cfg *ContestConfig, tally *dataset.TallyTree) (*RawData, error) {
	ctx := cfg.Context
	data := &RawData{ContestIdentification: ctx.ContestIdentification}
	circuits := map[string]*CountingCircle{}

	for box, err := range tally.BallotBoxes() {
		if err != nil {
			return nil, fmt.Errorf("iterating ballot boxes: %w", err)
		}

		vcsCtx, ok := ctx.VerificationCardSetContexts[string(box.ID)]
		if !ok {
			return nil, fmt.Errorf("ballot box %s: no verification card set context", box.ID)
		}
		authID := strings.TrimPrefix(vcsCtx.VerificationCardSetAlias, "vcs_")
		auth, ok := ctx.Authorizations[authID]
		if !ok {
			return nil, fmt.Errorf("ballot box %s: unknown authorization %q", box.ID, authID)
		}
		if len(auth.DomainsOfInfluence) == 0 {
			return nil, fmt.Errorf("ballot box %s: authorization %q has no domains of influence", box.ID, authID)
		}
		countingCircleID := auth.DomainsOfInfluence[0]
		relevant := auth.DomainsOfInfluence[1:]

		cc, ok := circuits[countingCircleID]
		if !ok {
			cc = &CountingCircle{ID: countingCircleID}
			circuits[countingCircleID] = cc
		}

		decoded, err := box.Decoded()
		if err != nil {
			return nil, fmt.Errorf("ballot box %s: %w", box.ID, err)
		}
		cc.ValidVotingCards += len(decoded.Votes)
		cc.InvalidVotingCards += decoded.InvalidCount

		votes := indexVoteRawData(cc)
		for i, option := range decoded.Votes {
			handled := applyVotationOption(ctx, relevant, votes, option)
			if !handled {
				var writeIns []string
				if i < len(decoded.WriteIns) {
					writeIns = decoded.WriteIns[i]
				}
				applyElectionOption(ctx, relevant, cc, option, writeIns)
			}
		}

		for votationID, vrd := range votes {
			if len(vrd.Ballots) == 0 {
				removeVoteRawData(cc, votationID)
			}
		}
	}

	for _, cc := range circuits {
		data.CountingCircles = append(data.CountingCircles, *cc)
	}
	return data, nil
}

func indexVoteRawData(cc *CountingCircle) map[string]*VoteRawData {
	out := make(map[string]*VoteRawData, len(cc.Votes))
	for i := range cc.Votes {
		out[cc.Votes[i].VoteIdentification] = &cc.Votes[i]
	}
	return out
}

func removeVoteRawData(cc *CountingCircle, votationID string) {
	out := cc.Votes[:0]
	for _, v := range cc.Votes {
		if v.VoteIdentification != votationID {
			out = append(out, v)
		}
	}
	cc.Votes = out
}

// applyVotationOption parses option as "questionId|answerId" and, if the
// question belongs to one of the relevant votations, appends one
// BallotRawData to that votation's VoteRawData (creating it on first use).
// It reports whether option was claimed by a votation.
func applyVotationOption(ctx *dataset.ContextDocument, relevant []string, votes map[string]*VoteRawData, option string) bool {
	qid, aid, ok := splitPipe(option)
	if !ok {
		return false
	}
	for _, id := range relevant {
		votation, ok := ctx.Votations[id]
		if !ok {
			continue
		}
		for _, q := range votation.Questions {
			if q.QuestionIdentification != qid {
				continue
			}
			vrd, ok := votes[id]
			if !ok {
				vrd = &VoteRawData{VoteIdentification: id}
				votes[id] = vrd
			}
			vrd.Ballots = append(vrd.Ballots, BallotRawData{
				VotesCasted: []VoteCasted{{QuestionIdentification: qid, AnswerIdentification: aid}},
			})
			return true
		}
	}
	return false
}

// applyElectionOption parses option as "electionId|secondPosition|rest..."
// and, if electionId names an election in one of the relevant election
// groups, emits one ElectionRawData for it: a list vote when the second
// position names a declared list, a write-in association when it names
// the election's write-in position, or a direct candidate-position list
// otherwise.
func applyElectionOption(ctx *dataset.ContextDocument, relevant []string, cc *CountingCircle, option string, writeIns []string) {
	parts := strings.Split(option, "|")
	if len(parts) == 0 {
		return
	}
	electionID := parts[0]
	rest := parts[1:]

	for _, id := range relevant {
		group, ok := ctx.ElectionGroups[id]
		if !ok {
			continue
		}
		for _, election := range group.Elections {
			if election.ElectionIdentification != electionID {
				continue
			}
			record := buildElectionRawData(election, rest, writeIns)
			groupBallot := findOrCreateElectionGroupBallot(cc, id)
			groupBallot.Elections = append(groupBallot.Elections, record)
			return
		}
	}
}

func findOrCreateElectionGroupBallot(cc *CountingCircle, groupID string) *ElectionGroupBallotRawData {
	for i := range cc.ElectionGroupBallots {
		if cc.ElectionGroupBallots[i].ElectionGroupIdentification == groupID {
			return &cc.ElectionGroupBallots[i]
		}
	}
	cc.ElectionGroupBallots = append(cc.ElectionGroupBallots, ElectionGroupBallotRawData{ElectionGroupIdentification: groupID})
	return &cc.ElectionGroupBallots[len(cc.ElectionGroupBallots)-1]
}

func buildElectionRawData(election dataset.ElectionDefinition, rest []string, writeIns []string) ElectionRawData {
	record := ElectionRawData{ElectionIdentification: election.ElectionIdentification}

	var secondPosition string
	if len(rest) > 0 {
		secondPosition = rest[0]
	}

	var matchedList *dataset.ListDefinition
	for i := range election.Lists {
		if election.Lists[i].ListIdentification == secondPosition {
			matchedList = &election.Lists[i]
			break
		}
	}

	switch {
	case matchedList != nil:
		listID := matchedList.ListIdentification
		record.ListIdentification = &listID
		for _, token := range rest[1:] {
			record.BallotPositions = append(record.BallotPositions, resolveCandidatePosition(token, election))
		}
	case secondPosition != "" && secondPosition == election.WriteInPositionIdentification:
		for _, text := range writeIns {
			record.BallotPositions = append(record.BallotPositions, BallotPosition{Kind: WriteIn, WriteInText: text})
		}
	default:
		for _, token := range rest {
			record.BallotPositions = append(record.BallotPositions, resolveCandidatePosition(token, election))
		}
	}

	record.IsUnchangedBallot = isUnchangedBallot(matchedList, record.BallotPositions)
	return record
}

// resolveCandidatePosition resolves candidateReferenceOnPosition for a
// decoded candidate-identification token: lookup by candidateIdentification
// (declaration order disambiguates entries sharing an identification,
// per spec.md §9 Open Question (c)); fall back to the raw
// candidateReferenceOnPosition on the first positional entry if no
// identification matches.
func resolveCandidatePosition(candidateIdentification string, election dataset.ElectionDefinition) BallotPosition {
	for _, cand := range election.Candidates {
		if cand.CandidateIdentification == candidateIdentification {
			return BallotPosition{
				Kind:                         Candidate,
				CandidateIdentification:      candidateIdentification,
				CandidateReferenceOnPosition: cand.CandidateReferenceOnPosition,
			}
		}
	}
	if len(election.Candidates) > 0 {
		return BallotPosition{
			Kind:                         Candidate,
			CandidateIdentification:      candidateIdentification,
			CandidateReferenceOnPosition: election.Candidates[0].CandidateReferenceOnPosition,
		}
	}
	return BallotPosition{Kind: Candidate, CandidateIdentification: candidateIdentification}
}

// isUnchangedBallot implements spec.md §4.6's three-way rule: no list ⇒
// false; empty list ⇒ every position Empty; non-empty list ⇒ the
// positions exactly match the list's declared candidates, in order,
// including accumulation.
func isUnchangedBallot(list *dataset.ListDefinition, positions []BallotPosition) bool {
	if list == nil {
		return false
	}
	if len(list.Candidates) == 0 {
		for _, pos := range positions {
			if pos.Kind != Empty {
				return false
			}
		}
		return true
	}
	if len(positions) != len(list.Candidates) {
		return false
	}
	for i, pos := range positions {
		want := list.Candidates[i]
		if pos.Kind != Candidate || pos.CandidateIdentification != want.CandidateIdentification {
			return false
		}
	}
	return true
}

func splitPipe(s string) (head, tail string, ok bool) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
