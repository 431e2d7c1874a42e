package ech0222

import (
	"sort"

	"github.com/vocdoni/evote-verifier/anomaly"
)

// Compare diffs imported (parsed from the delivered eCH-0222 document)
// against calculated (built from configuration and tally artifacts), per
// spec.md §4.6. The diff is order-independent on sets (counting circles,
// votations, election groups) and order-sensitive on ballotPosition lists.
// reportingBody and extension are excluded, as spec.md §4.6 directs;
// neither field is modeled by RawData, so there is nothing to strip.
func Compare(imported, calculated *RawData) []anomaly.Anomaly {
	var out []anomaly.Anomaly

	if imported.ContestIdentification != calculated.ContestIdentification {
		out = append(out, anomaly.NewFailure(
			anomaly.Location{Phase: "Tally"},
			"contestIdentification mismatch: imported %q, calculated %q",
			imported.ContestIdentification, calculated.ContestIdentification))
	}

	importedCCs := indexByID(imported.CountingCircles)
	calculatedCCs := indexByID(calculated.CountingCircles)

	for id := range importedCCs {
		if _, ok := calculatedCCs[id]; !ok {
			out = append(out, anomaly.NewFailure(
				anomaly.Location{Phase: "Tally", File: id},
				"counting circle %s present in imported, absent in calculated", id))
		}
	}
	for id, cc := range calculatedCCs {
		if _, ok := importedCCs[id]; !ok {
			out = append(out, anomaly.NewFailure(
				anomaly.Location{Phase: "Tally", File: id},
				"counting circle %s present in calculated, absent in imported", id))
			_ = cc
		}
	}

	for id, importedCC := range importedCCs {
		calculatedCC, ok := calculatedCCs[id]
		if !ok {
			continue
		}
		out = append(out, compareCountingCircle(id, importedCC, calculatedCC)...)
	}

	return out
}

func indexByID(circles []CountingCircle) map[string]CountingCircle {
	out := make(map[string]CountingCircle, len(circles))
	for _, cc := range circles {
		out[cc.ID] = cc
	}
	return out
}

func compareCountingCircle(id string, imported, calculated CountingCircle) []anomaly.Anomaly {
	var out []anomaly.Anomaly
	loc := anomaly.Location{Phase: "Tally", File: id}

	if imported.ValidVotingCards != calculated.ValidVotingCards {
		out = append(out, anomaly.NewFailure(loc.WithField("votingCardsInformation.countOfReceivedValidVotingCardsTotal"),
			"imported %d, calculated %d", imported.ValidVotingCards, calculated.ValidVotingCards))
	}
	if imported.InvalidVotingCards != calculated.InvalidVotingCards {
		out = append(out, anomaly.NewFailure(loc.WithField("votingCardsInformation.countOfInvalidVotingCardsTotal"),
			"imported %d, calculated %d", imported.InvalidVotingCards, calculated.InvalidVotingCards))
	}

	out = append(out, compareVotes(loc, imported.Votes, calculated.Votes)...)
	out = append(out, compareElectionGroups(loc, imported.ElectionGroupBallots, calculated.ElectionGroupBallots)...)
	return out
}

func compareVotes(ccLoc anomaly.Location, imported, calculated []VoteRawData) []anomaly.Anomaly {
	var out []anomaly.Anomaly
	importedByID := make(map[string]VoteRawData, len(imported))
	for _, v := range imported {
		importedByID[v.VoteIdentification] = v
	}
	calculatedByID := make(map[string]VoteRawData, len(calculated))
	for _, v := range calculated {
		calculatedByID[v.VoteIdentification] = v
	}

	for id := range importedByID {
		if _, ok := calculatedByID[id]; !ok {
			out = append(out, anomaly.NewFailure(ccLoc.WithField(id), "votation %s present in imported, absent in calculated", id))
		}
	}
	for id := range calculatedByID {
		if _, ok := importedByID[id]; !ok {
			out = append(out, anomaly.NewFailure(ccLoc.WithField(id), "votation %s present in calculated, absent in imported", id))
		}
	}
	for id, importedVote := range importedByID {
		calculatedVote, ok := calculatedByID[id]
		if !ok {
			continue
		}
		if len(importedVote.Ballots) != len(calculatedVote.Ballots) {
			out = append(out, anomaly.NewFailure(ccLoc.WithField(id),
				"votation %s ballot count mismatch: imported %d, calculated %d", id, len(importedVote.Ballots), len(calculatedVote.Ballots)))
		}
	}
	return out
}

func compareElectionGroups(ccLoc anomaly.Location, imported, calculated []ElectionGroupBallotRawData) []anomaly.Anomaly {
	var out []anomaly.Anomaly
	importedByID := make(map[string]ElectionGroupBallotRawData, len(imported))
	for _, g := range imported {
		importedByID[g.ElectionGroupIdentification] = g
	}
	calculatedByID := make(map[string]ElectionGroupBallotRawData, len(calculated))
	for _, g := range calculated {
		calculatedByID[g.ElectionGroupIdentification] = g
	}

	for id := range importedByID {
		if _, ok := calculatedByID[id]; !ok {
			out = append(out, anomaly.NewFailure(ccLoc.WithField(id), "election group %s present in imported, absent in calculated", id))
		}
	}
	for id := range calculatedByID {
		if _, ok := importedByID[id]; !ok {
			out = append(out, anomaly.NewFailure(ccLoc.WithField(id), "election group %s present in calculated, absent in imported", id))
		}
	}
	for id, importedGroup := range importedByID {
		calculatedGroup, ok := calculatedByID[id]
		if !ok {
			continue
		}
		out = append(out, compareElections(ccLoc.WithField(id), importedGroup.Elections, calculatedGroup.Elections)...)
	}
	return out
}

func compareElections(groupLoc anomaly.Location, imported, calculated []ElectionRawData) []anomaly.Anomaly {
	var out []anomaly.Anomaly
	importedByID := indexElections(imported)
	calculatedByID := indexElections(calculated)

	ids := make(map[string]bool)
	for id := range importedByID {
		ids[id] = true
	}
	for id := range calculatedByID {
		ids[id] = true
	}
	sortedIDs := make([]string, 0, len(ids))
	for id := range ids {
		sortedIDs = append(sortedIDs, id)
	}
	sort.Strings(sortedIDs)

	for _, id := range sortedIDs {
		importedElection, hasImported := importedByID[id]
		calculatedElection, hasCalculated := calculatedByID[id]
		loc := groupLoc.WithField(id)
		switch {
		case !hasCalculated:
			out = append(out, anomaly.NewFailure(loc, "election %s present in imported, absent in calculated", id))
		case !hasImported:
			out = append(out, anomaly.NewFailure(loc, "election %s present in calculated, absent in imported", id))
		default:
			out = append(out, compareElectionRawData(loc, importedElection, calculatedElection)...)
		}
	}
	return out
}

func indexElections(elections []ElectionRawData) map[string]ElectionRawData {
	out := make(map[string]ElectionRawData, len(elections))
	for _, e := range elections {
		out[e.ElectionIdentification] = e
	}
	return out
}

func compareElectionRawData(loc anomaly.Location, imported, calculated ElectionRawData) []anomaly.Anomaly {
	var out []anomaly.Anomaly

	importedList, calculatedList := "", ""
	if imported.ListIdentification != nil {
		importedList = *imported.ListIdentification
	}
	if calculated.ListIdentification != nil {
		calculatedList = *calculated.ListIdentification
	}
	if importedList != calculatedList {
		out = append(out, anomaly.NewFailure(loc.WithField("listIdentification"), "imported %q, calculated %q", importedList, calculatedList))
	}

	if imported.IsUnchangedBallot != calculated.IsUnchangedBallot {
		out = append(out, anomaly.NewFailure(loc.WithField("isUnchangedBallot"), "imported %v, calculated %v", imported.IsUnchangedBallot, calculated.IsUnchangedBallot))
	}

	if len(imported.BallotPositions) != len(calculated.BallotPositions) {
		out = append(out, anomaly.NewFailure(loc.WithField("ballotPosition"), "position count mismatch: imported %d, calculated %d", len(imported.BallotPositions), len(calculated.BallotPositions)))
		return out
	}
	for i := range imported.BallotPositions {
		a, b := imported.BallotPositions[i], calculated.BallotPositions[i]
		if a != b {
			out = append(out, anomaly.NewFailure(loc.WithField("ballotPosition").WithIndex(i),
				"position %d mismatch: imported %+v, calculated %+v", i, a, b))
		}
	}
	return out
}
