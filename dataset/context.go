package dataset

// ContextDocument models the election event context payload found under
// context/: the contest identification, the mapping from verification card
// set to its authorization alias, and the authorization/votation/election
// definitions the eCH-0222 comparator (C6) resolves relevant votations and
// election groups from.
type ContextDocument struct {
	ContestIdentification string `json:"contestIdentification"`

	// VerificationCardSetContexts maps a ballot box id to the verification
	// card set context that was minted for it.
	VerificationCardSetContexts map[string]VerificationCardSetContext `json:"verificationCardSetContexts"`

	// Authorizations maps an authorization id (verification card set alias
	// with the "vcs_" prefix stripped) to its definition.
	Authorizations map[string]Authorization `json:"authorizations"`

	Votations      map[string]VotationDefinition      `json:"votations"`
	ElectionGroups map[string]ElectionGroupDefinition `json:"electionGroups"`
}

// VerificationCardSetContext is the per-ballot-box record from which the
// authorization id is derived.
type VerificationCardSetContext struct {
	VerificationCardSetAlias string `json:"verificationCardSetAlias"`
}

// Authorization lists the domains of influence an authorization covers.
// By convention (spec §4.6) the first entry is the counting circle and the
// remainder enumerate the relevant votations and election groups.
type Authorization struct {
	DomainsOfInfluence []string `json:"domainsOfInfluence"`
}

// VotationDefinition names a votation (a vote with one or more questions).
type VotationDefinition struct {
	ID        string             `json:"id"`
	Questions []QuestionReference `json:"questions"`
}

// QuestionReference identifies a question within a votation.
type QuestionReference struct {
	QuestionIdentification string `json:"questionIdentification"`
}

// ElectionGroupDefinition names an election group (the unit an
// ElectionGroupBallotRawData is produced for) and its member elections.
type ElectionGroupDefinition struct {
	ID        string               `json:"id"`
	Elections []ElectionDefinition `json:"elections"`
}

// ElectionDefinition carries everything needed to interpret a decoded
// ballot's positions for one election within an election group: the list
// identifiers it may reference, the declared write-in position, and the
// candidate-position table used to resolve candidateReferenceOnPosition.
type ElectionDefinition struct {
	ElectionIdentification        string               `json:"electionIdentification"`
	WriteInPositionIdentification string               `json:"writeInPositionIdentification"`
	Lists                         []ListDefinition     `json:"lists"`
	Candidates                    []CandidatePosition  `json:"candidates"`
}

// ListDefinition is a candidate list a voter may cast an unchanged ballot
// for.
type ListDefinition struct {
	ListIdentification string              `json:"listIdentification"`
	Candidates         []CandidatePosition `json:"candidates"`
}

// CandidatePosition is one entry of a list's declared candidate order,
// used both to validate "unchanged ballot" detection and to resolve
// candidateReferenceOnPosition. When several entries share a
// candidateIdentification, ech0222.Build takes the first one in
// declaration order; AccumulationIndex is decoded but not consulted.
type CandidatePosition struct {
	CandidateIdentification     string `json:"candidateIdentification"`
	Position                     int    `json:"position"`
	AccumulationIndex            int    `json:"accumulationIndex"`
	CandidateReferenceOnPosition string `json:"candidateReferenceOnPosition"`
}
