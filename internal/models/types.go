package models

// SourceKind identifies which kind of upstream a candidate came from
type SourceKind string

const (
	SourceNyaa       SourceKind = "nyaa"        // nyaa.si RSS search
	SourceSubsPlease SourceKind = "subsplease"  // subsplease.org direct RSS
	SourceNyaaScrape SourceKind = "nyaa_scrape" // nyaa.si HTML listing
)

// FilterField is the candidate field a rule predicate inspects
type FilterField string

const (
	FieldTitle      FilterField = "title"
	FieldGroup      FilterField = "group"
	FieldResolution FilterField = "resolution"
)

// FilterOp is the comparison a rule predicate performs
type FilterOp string

const (
	OpEquals   FilterOp = "equals"   // case-insensitive exact match
	OpContains FilterOp = "contains" // case-insensitive substring
	OpMatches  FilterOp = "matches"  // regular expression
	OpAtLeast  FilterOp = "at_least" // resolution height comparison
)

// FilterAction is what a matching rule decides
type FilterAction string

const (
	ActionAccept FilterAction = "accept"
	ActionReject FilterAction = "reject"
)

// Outcome records how a dispatch attempt ended
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)
