package analysis

// scoreRequest is the body POSTed to the scorer
type scoreRequest struct {
	Content string `json:"content"`
}

// Field names of the scorer's success payload. The payload is decoded into
// a generic map so that schema drift degrades into a fallback rather than a
// decode error.
const (
	fieldScore          = "credibility_score"
	fieldScoreCamel     = "credibilityScore"
	fieldDetails        = "details"
	fieldFactual        = "factual_alignment"
	fieldManipulation   = "language_manipulation"
	fieldConsistency    = "logical_consistency"
	fieldExplanation    = "explanation"
	fieldRedFlags       = "red_flags"
	fieldRedFlagsCamel  = "redFlags"
	fieldFallbackMarker = "fallback"
)

// Thresholds for the indicator-derived red flags
const (
	lowFactualAlignment      = 0.3
	highLanguageManipulation = 0.7
	lowLogicalConsistency    = 0.3
	lowCredibilityScore      = 40
)

// Red flags derived from the scorer's indicators
const (
	FlagFactualInaccuracies  = "Possible factual inaccuracies detected"
	FlagLanguageManipulation = "Language manipulation detected"
	FlagLogicalInconsistency = "Logical inconsistencies found"
	FlagLowCredibility       = "Low overall credibility score"
)
