package models

// DegradedAnswerText is returned when the pipeline cannot produce an answer
const DegradedAnswerText = "Unable to retrieve legal information at this time."

// NoSourcesAnswerText is returned when retrieval finds nothing to ground an answer on
const NoSourcesAnswerText = "The provided sources do not contain information about this topic."

// Citation links an answer to one retrieved chunk
type Citation struct {
	Source     string    `json:"source"`
	URL        string    `json:"url"`
	Authority  Authority `json:"authority"`
	Relevance  float64   `json:"relevance"`
	Excerpt    string    `json:"excerpt"`
	Referenced bool      `json:"referenced"` // answer contains the [Source i] marker
}

// CitedAnswer is the result of a legal question
type CitedAnswer struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence float64    `json:"confidence"`
}

// DegradedAnswer returns the fixed answer used on any pipeline failure
func DegradedAnswer() CitedAnswer {
	return CitedAnswer{
		Answer:     DegradedAnswerText,
		Citations:  []Citation{},
		Confidence: 0,
	}
}
