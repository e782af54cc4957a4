package domain

// Citation points a generated answer back at the source message.
type Citation struct {
	UnitID    string
	ChannelID string
	URL       string
}

// Answer is the result of one retrieval pipeline run. Confidence is the top
// candidate's raw similarity score before re-ranking, in [0,1].
type Answer struct {
	Text       string
	Citations  []Citation
	Confidence float64
}

// NoRelevantInformation is the fixed fallback when no candidate survives
// permission filtering; the generation capability is never invoked for it.
const NoRelevantInformation = "I couldn't find any relevant information in the knowledge base to answer that. The bot learns from channel messages, so try asking about a topic that has been discussed recently."

// EmptyAnswer returns the fallback Answer for an empty filtered set.
func EmptyAnswer() *Answer {
	return &Answer{
		Text:       NoRelevantInformation,
		Citations:  []Citation{},
		Confidence: 0.0,
	}
}
