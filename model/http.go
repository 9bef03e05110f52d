package model

// ChordResponse describes the chord a controller would play, and the
// performance it started when the request triggered one.
type ChordResponse struct {
	ID      ChordID  `json:"id,omitempty"`
	Pitches Notes    `json:"pitches"`
	Names   []string `json:"names"`
	Playing bool     `json:"playing"`
	Latched bool     `json:"latched"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
