package entities

import "strings"

// Utterance is a single timestamped utterance from the transcription
// provider. Index is the authoritative ordering key; it is assigned as the
// 0-based position in the provider's utterance array, never taken from a
// provider-side id field. Start/End are display data in seconds.
type Utterance struct {
	Index int     `json:"u" validate:"gte=0"`
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gte=0"`
	Text  string  `json:"text"`
}

// MaxIndex returns the largest utterance index in the list, or -1 for an
// empty list.
func MaxIndex(utterances []Utterance) int {
	max := -1
	for _, u := range utterances {
		if u.Index > max {
			max = u.Index
		}
	}
	return max
}

// UtteranceByIndex finds the utterance with the given index, or nil.
func UtteranceByIndex(utterances []Utterance, idx int) *Utterance {
	for i := range utterances {
		if utterances[i].Index == idx {
			return &utterances[i]
		}
	}
	return nil
}

// AssembleText joins the text of all utterances whose index falls within
// [startU, endU], separated by single spaces.
func AssembleText(utterances []Utterance, startU, endU int) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if u.Index >= startU && u.Index <= endU {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}
