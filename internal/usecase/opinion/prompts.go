package opinion

import (
	"encoding/json"
	"fmt"
)

const SystemPromptExtraction = "You are a strict information extraction engine. " +
	"Return ONLY valid JSON matching the requested schema. " +
	"Never add explanations or commentary outside the JSON."

// BuildOpinionPrompt renders the detection request for one text chunk and
// its candidate persons list. Deterministic for identical inputs.
func BuildOpinionPrompt(text string, persons []string) string {
	if persons == nil {
		persons = []string{}
	}

	payload := map[string]interface{}{
		"task":     "Detect whether the author expresses an opinion about any PERSON in the text.",
		"language": "ru",
		"definitions": map[string]string{
			"opinion": "Any evaluative judgment, praise/blame, accusation, sarcasm/irony, " +
				"attribution of motives/intentions, predictions about a person, or conclusions about a person. " +
				"Pure factual mentions are NOT opinions.",
		},
		"input": map[string]interface{}{
			"text":    text,
			"persons": persons,
		},
		"output_schema": map[string]string{
			"has_opinion":   "boolean",
			"targets":       "array of strings (subset of persons)",
			"opinion_spans": "array of short direct quotes copied from input text",
			"polarity":      "one of: negative, positive, mixed, unclear",
			"confidence":    "number 0..1",
		},
		"rules": []string{
			"Return ONLY valid JSON. No extra text.",
			"targets MUST be chosen only from provided persons list.",
			"If has_opinion=false then targets must be empty and opinion_spans must be empty.",
			"opinion_spans MUST be exact substrings from the input text (copy-paste).",
			"If the text contains sarcasm or irony toward a person, mark has_opinion=true.",
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("opinion prompt marshal: %v", err))
	}
	return string(data)
}
