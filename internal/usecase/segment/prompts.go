package segment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
)

const SystemPromptSegmentation = "You are a transcript segmentation engine. " +
	"Your task is to identify structural boundaries in speech transcripts. " +
	"Return ONLY valid JSON with utterance indices. Never invent or copy text content."

// The prompts are tuned for Russian-language political commentary videos
// where the host opens with news/analysis and later switches to answering
// viewer questions. The transition markers below are tuning data for the
// oracle, not control flow; swap them per deployment locale.

// utteranceLines renders utterances compactly, one per line, with text
// truncated to keep the prompt within context limits.
func utteranceLines(utterances []entities.Utterance) string {
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		text := u.Text
		// rune-based cut, mostly Cyrillic text
		if r := []rune(text); len(r) > 100 {
			text = string(r[:100]) + "..."
		}
		lines = append(lines, fmt.Sprintf("[u=%d %.1f-%.1f] %q", u.Index, u.Start, u.End, text))
	}
	return strings.Join(lines, "\n")
}

// EstimateBlockCount derives the steering hint for the block pass from the
// covered duration, roughly one block per 2.5 minutes, clamped to [5, 40].
func EstimateBlockCount(utterances []entities.Utterance) int {
	duration := 0.0
	if len(utterances) > 0 {
		duration = utterances[len(utterances)-1].End - utterances[0].Start
	}
	estimated := int(duration / 150)
	if estimated < 5 {
		estimated = 5
	}
	if estimated > 40 {
		estimated = 40
	}
	return estimated
}

// BuildBoundaryPrompt renders the boundary pass request. Deterministic for
// a given utterance list; the payload states the schema and the coverage
// constraints the validator will enforce anyway, because oracle compliance
// is probabilistic.
func BuildBoundaryPrompt(utterances []entities.Utterance) string {
	firstIndex, lastIndex := 0, 0
	if len(utterances) > 0 {
		firstIndex = utterances[0].Index
		lastIndex = utterances[len(utterances)-1].Index
	}

	payload := map[string]interface{}{
		"task":     "Segment this Russian transcript into NARRATIVE and Q&A regions.",
		"language": "ru",
		"context": "This is a Russian political commentary/news video. " +
			"The host typically starts with news/analysis (narrative), " +
			"then transitions to answering viewer questions (Q&A). " +
			"Look carefully for transition phrases in the MIDDLE of the transcript.",
		"definitions": map[string]string{
			"narrative": "Monologue content: news, analysis, commentary, storytelling. " +
				"The speaker is delivering information without responding to audience questions.",
			"qa": "Question-and-answer content: the speaker is answering viewer questions, " +
				"reading comments, or addressing audience by name. " +
				"The speaker responds to specific people or their questions.",
		},
		"transition_markers_ru": map[string]interface{}{
			"description": "Common Russian phrases that signal transition to Q&A section:",
			"explicit_transitions": []string{
				"ответы на ваши вопросы",
				"перейдём к вопросам",
				"отвечу на вопросы",
				"ваши вопросы и комментарии",
				"перейти к ответам",
				"теперь вопросы",
			},
			"qa_indicators": []string{
				"[Имя], к вопросу о... (addressing viewer by name)",
				"[Имя] пишет/спрашивает... (viewer writes/asks)",
				"вопрос от [Имя]... (question from viewer)",
				"комментарий от [Имя]... (comment from viewer)",
				"читаю комментарий... (reading a comment)",
			},
			"note": "When you see these patterns, Q&A section has likely begun!",
		},
		"input": map[string]interface{}{
			"total_utterances": len(utterances),
			"first_index":      firstIndex,
			"last_index":       lastIndex,
			"utterances":       utteranceLines(utterances),
		},
		"output_schema": map[string]interface{}{
			"segments": []map[string]string{
				{
					"type":       "narrative OR qa",
					"start_u":    "integer (utterance index)",
					"end_u":      "integer (utterance index, inclusive)",
					"confidence": "number 0..1",
					"notes":      "short description of segment content (optional)",
				},
			},
		},
		"rules": []string{
			"Return ONLY valid JSON. No extra text.",
			"IMPORTANT: Scan the ENTIRE transcript for transition markers, not just beginning/end!",
			"start_u and end_u MUST be valid utterance indices from the input.",
			"Segments MUST cover the entire range without gaps or overlaps.",
			"Segments MUST be ordered by start_u.",
			"If the entire transcript is narrative, return one segment with type='narrative'.",
			"If the entire transcript is Q&A, return one segment with type='qa'.",
			"If you find a transition marker, the Q&A section starts AT or BEFORE that utterance.",
			"notes should be 1-2 sentences max, describing what happens in that segment.",
			"Do NOT invent text. Only use indices and short notes.",
		},
	}

	return mustMarshal(payload)
}

// BuildBlocksPrompt renders the block pass request for one qa region. The
// qa range is echoed back so the validator can bound-check against it. The
// hard rules steer toward one block per viewer exchange and forbid
// fabricated question quotes.
func BuildBlocksPrompt(utterances []entities.Utterance, qaStart, qaEnd int) string {
	estimated := EstimateBlockCount(utterances)

	payload := map[string]interface{}{
		"task":     "Segment this Russian Q&A transcript into semantic answer blocks.",
		"language": "ru",
		"context": "This is the Q&A portion of a Russian political commentary video. " +
			"The host reads viewer questions/comments and gives COMPLETE answers. " +
			"One block = one viewer's question + the host's FULL answer (may span many utterances). " +
			"Do NOT split the host's answer into multiple blocks!",
		"critical_rules": map[string]interface{}{
			"what_is_a_block": "ONE block = ONE viewer's question/comment + the host's COMPLETE answer. " +
				"The answer may be long (5-20 utterances) - that's still ONE block. " +
				"A new block starts ONLY when a NEW VIEWER is addressed.",
			"how_to_detect_new_block": "A NEW block starts when you see a NEW VIEWER NAME at the START of an utterance. " +
				"Pattern: '[Имя]. ...' or '[Имя], ...' or '[Имя] пишет/спрашивает...' " +
				"Examples: 'Виктор.', 'Ольга,', 'Андрей пишет:', 'Поле из Сум.' " +
				"If no new viewer name → it's the SAME block (continuation of answer).",
			"what_is_NOT_a_new_block": []string{
				"Topic change within the same answer",
				"Host saying 'уважаемая/уважаемый' mid-answer",
				"Utterances starting with 'но', 'и', 'также', 'потому что'",
				"Any continuation of the host's reasoning",
			},
		},
		"question_extraction_rules": map[string]interface{}{
			"NEVER_HALLUCINATE": "CRITICAL: The 'questions' field must contain ONLY text that is " +
				"LITERALLY QUOTED in the transcript. If the viewer's question is not " +
				"read aloud by the host, leave questions array EMPTY [].",
			"correct_examples": []string{
				"Text: 'Виктор спрашивает: не Волков ли подтолкнул Навального?' → questions: ['не Волков ли подтолкнул Навального?']",
				"Text: 'Ольга. Как вы относитесь к этому?' → questions: ['Как вы относитесь к этому?']",
			},
			"incorrect_examples": []string{
				"WRONG: Text about Lithuania → questions: ['околосмертные переживания'] (hallucinated!)",
				"WRONG: Inventing a question that sounds related but isn't in the text",
			},
			"when_to_leave_empty": "If the host just starts answering without reading the question, " +
				"or if the question is not clearly stated, use questions: []",
		},
		"expected_output": map[string]string{
			"block_count": fmt.Sprintf("For this transcript, expect approximately %d blocks (±30%%)", estimated),
			"block_size":  "Each block typically spans 5-30 utterances (the host's full answer)",
			"warning":     "If you have >50 blocks, you are over-segmenting! Merge blocks.",
		},
		"input": map[string]interface{}{
			"qa_range":         map[string]int{"start_u": qaStart, "end_u": qaEnd},
			"total_utterances": len(utterances),
			"estimated_blocks": estimated,
			"utterances":       utteranceLines(utterances),
		},
		"output_schema": map[string]interface{}{
			"qa_blocks": []map[string]string{
				{
					"start_u":        "integer (utterance index where viewer name appears)",
					"end_u":          "integer (last utterance of host's answer, inclusive)",
					"questions":      "array of LITERAL quotes from transcript, or [] if not stated",
					"answer_summary": "1-2 sentence summary of what the host said",
					"confidence":     "number 0..1",
				},
			},
		},
		"rules": []string{
			"Return ONLY valid JSON. No extra text.",
			"start_u and end_u MUST be within the provided qa_range.",
			"Blocks MUST cover the entire Q&A range without gaps or overlaps.",
			"Blocks MUST be ordered by start_u.",
			"NEW BLOCK = NEW VIEWER NAME at start of utterance. Nothing else!",
			"One viewer's question + host's FULL answer = ONE block (even if 20+ utterances).",
			"questions array: ONLY literal quotes from transcript, or empty [].",
			"NEVER invent or hallucinate questions. If unsure, use [].",
			"answer_summary: Brief description of the host's response (1-2 sentences).",
			fmt.Sprintf("Expected block count: ~%d. If you have >50 blocks, merge them!", estimated),
		},
	}

	return mustMarshal(payload)
}

// mustMarshal serializes a prompt payload. Map keys come out sorted, so
// prompts are deterministic for identical inputs.
func mustMarshal(payload map[string]interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are built from plain maps, slices and strings; this
		// cannot fail at runtime.
		panic(fmt.Sprintf("prompt payload marshal: %v", err))
	}
	return string(data)
}
