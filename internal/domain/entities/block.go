package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// QABlock is one viewer exchange inside a qa boundary segment: the viewer's
// question (quoted literally when the host read it aloud) plus the host's
// complete answer. StartU/EndU are inclusive and lie within the parent qa
// segment's range.
type QABlock struct {
	StartU        int      `json:"start_u"`
	EndU          int      `json:"end_u"`
	Questions     []string `json:"questions"`
	AnswerSummary string   `json:"answer_summary"`
	Confidence    float64  `json:"confidence"`
}

// StoredQABlock is the persisted form of a Q&A block with a document-wide
// block_id, derived wall-clock times and the span-joined utterance text.
type StoredQABlock struct {
	VideoID       string         `json:"-" gorm:"column:video_id;primaryKey"`
	BlockID       string         `json:"block_id" gorm:"column:block_id;primaryKey"`
	StartU        int            `json:"start_u" gorm:"column:start_u"`
	EndU          int            `json:"end_u" gorm:"column:end_u"`
	Start         float64        `json:"start" gorm:"column:start"`
	End           float64        `json:"end" gorm:"column:end"`
	Questions     datatypes.JSON `json:"questions" gorm:"column:questions;type:jsonb"`
	AnswerSummary string         `json:"answer_summary" gorm:"column:answer_summary"`
	Confidence    float64        `json:"confidence" gorm:"column:confidence"`
	Text          string         `json:"text" gorm:"column:text"`
	CreatedAt     time.Time      `json:"created_at" gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (StoredQABlock) TableName() string {
	return "qa_blocks"
}

// QuestionList decodes the stored questions JSON back into a string slice.
// Malformed stored data yields an empty list rather than an error.
func (b *StoredQABlock) QuestionList() []string {
	var qs []string
	if len(b.Questions) > 0 {
		_ = json.Unmarshal(b.Questions, &qs)
	}
	if qs == nil {
		qs = []string{}
	}
	return qs
}

// MarshalQuestions encodes a question list for JSONB storage. An empty or
// nil list stores as the JSON empty array, never null.
func MarshalQuestions(questions []string) datatypes.JSON {
	if questions == nil {
		questions = []string{}
	}
	data, err := json.Marshal(questions)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}
