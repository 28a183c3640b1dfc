package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Polarity is the overall direction of an opinion about a person.
type Polarity string

const (
	PolarityNegative Polarity = "negative"
	PolarityPositive Polarity = "positive"
	PolarityMixed    Polarity = "mixed"
	PolarityUnclear  Polarity = "unclear"
)

// IsValid reports whether the polarity is a recognized enum value.
func (p Polarity) IsValid() bool {
	switch p {
	case PolarityNegative, PolarityPositive, PolarityMixed, PolarityUnclear:
		return true
	}
	return false
}

// Detection is the opinion-detection judgement for one text chunk. Targets
// are constrained to the caller-provided persons list; spans are direct
// quotes from the chunk text.
type Detection struct {
	HasOpinion   bool     `json:"has_opinion"`
	Targets      []string `json:"targets"`
	OpinionSpans []string `json:"opinion_spans"`
	Polarity     Polarity `json:"polarity"`
	Confidence   float64  `json:"confidence"`
}

// SafeDefaultDetection is the degraded result used when the oracle is
// unavailable: no opinion, zero confidence.
func SafeDefaultDetection() Detection {
	return Detection{
		HasOpinion:   false,
		Targets:      []string{},
		OpinionSpans: []string{},
		Polarity:     PolarityUnclear,
		Confidence:   0,
	}
}

// StoredDetection is the persisted detection row, keyed by chunk_id.
type StoredDetection struct {
	ChunkID    string         `gorm:"column:chunk_id;primaryKey"`
	Start      float64        `gorm:"column:start"`
	End        float64        `gorm:"column:end"`
	Persons    datatypes.JSON `gorm:"column:persons;type:jsonb"`
	HasOpinion bool           `gorm:"column:has_opinion"`
	Targets    datatypes.JSON `gorm:"column:targets;type:jsonb"`
	Spans      datatypes.JSON `gorm:"column:spans;type:jsonb"`
	Polarity   Polarity       `gorm:"column:polarity"`
	Confidence float64        `gorm:"column:confidence"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM
func (StoredDetection) TableName() string {
	return "opinion_detections"
}

// MarshalStringList encodes a string list for JSONB storage, never null.
func MarshalStringList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

// UnmarshalStringList decodes a stored JSONB string list; malformed data
// yields an empty list.
func UnmarshalStringList(data datatypes.JSON) []string {
	var out []string
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	if out == nil {
		out = []string{}
	}
	return out
}
