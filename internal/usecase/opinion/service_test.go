package opinion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/akozyrev/transcript-analyzer/internal/domain/entities"
	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

type fakeOracle struct {
	replies []oracleReply
	calls   int
}

type oracleReply struct {
	raw string
	err error
}

func (f *fakeOracle) InferJSON(_ context.Context, _, _, _ string) (json.RawMessage, error) {
	f.calls++
	if len(f.replies) == 0 {
		return nil, errors.New("oracle unavailable")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	if reply.err != nil {
		return nil, reply.err
	}
	return json.RawMessage(reply.raw), nil
}

type fakeOpinionRepo struct {
	detections map[string]entities.StoredDetection
}

func newFakeOpinionRepo() *fakeOpinionRepo {
	return &fakeOpinionRepo{detections: make(map[string]entities.StoredDetection)}
}

func (r *fakeOpinionRepo) UpsertDetection(_ context.Context, d *entities.StoredDetection) error {
	r.detections[d.ChunkID] = *d
	return nil
}

func (r *fakeOpinionRepo) GetDetection(_ context.Context, chunkID string) (*entities.StoredDetection, error) {
	d, ok := r.detections[chunkID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func newTestService(replies ...oracleReply) (*Service, *fakeOracle, *fakeOpinionRepo) {
	return newTestServiceWithLogger(zap.NewNop(), replies...)
}

func newTestServiceWithLogger(logger *zap.Logger, replies ...oracleReply) (*Service, *fakeOracle, *fakeOpinionRepo) {
	oracle := &fakeOracle{replies: replies}
	repo := newFakeOpinionRepo()
	cfg := &config.OpenAIConfig{
		Model:         "test-model",
		Timeout:       time.Second,
		MaxTextLength: 8000,
	}
	return NewService(oracle, repo, cfg, logger), oracle, repo
}

func TestDetectEmptyPersonsShortCircuits(t *testing.T) {
	service, oracle, repo := newTestService()

	result, err := service.Detect(context.Background(), Request{
		ChunkID: "qa_000",
		Text:    "Мне кажется, всё прошло отлично.",
	})
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if result.HasOpinion {
		t.Error("no candidates means no opinion")
	}
	if result.Confidence != 1.0 {
		t.Errorf("empty persons list is a confident negative, got confidence %v", result.Confidence)
	}
	if oracle.calls != 0 {
		t.Errorf("oracle must not be called without candidates, got %d calls", oracle.calls)
	}
	if _, ok := repo.detections["qa_000"]; !ok {
		t.Error("short-circuit result must still be persisted")
	}
}

func TestDetectParsesOracleResponse(t *testing.T) {
	service, _, repo := newTestService(oracleReply{raw: `{
		"has_opinion": true,
		"targets": ["Виктор"],
		"opinion_spans": ["Виктор молодец"],
		"polarity": "positive",
		"confidence": 0.85
	}`})

	result, err := service.Detect(context.Background(), Request{
		ChunkID: "qa_001",
		Text:    "Я считаю, что Виктор молодец.",
		Persons: []string{"Виктор"},
	})
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if !result.HasOpinion || result.Polarity != entities.PolarityPositive {
		t.Errorf("unexpected detection: %+v", result)
	}
	if len(result.Targets) != 1 || result.Targets[0] != "Виктор" {
		t.Errorf("unexpected targets: %v", result.Targets)
	}

	row := repo.detections["qa_001"]
	if row.Polarity != entities.PolarityPositive || !row.HasOpinion {
		t.Errorf("persisted row does not match result: %+v", row)
	}
	if got := entities.UnmarshalStringList(row.Targets); len(got) != 1 || got[0] != "Виктор" {
		t.Errorf("unexpected persisted targets: %v", got)
	}
}

func TestDetectDegradesOnOracleFailure(t *testing.T) {
	service, oracle, repo := newTestService() // every call fails

	result, err := service.Detect(context.Background(), Request{
		ChunkID: "qa_002",
		Text:    "что-то про Ольгу",
		Persons: []string{"Ольга"},
	})
	if err != nil {
		t.Fatalf("oracle failure must degrade, not error: %v", err)
	}

	if result.HasOpinion || result.Confidence != 0 || result.Polarity != entities.PolarityUnclear {
		t.Errorf("expected safe default, got %+v", result)
	}
	if oracle.calls != oracleAttempts {
		t.Errorf("expected %d attempts, got %d", oracleAttempts, oracle.calls)
	}
	if _, ok := repo.detections["qa_002"]; !ok {
		t.Error("degraded result must still be persisted")
	}
}

func TestDetectDegradesOnUnparseableResponse(t *testing.T) {
	service, _, _ := newTestService(oracleReply{raw: `"just a string"`})

	result, err := service.Detect(context.Background(), Request{
		ChunkID: "qa_003",
		Text:    "текст",
		Persons: []string{"Виктор"},
	})
	if err != nil {
		t.Fatalf("unparseable response must degrade, not error: %v", err)
	}
	if result.HasOpinion || result.Confidence != 0 {
		t.Errorf("expected safe default, got %+v", result)
	}
}

func TestDetectFiltersTargetsToWhitelist(t *testing.T) {
	service, _, _ := newTestService(oracleReply{raw: `{
		"has_opinion": true,
		"targets": ["Виктор", "Наполеон"],
		"opinion_spans": [],
		"polarity": "mixed",
		"confidence": 0.7
	}`})

	result, err := service.Detect(context.Background(), Request{
		ChunkID: "qa_004",
		Text:    "текст",
		Persons: []string{"Виктор", "Ольга"},
	})
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if len(result.Targets) != 1 || result.Targets[0] != "Виктор" {
		t.Errorf("targets outside the whitelist must be dropped, got %v", result.Targets)
	}
}

func TestDetectKeepsSpanMissingFromText(t *testing.T) {
	core, observed := observer.New(zap.WarnLevel)
	service, _, repo := newTestServiceWithLogger(zap.New(core), oracleReply{raw: `{
		"has_opinion": true,
		"targets": ["Виктор"],
		"opinion_spans": ["этой цитаты нет в тексте"],
		"polarity": "negative",
		"confidence": 0.8
	}`})

	result, err := service.Detect(context.Background(), Request{
		ChunkID: "qa_006",
		Text:    "Виктор опять всё испортил.",
		Persons: []string{"Виктор"},
	})
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	// The span is not a substring of the chunk text; it is warned about
	// but kept, both in the result and the persisted row.
	if len(result.OpinionSpans) != 1 || result.OpinionSpans[0] != "этой цитаты нет в тексте" {
		t.Errorf("unmatched span must be kept, got %v", result.OpinionSpans)
	}
	row := repo.detections["qa_006"]
	if got := entities.UnmarshalStringList(row.Spans); len(got) != 1 || got[0] != "этой цитаты нет в тексте" {
		t.Errorf("persisted row lost the unmatched span, got %v", got)
	}
	if observed.FilterMessage("opinion span not found in chunk text").Len() != 1 {
		t.Error("expected a warning for the unmatched span")
	}
}

func TestDetectNormalizesPolarityAndConfidence(t *testing.T) {
	service, _, _ := newTestService(oracleReply{raw: `{
		"has_opinion": true,
		"targets": [],
		"opinion_spans": [],
		"polarity": "enthusiastic",
		"confidence": 3.5
	}`})

	result, err := service.Detect(context.Background(), Request{
		ChunkID: "qa_005",
		Text:    "текст",
		Persons: []string{"Виктор"},
	})
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if result.Polarity != entities.PolarityUnclear {
		t.Errorf("unknown polarity must normalize to unclear, got %s", result.Polarity)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence must clamp to [0, 1], got %v", result.Confidence)
	}
}

func TestDetectBatchIsolatesItemFailures(t *testing.T) {
	failure := oracleReply{err: errors.New("oracle unavailable")}
	ok := `{"has_opinion": true, "targets": ["Виктор"], "opinion_spans": [], "polarity": "negative", "confidence": 0.9}`

	service, _, repo := newTestService(
		oracleReply{raw: ok},
		failure, failure, failure, // item 2 exhausts its retries
		oracleReply{raw: ok},
	)

	items := []Request{
		{ChunkID: "qa_000", Text: "про Виктора", Persons: []string{"Виктор"}},
		{ChunkID: "qa_001", Text: "про Виктора", Persons: []string{"Виктор"}},
		{ChunkID: "qa_002", Text: "про Виктора", Persons: []string{"Виктор"}},
	}

	batch, err := service.DetectBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("DetectBatch returned error: %v", err)
	}

	if len(batch.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(batch.Results))
	}
	if batch.TotalWithOpinions != 2 {
		t.Errorf("expected 2 items with opinions, got %d", batch.TotalWithOpinions)
	}
	if batch.Results[1].HasOpinion {
		t.Error("failed item must carry the safe default")
	}
	for _, id := range []string{"qa_000", "qa_001", "qa_002"} {
		if _, ok := repo.detections[id]; !ok {
			t.Errorf("item %s not persisted", id)
		}
	}
}

func TestGetChunkNotFound(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.GetChunk(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown chunk")
	}
}
