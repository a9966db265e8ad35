package repository

import (
	"context"

	"exam-room/internal/domain"
	"exam-room/internal/schema"
)

// recordBankRepository implements domain.BankRepository over the QuestionBank table.
type recordBankRepository struct {
	store *RecordStore
}

func NewBankRepository(store *RecordStore) domain.BankRepository {
	return &recordBankRepository{store: store}
}

func toDomainBankItem(rec Record) *domain.QuestionBankItem {
	return &domain.QuestionBankItem{
		Question: domain.Question{
			ID:                    rec["id"],
			Text:                  rec["text"],
			Type:                  domain.QuestionType(rec["type"]),
			ImageURL:              rec["imageUrl"],
			Passage:               rec["passage"],
			Options:               DecodeJSON(rec["options"], []domain.Choice{}),
			MatchingPairs:         DecodeJSON(rec["matchingPairs"], []domain.MatchingPair{}),
			Statements:            DecodeJSON(rec["statements"], []domain.Statement{}),
			SequenceItems:         DecodeJSON(rec["sequenceItems"], []domain.Choice{}),
			CorrectSequence:       DecodeJSON(rec["correctSequence"], []int{}),
			ClassificationItems:   DecodeJSON(rec["classificationItems"], []domain.Choice{}),
			Categories:            DecodeJSON(rec["categories"], []string{}),
			ClassificationMapping: DecodeJSON(rec["classificationMapping"], map[string]int{}),
			CorrectKey:            rec["correctKey"],
		},
		Subject:             rec["subject"],
		Difficulty:          rec["difficulty"],
		Tags:                rec["tags"],
		CreatedAt:           rec["createdAt"],
		CreatedBy:           rec["createdBy"],
		UsageCount:          ParseInt(rec["usageCount"]),
		LastUsedAt:          rec["lastUsedAt"],
		DifficultyIndex:     ParseOptionalFloat(rec["difficultyIndex"]),
		DiscriminationIndex: ParseOptionalFloat(rec["discriminationIndex"]),
		QualityStatus:       rec["qualityStatus"],
		LastAnalyzed:        rec["lastAnalyzed"],
	}
}

func fromDomainBankItem(item *domain.QuestionBankItem) Record {
	rec := Record{
		"id":                    item.ID,
		"text":                  item.Text,
		"type":                  string(item.Type),
		"subject":               item.Subject,
		"difficulty":            item.Difficulty,
		"tags":                  item.Tags,
		"imageUrl":              item.ImageURL,
		"passage":               item.Passage,
		"options":               EncodeJSON(item.Options),
		"matchingPairs":         EncodeJSON(item.MatchingPairs),
		"statements":            EncodeJSON(item.Statements),
		"sequenceItems":         EncodeJSON(item.SequenceItems),
		"correctSequence":       EncodeJSON(item.CorrectSequence),
		"classificationItems":   EncodeJSON(item.ClassificationItems),
		"categories":            EncodeJSON(item.Categories),
		"classificationMapping": EncodeJSON(item.ClassificationMapping),
		"correctKey":            item.CorrectKey,
		"createdAt":             item.CreatedAt,
		"createdBy":             item.CreatedBy,
		// Ignored for existing rows: these columns are derived.
		"usageCount":    FormatInt(item.UsageCount),
		"lastUsedAt":    item.LastUsedAt,
		"qualityStatus": item.QualityStatus,
		"lastAnalyzed":  item.LastAnalyzed,
	}
	if item.DifficultyIndex != nil {
		rec["difficultyIndex"] = FormatFloat(*item.DifficultyIndex)
	}
	if item.DiscriminationIndex != nil {
		rec["discriminationIndex"] = FormatFloat(*item.DiscriminationIndex)
	}
	return rec
}

func (r *recordBankRepository) List(ctx context.Context) ([]*domain.QuestionBankItem, error) {
	recs, err := r.store.ListAll(ctx, schema.TableQuestionBank)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.QuestionBankItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainBankItem(rec))
	}
	return out, nil
}

func (r *recordBankRepository) FindByID(ctx context.Context, id string) (*domain.QuestionBankItem, error) {
	recs, err := r.store.ListAll(ctx, schema.TableQuestionBank)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec["id"] == id {
			return toDomainBankItem(rec), nil
		}
	}
	return nil, nil
}

func (r *recordBankRepository) Save(ctx context.Context, item *domain.QuestionBankItem) error {
	_, err := r.store.Upsert(ctx, schema.TableQuestionBank, fromDomainBankItem(item))
	return err
}

func (r *recordBankRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.store.DeleteFirst(ctx, schema.TableQuestionBank, Record{"id": id})
}

// UpdateMetrics touches only the analysis-owned columns and usage counters.
func (r *recordBankRepository) UpdateMetrics(ctx context.Context, id string, m domain.BankMetrics) (bool, error) {
	return r.store.UpdateColumns(ctx, schema.TableQuestionBank, Record{"id": id}, func(current Record) Record {
		return Record{
			"difficultyIndex":     FormatFloat(m.DifficultyIndex),
			"discriminationIndex": FormatFloat(m.DiscriminationIndex),
			"qualityStatus":       m.QualityStatus,
			"lastAnalyzed":        m.AnalyzedAt,
			"usageCount":          FormatInt(ParseInt(current["usageCount"]) + 1),
			"lastUsedAt":          m.AnalyzedAt,
		}
	})
}
