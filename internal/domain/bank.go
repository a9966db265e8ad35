package domain

// QuestionBankItem is a reusable question plus authoring metadata and the
// metrics maintained by item analysis.
type QuestionBankItem struct {
	Question

	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Tags       string `json:"tags"`
	CreatedAt  string `json:"createdAt"`
	CreatedBy  string `json:"createdBy"`
	UsageCount int    `json:"usageCount"`
	LastUsedAt string `json:"lastUsedAt"`

	// Owned by item analysis.
	DifficultyIndex     *float64 `json:"difficultyIndex,omitempty"`
	DiscriminationIndex *float64 `json:"discriminationIndex,omitempty"`
	QualityStatus       string   `json:"qualityStatus"`
	LastAnalyzed        string   `json:"lastAnalyzed"`
}

// BankMetrics is the column-scoped update written by item analysis.
type BankMetrics struct {
	DifficultyIndex     float64
	DiscriminationIndex float64
	QualityStatus       string
	AnalyzedAt          string
}

// BulkDeleteResult reports a bulk bank deletion.
type BulkDeleteResult struct {
	DeletedCount int `json:"deletedCount"`
	FailedCount  int `json:"failedCount"`
}
