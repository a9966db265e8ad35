package domain

import "context"

// ExamRepository defines the interface for exam persistence
type ExamRepository interface {
	// List returns every stored exam. Unparsable question lists degrade to empty.
	List(ctx context.Context) ([]*Exam, error)

	// FindByID returns the exam or nil when no row matches.
	FindByID(ctx context.Context, id string) (*Exam, error)

	// FindForAnalysis is FindByID with a strict question decode: an unparsable
	// question list is an INVALID_DATA error instead of an empty list.
	FindForAnalysis(ctx context.Context, id string) (*Exam, error)

	// Save upserts by id and reports whether a new row was created.
	Save(ctx context.Context, exam *Exam) (bool, error)

	// Delete removes the first row with the id.
	Delete(ctx context.Context, id string) (bool, error)

	Clear(ctx context.Context) error
}

// AttemptRepository defines the interface for submitted attempts
type AttemptRepository interface {
	List(ctx context.Context) ([]*Attempt, error)
	ListForExam(ctx context.Context, examID string) ([]*Attempt, error)
	Append(ctx context.Context, attempt *Attempt) error

	// UpdateScore rewrites the score of the first attempt matching
	// (examID, studentName) and reports whether one matched.
	UpdateScore(ctx context.Context, examID, studentName string, score float64) (bool, error)

	// DeleteForStudent removes every attempt matching (examID, studentName).
	DeleteForStudent(ctx context.Context, examID, studentName string) (int, error)

	Clear(ctx context.Context) error
}

// ProgressRepository defines the interface for live progress heartbeats
type ProgressRepository interface {
	List(ctx context.Context) ([]*LiveProgress, error)
	Upsert(ctx context.Context, progress *LiveProgress) error
	DeleteForStudent(ctx context.Context, examID, studentName string) (int, error)
	Clear(ctx context.Context) error
}

// CredentialRepository reads and migrates the two identity tables.
type CredentialRepository interface {
	// FindTeacher and FindStudent return nil when the username is unknown.
	FindTeacher(ctx context.Context, username string) (*Credential, error)
	FindStudent(ctx context.Context, username string) (*Credential, error)

	// UpdatePassword rewrites only the password cell of the identity.
	UpdatePassword(ctx context.Context, role Role, username, password string) error

	// ListStudentClassIDs returns the raw classId cell of every student.
	ListStudentClassIDs(ctx context.Context) ([]string, error)
}

// BankRepository defines the interface for the question bank
type BankRepository interface {
	List(ctx context.Context) ([]*QuestionBankItem, error)
	FindByID(ctx context.Context, id string) (*QuestionBankItem, error)

	// Save upserts the authored columns. Analysis-owned columns of an existing
	// row are left as they are.
	Save(ctx context.Context, item *QuestionBankItem) error

	Delete(ctx context.Context, id string) (bool, error)

	// UpdateMetrics writes the analysis columns, increments usageCount and
	// stamps lastUsedAt. It reports whether the item exists.
	UpdateMetrics(ctx context.Context, id string, metrics BankMetrics) (bool, error)
}

// AnalysisRepository stores the append-only item analysis history.
type AnalysisRepository interface {
	Append(ctx context.Context, analysis *QuestionAnalysis) error
	List(ctx context.Context, filter AnalysisFilter) ([]QuestionAnalysis, error)
}

// ConfigRepository reads the key/value Config table.
type ConfigRepository interface {
	Get(ctx context.Context) (AppSettings, error)
}
