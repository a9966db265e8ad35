package domain

import "sort"

// Difficulty labels derived from the difficulty index P.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Discrimination labels derived from the discrimination index D.
const (
	DiscriminationVeryGood = "very good"
	DiscriminationGood     = "good"
	DiscriminationFair     = "fair"
	DiscriminationPoor     = "poor"
	DiscriminationVeryPoor = "very poor"
)

// Quality labels written to the bank when a flag overrides the discrimination label.
const (
	QualityDelete = "delete"
	QualityReview = "review"
)

// Distractor effectiveness labels.
const (
	DistractorKey            = "key"
	DistractorGood           = "good"
	DistractorWeak           = "weak"
	DistractorNonFunctioning = "non-functioning"
)

// DistractorStat describes how often one option was chosen.
type DistractorStat struct {
	OptionIndex           int     `json:"optionIndex"`
	OptionText            string  `json:"optionText"`
	SelectedCount         int     `json:"selectedCount"`
	SelectedPercentage    float64 `json:"selectedPercentage"`
	SelectedByTopGroup    int     `json:"selectedByTopGroup"`
	SelectedByBottomGroup int     `json:"selectedByBottomGroup"`
	Effectiveness         string  `json:"effectiveness"`
}

// QuestionAnalysis is one append-only analysis run for an (exam, question) pair.
type QuestionAnalysis struct {
	ID                    string           `json:"id"`
	QuestionID            string           `json:"questionId"`
	ExamID                string           `json:"examId"`
	ExamTitle             string           `json:"examTitle"`
	QuestionText          string           `json:"questionText"`
	QuestionType          QuestionType     `json:"questionType"`
	TotalAttempts         int              `json:"totalAttempts"`
	CorrectCount          int              `json:"correctCount"`
	IncorrectCount        int              `json:"incorrectCount"`
	DifficultyIndex       float64          `json:"difficultyIndex"`
	DifficultyLevel       string           `json:"difficultyLevel"`
	DiscriminationIndex   float64          `json:"discriminationIndex"`
	DiscriminationQuality string           `json:"discriminationQuality"`
	IsGoodQuestion        bool             `json:"isGoodQuestion"`
	ShouldBeReviewed      bool             `json:"shouldBeReviewed"`
	ShouldBeDeleted       bool             `json:"shouldBeDeleted"`
	DistractorAnalysis    []DistractorStat `json:"distractorAnalysis"`
	AnalyzedAt            string           `json:"analyzedAt"`
}

// QualityLabel collapses the flags into the single label stored on the bank
// item: delete wins over review, which wins over the discrimination label.
func (a *QuestionAnalysis) QualityLabel() string {
	switch {
	case a.ShouldBeDeleted:
		return QualityDelete
	case a.ShouldBeReviewed:
		return QualityReview
	default:
		return a.DiscriminationQuality
	}
}

// AnalysisReport summarizes one AnalyzeExam run.
type AnalysisReport struct {
	ExamID          string             `json:"examId"`
	ExamTitle       string             `json:"examTitle"`
	TotalQuestions  int                `json:"totalQuestions"`
	TotalStudents   int                `json:"totalStudents"`
	GoodQuestions   int                `json:"goodQuestions"`
	ReviewNeeded    int                `json:"reviewNeeded"`
	ShouldDelete    int                `json:"shouldDelete"`
	AnalysisResults []QuestionAnalysis `json:"analysisResults"`
	AnalyzedAt      string             `json:"analyzedAt"`
}

// AnalysisFilter selects analysis history. Empty fields match everything.
type AnalysisFilter struct {
	ExamID     string
	QuestionID string
	LatestOnly bool
}

// Matches reports whether a record passes both filters.
func (f AnalysisFilter) Matches(a *QuestionAnalysis) bool {
	if f.ExamID != "" && a.ExamID != f.ExamID {
		return false
	}
	if f.QuestionID != "" && a.QuestionID != f.QuestionID {
		return false
	}
	return true
}

// LatestAnalyses keeps the most recent record per (exam, question), ordered
// by first appearance. analyzedAt values are RFC3339 and compare as strings.
func LatestAnalyses(list []QuestionAnalysis) []QuestionAnalysis {
	type key struct{ exam, question string }
	index := make(map[key]int)
	var out []QuestionAnalysis
	for _, a := range list {
		k := key{a.ExamID, a.QuestionID}
		if i, ok := index[k]; ok {
			if a.AnalyzedAt >= out[i].AnalyzedAt {
				out[i] = a
			}
			continue
		}
		index[k] = len(out)
		out = append(out, a)
	}
	return out
}

// SortAnalysesByTime orders records oldest first.
func SortAnalysesByTime(list []QuestionAnalysis) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].AnalyzedAt < list[j].AnalyzedAt
	})
}
