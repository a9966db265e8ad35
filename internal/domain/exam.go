package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// ExamStatus is the lifecycle state of an exam.
type ExamStatus string

const (
	ExamStatusDraft  ExamStatus = "DRAFT"
	ExamStatusOpen   ExamStatus = "OPEN"
	ExamStatusClosed ExamStatus = "CLOSED"
)

// ParseExamStatus normalizes stored status values, including the localized
// names written by older clients. Unknown values fall back to DRAFT.
func ParseExamStatus(s string) ExamStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OPEN", "DIBUKA":
		return ExamStatusOpen
	case "CLOSED", "DITUTUP":
		return ExamStatusClosed
	default:
		return ExamStatusDraft
	}
}

// QuestionType keys the Question tagged union. The values are the identifiers
// stored in existing exam data.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "PILIHAN_GANDA"
	QuestionMultipleChoice QuestionType = "PILIHAN_GANDA_KOMPLEKS"
	QuestionShortAnswer    QuestionType = "ISIAN_SINGKAT"
	QuestionEssay          QuestionType = "URAIAN"
	QuestionTrueFalse      QuestionType = "BENAR_SALAH"
	QuestionMatching       QuestionType = "MENJODOHKAN"
	QuestionTrueFalseTable QuestionType = "BENAR_SALAH_TABEL"
	QuestionSequencing     QuestionType = "SEQUENCING"
	QuestionClassification QuestionType = "CLASSIFICATION"
)

// GradingMode describes how an answer to a question type is compared with its key.
type GradingMode int

const (
	// GradeFolded compares trimmed, lower-cased single values.
	GradeFolded GradingMode = iota
	// GradeSet compares both sides as unordered sets of equal length.
	GradeSet
	// GradeExact compares the raw strings.
	GradeExact
)

// GradingMode returns the comparison used for the type.
func (t QuestionType) GradingMode() GradingMode {
	switch t {
	case QuestionSingleChoice, QuestionTrueFalse, QuestionShortAnswer:
		return GradeFolded
	case QuestionMultipleChoice:
		return GradeSet
	case QuestionEssay, QuestionMatching, QuestionTrueFalseTable, QuestionSequencing, QuestionClassification:
		return GradeExact
	default:
		return GradeExact
	}
}

// HasDistractors reports whether the type is single-best-answer with options.
func (t QuestionType) HasDistractors() bool {
	return t == QuestionSingleChoice
}

// Choice is an option, sequence item or classification item. Older data
// stores it as a bare string, newer data as {text, imageUrl}.
type Choice struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (c *Choice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Choice{Text: s}
		return nil
	}
	type plain Choice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Choice(p)
	return nil
}

// MatchingPair is one row of a matching question.
type MatchingPair struct {
	Left          string `json:"left"`
	Right         string `json:"right"`
	LeftImageURL  string `json:"leftImageUrl,omitempty"`
	RightImageURL string `json:"rightImageUrl,omitempty"`
}

// Statement is one row of a true/false table question.
type Statement struct {
	Text          string `json:"text"`
	CorrectAnswer string `json:"correctAnswer"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// Question is a tagged union keyed by Type. Only the fields of the matching
// variant are meaningful.
type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	ImageURL string       `json:"imageUrl,omitempty"`
	Passage  string       `json:"passage,omitempty"`

	Options               []Choice       `json:"options,omitempty"`
	MatchingPairs         []MatchingPair `json:"matchingPairs,omitempty"`
	Statements            []Statement    `json:"statements,omitempty"`
	SequenceItems         []Choice       `json:"sequenceItems,omitempty"`
	CorrectSequence       []int          `json:"correctSequence,omitempty"`
	ClassificationItems   []Choice       `json:"classificationItems,omitempty"`
	Categories            []string       `json:"categories,omitempty"`
	ClassificationMapping map[string]int `json:"classificationMapping,omitempty"`

	CorrectKey string `json:"correctKey,omitempty"`
}

// IsCorrect grades a single answer against the question key.
func (q *Question) IsCorrect(answer AnswerValue) bool {
	given := string(answer)
	if given == "" || q.CorrectKey == "" {
		return false
	}

	switch q.Type.GradingMode() {
	case GradeFolded:
		return foldValue(given) == foldValue(q.CorrectKey)
	case GradeSet:
		return sameSet(q.CorrectKey, given)
	default:
		return given == q.CorrectKey
	}
}

func foldValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// sameSet compares two JSON arrays as unordered sets of equal length.
func sameSet(key, given string) bool {
	want, ok := parseStringList(key)
	if !ok {
		return false
	}
	got, ok := parseStringList(given)
	if !ok {
		return false
	}
	if len(want) != len(got) {
		return false
	}
	sort.Strings(want)
	sort.Strings(got)
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

// parseStringList parses a JSON array whose elements may be strings or numbers.
func parseStringList(s string) ([]string, bool) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var str string
		if err := json.Unmarshal(r, &str); err == nil {
			out = append(out, str)
			continue
		}
		out = append(out, string(bytes.TrimSpace(r)))
	}
	return out, true
}

// Exam is a scheduled test with its ordered question list.
type Exam struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Subject             string     `json:"subject"`
	ClassGrade          string     `json:"classGrade"`
	Date                string     `json:"date"`
	StartTime           string     `json:"startTime"`
	EndTime             string     `json:"endTime"`
	DurationMinutes     int        `json:"durationMinutes"`
	Token               string     `json:"token"`
	Status              ExamStatus `json:"status"`
	Questions           []Question `json:"questions"`
	AreResultsPublished bool       `json:"areResultsPublished"`
	RandomizeQuestions  bool       `json:"randomizeQuestions"`
	RandomizeOptions    bool       `json:"randomizeOptions"`
}

// Classes splits the comma-joined class list.
func (e *Exam) Classes() []string {
	var out []string
	for _, c := range strings.Split(e.ClassGrade, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
