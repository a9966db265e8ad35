package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	MinScore      = 0
	MaxScore      = 100
	MaxViolations = 100
)

// AnswerValue is a single answer. Scalars are kept as their text form and
// structured answers (arrays, objects) as compact JSON text, so every
// question type shares one representation.
type AnswerValue string

// UnmarshalJSON accepts any JSON value.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AnswerValue(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*a = AnswerValue(buf.String())
	return nil
}

// Answers maps question id to the student's answer.
type Answers map[string]AnswerValue

// Attempt is one submitted exam. Its identity is (ExamID, folded StudentName).
type Attempt struct {
	ExamID         string  `json:"examId"`
	ExamTitle      string  `json:"examTitle"`
	StudentName    string  `json:"studentName"`
	Answers        Answers `json:"answers"`
	Score          float64 `json:"score"`
	IsSubmitted    bool    `json:"isSubmitted"`
	SubmittedAt    string  `json:"submittedAt"`
	ViolationCount int     `json:"violationCount"`
}

// ProgressStatus is the live state of a student inside an exam.
type ProgressStatus string

const (
	ProgressWorking   ProgressStatus = "WORKING"
	ProgressSubmitted ProgressStatus = "SUBMITTED"
	ProgressIdle      ProgressStatus = "IDLE"
)

// LiveProgress is the heartbeat record of an in-progress exam.
type LiveProgress struct {
	ExamID         string         `json:"examId"`
	StudentName    string         `json:"studentName"`
	AnsweredCount  int            `json:"answeredCount"`
	TotalQuestions int            `json:"totalQuestions"`
	LastActive     string         `json:"lastActive"`
	Status         ProgressStatus `json:"status"`
	ViolationCount int            `json:"violationCount"`
}

// SameStudent compares student names the way attempt identity does.
func SameStudent(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ClampViolations bounds a violation counter to [0, MaxViolations].
func ClampViolations(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxViolations {
		return MaxViolations
	}
	return n
}
