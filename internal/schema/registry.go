package schema

import (
	"fmt"
	"strings"

	"exam-room/internal/util"
)

// Table names.
const (
	TableExams            = "Exams"
	TableAttempts         = "Attempts"
	TableLiveProgress     = "LiveProgress"
	TableUsers            = "Users"
	TableStudents         = "Students"
	TableConfig           = "Config"
	TableQuestionBank     = "QuestionBank"
	TableQuestionAnalysis = "QuestionAnalysis"
)

// Kind is the logical type of a column. It decides the default written when
// a record omits the column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
	KindJSON
)

// Default returns the cell written for a missing value of this kind.
func (k Kind) Default() string {
	switch k {
	case KindNumber:
		return "0"
	case KindBool:
		return "FALSE"
	default:
		return ""
	}
}

// MatchPolicy decides how an identity column compares a stored cell with a
// lookup value.
type MatchPolicy int

const (
	// MatchExact compares raw strings.
	MatchExact MatchPolicy = iota
	// MatchTrimmed compares after trimming surrounding whitespace.
	MatchTrimmed
	// MatchFold compares trimmed values case-insensitively.
	MatchFold
)

// Equal reports whether stored and want are the same identity value.
func (p MatchPolicy) Equal(stored, want string) bool {
	switch p {
	case MatchTrimmed:
		return strings.TrimSpace(stored) == strings.TrimSpace(want)
	case MatchFold:
		return strings.EqualFold(strings.TrimSpace(stored), strings.TrimSpace(want))
	default:
		return stored == want
	}
}

// Column is one canonical column.
type Column struct {
	Name string
	Kind Kind
	// Derived columns are owned by a background computation and survive an
	// upsert of the authored fields.
	Derived bool
}

// IdentityKey is one column of a table's identity.
type IdentityKey struct {
	Column string
	Match  MatchPolicy
}

// Table describes a named table: its canonical header, identity and seed rows.
type Table struct {
	Name     string
	Columns  []Column
	Identity []IdentityKey
	// Seed returns rows in canonical column order, written when the table is created empty.
	Seed func() [][]string
}

// Header returns the canonical column names in order.
func (t *Table) Header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a canonical column by exact name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// AppendOnly reports whether the table has no identity and only ever grows.
func (t *Table) AppendOnly() bool {
	return len(t.Identity) == 0
}

// Registry holds every known table in registration order.
type Registry struct {
	tables []*Table
	byName map[string]*Table
}

// NewRegistry builds a registry. Duplicate names panic since they are a
// programming error.
func NewRegistry(tables ...*Table) *Registry {
	r := &Registry{byName: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if _, dup := r.byName[t.Name]; dup {
			panic(fmt.Sprintf("schema: duplicate table %q", t.Name))
		}
		r.tables = append(r.tables, t)
		r.byName[t.Name] = t
	}
	return r
}

// Table returns the named table.
func (r *Registry) Table(name string) (*Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// MustTable returns the named table or panics.
func (r *Registry) MustTable(name string) *Table {
	t, ok := r.byName[name]
	if !ok {
		panic(fmt.Sprintf("schema: unknown table %q", name))
	}
	return t
}

// Tables returns all tables in registration order.
func (r *Registry) Tables() []*Table {
	return r.tables
}

func text(name string) Column    { return Column{Name: name, Kind: KindText} }
func number(name string) Column  { return Column{Name: name, Kind: KindNumber} }
func boolean(name string) Column { return Column{Name: name, Kind: KindBool} }
func jsonCol(name string) Column { return Column{Name: name, Kind: KindJSON} }

func derived(c Column) Column {
	c.Derived = true
	return c
}

// Default credentials written into freshly created identity tables.
const (
	DefaultTeacherUsername = "admin"
	DefaultTeacherPassword = "admin123"
	DefaultStudentUsername = "siswa1"
	DefaultStudentPassword = "siswa123"
)

// DefaultRegistry returns the tables of the exam platform.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&Table{
			Name: TableExams,
			Columns: []Column{
				text("id"), text("title"), text("subject"), text("classGrade"), text("date"),
				text("startTime"), text("endTime"), number("durationMinutes"), text("token"),
				text("status"), jsonCol("questions"), boolean("areResultsPublished"),
				boolean("randomizeQuestions"), boolean("randomizeOptions"),
			},
			Identity: []IdentityKey{{Column: "id", Match: MatchExact}},
		},
		&Table{
			Name: TableAttempts,
			Columns: []Column{
				text("examId"), text("examTitle"), text("studentName"), jsonCol("answers"),
				number("score"), text("submittedAt"), number("violationCount"),
			},
			Identity: []IdentityKey{
				{Column: "examId", Match: MatchExact},
				{Column: "studentName", Match: MatchFold},
			},
		},
		&Table{
			Name: TableLiveProgress,
			Columns: []Column{
				text("examId"), text("studentName"), number("answeredCount"), number("totalQuestions"),
				text("lastActive"), text("status"), number("violationCount"),
			},
			Identity: []IdentityKey{
				{Column: "examId", Match: MatchExact},
				{Column: "studentName", Match: MatchFold},
			},
		},
		&Table{
			Name:     TableUsers,
			Columns:  []Column{text("username"), text("password"), text("name"), text("role")},
			Identity: []IdentityKey{{Column: "username", Match: MatchTrimmed}},
			Seed: func() [][]string {
				return [][]string{{DefaultTeacherUsername, util.HashPassword(DefaultTeacherPassword), "Administrator", "teacher"}}
			},
		},
		&Table{
			Name:     TableStudents,
			Columns:  []Column{text("username"), text("password"), text("name"), text("classId")},
			Identity: []IdentityKey{{Column: "username", Match: MatchTrimmed}},
			Seed: func() [][]string {
				return [][]string{{DefaultStudentUsername, util.HashPassword(DefaultStudentPassword), "Budi Santoso", "VIII A"}}
			},
		},
		&Table{
			Name:     TableConfig,
			Columns:  []Column{text("key"), text("value")},
			Identity: []IdentityKey{{Column: "key", Match: MatchFold}},
			Seed: func() [][]string {
				return [][]string{
					{"appName", "TKA SDNUP03"},
					{"schoolName", "SDN Utan Panjang 03"},
				}
			},
		},
		&Table{
			Name: TableQuestionBank,
			Columns: []Column{
				text("id"), text("text"), text("type"), text("subject"), text("difficulty"), text("tags"),
				text("imageUrl"), text("passage"), jsonCol("options"), jsonCol("matchingPairs"),
				jsonCol("statements"), jsonCol("sequenceItems"), jsonCol("correctSequence"),
				jsonCol("classificationItems"), jsonCol("categories"), jsonCol("classificationMapping"),
				text("correctKey"), text("createdAt"), text("createdBy"),
				derived(number("usageCount")), derived(text("lastUsedAt")),
				derived(text("difficultyIndex")), derived(text("discriminationIndex")),
				derived(text("qualityStatus")), derived(text("lastAnalyzed")),
			},
			Identity: []IdentityKey{{Column: "id", Match: MatchExact}},
		},
		&Table{
			Name: TableQuestionAnalysis,
			Columns: []Column{
				text("id"), text("questionId"), text("examId"), text("examTitle"), text("questionText"),
				text("questionType"), number("totalAttempts"), number("correctCount"), number("incorrectCount"),
				number("difficultyIndex"), text("difficultyLevel"), number("discriminationIndex"),
				text("discriminationQuality"), boolean("isGoodQuestion"), boolean("shouldBeReviewed"),
				boolean("shouldBeDeleted"), jsonCol("distractorAnalysis"), text("analyzedAt"),
			},
		},
	)
}
