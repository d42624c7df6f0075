package model

import (
	"time"

	"gorm.io/datatypes"
)

type TestType string

const (
	TestTypeMCQ        TestType = "mcq"
	TestTypeMixed      TestType = "mixed"
	TestTypePDF        TestType = "pdf"
	TestTypeSubjective TestType = "subjective"
)

// AutoScored reports whether submissions are scored by the engine.
// pdf and subjective tests wait for manual grading.
func (t TestType) AutoScored() bool {
	return t == TestTypeMCQ || t == TestTypeMixed
}

type TestStatus string

const (
	TestStatusDraft    TestStatus = "draft"
	TestStatusActive   TestStatus = "active"
	TestStatusClosed   TestStatus = "closed"
	TestStatusArchived TestStatus = "archived"
)

type TargetAudience string

const (
	AudienceAll      TargetAudience = "all"
	AudienceBatch    TargetAudience = "batch"
	AudienceSpecific TargetAudience = "specific"
)

// Test is the aggregate root: question bank, policy and the cached projection
// of its attempt ledger. The ledger itself lives in test_attempts.
// swagger:model Test
type Test struct {
	UUIDBase
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	CourseID  uint `gorm:"index;not null" json:"courseId"`
	SubjectID uint `gorm:"index" json:"subjectId"`
	ModuleID  uint `gorm:"index" json:"moduleId"`
	TeacherID uint `gorm:"index" json:"teacherId"`

	Type     TestType   `gorm:"size:20;not null" json:"type"`
	Status   TestStatus `gorm:"size:20;not null;index" json:"status"`
	IsActive bool       `gorm:"not null" json:"isActive"`

	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Duration  int        `gorm:"not null;default:0" json:"duration"` // Minutes

	AllowMultipleAttempts  bool     `gorm:"not null" json:"allowMultipleAttempts"`
	MaxAttempts            *int     `json:"maxAttempts,omitempty"`
	ShowResultsImmediately bool     `gorm:"not null" json:"showResultsImmediately"`
	ShowCorrectAnswers     bool     `gorm:"not null" json:"showCorrectAnswers"`
	ShuffleQuestions       bool     `gorm:"not null" json:"shuffleQuestions"`
	ShuffleOptions         bool     `gorm:"not null" json:"shuffleOptions"`
	PassingMarks           *float64 `json:"passingMarks,omitempty"`

	TargetAudience TargetAudience            `gorm:"size:20;not null" json:"targetAudience"`
	BatchIDs       datatypes.JSONSlice[uint] `json:"batchIds,omitempty"`
	StudentIDs     datatypes.JSONSlice[uint] `json:"studentIds,omitempty"`

	// 以下字段由答题记录推导，只在账本写入的同一事务中更新
	TotalQuestions int      `gorm:"not null;default:0" json:"totalQuestions"`
	TotalMarks     float64  `gorm:"not null;default:0" json:"totalMarks"`
	TotalAttempts  int      `gorm:"not null;default:0" json:"totalAttempts"`
	AvgScore       *float64 `json:"avgScore"`
	PassRate       *float64 `json:"passRate"`

	Version int `gorm:"not null;default:0" json:"-"`

	Questions []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`
}

func (Test) TableName() string {
	return "tests"
}

// Open reports whether students may interact with the test at all.
func (t *Test) Open() bool {
	return t.Status == TestStatusActive && t.IsActive
}

type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionTrueFalse   QuestionType = "true-false"
	QuestionShortAnswer QuestionType = "short-answer"
	QuestionEssay       QuestionType = "essay"
)

// Choice reports whether answers to this question select among options.
func (q QuestionType) Choice() bool {
	return q == QuestionMCQ || q == QuestionTrueFalse
}

var defaultTrueFalseOptions = []string{"True", "False"}

// Question is immutable once the test is published. QuestionNumber is the
// only key submitted answers refer to.
// swagger:model Question
type Question struct {
	UUIDBase
	TestID          string                      `gorm:"type:varchar(36);not null;uniqueIndex:idx_test_question_number,priority:1" json:"testId"`
	QuestionNumber  int                         `gorm:"not null;uniqueIndex:idx_test_question_number,priority:2" json:"questionNumber"`
	QuestionText    string                      `gorm:"type:text;not null" json:"questionText"`
	QuestionType    QuestionType                `gorm:"size:20;not null" json:"questionType"`
	Options         datatypes.JSONSlice[string] `json:"options,omitempty"`
	CorrectAnswer   string                      `gorm:"type:text" json:"correctAnswer,omitempty"`
	CorrectAnswers  datatypes.JSONSlice[string] `json:"correctAnswers,omitempty"`
	Marks           float64                     `gorm:"not null;default:0" json:"marks"`
	NegativeMarking float64                     `gorm:"not null;default:0" json:"negativeMarking"`
	Difficulty      string                      `gorm:"size:20" json:"difficulty,omitempty"`
	Explanation     string                      `gorm:"type:text" json:"explanation,omitempty"`
}

func (Question) TableName() string {
	return "test_questions"
}

// MultiCorrect reports whether the answer key is a set.
func (q *Question) MultiCorrect() bool {
	return len(q.CorrectAnswers) > 0
}

// OptionList returns the options a choice answer is resolved against.
// True/false questions stored without options fall back to True/False.
func (q *Question) OptionList() []string {
	if len(q.Options) == 0 && q.QuestionType == QuestionTrueFalse {
		return defaultTrueFalseOptions
	}
	return q.Options
}

// TestStats is the projection of a test's question bank and attempt ledger.
type TestStats struct {
	TotalQuestions int      `json:"totalQuestions"`
	TotalMarks     float64  `json:"totalMarks"`
	TotalAttempts  int      `json:"totalAttempts"`
	AvgScore       *float64 `json:"avgScore"`
	PassRate       *float64 `json:"passRate"`
}

// Apply copies the projection onto the test.
func (s TestStats) Apply(t *Test) {
	t.TotalQuestions = s.TotalQuestions
	t.TotalMarks = s.TotalMarks
	t.TotalAttempts = s.TotalAttempts
	t.AvgScore = s.AvgScore
	t.PassRate = s.PassRate
}
