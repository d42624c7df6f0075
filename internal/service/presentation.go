package service

import (
	"hash/fnv"
	"math/rand/v2"
	"time"

	"testhub_backend/internal/model"
)

// StudentOption keeps the option's original letter and index so a shuffled
// display still submits position-independent answers.
type StudentOption struct {
	Key   string `json:"key"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// StudentQuestion is a question without its answer key.
type StudentQuestion struct {
	QuestionNumber int                `json:"questionNumber"`
	QuestionText   string             `json:"questionText"`
	QuestionType   model.QuestionType `json:"questionType"`
	Options        []StudentOption    `json:"options,omitempty"`
	MultiSelect    bool               `json:"multiSelect"`
	Marks          float64            `json:"marks"`
	Difficulty     string             `json:"difficulty,omitempty"`
}

type StudentTestView struct {
	ID                     string          `json:"id"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Type                   model.TestType  `json:"type"`
	Duration               int             `json:"duration"`
	StartTime              *time.Time      `json:"startTime,omitempty"`
	EndTime                *time.Time      `json:"endTime,omitempty"`
	TotalQuestions         int             `json:"totalQuestions"`
	TotalMarks             float64         `json:"totalMarks"`
	PassingMarks           *float64        `json:"passingMarks,omitempty"`
	AllowMultipleAttempts  bool            `json:"allowMultipleAttempts"`
	MaxAttempts            *int            `json:"maxAttempts,omitempty"`
	AttemptsUsed           int             `json:"attemptsUsed"`
	ShowResultsImmediately bool            `json:"showResultsImmediately"`
	CurrentAttempt         *AttemptSummary `json:"currentAttempt,omitempty"`
	// 仅在有进行中的答题时返回题目
	Questions []StudentQuestion `json:"questions,omitempty"`
}

// BuildStudentView renders a test for a student with the given attempts.
// Questions are only listed while an attempt is in progress, in an order
// seeded by that attempt so a resume shows the same layout.
func BuildStudentView(test *model.Test, attempts []model.Attempt) *StudentTestView {
	view := &StudentTestView{
		ID:                     test.ID,
		Title:                  test.Title,
		Description:            test.Description,
		Type:                   test.Type,
		Duration:               test.Duration,
		StartTime:              test.StartTime,
		EndTime:                test.EndTime,
		TotalQuestions:         test.TotalQuestions,
		TotalMarks:             test.TotalMarks,
		PassingMarks:           test.PassingMarks,
		AllowMultipleAttempts:  test.AllowMultipleAttempts,
		MaxAttempts:            test.MaxAttempts,
		AttemptsUsed:           len(attempts),
		ShowResultsImmediately: test.ShowResultsImmediately,
	}

	active := activeAttempt(attempts)
	if active == nil {
		if n := len(attempts); n > 0 {
			last := summarize(test, &attempts[n-1])
			view.CurrentAttempt = &last
		}
		return view
	}
	current := summarize(test, active)
	view.CurrentAttempt = &current

	order := identity(len(test.Questions))
	if test.ShuffleQuestions {
		order = permutation(len(test.Questions), active.ID, "questions")
	}
	view.Questions = make([]StudentQuestion, 0, len(order))
	for _, i := range order {
		q := &test.Questions[i]
		view.Questions = append(view.Questions, StudentQuestion{
			QuestionNumber: q.QuestionNumber,
			QuestionText:   q.QuestionText,
			QuestionType:   q.QuestionType,
			Options:        studentOptions(q, test.ShuffleOptions, active.ID),
			MultiSelect:    q.MultiCorrect(),
			Marks:          q.Marks,
			Difficulty:     q.Difficulty,
		})
	}
	return view
}

func studentOptions(q *model.Question, shuffle bool, seed string) []StudentOption {
	opts := q.OptionList()
	if len(opts) == 0 {
		return nil
	}
	order := identity(len(opts))
	if shuffle {
		order = permutation(len(opts), seed, "options", q.QuestionNumber)
	}
	out := make([]StudentOption, 0, len(opts))
	for _, i := range order {
		out = append(out, StudentOption{Key: optionLetter(i), Index: i, Text: opts[i]})
	}
	return out
}

func optionLetter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return ""
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// permutation is a deterministic shuffle of [0, n) for the given seed parts.
func permutation(n int, seed string, scope string, extra ...int) []int {
	h := fnv.New64a()
	h.Write([]byte(seed))
	h.Write([]byte{0})
	h.Write([]byte(scope))
	for _, e := range extra {
		h.Write([]byte{byte(e), byte(e >> 8), byte(e >> 16), byte(e >> 24)})
	}
	sum := h.Sum64()
	r := rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))
	return r.Perm(n)
}
