package service

import (
	"time"

	"testhub_backend/internal/model"
)

// AttemptSummary is the score card of one attempt. Score fields stay empty
// while results are not viewable.
type AttemptSummary struct {
	AttemptID     string              `json:"attemptId"`
	AttemptNumber int                 `json:"attemptNumber"`
	Status        model.AttemptStatus `json:"status"`
	StartedAt     time.Time           `json:"startedAt"`
	SubmittedAt   *time.Time          `json:"submittedAt,omitempty"`
	TimeSpent     int                 `json:"timeSpent"`
	TotalScore    *float64            `json:"totalScore,omitempty"`
	TotalMarks    float64             `json:"totalMarks"`
	Percentage    *float64            `json:"percentage,omitempty"`
	Passed        *bool               `json:"passed,omitempty"`
	ResultsReady  bool                `json:"resultsReady"`
}

// AnswerReview is one graded answer with its answer key.
type AnswerReview struct {
	QuestionNumber  int                `json:"questionNumber"`
	QuestionText    string             `json:"questionText"`
	QuestionType    model.QuestionType `json:"questionType,omitempty"`
	Answer          model.AnswerValue  `json:"answer"`
	SelectedOptions []string           `json:"selectedOptions"`
	CorrectOptions  []string           `json:"correctOptions,omitempty"`
	IsCorrect       *bool              `json:"isCorrect,omitempty"`
	MarksAwarded    float64            `json:"marksAwarded"`
	Marks           float64            `json:"marks"`
	Explanation     string             `json:"explanation,omitempty"`
}

type ResultView struct {
	AttemptSummary
	TestID    string         `json:"testId"`
	TestTitle string         `json:"testTitle"`
	Answers   []AnswerReview `json:"answers,omitempty"`
}

func summarize(test *model.Test, a *model.Attempt) AttemptSummary {
	s := AttemptSummary{
		AttemptID:     a.ID,
		AttemptNumber: a.AttemptNumber,
		Status:        a.Status,
		StartedAt:     a.StartedAt,
		SubmittedAt:   a.SubmittedAt,
		TimeSpent:     a.TimeSpent,
		TotalMarks:    test.TotalMarks,
		ResultsReady:  CanViewResults(test, a),
	}
	if s.ResultsReady && a.Status.Scored() {
		s.TotalScore = float64Ptr(a.Score())
		s.Percentage = float64Ptr(a.PercentageValue())
		s.Passed = boolPtr(Passed(a, test.PassingMarks))
	}
	return s
}

// BuildResultView shapes a viewable attempt. The answer review is included
// only for auto-scored tests that reveal correct answers; correctness is
// re-derived with the scoring normalization so every answer encoding
// is judged the same way.
func BuildResultView(test *model.Test, a *model.Attempt) *ResultView {
	view := &ResultView{
		AttemptSummary: summarize(test, a),
		TestID:         test.ID,
		TestTitle:      test.Title,
	}
	if !test.ShowCorrectAnswers || !test.Type.AutoScored() {
		return view
	}

	byNumber := make(map[int]*model.Question, len(test.Questions))
	for i := range test.Questions {
		byNumber[test.Questions[i].QuestionNumber] = &test.Questions[i]
	}

	seen := make(map[int]bool, len(a.Answers))
	view.Answers = make([]AnswerReview, 0, len(a.Answers))
	for _, ans := range a.Answers {
		review := AnswerReview{
			QuestionNumber:  ans.QuestionNumber,
			Answer:          ans.Answer,
			SelectedOptions: ans.Answer.Values(),
		}
		q, ok := byNumber[ans.QuestionNumber]
		if !ok || seen[ans.QuestionNumber] {
			review.IsCorrect = boolPtr(false)
			view.Answers = append(view.Answers, review)
			continue
		}
		seen[ans.QuestionNumber] = true

		review.QuestionText = q.QuestionText
		review.QuestionType = q.QuestionType
		review.Marks = q.Marks
		review.Explanation = q.Explanation
		review.SelectedOptions = selectedOptions(q, ans.Answer.Values())
		review.CorrectOptions = correctOptions(q)
		if correct, judged := judge(q, ans.Answer); judged {
			review.IsCorrect = boolPtr(correct)
			if correct {
				review.MarksAwarded = q.Marks
			}
		}
		if ans.MarksAwarded != nil {
			review.MarksAwarded = *ans.MarksAwarded
		}
		view.Answers = append(view.Answers, review)
	}
	return view
}
