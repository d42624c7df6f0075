package service

import (
	"math"

	"testhub_backend/internal/model"
)

// ScoreResult is the outcome of scoring one answer sheet.
type ScoreResult struct {
	Answers    []model.AttemptAnswer
	TotalScore float64
	TotalMarks float64
	Percentage float64
}

// ScoreAnswers scores answers against the question bank. Answers are matched
// by question number only, so question order is irrelevant. An answer to an
// unknown question, or a repeat answer to an already answered question,
// scores zero. Negative marking is not applied.
func ScoreAnswers(questions []model.Question, answers []model.AttemptAnswer) ScoreResult {
	byNumber := make(map[int]*model.Question, len(questions))
	totalMarks := 0.0
	for i := range questions {
		byNumber[questions[i].QuestionNumber] = &questions[i]
		totalMarks += questions[i].Marks
	}

	res := ScoreResult{
		Answers:    make([]model.AttemptAnswer, 0, len(answers)),
		TotalMarks: round2(totalMarks),
	}
	answered := make(map[int]bool, len(answers))
	for _, a := range answers {
		scored := model.AttemptAnswer{QuestionNumber: a.QuestionNumber, Answer: a.Answer}
		awarded := 0.0

		q, found := byNumber[a.QuestionNumber]
		switch {
		case !found || answered[a.QuestionNumber]:
			scored.IsCorrect = boolPtr(false)
		default:
			answered[a.QuestionNumber] = true
			if correct, judged := judge(q, a.Answer); judged {
				scored.IsCorrect = boolPtr(correct)
				if correct {
					awarded = q.Marks
				}
			}
		}

		scored.MarksAwarded = float64Ptr(awarded)
		res.TotalScore += awarded
		res.Answers = append(res.Answers, scored)
	}

	res.TotalScore = round2(res.TotalScore)
	res.Percentage = percentage(res.TotalScore, totalMarks)
	return res
}

// percentage is 0 when there is nothing to score against.
func percentage(score, totalMarks float64) float64 {
	if totalMarks <= 0 {
		return 0
	}
	return round2(score / totalMarks * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func boolPtr(b bool) *bool {
	return &b
}

func float64Ptr(f float64) *float64 {
	return &f
}
