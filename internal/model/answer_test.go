package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerValueAcceptsClientEncodings(t *testing.T) {
	var sheet []AttemptAnswer
	payload := `[
		{"questionNumber":1,"answer":"B"},
		{"questionNumber":2,"answer":1},
		{"questionNumber":3,"answer":true},
		{"questionNumber":4,"answer":["A","C"]},
		{"questionNumber":5,"answer":null}
	]`
	require.NoError(t, json.Unmarshal([]byte(payload), &sheet))
	require.Len(t, sheet, 5)

	assert.Equal(t, []string{"B"}, sheet[0].Answer.Values())
	assert.False(t, sheet[0].Answer.IsMulti())
	assert.Equal(t, []string{"1"}, sheet[1].Answer.Values())
	assert.Equal(t, []string{"true"}, sheet[2].Answer.Values())
	assert.Equal(t, []string{"A", "C"}, sheet[3].Answer.Values())
	assert.True(t, sheet[3].Answer.IsMulti())
	assert.True(t, sheet[4].Answer.IsEmpty())
}

func TestAnswerValueKeepsSetShape(t *testing.T) {
	data, err := json.Marshal(AttemptAnswer{QuestionNumber: 2, Answer: MultiAnswer("A")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"questionNumber":2,"answer":["A"]}`, string(data))

	var back AttemptAnswer
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Answer.IsMulti())
}

func TestAnswerValueRejectsObjects(t *testing.T) {
	var v AnswerValue
	assert.Error(t, json.Unmarshal([]byte(`{"selected":"A"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[{"x":1}]`), &v))
}
