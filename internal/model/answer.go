package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// AnswerValue is a submitted answer: either a single token or a set of tokens.
// On the wire a single answer is a JSON string or number, a set is an array.
type AnswerValue struct {
	values []string
	multi  bool
}

func SingleAnswer(v string) AnswerValue {
	return AnswerValue{values: []string{v}}
}

func MultiAnswer(vs ...string) AnswerValue {
	return AnswerValue{values: append([]string(nil), vs...), multi: true}
}

// Values returns the raw tokens, in the order they were submitted.
func (v AnswerValue) Values() []string {
	return v.values
}

func (v AnswerValue) IsMulti() bool {
	return v.multi
}

func (v AnswerValue) IsEmpty() bool {
	for _, s := range v.values {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

func (v AnswerValue) String() string {
	return strings.Join(v.values, ", ")
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.multi {
		if v.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.values)
	}
	if len(v.values) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(v.values[0])
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := AnswerValue{values: make([]string, 0, len(raw)), multi: true}
		for _, r := range raw {
			s, err := scalarToken(r)
			if err != nil {
				return err
			}
			out.values = append(out.values, s)
		}
		*v = out
		return nil
	}
	s, err := scalarToken(data)
	if err != nil {
		return err
	}
	*v = SingleAnswer(s)
	return nil
}

var errAnswerShape = errors.New("answer must be a string, number, boolean or an array of them")

// scalarToken accepts strings, numbers (option indexes sent by older clients)
// and booleans (true/false questions).
func scalarToken(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errAnswerShape
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		if b {
			return "true", nil
		}
		return "false", nil
	case '{', '[', 'n':
		return "", errAnswerShape
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", errAnswerShape
		}
		return n.String(), nil
	}
}

// AttemptAnswer is one entry of an attempt's answer sheet. IsCorrect and
// MarksAwarded are filled by scoring; essay answers leave IsCorrect unset.
type AttemptAnswer struct {
	QuestionNumber int         `json:"questionNumber"`
	Answer         AnswerValue `json:"answer"`
	IsCorrect      *bool       `json:"isCorrect,omitempty"`
	MarksAwarded   *float64    `json:"marksAwarded,omitempty"`
}
