package service

import (
	"sort"
	"strconv"
	"strings"

	"testhub_backend/internal/model"
)

// optionIndex resolves one answer token against a question's options.
// Accepted encodings, in order: a 0-based index ("1"), a letter ("B" or "b"),
// or the option text itself (case-insensitive). An integer outside the option
// range is still tried as text, so numeric options like "4" resolve.
func optionIndex(token string, options []string) (int, bool) {
	t := strings.TrimSpace(token)
	if t == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(t); err == nil {
		if n >= 0 && n < len(options) {
			return n, true
		}
	} else if len(t) == 1 {
		c := t[0] | 0x20
		if c >= 'a' && c <= 'z' {
			n := int(c - 'a')
			if n < len(options) {
				return n, true
			}
			return 0, false
		}
	}
	for i, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), t) {
			return i, true
		}
	}
	return 0, false
}

// canonicalToken is the comparison form of a token. Choice tokens that
// resolve to an option become "#<index>"; anything else compares as its
// trimmed text, lower-cased for choice questions.
func canonicalToken(q *model.Question, token string) string {
	if q.QuestionType.Choice() {
		if i, ok := optionIndex(token, q.OptionList()); ok {
			return "#" + strconv.Itoa(i)
		}
		return strings.ToLower(strings.TrimSpace(token))
	}
	return strings.TrimSpace(token)
}

// canonicalSet turns tokens into a sorted, de-duplicated canonical set.
func canonicalSet(q *model.Question, tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		c := canonicalToken(q, tok)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// answerKey returns the canonical key of q.
func answerKey(q *model.Question) []string {
	if q.MultiCorrect() {
		return canonicalSet(q, q.CorrectAnswers)
	}
	return canonicalSet(q, []string{q.CorrectAnswer})
}

// judge reports whether answer is correct for q. Essay answers are never
// judged, so ok is false for them.
func judge(q *model.Question, answer model.AnswerValue) (correct bool, ok bool) {
	if q.QuestionType == model.QuestionEssay {
		return false, false
	}
	key := answerKey(q)
	given := canonicalSet(q, answer.Values())
	if len(key) == 0 || len(given) == 0 {
		return false, true
	}

	if q.MultiCorrect() {
		// 多选题：单个答案属于答案集合即正确，多个答案必须与集合完全一致
		if !answer.IsMulti() && len(given) == 1 {
			return containsString(key, given[0]), true
		}
		return equalStrings(key, given), true
	}
	return len(given) == 1 && given[0] == key[0], true
}

// selectedOptions maps tokens to option texts for display. Tokens that do
// not resolve to an option are returned as submitted.
func selectedOptions(q *model.Question, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	opts := q.OptionList()
	for _, tok := range tokens {
		if q.QuestionType.Choice() {
			if i, ok := optionIndex(tok, opts); ok {
				out = append(out, opts[i])
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

// correctOptions returns the display form of q's key.
func correctOptions(q *model.Question) []string {
	if q.MultiCorrect() {
		return selectedOptions(q, q.CorrectAnswers)
	}
	if q.CorrectAnswer == "" {
		return nil
	}
	return selectedOptions(q, []string{q.CorrectAnswer})
}

func containsString(set []string, s string) bool {
	i := sort.SearchStrings(set, s)
	return i < len(set) && set[i] == s
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
