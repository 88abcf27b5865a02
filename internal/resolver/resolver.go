// Package resolver answers free-text questions from a knowledge base.
//
// Lookup tries an exact match first, then a case-insensitive substring match in
// either direction against every known question of the selected subject. The
// first fuzzy hit in the bank's authored order wins; there is no scoring.
package resolver

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-ask/internal/knowledge"
)

// Kind describes how a question was resolved.
type Kind int

const (
	// NoSubject means no subject was selected; nothing was looked up.
	NoSubject Kind = iota
	Exact
	Fuzzy
	// NeedsFallback means no local answer exists and the caller should search online.
	NeedsFallback
)

func (k Kind) String() string {
	switch k {
	case NoSubject:
		return "no_subject"
	case Exact:
		return "exact"
	case Fuzzy:
		return "fuzzy"
	case NeedsFallback:
		return "needs_fallback"
	default:
		return "unknown"
	}
}

// Result is the outcome of Resolve. Question is the matched known question.
type Result struct {
	Kind     Kind
	Question string
	Answer   string
}

// Found reports whether a local answer was returned.
func (r Result) Found() bool {
	return r.Kind == Exact || r.Kind == Fuzzy
}

// Resolve looks question up in the bank for subject.
func Resolve(base *knowledge.Base, subject knowledge.SubjectID, question string) Result {
	if !subject.IsSet() {
		return Result{Kind: NoSubject}
	}
	bank, ok := base.Bank(subject)
	if !ok {
		return Result{Kind: NeedsFallback}
	}

	if answer, ok := bank.Lookup(question); ok {
		return Result{Kind: Exact, Question: question, Answer: answer}
	}

	lower := cases.Lower(language.Und)
	input := lower.String(question)
	for i := range bank.Len() {
		e := bank.At(i)
		known := lower.String(e.Question)
		if strings.Contains(known, input) || strings.Contains(input, known) {
			return Result{Kind: Fuzzy, Question: e.Question, Answer: e.Answer}
		}
	}

	return Result{Kind: NeedsFallback}
}

// PickRandom returns a question from subject's bank chosen by intn, which must
// return a value in [0, n) like math/rand/v2.IntN. It returns false when no
// subject is selected or the bank is empty.
func PickRandom(base *knowledge.Base, subject knowledge.SubjectID, intn func(n int) int) (string, bool) {
	if !subject.IsSet() {
		return "", false
	}
	bank, ok := base.Bank(subject)
	if !ok || bank.Len() == 0 {
		return "", false
	}
	return bank.At(intn(bank.Len())).Question, true
}
