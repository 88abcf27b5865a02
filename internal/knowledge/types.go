// Package knowledge holds the fixed question/answer banks the bot answers from.
package knowledge

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSubject is returned when a subject name is not one of the known subjects.
var ErrUnknownSubject = errors.New("unknown subject")

// SubjectID identifies a subject. The zero value means no subject is selected.
type SubjectID string

const (
	Science SubjectID = "science"
	Maths   SubjectID = "maths"
)

// AllSubjects returns every known subject in display order.
func AllSubjects() []SubjectID {
	return []SubjectID{Science, Maths}
}

// ParseSubject maps a subject name to its SubjectID, ignoring case and surrounding space.
func ParseSubject(name string) (SubjectID, error) {
	switch SubjectID(strings.ToLower(strings.TrimSpace(name))) {
	case Science:
		return Science, nil
	case Maths:
		return Maths, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSubject, name)
	}
}

// IsSet reports whether a subject has been selected.
func (s SubjectID) IsSet() bool {
	return s != ""
}

// Valid reports whether s is one of the known subjects.
func (s SubjectID) Valid() bool {
	return s == Science || s == Maths
}

// DisplayName returns the capitalised subject name shown to users.
func (s SubjectID) DisplayName() string {
	switch s {
	case Science:
		return "Science"
	case Maths:
		return "Maths"
	default:
		return string(s)
	}
}

// Entry is a single question and its answer.
type Entry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// QABank is an ordered set of questions and answers for one subject.
// Entry order is the authored order and is preserved everywhere.
type QABank struct {
	entries []Entry
	index   map[string]int
}

// NewQABank builds a bank from entries. Questions must be unique and non-empty.
func NewQABank(entries []Entry) (*QABank, error) {
	b := &QABank{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if strings.TrimSpace(e.Question) == "" {
			return nil, fmt.Errorf("entry %d: question is empty", i)
		}
		if strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("entry %d: answer is empty for %q", i, e.Question)
		}
		if _, dup := b.index[e.Question]; dup {
			return nil, fmt.Errorf("entry %d: duplicate question %q", i, e.Question)
		}
		b.index[e.Question] = len(b.entries)
		b.entries = append(b.entries, e)
	}
	return b, nil
}

// Lookup returns the answer for an exact question match.
func (b *QABank) Lookup(question string) (string, bool) {
	i, ok := b.index[question]
	if !ok {
		return "", false
	}
	return b.entries[i].Answer, true
}

// Len returns the number of questions in the bank.
func (b *QABank) Len() int {
	return len(b.entries)
}

// At returns the i-th entry in authored order.
func (b *QABank) At(i int) Entry {
	return b.entries[i]
}

// Entries returns a copy of the bank's entries in authored order.
func (b *QABank) Entries() []Entry {
	return append([]Entry(nil), b.entries...)
}

// Questions returns the bank's questions in authored order.
func (b *QABank) Questions() []string {
	qs := make([]string, len(b.entries))
	for i, e := range b.entries {
		qs[i] = e.Question
	}
	return qs
}

// Base maps each subject to its question bank. A Base is never modified after construction.
type Base struct {
	banks map[SubjectID]*QABank
}

// NewBase builds a knowledge base from per-subject banks.
func NewBase(banks map[SubjectID]*QABank) (*Base, error) {
	b := &Base{banks: make(map[SubjectID]*QABank, len(banks))}
	for subject, bank := range banks {
		if !subject.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
		}
		if bank == nil {
			return nil, fmt.Errorf("bank for %s is nil", subject)
		}
		b.banks[subject] = bank
	}
	return b, nil
}

// Bank returns the question bank for a subject.
func (b *Base) Bank(subject SubjectID) (*QABank, bool) {
	bank, ok := b.banks[subject]
	return bank, ok
}

// Subjects returns the subjects present in the base, in display order.
func (b *Base) Subjects() []SubjectID {
	var out []SubjectID
	for _, s := range AllSubjects() {
		if _, ok := b.banks[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
