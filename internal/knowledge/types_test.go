package knowledge_test

import (
	"testing"

	"github.com/p-n-ai/pai-ask/internal/knowledge"
)

func TestNewQABank_Lookup(t *testing.T) {
	bank, err := knowledge.NewQABank([]knowledge.Entry{
		{Question: "Q1", Answer: "A1"},
		{Question: "Q2", Answer: "A2"},
	})
	if err != nil {
		t.Fatalf("NewQABank() error = %v", err)
	}

	if got, ok := bank.Lookup("Q2"); !ok || got != "A2" {
		t.Errorf("Lookup(Q2) = %q, %v; want A2, true", got, ok)
	}
	if _, ok := bank.Lookup("q2"); ok {
		t.Error("Lookup is case-sensitive; q2 should not match")
	}
	if bank.At(0).Question != "Q1" {
		t.Errorf("At(0) = %q, want Q1", bank.At(0).Question)
	}
}

func TestQABank_EntriesIsCopy(t *testing.T) {
	bank, _ := knowledge.NewQABank([]knowledge.Entry{{Question: "Q", Answer: "A"}})

	entries := bank.Entries()
	entries[0].Answer = "changed"

	if got, _ := bank.Lookup("Q"); got != "A" {
		t.Errorf("bank mutated through Entries(): Lookup(Q) = %q", got)
	}
}

func TestNewBase_RejectsUnknownSubject(t *testing.T) {
	bank, _ := knowledge.NewQABank([]knowledge.Entry{{Question: "Q", Answer: "A"}})

	_, err := knowledge.NewBase(map[knowledge.SubjectID]*knowledge.QABank{"history": bank})
	if err == nil {
		t.Fatal("NewBase() should reject unknown subjects")
	}
}

func TestSubjectID_DisplayName(t *testing.T) {
	if got := knowledge.Science.DisplayName(); got != "Science" {
		t.Errorf("DisplayName() = %q, want Science", got)
	}
	if got := knowledge.Maths.DisplayName(); got != "Maths" {
		t.Errorf("DisplayName() = %q, want Maths", got)
	}
	var unset knowledge.SubjectID
	if unset.IsSet() {
		t.Error("zero SubjectID should not be set")
	}
}
