package application

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:       {StatusSubmitted},
		StatusSubmitted:   {StatusUnderReview},
		StatusUnderReview: {StatusApproved, StatusRejected, StatusHold},
		StatusHold:        {StatusUnderReview, StatusApproved, StatusRejected},
	}
	all := []Status{StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusHold}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusApproved.Terminal() || !StatusRejected.Terminal() {
		t.Fatal("approved and rejected must be terminal")
	}
	if StatusHold.Terminal() || !StatusHold.Open() {
		t.Fatal("hold is open")
	}
}

func TestAgeAt(t *testing.T) {
	dob := time.Date(2010, time.June, 15, 0, 0, 0, 0, time.UTC)
	a := Application{DateOfBirth: &dob}
	if got := a.AgeAt(time.Date(2026, time.June, 14, 0, 0, 0, 0, time.UTC)); got != 15 {
		t.Fatalf("age before birthday = %d, want 15", got)
	}
	if got := a.AgeAt(time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)); got != 16 {
		t.Fatalf("age on birthday = %d, want 16", got)
	}
	if (Application{}).AgeAt(time.Now()) != -1 {
		t.Fatal("unknown dob should report -1")
	}
}

func TestSubmissionProblems(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	dob := func(y int) *time.Time {
		d := time.Date(y, 1, 15, 0, 0, 0, 0, time.UTC)
		return &d
	}

	empty := Application{}.SubmissionProblems(now)
	for _, field := range []string{"first_name", "last_name", "position", "date_of_birth"} {
		if _, ok := empty[field]; !ok {
			t.Errorf("expected problem for %s", field)
		}
	}

	adult := Application{FirstName: "A", LastName: "B", Position: "GK", DateOfBirth: dob(2000)}
	if p := adult.SubmissionProblems(now); len(p) != 0 {
		t.Fatalf("unexpected problems: %v", p)
	}

	minor := adult
	minor.DateOfBirth = dob(2012)
	p := minor.SubmissionProblems(now)
	if _, ok := p["guardian_name"]; !ok {
		t.Fatalf("minor without guardian should be rejected: %v", p)
	}
	minor.GuardianName, minor.GuardianPhone = "Parent", "5550100000"
	if p := minor.SubmissionProblems(now); len(p) != 0 {
		t.Fatalf("unexpected problems: %v", p)
	}

	tooYoung := adult
	tooYoung.DateOfBirth = dob(2023)
	tooYoung.GuardianName, tooYoung.GuardianPhone = "Parent", "5550100000"
	if _, ok := tooYoung.SubmissionProblems(now)["date_of_birth"]; !ok {
		t.Fatal("three year old should be rejected")
	}

	future := adult
	future.DateOfBirth = dob(2027)
	if got := future.SubmissionProblems(now)["date_of_birth"]; got != "must be in the past" {
		t.Fatalf("future dob: %q", got)
	}
}
