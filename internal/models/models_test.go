package models

import (
	"testing"
	"time"
)

func TestParseSubject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Subject
		wantErr bool
	}{
		{name: "mathematics", input: "Mathematics", want: SubjectMathematics},
		{name: "music", input: "Music", want: SubjectMusic},
		{name: "lowercase rejected", input: "science", wantErr: true},
		{name: "unknown", input: "Latin", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSubject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSubject(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSubject(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRankIndex(t *testing.T) {
	for i, r := range AllRanks {
		if r.Index() != i {
			t.Errorf("%s.Index() = %d, want %d", r, r.Index(), i)
		}
	}
	if Rank("Platinum").Index() != -1 {
		t.Error("unknown rank should have index -1")
	}
	if _, err := ParseRank("Platinum"); err == nil {
		t.Error("ParseRank should reject unknown ranks")
	}
}

func TestAppStateCloneDoesNotAlias(t *testing.T) {
	state := &AppState{
		Profiles: []Profile{{
			ID:           "p1",
			Name:         "Asha",
			Sessions:     []StudySession{{ID: "s1", Subject: SubjectArt, DurationMinutes: 25, CompletedAt: time.Now(), XPEarned: 30}},
			Certificates: []Rank{RankSilver},
		}},
		ActiveProfileID: "p1",
		Guardian:        GuardianCredential{PIN: "4821", FaceImage: []byte{1, 2, 3}},
	}

	clone := state.Clone()
	clone.Profiles[0].Sessions[0].DurationMinutes = 99
	clone.Profiles[0].Certificates[0] = RankRuby
	clone.Guardian.FaceImage[0] = 9
	clone.Profiles = append(clone.Profiles, Profile{ID: "p2"})

	if state.Profiles[0].Sessions[0].DurationMinutes != 25 {
		t.Error("session history aliased through clone")
	}
	if state.Profiles[0].Certificates[0] != RankSilver {
		t.Error("certificates aliased through clone")
	}
	if state.Guardian.FaceImage[0] != 1 {
		t.Error("face image aliased through clone")
	}
	if len(state.Profiles) != 1 {
		t.Error("profile list aliased through clone")
	}
}

func TestProfileHelpers(t *testing.T) {
	p := Profile{
		Sessions:     []StudySession{{DurationMinutes: 25}, {DurationMinutes: 40}},
		Certificates: []Rank{RankSilver},
	}
	if got := p.TotalMinutes(); got != 65 {
		t.Errorf("TotalMinutes() = %d, want 65", got)
	}
	if !p.HasCertificate(RankSilver) {
		t.Error("expected Silver certificate")
	}
	if p.HasCertificate(RankGold) {
		t.Error("did not expect Gold certificate")
	}
}
