package model

import "testing"

func TestDefaultSettingsAreValid(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if s.EmailIncludeDebug {
		t.Error("debug should default to off")
	}
}

func TestSettingsValidate(t *testing.T) {
	cases := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"valid", Settings{EmailRecipient: "dev@example.com", EmailSubject: "Bug"}, false},
		{"bad recipient", Settings{EmailRecipient: "dev", EmailSubject: "Bug"}, true},
		{"empty recipient", Settings{EmailSubject: "Bug"}, true},
		{"empty subject", Settings{EmailRecipient: "dev@example.com"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestReportConfig(t *testing.T) {
	s := Settings{EmailRecipient: "dev@example.com", EmailSubject: "Bug", EmailIncludeDebug: true}
	got := s.ReportConfig()
	want := ReportConfig{RecipientEmail: "dev@example.com", SubjectLine: "Bug", IncludeDiagnostics: true}
	if got != want {
		t.Errorf("ReportConfig() = %+v, want %+v", got, want)
	}
}
