package legal

import (
	"reflect"
	"testing"
)

func TestStatutes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"section_style", "Battery is covered by 940.19 and 940.20.", []string{"940.19", "940.20"}},
		{"federal_code", "Stored records fall under 18 U.S.C. 2703.", []string{"18 U.S.C. 2703"}},
		{"lettered_subsection", "See 940.19A for aggravated battery.", []string{"940.19A"}},
		{"duplicates_collapse", "940.19 applies. Again, 940.19 applies.", []string{"940.19"}},
		{"none", "No statutes are cited here.", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Statutes(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Statutes(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCitations(t *testing.T) {
	got := Citations("As held in Terry v. Ohio, 392 US 1, a frisk requires reasonable suspicion.")
	if len(got) != 1 || got[0] != "Terry v. Ohio, 392 US 1" {
		t.Errorf("Citations() = %v", got)
	}
}

func TestSeeAlsoSections(t *testing.T) {
	got := SeeAlsoSections("Warrants are covered in 968.12. See also § 968.13 for no-knock entry.")
	if len(got) != 1 || got[0] != "968.13" {
		t.Errorf("SeeAlsoSections() = %v", got)
	}
}

func TestDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"slash_form", "Decided on 03/12/2015.", []string{"03/12/2015"}},
		{"iso_form", "Effective 2021-07-01.", []string{"2021-07-01"}},
		{"long_form", "Signed January 5, 2021 in Madison.", []string{"January 5, 2021"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dates(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Dates(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLocations(t *testing.T) {
	got := Locations("The incident occurred in Dane County near Madison at 100 Main Street.")
	for _, want := range []string{"Dane County", "Madison", "100 Main Street"} {
		found := false
		for _, g := range got {
			if g == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Locations() = %v, missing %q", got, want)
		}
	}
}

func TestInferJurisdiction(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"wisconsin_marker", "Wisconsin statute 968.12 controls.", JurisdictionState},
		{"federal_marker", "Under 18 U.S.C. 2703 providers must comply.", JurisdictionFederal},
		{"state_beats_federal", "The Wisconsin supreme court reviewed the federal claim.", JurisdictionState},
		{"neither", "Officers shall document every stop.", JurisdictionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferJurisdiction(tt.content); got != tt.want {
				t.Errorf("InferJurisdiction() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInferLawStatus(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"superseded", "This section was repealed in 2019.", StatusSuperseded},
		{"pending", "The proposed rule awaits a vote.", StatusPending},
		{"current", "Officers must obtain a warrant.", StatusCurrent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferLawStatus(tt.content); got != tt.want {
				t.Errorf("InferLawStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestContainsWholePhrase(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase string
		want   bool
	}{
		{"exact_word", "the officer made an arrest today", "arrest", true},
		{"substring_rejected", "the arrestee was processed", "arrest", false},
		{"phrase", "a search warrant was issued", "search warrant", true},
		{"punctuation_boundary", "after the arrest, counsel arrived", "arrest", true},
		{"start_of_text", "arrest records are sealed", "arrest", true},
		{"end_of_text", "they made the arrest", "arrest", true},
		{"absent", "a routine patrol", "arrest", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsWholePhrase(tt.text, tt.phrase); got != tt.want {
				t.Errorf("ContainsWholePhrase(%q, %q) = %v, want %v", tt.text, tt.phrase, got, tt.want)
			}
		})
	}
}

func TestCaseSectionMarker(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"all_caps", "OPINION\nThe court holds...", true},
		{"title_case", "Opinion\nThe court holds...", true},
		{"lower_case", "dissent\nI respectfully disagree.", true},
		{"indented", "  Concurrence\nI join the majority.", true},
		{"mid_line_rejected", "The opinion of the court follows.", false},
		{"prefix_rejected", "OPINIONATED remarks were stricken.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CaseSectionMarker.MatchString(tt.text); got != tt.want {
				t.Errorf("CaseSectionMarker.MatchString(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMatchesUseOfForce(t *testing.T) {
	if !MatchesUseOfForce("When may an officer use deadly force?") {
		t.Error("deadly force question should match")
	}
	if MatchesUseOfForce("How do I file a records request?") {
		t.Error("records question should not match")
	}
}
