package rag

// Fixed enhancement tables. Loaded at startup, never mutated.

// legalAbbreviations maps common law-enforcement and legal abbreviations to
// their expansions. Matching is whole-word and case-insensitive; ordering
// matters because longer forms must win before their substrings.
var legalAbbreviations = []struct {
	Abbr      string
	Expansion string
}{
	{"LEO", "Law Enforcement Officer"},
	{"DOJ", "Department of Justice"},
	{"FBI", "Federal Bureau of Investigation"},
	{"DEA", "Drug Enforcement Administration"},
	{"ATF", "Bureau of Alcohol, Tobacco, Firearms and Explosives"},
	{"ICE", "Immigration and Customs Enforcement"},
	{"DHS", "Department of Homeland Security"},
	{"USC", "United States Code"},
	{"CFR", "Code of Federal Regulations"},
	{"SCOTUS", "Supreme Court of the United States"},
	{"F.R.C.P.", "Federal Rules of Civil Procedure"},
	{"4th Am.", "Fourth Amendment"},
	{"5th Am.", "Fifth Amendment"},
	{"6th Am.", "Sixth Amendment"},
	{"8th Am.", "Eighth Amendment"},
	{"14th Am.", "Fourteenth Amendment"},
	{"et al.", "and others"},
	{"e.g.", "for example"},
	{"i.e.", "that is"},
	{"cf.", "compare"},
}

// legalMisspellings rewrites frequent misspellings before retrieval.
var legalMisspellings = []struct {
	Wrong string
	Right string
}{
	{"amendmant", "amendment"},
	{"ammendment", "amendment"},
	{"consitution", "constitution"},
	{"constituton", "constitution"},
	{"juridiction", "jurisdiction"},
	{"jurisdicton", "jurisdiction"},
	{"serch", "search"},
	{"siezure", "seizure"},
	{"seisure", "seizure"},
	{"warant", "warrant"},
	{"statue", "statute"},
	{"presedent", "precedent"},
	{"subpena", "subpoena"},
}

// legalSynonyms maps query terms to related legal phrasing. At most two
// synonyms per matched term and five in total are appended to a query.
var legalSynonyms = []struct {
	Term     string
	Synonyms []string
}{
	{"search", []string{"search and seizure", "vehicle search", "property search"}},
	{"warrant", []string{"search warrant", "arrest warrant", "bench warrant"}},
	{"evidence", []string{"physical evidence", "digital evidence", "testimony"}},
	{"privacy", []string{"reasonable expectation of privacy", "privacy rights"}},
	{"digital", []string{"electronic", "cyber", "computer"}},
	{"arrest", []string{"detention", "custody", "apprehension"}},
	{"force", []string{"use of force", "physical force"}},
	{"interrogation", []string{"questioning", "custodial interrogation"}},
	{"surveillance", []string{"electronic surveillance", "wiretap", "monitoring"}},
	{"vehicle", []string{"automobile", "motor vehicle", "traffic stop"}},
	{"drugs", []string{"controlled substances", "narcotics"}},
	{"firearm", []string{"weapon", "gun", "deadly weapon"}},
}

const (
	maxSynonymsPerTerm = 2
	maxSynonymsTotal   = 5
)
