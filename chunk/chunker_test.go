package chunk

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"legal-rag/legal"

	"go.uber.org/zap"
)

func TestDetectDocumentType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "case_law_from_opinion_language",
			text: "State v. Smith, Case No. 2021-CF-0042. The court issued its opinion. The defendant appealed the ruling and the judgment was affirmed.",
			want: legal.DocTypeCaseLaw,
		},
		{
			name: "policy_from_headings",
			text: "Policy No. 400-2 Use of Department Vehicles. Effective Date: 01/15/2020.\n\n1.1 Purpose\nThis policy establishes the procedure for vehicle use.",
			want: legal.DocTypePolicy,
		},
		{
			name: "training_from_module_layout",
			text: "Module 1 Introduction to Report Writing\nLearning Objectives: describe the elements of a complete incident report.\nKey Terms are listed at the end of the lesson.",
			want: legal.DocTypeTraining,
		},
		{
			name: "general_fallback",
			text: "The weather in the valley was unusually mild for the season.",
			want: legal.DocTypeGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDocumentType(tt.text)
			if got != tt.want {
				t.Errorf("DetectDocumentType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunkCaseLawSplitsOnSectionMarkers(t *testing.T) {
	logger := zap.NewNop()
	chunker := NewChunker(500, 100, logger)

	text := "State v. Miller, Case No. 2019-CF-1107.\n" +
		"OPINION\nThe majority holds that the search violated statute 968.12 and the evidence must be suppressed.\n" +
		"DISSENT\nThe dissenting justice would have upheld the search under the automobile exception."

	chunks, err := chunker.Chunk("statev_miller", text, legal.DocTypeCaseLaw)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("Chunk() produced %d chunks, want at least 3 (caption, opinion, dissent)", len(chunks))
	}

	var opinionIdx, dissentIdx = -1, -1
	for i, ch := range chunks {
		if ch.Class != ClassCaseLawSection {
			t.Errorf("chunk %d class = %v, want %v", i, ch.Class, ClassCaseLawSection)
		}
		if strings.HasPrefix(strings.TrimSpace(ch.Content), "OPINION") {
			opinionIdx = i
		}
		if strings.HasPrefix(strings.TrimSpace(ch.Content), "DISSENT") {
			dissentIdx = i
		}
	}
	if opinionIdx < 0 || dissentIdx < 0 {
		t.Fatalf("expected separate OPINION and DISSENT chunks, got %+v", chunks)
	}
	if opinionIdx >= dissentIdx {
		t.Errorf("OPINION chunk (%d) should precede DISSENT chunk (%d)", opinionIdx, dissentIdx)
	}
}

func TestChunkPolicySectionMetadata(t *testing.T) {
	logger := zap.NewNop()
	chunker := NewChunker(500, 100, logger)

	text := "1.1 Purpose\nThis policy establishes standards for body-worn cameras.\n\n" +
		"1.2 Scope\nThis policy applies to all sworn personnel."

	chunks, err := chunker.Chunk("bwc_policy", text, legal.DocTypePolicy)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Chunk() produced %d chunks, want 2", len(chunks))
	}

	wantSections := []struct {
		number string
		title  string
	}{
		{"1.1", "Purpose"},
		{"1.2", "Scope"},
	}
	for i, want := range wantSections {
		if got := chunks[i].Metadata.String(MetaSectionNumber); got != want.number {
			t.Errorf("chunk %d section number = %q, want %q", i, got, want.number)
		}
		if got := chunks[i].Metadata.String(MetaSectionTitle); got != want.title {
			t.Errorf("chunk %d section title = %q, want %q", i, got, want.title)
		}
	}
}

func TestChunkOrdinalsAndIDs(t *testing.T) {
	logger := zap.NewNop()
	chunker := NewChunker(120, 40, logger)

	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Sentence number %d carries enough words to matter for packing. ", i)
	}

	chunks, err := chunker.Chunk("doc42", b.String(), legal.DocTypeGeneral)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Ordinal != i {
			t.Errorf("chunk %d ordinal = %d, want %d", i, ch.Ordinal, i)
		}
		wantID := fmt.Sprintf("doc42_%d", i)
		if ch.ID != wantID {
			t.Errorf("chunk %d id = %q, want %q", i, ch.ID, wantID)
		}
		if strings.TrimSpace(ch.Content) == "" {
			t.Errorf("chunk %d has empty content", i)
		}
	}
}

func TestChunkIsDeterministic(t *testing.T) {
	logger := zap.NewNop()
	chunker := NewChunker(200, 50, logger)

	text := "Officers must obtain a warrant before searching a vehicle. " +
		"The exception under statute 968.10 applies only in exigent circumstances. " +
		"Evidence obtained without a warrant is subject to suppression. " +
		"Supervisors review all warrantless searches within three days."

	first, err := chunker.Chunk("docA", text, "")
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	second, err := chunker.Chunk("docA", text, "")
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated chunking of identical input differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestChunkRejectsEmptyText(t *testing.T) {
	logger := zap.NewNop()
	chunker := NewChunker(0, 0, logger)

	if _, err := chunker.Chunk("empty", "   \n\t ", ""); err == nil {
		t.Error("Chunk() on blank text should fail")
	}
}

func TestChunkGeneralRespectsSizeBound(t *testing.T) {
	logger := zap.NewNop()
	size, overlap := 300, 80
	chunker := NewChunker(size, overlap, logger)

	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "Paragraph sentence %d describes the facts of the case in moderate detail. ", i)
	}

	chunks, err := chunker.Chunk("long", b.String(), legal.DocTypeGeneral)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	for i, ch := range chunks {
		if len(ch.Content) > size+overlap {
			t.Errorf("chunk %d length %d exceeds size+overlap budget %d", i, len(ch.Content), size+overlap)
		}
	}
}

func TestCaseLawMetadataExtraction(t *testing.T) {
	logger := zap.NewNop()
	chunker := NewChunker(1000, 200, logger)

	text := "OPINION\nSmith v. Jones, 392 US 1 controls. The Circuit Court applied statute 940.19 on 03/12/2015."
	chunks, err := chunker.Chunk("meta", text, legal.DocTypeCaseLaw)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}

	meta := chunks[0].Metadata
	if statutes := meta.Strings(MetaStatuteNumbers); len(statutes) == 0 || statutes[0] != "940.19" {
		t.Errorf("statute numbers = %v, want [940.19]", statutes)
	}
	if citations := meta.Strings(MetaCaseCitations); len(citations) == 0 || !strings.HasPrefix(citations[0], "Smith v. Jones") {
		t.Errorf("case citations = %v, want Smith v. Jones", citations)
	}
	if dates := meta.Strings(MetaDates); len(dates) == 0 || dates[0] != "03/12/2015" {
		t.Errorf("dates = %v, want [03/12/2015]", dates)
	}
	if courts := meta.Strings(MetaCourts); len(courts) == 0 || courts[0] != "Circuit Court" {
		t.Errorf("courts = %v, want [Circuit Court]", courts)
	}
}
