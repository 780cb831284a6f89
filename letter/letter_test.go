package letter

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		meta Meta
		want string
	}{
		{"reference and recipient", Meta{Reference: "TR-1", RecipientName: "Azizbek Ahmedov"}, "TR-1-azizbek-ahmedov.pdf"},
		{"defaults", Meta{}, "letter-recipient.pdf"},
		{"separators", Meta{Reference: "MN-2024/17", RecipientName: "Dr. O'Neil"}, "MN-2024-17-dr-o-neil.pdf"},
		{"non ascii recipient", Meta{Reference: "X", RecipientName: "Ünal"}, "X--nal.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.meta); got != tt.want {
				t.Fatalf("Filename = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeStats(t *testing.T) {
	p := Payload{
		Meta:     Meta{DueDate: "2025-01-10"},
		Sections: []Section{{Body: "a b  c"}, {Body: "d\ne"}, {Heading: "only heading"}},
		Notes:    " f ",
	}
	now := time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)
	want := Stats{Sections: 3, Words: 6, DueIn: 2}
	if diff := cmp.Diff(want, ComputeStats(p, now)); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	for _, due := range []string{"2024-12-31", "", "soon"} {
		p.Meta.DueDate = due
		if got := ComputeStats(p, now).DueIn; got != 0 {
			t.Fatalf("DueIn(%q) = %d, want 0", due, got)
		}
	}
}

func TestNormalizeContacts(t *testing.T) {
	got := NormalizeContacts([]string{" a \n\n b", "", "c\r\nd"})
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, got); diff != "" {
		t.Fatalf("contacts mismatch (-want +got):\n%s", diff)
	}
	if NormalizeContacts(nil) != nil {
		t.Fatalf("nil contacts should stay nil")
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"", PriorityNormal, false},
		{"HIGH", PriorityHigh, false},
		{" low ", PriorityLow, false},
		{"urgent", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParsePriority(%q) = %q, %v", tt.in, got, err)
		}
	}
	if err := (Payload{Meta: Meta{Priority: "urgent"}}).Validate(); err == nil {
		t.Fatalf("unknown priority accepted")
	}
	if err := DefaultPayload(time.Now()).Validate(); err != nil {
		t.Fatalf("default payload invalid: %v", err)
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"uz", "Ma'lumotnoma No."},
		{"ru-RU", "Справка №"},
		{"EN", "Reference No."},
		{"", "Ma'lumotnoma No."},
		{"de", "Ma'lumotnoma No."},
		{"not a tag!", "Ma'lumotnoma No."},
	}
	for _, tt := range tests {
		if got := LabelsFor(tt.code).Number; got != tt.want {
			t.Fatalf("LabelsFor(%q).Number = %q, want %q", tt.code, got, tt.want)
		}
	}
	if got := PriorityHigh.Label("uz"); got != "Yuqori" {
		t.Fatalf("high label = %q", got)
	}
	if got := Priority("").Label("en"); got != "Normal" {
		t.Fatalf("empty priority label = %q", got)
	}
}

func TestApplyMarkdown(t *testing.T) {
	src := []byte(`# Transfer haqida

Kirish qismi.

## Maqsad

Birinchi paragraf
davom etadi.

Ikkinchi paragraf.

## Ilovalar

- Hisobot — Moliyaviy ma'lumot
- Xulosa: Tibbiy
- Ro'yxat

## Qo'shimcha eslatma

Eslatma matni.
`)
	base := DefaultPayload(time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC))
	got := ApplyMarkdown(base, src)

	if got.Meta.Title != "Transfer haqida" {
		t.Fatalf("title = %q", got.Meta.Title)
	}
	if got.Meta.Reference != base.Meta.Reference {
		t.Fatalf("meta not kept from base")
	}
	ignoreIDs := cmp.Options{
		cmpopts.IgnoreFields(Section{}, "ID"),
		cmpopts.IgnoreFields(Attachment{}, "ID"),
	}
	wantSections := []Section{
		{Body: "Kirish qismi."},
		{Heading: "Maqsad", Body: "Birinchi paragraf davom etadi.\n\nIkkinchi paragraf."},
	}
	if diff := cmp.Diff(wantSections, got.Sections, ignoreIDs); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
	wantAttachments := []Attachment{
		{Name: "Hisobot", Description: "Moliyaviy ma'lumot"},
		{Name: "Xulosa", Description: "Tibbiy"},
		{Name: "Ro'yxat"},
	}
	if diff := cmp.Diff(wantAttachments, got.Attachments, ignoreIDs); diff != "" {
		t.Fatalf("attachments mismatch (-want +got):\n%s", diff)
	}
	if got.Notes != "Eslatma matni." {
		t.Fatalf("notes = %q", got.Notes)
	}
	for _, s := range got.Sections {
		if s.ID == "" {
			t.Fatalf("section without id")
		}
	}
}

func TestApplyMarkdownHTMLBlocks(t *testing.T) {
	src := []byte(`## Izoh

<div class="note">
<p>Muddat <b>uzaytirildi</b>.</p><p>Ikki hafta.</p>
<script>alert(1)</script>
</div>

---
`)
	got := ApplyMarkdown(Payload{}, src)
	want := []Section{{Heading: "Izoh", Body: "Muddat uzaytirildi. Ikki hafta."}}
	if diff := cmp.Diff(want, got.Sections, cmpopts.IgnoreFields(Section{}, "ID")); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyMarkdownKeepsBaseWhenEmpty(t *testing.T) {
	base := DefaultPayload(time.Now())
	got := ApplyMarkdown(base, nil)
	if diff := cmp.Diff(base, got); diff != "" {
		t.Fatalf("empty draft changed payload (-want +got):\n%s", diff)
	}
}
