package domain

import "testing"

func TestCandidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		ordinal int
		want    string
	}{
		{
			name: "explicit name label",
			text: "Curriculum Vitae\nName: Alice Johnson\nPython, Django",
			want: "Alice Johnson",
		},
		{
			name: "full name label",
			text: "full name - Bob De Vries\nexperience: 5 years",
			want: "Bob De Vries",
		},
		{
			name: "header line that looks like a name",
			text: "Carol O'Neil\nSenior Backend Engineer\nGo, Kubernetes",
			want: "Carol O'Neil",
		},
		{
			name:    "first line is not a name",
			text:    "professional summary with lowercase words\nmore text",
			ordinal: 2,
			want:    "Candidate 2",
		},
		{
			name:    "too many words for a name",
			text:    "Experienced Leader Of Very Large Teams\n",
			ordinal: 1,
			want:    "Candidate 1",
		},
		{
			name:    "empty text",
			text:    "",
			ordinal: 3,
			want:    "Candidate 3",
		},
		{
			name: "label beats header line",
			text: "Dave Smith\nname: Eve Adams",
			want: "Eve Adams",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CandidateLabel(tt.text, tt.ordinal); got != tt.want {
				t.Errorf("CandidateLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("alice.pdf", 2); got != "alice.pdf#2" {
		t.Errorf("ChunkID() = %q, want %q", got, "alice.pdf#2")
	}
}
