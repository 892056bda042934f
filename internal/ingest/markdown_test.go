package ingest

import (
	"strings"
	"testing"
)

func TestCleanMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "frontmatter stripped",
			input: "---\ntitle: Intro\nsidebar_position: 1\n---\nHello world",
			want:  "Hello world",
		},
		{
			name:  "code block removed",
			input: "Before\n```python\nprint('hi')\n```\nAfter",
			want:  "Before\n\nAfter",
		},
		{
			name:  "inline code removed",
			input: "Run `ros2 run` to start",
			want:  "Run  to start",
		},
		{
			name:  "link keeps label",
			input: "See [the docs](https://example.com/docs) for more",
			want:  "See the docs for more",
		},
		{
			name:  "headers stripped",
			input: "## Getting Started\nInstall ROS 2",
			want:  "Getting Started\nInstall ROS 2",
		},
		{
			name:  "bold and italic unwrapped",
			input: "This is **important** and *subtle*",
			want:  "This is important and subtle",
		},
		{
			name:  "plain text untouched",
			input: "Nodes communicate over topics.",
			want:  "Nodes communicate over topics.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanMarkdown(tt.input); got != tt.want {
				t.Errorf("CleanMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestChunkText(t *testing.T) {
	text := strings.Repeat("word ", 1000)

	chunks := ChunkText(text, 400)

	if len(chunks) != 3 {
		t.Fatalf("ChunkText(1000 words, 400) chunks = %d, want 3", len(chunks))
	}
	for i, c := range chunks[:2] {
		if got := len(strings.Fields(c)); got != 400 {
			t.Errorf("chunk %d words = %d, want 400", i, got)
		}
	}
	if got := len(strings.Fields(chunks[2])); got != 200 {
		t.Errorf("final chunk words = %d, want 200", got)
	}
}

func TestChunkText_Empty(t *testing.T) {
	if chunks := ChunkText("   \n\t ", 400); chunks != nil {
		t.Errorf("ChunkText(whitespace) = %v, want nil", chunks)
	}
}

func TestChunkText_SmallInput(t *testing.T) {
	chunks := ChunkText("one two three", 400)

	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0] != "one two three" {
		t.Errorf("chunk = %q, want %q", chunks[0], "one two three")
	}
}
