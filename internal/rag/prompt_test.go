package rag

import (
	"strings"
	"testing"
)

func TestComposeAnswer_Deterministic(t *testing.T) {
	profile := &Profile{SoftwareBackground: "Python", ExperienceLevel: "advanced"}
	context := []string{"ROS 2 nodes communicate over DDS.", "Topics are typed channels."}

	first := ComposeAnswer("How do nodes talk?", context, profile, "ur")
	second := ComposeAnswer("How do nodes talk?", context, profile, "ur")

	if first != second {
		t.Errorf("ComposeAnswer is not deterministic:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestComposeAnswer_ContextBlock(t *testing.T) {
	context := []string{"Passage one.", "Passage two."}
	prompt := ComposeAnswer("q", context, nil, "en")

	if !strings.Contains(prompt, "Passage one.\n\nPassage two.") {
		t.Errorf("context passages not joined with blank line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Context from the textbook:") {
		t.Errorf("missing context header:\n%s", prompt)
	}
}

func TestComposeAnswer_RefusalInstruction(t *testing.T) {
	prompt := ComposeAnswer("q", nil, nil, "en")
	if !strings.Contains(prompt, RefusalText) {
		t.Errorf("prompt missing refusal instruction %q", RefusalText)
	}
}

func TestComposeAnswer_LanguageDirective(t *testing.T) {
	tests := []struct {
		name     string
		language string
		want     bool
	}{
		{"urdu adds directive", "ur", true},
		{"english omits directive", "en", false},
		{"unknown code omits directive", "fr", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := ComposeAnswer("q", []string{"ctx"}, nil, tt.language)
			got := strings.Contains(prompt, urduDirective)
			if got != tt.want {
				t.Errorf("language %q: directive present = %v, want %v", tt.language, got, tt.want)
			}
		})
	}
}

func TestComposeAnswer_PersonalizationSubstitution(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    []string
	}{
		{
			name:    "all fields empty",
			profile: Profile{},
			want: []string{
				"- Software Background: Unknown",
				"- Hardware Background: Unknown",
				"- Experience Level: beginner",
				"- OS: Unknown",
			},
		},
		{
			name: "partial profile",
			profile: Profile{
				SoftwareBackground: "Go",
				ExperienceLevel:    "intermediate",
			},
			want: []string{
				"- Software Background: Go",
				"- Hardware Background: Unknown",
				"- Experience Level: intermediate",
				"- OS: Unknown",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := ComposeAnswer("q", []string{"ctx"}, &tt.profile, "en")
			for _, want := range tt.want {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt missing %q:\n%s", want, prompt)
				}
			}
			if !strings.Contains(prompt, "Adapt your answer to match the user's background") {
				t.Errorf("prompt missing adaptation instruction")
			}
		})
	}
}

func TestComposeAnswer_NoProfileNoBlock(t *testing.T) {
	prompt := ComposeAnswer("q", []string{"ctx"}, nil, "en")
	if strings.Contains(prompt, "User Profile:") {
		t.Errorf("nil profile should not emit a personalization block:\n%s", prompt)
	}
}

func TestComposePersonalize(t *testing.T) {
	prompt := ComposePersonalize("Robots move.", Profile{HardwareBackground: "Arduino"})

	for _, want := range []string{
		"- Software Background: Unknown",
		"- Hardware Background: Arduino",
		"- Experience Level: beginner",
		"Original Content:\nRobots move.",
		"Personalized Content:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("personalize prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestComposeTranslate(t *testing.T) {
	prompt := ComposeTranslate("Hello robots")

	for _, want := range []string{
		"Translate the following text to Urdu",
		"Maintain technical terms in English",
		"Text to translate:\nHello robots",
		"Urdu Translation:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("translate prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name         string
		question     string
		selectedText string
		want         string
	}{
		{
			name:     "no selection passes question through",
			question: "What is ROS 2?",
			want:     "What is ROS 2?",
		},
		{
			name:         "selection is prepended",
			question:     "What does this mean?",
			selectedText: "DDS middleware",
			want:         "Based on this text: 'DDS middleware'\n\nQuestion: What does this mean?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildQuery(tt.question, tt.selectedText)
			if got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildQuery_SelectionChangesRetrieval(t *testing.T) {
	with := BuildQuery("Y", "X")
	without := BuildQuery("Y", "")
	if with == without {
		t.Errorf("selected text must change the retrieval query, both were %q", with)
	}
}
