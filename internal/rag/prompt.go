package rag

import (
	"fmt"
	"strings"
)

// Prompt composition. Everything in this file is a pure function: identical
// inputs produce byte-identical output. Tests and any future prompt caching
// depend on that, so no timestamps, no randomness, no map iteration.

// unknownField substitutes for profile fields the user never filled in.
const unknownField = "Unknown"

// defaultExperienceLevel substitutes for an empty experience level.
const defaultExperienceLevel = "beginner"

// urduDirective is appended to the answer prompt when the request language
// is LanguageUrdu.
const urduDirective = "Please respond in Urdu (اردو) with proper RTL formatting."

const answerTemplate = `You are an AI assistant for a Physical AI & Humanoid Robotics textbook.

%s

Context from the textbook:
%s

%s

User Question: %s

Instructions:
1. Answer ONLY based on the provided context from the textbook
2. If the context doesn't contain the answer, say "I don't have enough information in the textbook to answer that."
3. Be concise but thorough
4. Use examples from the context when relevant
5. If personalization info is provided, adapt your explanation to the user's level

Answer:`

// ComposeAnswer builds the grounded answer prompt from the question, the
// retrieved context passages (joined with blank lines, in retrieval order),
// an optional learner profile, and the request language.
func ComposeAnswer(question string, context []string, profile *Profile, language string) string {
	var personalization string
	if profile != nil {
		personalization = personalizationBlock(profile)
	}

	var directive string
	if language == LanguageUrdu {
		directive = urduDirective
	}

	return fmt.Sprintf(answerTemplate,
		personalization,
		strings.Join(context, "\n\n"),
		directive,
		question,
	)
}

// personalizationBlock renders the profile fields the answer prompt cares
// about. GPU hardware and preferred language stay out: they steer signup
// and translation, not the answer register.
func personalizationBlock(p *Profile) string {
	return fmt.Sprintf(`User Profile:
- Software Background: %s
- Hardware Background: %s
- Experience Level: %s
- OS: %s

Adapt your answer to match the user's background and experience level.`,
		orUnknown(p.SoftwareBackground),
		orUnknown(p.HardwareBackground),
		orDefault(p.ExperienceLevel, defaultExperienceLevel),
		orUnknown(p.OperatingSystem),
	)
}

const personalizeTemplate = `Adapt the following educational content for a user with this profile:
- Software Background: %s
- Hardware Background: %s
- Experience Level: %s

Original Content:
%s

Instructions:
1. Adjust complexity to match experience level
2. Add relevant examples based on their background
3. Use analogies they would understand
4. Keep the same structure and key concepts

Personalized Content:`

// ComposePersonalize builds the content-adaptation prompt from raw content
// and a learner profile.
func ComposePersonalize(content string, profile Profile) string {
	return fmt.Sprintf(personalizeTemplate,
		orUnknown(profile.SoftwareBackground),
		orUnknown(profile.HardwareBackground),
		orDefault(profile.ExperienceLevel, defaultExperienceLevel),
		content,
	)
}

const translateTemplate = `Translate the following text to Urdu (اردو).
Maintain technical terms in English if they don't have common Urdu equivalents.
Use proper RTL formatting.

Text to translate:
%s

Urdu Translation:`

// ComposeTranslate builds the Urdu translation prompt. Technical terms
// without common Urdu equivalents are kept in English.
func ComposeTranslate(content string) string {
	return fmt.Sprintf(translateTemplate, content)
}

// BuildQuery builds the retrieval query for a question. When the user has a
// text selection, it is prepended so retrieval itself shifts toward the
// selection, not just the final prompt.
func BuildQuery(question, selectedText string) string {
	if selectedText == "" {
		return question
	}
	return fmt.Sprintf("Based on this text: '%s'\n\nQuestion: %s", selectedText, question)
}

func orUnknown(s string) string {
	return orDefault(s, unknownField)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
