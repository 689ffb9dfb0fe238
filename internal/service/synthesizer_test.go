package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeOutlineIsStructurallyValid(t *testing.T) {
	s := NewSynthesizerService()

	outline := s.SynthesizeOutline("Kubernetes", "beginner")

	assert.NotEmpty(t, outline.Title)
	assert.Equal(t, "beginner", outline.Difficulty)
	require.NotEmpty(t, outline.Steps)

	for i, step := range outline.Steps {
		assert.NotEmpty(t, step.Title, "step %d", i)
		assert.Equal(t, i+1, step.Order)
		require.NotEmpty(t, step.Resources, "step %d", i)
		for _, res := range step.Resources {
			assert.NotEmpty(t, res.Title)
			assert.True(t, strings.HasPrefix(res.URL, "https://"), "resource url %q", res.URL)
		}
	}
}

func TestSynthesizeOutlineMentionsTopic(t *testing.T) {
	s := NewSynthesizerService()

	outline := s.SynthesizeOutline("GraphQL", "advanced")
	for _, step := range outline.Steps {
		assert.Contains(t, step.Title, "GraphQL")
	}
}

func TestSynthesizeStepContentIsNonEmptyMarkdown(t *testing.T) {
	s := NewSynthesizerService()

	content := s.SynthesizeStepContent("Go", "Concurrency", "intermediate")
	assert.True(t, strings.HasPrefix(content, "## "))
	assert.Contains(t, content, "Concurrency")
}

func TestSynthesizeQuizPassesValidation(t *testing.T) {
	s := NewSynthesizerService()

	quiz := s.SynthesizeQuiz("Core Concepts of Go")
	require.NotEmpty(t, quiz.Questions)
	assert.NoError(t, ValidateQuizOutline(quiz))
}

func TestSynthesizeOutlineIsDeterministic(t *testing.T) {
	s := NewSynthesizerService()

	a := s.SynthesizeOutline("Docker", "beginner")
	b := s.SynthesizeOutline("Docker", "beginner")
	assert.Equal(t, a, b)
}
