package service

import "fmt"

// SynthesizerService produces structurally valid placeholder content when the
// generation backend is unavailable. Output is deterministic for a given
// topic/title/level and is only ever used in non-release configuration.
type SynthesizerService struct{}

func NewSynthesizerService() *SynthesizerService {
	return &SynthesizerService{}
}

var synthesizedStages = []struct {
	title       string
	description string
	hours       string
}{
	{"Getting Started with %s", "Understand what %s is, why it matters, and set up everything you need to begin.", "2-3 hours"},
	{"Core Concepts of %s", "Work through the fundamental ideas and vocabulary of %s.", "4-6 hours"},
	{"Hands-on Practice with %s", "Apply what you have learned in small, focused exercises on %s.", "5-8 hours"},
	{"Intermediate %s Techniques", "Go beyond the basics and study common patterns used in real %s work.", "6-10 hours"},
	{"Building a %s Project", "Consolidate your knowledge of %s by building a complete project end to end.", "8-12 hours"},
}

func (s *SynthesizerService) SynthesizeOutline(topic, skillLevel string) *RoadmapOutline {
	outline := &RoadmapOutline{
		Title:         fmt.Sprintf("%s Learning Roadmap", topic),
		Description:   fmt.Sprintf("A structured path to learn %s, tailored for a %s level learner.", topic, skillLevel),
		Difficulty:    skillLevel,
		EstimatedTime: "4-6 weeks",
	}

	for i, stage := range synthesizedStages {
		outline.Steps = append(outline.Steps, OutlineStep{
			Title:         fmt.Sprintf(stage.title, topic),
			Description:   fmt.Sprintf(stage.description, topic),
			EstimatedTime: stage.hours,
			Order:         i + 1,
			Resources: []OutlineResource{
				{
					Title: fmt.Sprintf("Introductory article: %s", fmt.Sprintf(stage.title, topic)),
					URL:   "https://www.google.com/search?q=" + urlQuery(topic+" "+fmt.Sprintf(stage.title, topic)),
					Type:  "article",
				},
				{
					Title: fmt.Sprintf("Video walkthrough: %s", fmt.Sprintf(stage.title, topic)),
					URL:   "https://www.youtube.com/results?search_query=" + urlQuery(topic+" tutorial"),
					Type:  "video",
				},
			},
		})
	}

	return outline
}

func (s *SynthesizerService) SynthesizeStepContent(topic, stepTitle, skillLevel string) string {
	return fmt.Sprintf(
		"## %s\n\n"+
			"This section of your %s roadmap covers \"%s\" at a %s level.\n\n"+
			"The generated lesson content is temporarily unavailable, so this is a "+
			"placeholder outline of what to study:\n\n"+
			"1. Read an introductory overview of the topic.\n"+
			"2. Follow one of the linked resources below and take notes.\n"+
			"3. Summarize the three most important ideas in your own words.\n"+
			"4. Attempt the quiz to check your understanding.\n",
		stepTitle, topic, stepTitle, skillLevel,
	)
}

func (s *SynthesizerService) SynthesizeQuiz(stepTitle string) *QuizOutline {
	return &QuizOutline{
		Questions: []QuizQuestionOutline{
			{
				Question:      fmt.Sprintf("What is the main focus of \"%s\"?", stepTitle),
				Options:       []string{"Understanding the core ideas of this step", "Memorizing unrelated trivia", "Skipping ahead to the next step", "None of the above"},
				CorrectOption: 0,
				Explanation:   "Each step focuses on its own core ideas before moving on.",
			},
			{
				Question:      "What is the recommended way to work through this step?",
				Options:       []string{"Read passively once", "Follow the resources and take notes", "Only watch videos at 2x speed", "Guess on the quiz first"},
				CorrectOption: 1,
				Explanation:   "Active study with notes retains far more than passive reading.",
			},
			{
				Question:      "When should you move to the next step?",
				Options:       []string{"Immediately", "After a fixed number of days", "Once you can explain the key ideas and pass the quiz", "Never"},
				CorrectOption: 2,
				Explanation:   "Progress is gated on understanding, which the quiz verifies.",
			},
		},
	}
}

func urlQuery(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			out = append(out, '+')
		} else {
			out = append(out, s[i])
		}
	}
	return string(out)
}
