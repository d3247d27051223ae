// Package prompts builds the chat prompts sent to the AI service.
package prompts

import (
	"fmt"
	"strings"
)

// QuestionParams drives discussion-question generation.
type QuestionParams struct {
	Subject    string
	Difficulty string
	Keywords   []string
	// Regenerate asks for a question different from PreviousQuestion.
	Regenerate       bool
	PreviousQuestion string
	// Attempt counts regeneration attempts; later attempts push harder
	// for a different angle.
	Attempt int
}

// BuildEvalPrompt builds the full JSON evaluation prompt for a student
// answer.
func BuildEvalPrompt(question, answer string) string {
	var sb strings.Builder
	sb.WriteString("Evaluate this student answer to the question:\n\n")
	sb.WriteString("Question: " + question + "\n\n")
	sb.WriteString("Student's answer: " + answer + "\n\n")
	sb.WriteString("Evaluate the answer based on its relevance, accuracy, depth, and structure.\n\n")
	sb.WriteString("Return your evaluation in this JSON format (nothing else):\n")
	sb.WriteString(`{
    "score": 0.X,
    "feedback": "Brief overall assessment in English",
    "suggestions": [
        "First improvement suggestion in English",
        "Second improvement suggestion in English",
        "Third improvement suggestion in English"
    ]
}`)
	sb.WriteString("\n\nKeep your suggestions straightforward, action-oriented, and in proper English only.\n")
	sb.WriteString("NEVER include any comments, instructions, or non-English text in your suggestions.\n")
	return sb.String()
}

// BuildSuggestionsPrompt builds the short plain-text form: exactly
// three numbered improvement suggestions, no scoring.
func BuildSuggestionsPrompt(question, answer string) string {
	var sb strings.Builder
	sb.WriteString("Read this student's answer to the following question:\n\n")
	sb.WriteString("QUESTION: " + question + "\n\n")
	sb.WriteString("ANSWER: " + answer + "\n\n")
	sb.WriteString("Provide EXACTLY THREE clear suggestions to improve this answer.\n")
	sb.WriteString("Format your response as a simple numbered list with 3 items.\n")
	sb.WriteString("Each suggestion should be a complete English sentence of 10-20 words.\n\n")
	sb.WriteString("DO NOT include any scores, introduction, or explanations.\n")
	sb.WriteString("DO NOT use any special formatting, HTML, or non-English characters.\n")
	sb.WriteString("DO NOT mention the student directly or refer to clicking buttons.\n\n")
	sb.WriteString(`Just return the three suggestions, one per line, starting with "1. ", "2. ", "3. "`)
	sb.WriteString("\n")
	return sb.String()
}

// BuildQuestionPrompt builds the teacher-side discussion-question
// generation prompt.
func BuildQuestionPrompt(p QuestionParams) string {
	subject := p.Subject
	if subject == "" {
		subject = "general"
	}
	difficulty := p.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}
	keywords := "no specific keywords"
	if len(p.Keywords) > 0 {
		keywords = strings.Join(p.Keywords, ", ")
	}

	var sb strings.Builder
	if !p.Regenerate {
		fmt.Fprintf(&sb, "Generate a thought-provoking discussion question about %s at %s difficulty level.\n", subject, difficulty)
		fmt.Fprintf(&sb, "The question should incorporate these keywords or concepts if possible: %s.\n", keywords)
		sb.WriteString("The question should be clear, open-ended, and designed to encourage critical thinking and classroom discussion.\n")
		sb.WriteString("Just respond with the question text only, without any additional explanations or formatting.\n")
		return sb.String()
	}

	if p.Attempt > 1 {
		fmt.Fprintf(&sb, "Generate a completely NEW and DIFFERENT thought-provoking discussion question about %s at %s difficulty level.\n", subject, difficulty)
	} else {
		fmt.Fprintf(&sb, "Generate a NEW thought-provoking discussion question about %s at %s difficulty level.\n", subject, difficulty)
	}
	fmt.Fprintf(&sb, "The question should incorporate these keywords or concepts if possible: %s.\n\n", keywords)
	fmt.Fprintf(&sb, "IMPORTANT: Your previous generated question was:\n%q\n\n", p.PreviousQuestion)
	if p.Attempt > 1 {
		sb.WriteString("Please ensure this new question is COMPLETELY DIFFERENT from your previous one.\n")
		sb.WriteString("Use a different approach, perspective, or angle on the subject.\n")
		sb.WriteString("The question should still be clear, open-ended, and designed to encourage critical thinking.\n")
	} else {
		sb.WriteString("Please ensure this new question is different from your previous one.\n")
		sb.WriteString("The question should be clear, open-ended, and designed to encourage critical thinking and classroom discussion.\n")
	}
	sb.WriteString("Just respond with the question text only, without any additional explanations or formatting.\n")
	return sb.String()
}
