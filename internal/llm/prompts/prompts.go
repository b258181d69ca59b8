// Package prompts builds the system and user prompts for the three analysis
// operations and the LaTeX exam generator. The platform is French-first;
// every builder takes the content language and instructs the model to answer
// with a strict JSON object that the llm package decodes.
package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/evalia/evalia/internal/model"
)

var systemTagRegex = regexp.MustCompile(`(?i)</?\s*(system|instructions|system-instructions)\b[^>]*>`)

const maxEmbeddedRunes = 12000

// OpenQuestionsSystem instructs the model to generate exactly ten open
// questions about a piece of student code.
func OpenQuestionsSystem(lang model.Language) string {
	var sb strings.Builder
	if lang == model.LangEN {
		sb.WriteString("You are a code assessment expert. Analyze the provided code and generate exactly 10 relevant open questions to evaluate the student's understanding.\n\n")
		sb.WriteString("Criteria:\n")
		sb.WriteString("- Varied questions (comprehension, logic, best practices, improvements)\n")
		sb.WriteString("- Mixed difficulty levels (easy, medium, hard)\n")
		sb.WriteString("- Questions grounded in the provided code\n")
		sb.WriteString("- Strict JSON format\n\n")
		sb.WriteString("Return ONLY a JSON object with this structure:\n")
	} else {
		sb.WriteString("Tu es un expert en évaluation de code. Analyse le code fourni et génère exactement 10 questions ouvertes pertinentes pour évaluer la compréhension de l'étudiant.\n\n")
		sb.WriteString("Critères:\n")
		sb.WriteString("- Questions variées (compréhension, logique, bonnes pratiques, améliorations)\n")
		sb.WriteString("- Niveaux de difficulté mélangés (easy, medium, hard)\n")
		sb.WriteString("- Questions contextuelles au code fourni\n")
		sb.WriteString("- Format JSON strict\n\n")
		sb.WriteString("Retourne uniquement un JSON avec cette structure:\n")
	}
	sb.WriteString(`{"questions": [{"id": "q1", "text": "...", "difficulty": "easy|medium|hard", "context": "...", "category": "..."}]}`)
	sb.WriteString("\n")
	return sb.String()
}

// OpenQuestionsUser wraps the student code for the question generator.
func OpenQuestionsUser(code, progLang string, lang model.Language) string {
	code = Sanitize(code)
	if lang == model.LangEN {
		return fmt.Sprintf("Analyze this %s code and generate 10 assessment questions:\n\n```%s\n%s\n```", progLang, progLang, code)
	}
	return fmt.Sprintf("Analyse ce code %s et génère 10 questions d'évaluation:\n\n```%s\n%s\n```", progLang, progLang, code)
}

// EvaluateAnswersSystem instructs the model to grade the student's answers.
func EvaluateAnswersSystem(lang model.Language) string {
	var sb strings.Builder
	if lang == model.LangEN {
		sb.WriteString("You are an expert grader. Evaluate the student's answers to the questions about the provided code.\n\n")
		sb.WriteString("Grading criteria:\n")
		sb.WriteString("- Technical correctness (40%)\n")
		sb.WriteString("- Understanding of the context (30%)\n")
		sb.WriteString("- Clarity of the explanation (20%)\n")
		sb.WriteString("- Improvement proposals (10%)\n\n")
		sb.WriteString("Return ONLY a JSON object with this structure:\n")
	} else {
		sb.WriteString("Tu es un correcteur expert. Évalue les réponses de l'étudiant aux questions sur le code fourni.\n\n")
		sb.WriteString("Critères d'évaluation:\n")
		sb.WriteString("- Justesse technique (40%)\n")
		sb.WriteString("- Compréhension du contexte (30%)\n")
		sb.WriteString("- Clarté de l'explication (20%)\n")
		sb.WriteString("- Propositions d'amélioration (10%)\n\n")
		sb.WriteString("Retourne uniquement un JSON avec cette structure:\n")
	}
	sb.WriteString(`{"evaluations": [{"questionId": "q1", "score": 8.5, "maxScore": 10, "feedback": "...", "suggestions": ["..."]}], "totalScore": 85, "maxTotalScore": 100, "overallFeedback": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}

// QAPair is one question together with the student's answer, serialized into
// the evaluation prompt.
type QAPair struct {
	Question   string           `json:"question"`
	Answer     string           `json:"answer"`
	Difficulty model.Difficulty `json:"difficulty"`
	Context    string           `json:"context"`
}

// EvaluateAnswersUser builds the user message with the original code and the
// question/answer pairs.
func EvaluateAnswersUser(code, pairsJSON string, lang model.Language) string {
	code = Sanitize(code)
	if lang == model.LangEN {
		return fmt.Sprintf("Original code:\n```\n%s\n```\n\nQuestions and answers to evaluate:\n%s", code, pairsJSON)
	}
	return fmt.Sprintf("Code original:\n```\n%s\n```\n\nQuestions et réponses à évaluer:\n%s", code, pairsJSON)
}

// ImprovementSystem instructs the model to produce a code review report.
func ImprovementSystem(hasSpecs bool, lang model.Language) string {
	var sb strings.Builder
	if lang == model.LangEN {
		sb.WriteString("You are a code review expert. Analyze the provided code and propose concrete improvements.\n\n")
		if hasSpecs {
			sb.WriteString("Take the provided project specifications into account.\n\n")
		}
		sb.WriteString("Analysis criteria:\n")
		sb.WriteString("- Programming best practices\n")
		sb.WriteString("- Performance and optimization\n")
		sb.WriteString("- Readability and maintainability\n")
		sb.WriteString("- Security\n")
		sb.WriteString("- Architecture and design patterns\n\n")
		sb.WriteString("Return ONLY a JSON object with this structure:\n")
	} else {
		sb.WriteString("Tu es un expert en révision de code. Analyse le code fourni et propose des améliorations concrètes.\n\n")
		if hasSpecs {
			sb.WriteString("Considère les spécifications du projet fournies.\n\n")
		}
		sb.WriteString("Critères d'analyse:\n")
		sb.WriteString("- Bonnes pratiques de programmation\n")
		sb.WriteString("- Performance et optimisation\n")
		sb.WriteString("- Lisibilité et maintenabilité\n")
		sb.WriteString("- Sécurité\n")
		sb.WriteString("- Architecture et design patterns\n\n")
		sb.WriteString("Retourne uniquement un JSON avec cette structure:\n")
	}
	sb.WriteString(`{"improvements": [{"category": "...", "priority": "low|medium|high", "description": "...", "suggestion": "...", "lineNumbers": [5, 12]}], "externalQuestions": [{"question": "...", "purpose": "..."}], "overallScore": 75, "report": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}

// ImprovementUser wraps the code and optional project specifications.
func ImprovementUser(code, projectSpecs, progLang string, lang model.Language) string {
	code = Sanitize(code)
	var sb strings.Builder
	if lang == model.LangEN {
		fmt.Fprintf(&sb, "Code to analyze (%s):\n```%s\n%s\n```", progLang, progLang, code)
		if projectSpecs != "" {
			sb.WriteString("\n\nProject specifications:\n" + Sanitize(projectSpecs))
		}
	} else {
		fmt.Fprintf(&sb, "Code à analyser (%s):\n```%s\n%s\n```", progLang, progLang, code)
		if projectSpecs != "" {
			sb.WriteString("\n\nSpécifications du projet:\n" + Sanitize(projectSpecs))
		}
	}
	return sb.String()
}

// LatexExamSystem instructs the model to extract competencies from a LaTeX
// document and generate MCQ questions for them.
func LatexExamSystem(lang model.Language) string {
	var sb strings.Builder
	if lang == model.LangEN {
		sb.WriteString("You are an exam design expert. Analyze the provided LaTeX content and generate MCQ questions based on the competencies to acquire.\n\n")
		sb.WriteString("Objectives:\n")
		sb.WriteString("- Identify the key competencies of the document\n")
		sb.WriteString("- Create relevant MCQ questions\n")
		sb.WriteString("- Vary the difficulty levels\n")
		sb.WriteString("- 4 options per question with exactly 1 correct answer\n\n")
		sb.WriteString("Answer language: en\n\n")
		sb.WriteString("Return ONLY a JSON object with this structure:\n")
	} else {
		sb.WriteString("Tu es un expert en création d'examens. Analyse le contenu LaTeX fourni et génère des questions QCM basées sur les compétences à acquérir.\n\n")
		sb.WriteString("Objectifs:\n")
		sb.WriteString("- Identifier les compétences clés du document\n")
		sb.WriteString("- Créer des questions QCM pertinentes\n")
		sb.WriteString("- Varier les niveaux de difficulté\n")
		sb.WriteString("- 4 options par question avec 1 seule bonne réponse\n\n")
		sb.WriteString("Langue de réponse: fr\n\n")
		sb.WriteString("Retourne uniquement un JSON avec cette structure:\n")
	}
	sb.WriteString(`{"competencies": ["..."], "questions": [{"id": "mcq1", "text": "...", "options": ["A", "B", "C", "D"], "correctAnswer": 0, "difficulty": "easy|medium|hard", "category": "...", "competency": "..."}]}`)
	sb.WriteString("\n")
	return sb.String()
}

// LatexExamUser wraps the LaTeX document.
func LatexExamUser(content string, lang model.Language) string {
	content = Sanitize(content)
	if lang == model.LangEN {
		return "LaTeX content to analyze:\n\n" + content
	}
	return "Contenu LaTeX à analyser:\n\n" + content
}

// Sanitize neutralizes instruction-like markup in student-supplied text and
// caps its length before it is embedded in a prompt.
func Sanitize(text string) string {
	text = systemTagRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > maxEmbeddedRunes {
		runes := []rune(text)
		text = string(runes[:maxEmbeddedRunes]) + "\n\n[contenu tronqué]"
	}
	return text
}
