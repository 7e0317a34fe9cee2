package chat

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pavnask/rag-local-fork/internal/llm"
)

// Role is an expert persona on the answering panel.
type Role struct {
	Name  string
	Focus string
}

// DefaultRoles is the answering panel, in reply order.
var DefaultRoles = []Role{
	{"Security Analyst", "Focus on identifying security vulnerabilities, compliance risks, and mitigation strategies."},
	{"Cloud Engineer", "Evaluate cloud-based solutions, performance, and scalability recommendations."},
	{"IT Manager", "Balance cost, risk, and long-term IT strategy for efficient system operations."},
	{"DevOps Specialist", "Optimize CI/CD pipelines, automation, and system performance."},
	{"Database Administrator", "Analyze database performance, integrity, and scalability issues."},
}

// LocalGuidelines are the in-house IT policies every role must weigh first.
const LocalGuidelines = `Company XYZ IT Guidelines:
- Security is the top priority. Any vulnerabilities must be flagged immediately.
- Legacy systems should be evaluated for migration every 6 months.
- Cloud-based solutions are preferred over on-premise infrastructure.
- Performance degradation beyond 10% over 3 months is considered critical.
- Compliance with ISO 27001 is mandatory for all systems.`

// ResponseTip shapes every role answer.
const ResponseTip = `[Tip for AI Response:]
1. Start with a **clear classification** of the issue (e.g., Security Risk, Performance Concern, Cost Optimization, etc.).
2. Provide **a structured response** with specific recommendations.
3. List **at least 3 actionable steps** to address the issue.
4. Ensure compliance with **Company XYZ IT Guidelines**.
5. Keep responses **concise yet informative**.`

// RolePrompt builds the prompt one role answers.
func RolePrompt(role Role, query string, ret Retrieved) *llm.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI %s. Your role is to %s\n\n", role.Name, lowerFirst(role.Focus))
	fmt.Fprintf(&b, "The user has asked the following question:\n%q\n\n", query)
	fmt.Fprintf(&b, "Consider the following local IT policies first:\n%s\n\n", LocalGuidelines)
	fmt.Fprintf(&b, "%s\n\n", ResponseTip)
	b.WriteString("Based on these policies and the most relevant IT system observation found via semantic search, provide a classification and recommendation.\n\n")
	fmt.Fprintf(&b, "Most Relevant Observation (Similarity %.2f):\n%s\n\n", ret.Score, ret.Observation)
	fmt.Fprintf(&b, "Suggested Action:\n%s", ret.Suggestion)

	return llm.UserPrompt(fmt.Sprintf("You are an AI %s specialized in IT evaluations.", role.Name), b.String())
}

// lowerFirst lowercases the leading letter so a focus reads as a verb phrase.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
