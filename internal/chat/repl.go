package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// ExitWords end the conversation when typed on their own.
var ExitWords = []string{"exit", "quit", "stop", "bye", "goodbye", "see you", "later"}

const (
	cmdRetrieve = "retrieve past session"
	cmdClear    = "clear memory"
	cmdFeedback = "feedback"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true)
	roleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	noticeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// IsExit reports whether input is one of ExitWords.
func IsExit(input string) bool {
	input = strings.ToLower(strings.TrimSpace(input))
	for _, w := range ExitWords {
		if input == w {
			return true
		}
	}
	return false
}

// ParseFeedback parses "feedback <id> <score>".
func ParseFeedback(input string) (id int64, score int, ok bool) {
	fields := strings.Fields(input)
	if len(fields) != 3 || !strings.EqualFold(fields[0], cmdFeedback) {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	score, err = strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0, false
	}
	return id, score, true
}

// Handle runs one line of input and writes the reply to out. Commands must be
// typed on their own; anything else is a question. It returns false when the
// conversation should end.
func (s *Session) Handle(ctx context.Context, input string, out io.Writer) (bool, error) {
	input = strings.TrimSpace(input)
	lower := strings.ToLower(input)

	switch {
	case input == "":
		return true, nil

	case IsExit(input):
		fmt.Fprintln(out, errorStyle.Render("Goodbye! Have a great day! 👋"))
		return false, nil

	case lower == cmdRetrieve:
		entries, err := s.History(ctx)
		if err != nil {
			return true, err
		}
		writeHistory(out, entries)
		return true, nil

	case lower == cmdClear:
		if err := s.Forget(ctx); err != nil {
			return true, err
		}
		fmt.Fprintln(out, agent("Memory cleared!"))
		return true, nil

	case strings.HasPrefix(lower, cmdFeedback+" "):
		id, score, ok := ParseFeedback(input)
		if !ok {
			fmt.Fprintln(out, agent("Usage: feedback <id> <score>"))
			return true, nil
		}
		err := s.Rate(ctx, id, score)
		if errors.Is(err, domain.ErrEntryNotFound) {
			fmt.Fprintln(out, agent(fmt.Sprintf("No answer with id %d.", id)))
			return true, nil
		}
		if err != nil {
			return true, err
		}
		fmt.Fprintln(out, agent("Feedback recorded. Thank you!"))
		return true, nil
	}

	answers, ret, err := s.Ask(ctx, input)
	if err != nil {
		return true, err
	}
	if !ret.Found {
		fmt.Fprintln(out, agent(NoRelevantObservation))
	}
	for _, a := range answers {
		content := a.Content
		if a.Err != nil {
			content = errorStyle.Render("error: " + a.Err.Error())
		}
		fmt.Fprintf(out, "🤖 %s %s\n\n", roleStyle.Render(a.Role+":"), answerStyle.Render(content))
	}
	return true, nil
}

// Run reads lines from in until an exit word, EOF or the context ends.
// Command errors are reported and the loop continues.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "\n🤖 %s Type your question or 'exit' to quit. (session %s)\n\n",
		noticeStyle.Render("IT Systems Adaptive Memory Chatbot Ready!"), s.id)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("👤 You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		more, err := s.Handle(ctx, scanner.Text(), out)
		if err != nil {
			s.logger.Error("chat command failed", "error", err)
			fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
		}
		if !more {
			return nil
		}
	}
}

func agent(msg string) string {
	return "🤖 " + roleStyle.Render("AI Agent:") + " " + answerStyle.Render(msg)
}

func writeHistory(out io.Writer, entries []domain.MemoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, agent("No past session found."))
		return
	}
	fmt.Fprintln(out, "\n🤖 "+noticeStyle.Render("Past Conversations:"))
	for _, e := range entries {
		role := e.Role
		if role == "" {
			role = "AI Agent"
		}
		fmt.Fprintf(out, "[%d] 👤 You: %s\n    🤖 %s: %s (feedback %d)\n\n", e.ID, e.Query, role, e.Response, e.Feedback)
	}
}
