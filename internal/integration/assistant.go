package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/clock"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/task"
)

const maxPromptTasks = 50

var answerSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"answer": map[string]any{"type": "string"},
		"task_ids": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []any{"answer"},
}

type TaskSource interface {
	ListForUser(ctx context.Context, email string, f task.ListFilter) ([]model.Task, error)
}

type Answer struct {
	Answer  string   `json:"answer"`
	TaskIDs []string `json:"task_ids,omitempty"`
}

// Assistant answers questions about the caller's open tasks.
type Assistant struct {
	tasks TaskSource
	llm   *LLM
	clock clock.Clock
}

func NewAssistant(tasks TaskSource, llm *LLM, c clock.Clock) *Assistant {
	if c == nil {
		c = clock.Real{}
	}
	return &Assistant{tasks: tasks, llm: llm, clock: c}
}

func (a *Assistant) Ask(ctx context.Context, email, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrBadPrompt
	}
	if !a.llm.Enabled() {
		return Answer{}, ErrLLMDisabled
	}
	open, err := a.tasks.ListForUser(ctx, email, task.ListFilter{Status: "pending"})
	if err != nil {
		return Answer{}, fmt.Errorf("load tasks: %w", err)
	}

	out, err := a.llm.Invoke(ctx, buildPrompt(clock.Today(a.clock).String(), email, open, question), answerSchema)
	if err != nil {
		return Answer{}, err
	}

	ans := Answer{}
	ans.Answer, _ = out["answer"].(string)
	ans.TaskIDs = model.AsStrings(out["task_ids"])
	return ans, nil
}

func buildPrompt(today, email string, tasks []model.Task, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a project assistant for %s. Today is %s.\n", email, today)
	b.WriteString("Answer using only the open tasks listed below. Refer to tasks by id.\n\n")
	b.WriteString("Open tasks:\n")
	if len(tasks) == 0 {
		b.WriteString("(none)\n")
	}
	for i, t := range tasks {
		if i == maxPromptTasks {
			fmt.Fprintf(&b, "... and %d more\n", len(tasks)-maxPromptTasks)
			break
		}
		fmt.Fprintf(&b, "- [%s] %s | status: %s", t.ID, t.Title, orDash(t.Status()))
		if due := t.DueDate(); due != "" {
			fmt.Fprintf(&b, " | due: %s", due)
		}
		if p := t.Data.String(model.KeyPriority); p != "" {
			fmt.Fprintf(&b, " | priority: %s", p)
		}
		if !t.Recurrence.IsNone() {
			fmt.Fprintf(&b, " | repeats: %s", t.Recurrence)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", strings.TrimSpace(question))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
