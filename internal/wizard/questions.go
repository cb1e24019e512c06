package wizard

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/BerylCAtieno/persona-interviewer/internal/progress"
)

const (
	opEditQuestions  = "edit questions"
	opReloadDefaults = "reload default questions"
	opUpload         = "upload questions"
	opEditAdditional = "edit hypothesis questions"
)

// cleanQuestions trims every question and rejects an empty list or a blank
// entry.
func cleanQuestions(op string, questions []string) ([]string, error) {
	if len(questions) == 0 {
		return nil, invalid(op, "at least one question is required")
	}
	out := make([]string, len(questions))
	for i, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, invalid(op, "question %d is blank", i+1)
		}
		out[i] = q
	}
	return out, nil
}

func (c *Controller) editQuestions(fn func(s State) (action, error)) error {
	return c.apply(opEditQuestions, func(s State) (action, error) {
		if err := requireStep(opEditQuestions, s, StepQuestionEditing); err != nil {
			return nil, err
		}
		return fn(s)
	})
}

func (c *Controller) AddQuestion(text string) error {
	return c.editQuestions(func(State) (action, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, invalid(opEditQuestions, "question is blank")
		}
		return questionAdded{text: text}, nil
	})
}

func (c *Controller) RemoveQuestion(index int) error {
	return c.editQuestions(func(s State) (action, error) {
		if index < 0 || index >= len(s.Questions) {
			return nil, invalid(opEditQuestions, "no question at index %d", index)
		}
		return questionRemoved{index: index}, nil
	})
}

func (c *Controller) EditQuestion(index int, text string) error {
	return c.editQuestions(func(s State) (action, error) {
		if index < 0 || index >= len(s.Questions) {
			return nil, invalid(opEditQuestions, "no question at index %d", index)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, invalid(opEditQuestions, "question %d is blank", index+1)
		}
		return questionEdited{index: index, text: text}, nil
	})
}

// ClearQuestions empties the list. The interview cannot start until at least
// one question is added again.
func (c *Controller) ClearQuestions() error {
	return c.editQuestions(func(State) (action, error) {
		return questionsReplaced{questions: nil}, nil
	})
}

// SetQuestions replaces the whole list.
func (c *Controller) SetQuestions(questions []string) error {
	return c.editQuestions(func(State) (action, error) {
		cleaned, err := cleanQuestions(opEditQuestions, questions)
		if err != nil {
			return nil, err
		}
		return questionsReplaced{questions: cleaned}, nil
	})
}

// SetAdditionalQuestions replaces the questions for the hypothesis interview.
// A hypothesis that came back without questions can only move on this way.
func (c *Controller) SetAdditionalQuestions(questions []string) error {
	return c.apply(opEditAdditional, func(s State) (action, error) {
		if err := requireStep(opEditAdditional, s, StepHypothesisReview); err != nil {
			return nil, err
		}
		cleaned, err := cleanQuestions(opEditAdditional, questions)
		if err != nil {
			return nil, err
		}
		return additionalQuestionsReplaced{questions: cleaned}, nil
	})
}

// ReloadDefaultQuestions replaces the list with a fresh default set for the
// project topic.
func (c *Controller) ReloadDefaultQuestions(ctx context.Context) error {
	return c.run(ctx, opReloadDefaults, func(ctx context.Context, rep *progress.Reporter) error {
		s := c.snapshot()
		if err := requireStep(opReloadDefaults, s, StepQuestionEditing); err != nil {
			return err
		}
		rep.Set(10, "Loading default questions")
		qs, err := c.api.DefaultQuestions(ctx, s.Project.Topic)
		if err != nil {
			return err
		}
		c.commit(questionsReplaced{questions: qs})
		rep.Set(100, fmt.Sprintf("%d questions loaded", len(qs)))
		return nil
	})
}

// UploadQuestions sends a spreadsheet to the backend and replaces the list
// with the questions it found.
func (c *Controller) UploadQuestions(ctx context.Context, filename string, r io.Reader) error {
	return c.run(ctx, opUpload, func(ctx context.Context, rep *progress.Reporter) error {
		if err := requireStep(opUpload, c.snapshot(), StepQuestionEditing); err != nil {
			return err
		}
		if strings.TrimSpace(filename) == "" {
			return invalid(opUpload, "file name is required")
		}
		rep.Set(10, "Uploading "+filename)
		resp, err := c.api.UploadQuestions(ctx, filename, r)
		if err != nil {
			return err
		}
		if len(resp.Questions) == 0 {
			return fmt.Errorf("no questions found in %s", filename)
		}
		c.commit(questionsReplaced{questions: resp.Questions})
		rep.Set(100, fmt.Sprintf("%d questions loaded from %s", len(resp.Questions), filename))
		return nil
	})
}
