package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-exams/internal/quiz"
	"github.com/mind-engage/mindengage-exams/internal/taking"
)

// answerSpec is one entry of an answers file. Multiple-choice questions use
// choice (option text) or index (0-based, in the order `quiz questions`
// lists them); essays use one of text, link or file.
//
//	{"1": {"choice": "Paris"}, "q-42": {"file": "essay.pdf"}}
type answerSpec struct {
	Choice string `json:"choice,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Text   string `json:"text,omitempty"`
	Link   string `json:"link,omitempty"`
	File   string `json:"file,omitempty"`
}

// readAnswers loads an answers file keyed by question id or 1-based position.
func readAnswers(path string) (map[string]answerSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]answerSpec
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("answers file %s: %w", path, err)
	}
	return out, nil
}

type answerer interface {
	SelectOption(questionID string, index int) error
	SetEssayText(questionID, text string) error
	SetEssayLink(questionID, link string) error
	SetEssayFile(questionID string, up quiz.Upload) error
}

func applyAnswers(a answerer, items []taking.Item, answers map[string]answerSpec, baseDir string) error {
	used := make(map[string]bool, len(answers))
	for pos, it := range items {
		key := it.ID
		spec, ok := answers[key]
		if !ok {
			key = strconv.Itoa(pos + 1)
			spec, ok = answers[key]
		}
		if !ok {
			continue
		}
		used[key] = true
		if err := applyOne(a, it, spec, baseDir); err != nil {
			return fmt.Errorf("question %d: %w", pos+1, err)
		}
	}
	for k := range answers {
		if !used[k] {
			return fmt.Errorf("answers file: no question %q", k)
		}
	}
	return nil
}

func applyOne(a answerer, it taking.Item, spec answerSpec, baseDir string) error {
	if it.Type == quiz.TypeMultipleChoice {
		i, err := displayIndex(it, spec)
		if err != nil {
			return err
		}
		return a.SelectOption(it.ID, i)
	}
	switch {
	case spec.File != "":
		path := spec.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		st, err := os.Stat(path)
		if err != nil {
			return err
		}
		return a.SetEssayFile(it.ID, quiz.Upload{
			Name: filepath.Base(path),
			Size: st.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	case spec.Link != "":
		return a.SetEssayLink(it.ID, spec.Link)
	case spec.Text != "":
		return a.SetEssayText(it.ID, spec.Text)
	}
	return errors.New("essay needs text, link or file")
}

func displayIndex(it taking.Item, spec answerSpec) (int, error) {
	if spec.Choice != "" {
		want := strings.TrimSpace(spec.Choice)
		for i, o := range it.Options {
			if strings.EqualFold(strings.TrimSpace(o), want) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("no option %q", spec.Choice)
	}
	if spec.Index != nil {
		for i := range it.Options {
			if orig, ok := it.OriginalIndex(i); ok && orig == *spec.Index {
				return i, nil
			}
		}
		return 0, fmt.Errorf("no option at index %d", *spec.Index)
	}
	return 0, errors.New("multiple choice needs choice or index")
}
