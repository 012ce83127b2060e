package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TaskID is a question identifier that tolerates both JSON strings and
// numbers in the question bank ("id": 7 and "id": "7a" are both valid).
// The canonical form is the string representation.
type TaskID string

// UnmarshalJSON accepts a JSON string or number.
func (id *TaskID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id must be a string or number: %s", string(b))
	}
	*id = TaskID(n.String())
	return nil
}

// Num returns the numeric value of the ID, or false if it is not numeric.
// Used to match tasks against reference-text ranges.
func (id TaskID) Num() (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Task is a single short-answer question. Read-only for the session core.
type Task struct {
	ID      TaskID          `json:"id"`
	Text    string          `json:"text"`
	Hint    string          `json:"hint,omitempty"`
	Answers json.RawMessage `json:"answers,omitempty"` // teacher-mode only, stripped for students
	Points  int             `json:"points,omitempty"`
	Type    string          `json:"type,omitempty"`
}

// TextBlock is a shared reference text attached to a contiguous ID range of
// tasks (e.g. a reading passage for tasks 22–26).
type TextBlock struct {
	Range [2]int `json:"range"`
	Title string `json:"title,omitempty"`
	HTML  string `json:"html"`
}

// QuestionBankMeta carries variant metadata and optional reference texts.
type QuestionBankMeta struct {
	Title    string               `json:"title"`
	Variant  string               `json:"variant"`
	Texts    map[string]TextBlock `json:"texts,omitempty"`
	TextHTML string               `json:"textHtml,omitempty"`
}

// QuestionBank is the fetched quiz variant: metadata plus the task list.
// An empty Tasks slice is tolerated; the session then disables interaction.
type QuestionBank struct {
	Meta  QuestionBankMeta `json:"meta"`
	Tasks []Task           `json:"tasks"`
}

// TaskByID returns the task with the given ID, or nil.
func (b *QuestionBank) TaskByID(id TaskID) *Task {
	for i := range b.Tasks {
		if b.Tasks[i].ID == id {
			return &b.Tasks[i]
		}
	}
	return nil
}

// TextForTask resolves the reference text block covering the task's numeric
// ID, if any. Falls back to the whole-bank TextHTML when no ranged block
// matches.
func (b *QuestionBank) TextForTask(id TaskID) *TextBlock {
	n, ok := id.Num()
	if ok {
		for k := range b.Meta.Texts {
			blk := b.Meta.Texts[k]
			lo, hi := blk.Range[0], blk.Range[1]
			if lo > hi {
				lo, hi = hi, lo
			}
			if n >= lo && n <= hi && blk.HTML != "" {
				return &blk
			}
		}
	}
	if b.Meta.TextHTML != "" {
		return &TextBlock{Title: "Text", HTML: b.Meta.TextHTML}
	}
	return nil
}
