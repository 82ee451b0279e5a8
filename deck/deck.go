/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package deck turns the two raw text fields of the game into lists and
// draws a question/person pair from them.
package deck

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Seednode/oracle/rng"
)

// Storage keys under which the raw texts are persisted.
const (
	QuestionsKey = "eg.questions.v1"
	PeopleKey    = "eg.people.v1"
)

const (
	msgNothing     = "Add some questions and participant names, and get a charge of energy for the decision."
	msgNoQuestions = "Add at least one question."
	msgNoPeople    = "Add at least one name."
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// Pair is the result of a single draw.
type Pair struct {
	Question string `json:"question"`
	Person   string `json:"person"`
}

// ValidationError is returned by Draw when a list is empty. Message is meant
// for the player.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "deck: " + e.Message
}

func ParseQuestions(text string) []string {
	return clean(lineBreak.Split(text, -1))
}

func ParsePeople(text string) []string {
	return clean(strings.Split(text, ","))
}

func clean(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}

	return out
}

// Validate returns the status line for the given raw texts, or "" when a
// draw is possible.
func Validate(questions, people string) string {
	q := len(ParseQuestions(questions))
	p := len(ParsePeople(people))

	switch {
	case q == 0 && p == 0:
		return msgNothing
	case q == 0:
		return msgNoQuestions
	case p == 0:
		return msgNoPeople
	}

	return ""
}

// Draw picks a question and then a person, both uniformly, from r.
func Draw(r *rng.RNG, questions, people string) (Pair, error) {
	if msg := Validate(questions, people); msg != "" {
		return Pair{}, &ValidationError{Message: msg}
	}

	q, err := rng.Pick(r, ParseQuestions(questions))
	if err != nil {
		return Pair{}, err
	}

	p, err := rng.Pick(r, ParsePeople(people))
	if err != nil {
		return Pair{}, err
	}

	return Pair{Question: q, Person: p}, nil
}

// RemoveQuestion drops the first line of text whose trimmed value equals the
// trimmed question. If no line matches, text is returned unchanged.
func RemoveQuestion(text, question string) (string, bool) {
	question = strings.TrimSpace(question)

	lines := lineBreak.Split(text, -1)
	for i, line := range lines {
		if strings.TrimSpace(line) != question {
			continue
		}

		lines = append(lines[:i], lines[i+1:]...)

		return strings.Join(lines, "\n"), true
	}

	return text, false
}

func Blessing(person string) string {
	return fmt.Sprintf("%s, you are blessed by Odin, the singularity of a black hole and a garden elf to settle the question:", person)
}

const (
	Readiness = "Are you ready to answer this question here and now? Honor and blame for the consequences will be yours."
	SelfCare  = "Thank you for taking care of all of us."
)
