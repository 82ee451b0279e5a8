/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package table holds the game state of a single player and reacts to the
// events coming from their browser. It knows nothing about HTML or sockets;
// everything it shows goes through the View it was constructed with.
//
// A Table is not safe for concurrent use. The caller is expected to deliver
// every event, including the continuations passed to post, from one goroutine.
package table

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/oracle/deck"
	"github.com/Seednode/oracle/rng"
	"github.com/Seednode/oracle/store"
)

const (
	DeclineHold     = 2000 * time.Millisecond
	CollapseTimeout = 850 * time.Millisecond
)

type Phase int

const (
	Hidden Phase = iota
	Assignment
	Answer
	Declining
	Collapsing
)

func (p Phase) String() string {
	switch p {
	case Hidden:
		return "hidden"
	case Assignment:
		return "assignment"
	case Answer:
		return "answer"
	case Declining:
		return "declining"
	case Collapsing:
		return "collapsing"
	}

	return "unknown"
}

// Card is the content of the assignment dialog.
type Card struct {
	Person    string `json:"person"`
	Blessing  string `json:"blessing"`
	Question  string `json:"question"`
	Readiness string `json:"readiness"`
}

type View interface {
	SetTexts(questions, people string)
	SetStatus(msg string)
	SetDecideEnabled(enabled bool)
	ShowAssignment(Card)
	ShowAnswer()
	ShowSelfCare(text string)
	Collapse()
	HideModal()
}

type Storage interface {
	Load(ctx context.Context, owner string) (store.Texts, error)
	Save(ctx context.Context, owner, questions, people string) error
}

// Animation is the backdrop shown while the dialog is open.
type Animation interface {
	Start()
	Stop() error
}

type Table struct {
	owner   string
	view    View
	storage Storage
	anim    Animation
	rng     *rng.RNG
	delay   *Delay
	logger  *zap.Logger

	questions string
	people    string
	phase     Phase
	pair      deck.Pair
}

// Config groups a table's collaborators. Storage and Animation may be nil.
type Config struct {
	Owner     string
	View      View
	Storage   Storage
	Animation Animation
	RNG       *rng.RNG
	Post      func(func())
	AfterFunc AfterFunc
	Logger    *zap.Logger
}

func New(cfg Config) *Table {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := cfg.RNG
	if r == nil {
		r = rng.FromSeed(rng.DefaultSeed(time.Now()))
	}

	return &Table{
		owner:   cfg.Owner,
		view:    cfg.View,
		storage: cfg.Storage,
		anim:    cfg.Animation,
		rng:     r,
		delay:   NewDelay(cfg.AfterFunc, cfg.Post),
		logger:  logger.With(zap.String("owner", cfg.Owner)),
	}
}

func (t *Table) Phase() Phase {
	return t.phase
}

func (t *Table) Pair() deck.Pair {
	return t.pair
}

func (t *Table) Texts() (questions, people string) {
	return t.questions, t.people
}

// Load restores the persisted texts. Storage failures leave both fields empty.
func (t *Table) Load(ctx context.Context) {
	if t.storage != nil {
		texts, err := t.storage.Load(ctx, t.owner)
		if err != nil {
			t.logger.Debug("table: continuing without stored texts", zap.Error(err))
		} else {
			if texts.HasQuestions {
				t.questions = texts.Questions
			}
			if texts.HasPeople {
				t.people = texts.People
			}
		}
	}

	t.view.SetTexts(t.questions, t.people)
	t.refresh()
}

// Sync repeats the current state to a view that has just connected.
func (t *Table) Sync() {
	t.view.SetTexts(t.questions, t.people)
	t.refresh()

	switch t.phase {
	case Assignment:
		t.view.ShowAssignment(t.card())
	case Answer:
		t.view.ShowAnswer()
	case Declining:
		t.view.ShowSelfCare(deck.SelfCare)
	case Collapsing:
		t.view.ShowSelfCare(deck.SelfCare)
		t.view.Collapse()
	}
}

func (t *Table) QuestionsChanged(ctx context.Context, text string) {
	t.questions = text
	t.edited(ctx)
}

func (t *Table) PeopleChanged(ctx context.Context, text string) {
	t.people = text
	t.edited(ctx)
}

func (t *Table) edited(ctx context.Context) {
	t.save(ctx)
	t.view.SetDecideEnabled(deck.Validate(t.questions, t.people) == "")
	t.view.SetStatus("")
}

func (t *Table) save(ctx context.Context) {
	if t.storage == nil {
		return
	}

	if err := t.storage.Save(ctx, t.owner, t.questions, t.people); err != nil {
		t.logger.Debug("table: continuing in memory", zap.Error(err))
	}
}

func (t *Table) refresh() {
	msg := deck.Validate(t.questions, t.people)

	t.view.SetDecideEnabled(msg == "")
	t.view.SetStatus(msg)
}

// Decide draws a new pair and opens the dialog. A pending decline sequence
// is cancelled first.
func (t *Table) Decide() {
	if t.phase == Answer {
		return
	}

	t.delay.Cancel()

	pair, err := deck.Draw(t.rng, t.questions, t.people)
	if err != nil {
		var verr *deck.ValidationError
		if errors.As(err, &verr) {
			t.view.SetStatus(verr.Message)
			t.view.SetDecideEnabled(false)
		}

		return
	}

	t.pair = pair
	t.phase = Assignment

	t.view.ShowAssignment(t.card())
	t.startAnimation()
}

func (t *Table) card() Card {
	return Card{
		Person:    t.pair.Person,
		Blessing:  deck.Blessing(t.pair.Person),
		Question:  t.pair.Question,
		Readiness: deck.Readiness,
	}
}

// Accept removes the drawn question and shows the answer screen.
func (t *Table) Accept(ctx context.Context) {
	if t.phase != Assignment {
		return
	}

	if questions, ok := deck.RemoveQuestion(t.questions, t.pair.Question); ok {
		t.questions = questions
		t.view.SetTexts(t.questions, t.people)
	}

	t.save(ctx)
	t.refresh()

	t.stopAnimation()
	t.pair = deck.Pair{}
	t.phase = Answer

	t.view.ShowAnswer()
	t.startAnimation()
}

func (t *Table) Answered() {
	if t.phase != Answer {
		return
	}

	t.hide()
}

// Decline thanks the player, then collapses and hides the dialog after
// DeclineHold and CollapseTimeout.
func (t *Table) Decline() {
	if t.phase != Assignment {
		return
	}

	t.phase = Declining
	t.view.ShowSelfCare(deck.SelfCare)

	t.delay.Schedule(DeclineHold, func() {
		t.phase = Collapsing
		t.view.Collapse()

		t.delay.Schedule(CollapseTimeout, t.hide)
	})
}

// Dismiss closes the dialog from any visible phase.
func (t *Table) Dismiss() {
	if t.phase == Hidden {
		return
	}

	t.hide()
}

func (t *Table) hide() {
	t.delay.Cancel()
	t.stopAnimation()

	t.phase = Hidden
	t.pair = deck.Pair{}

	t.view.HideModal()
}

// Close cancels pending transitions and stops the animation.
func (t *Table) Close() {
	t.delay.Cancel()
	t.stopAnimation()
}

func (t *Table) startAnimation() {
	if t.anim != nil {
		t.anim.Start()
	}
}

func (t *Table) stopAnimation() {
	if t.anim == nil {
		return
	}

	if err := t.anim.Stop(); err != nil {
		t.logger.Debug("table: clearing runes", zap.Error(err))
	}
}
