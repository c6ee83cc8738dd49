package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/travel-karte/internal/domain"
)

// edit runs fn under the session lock and, if it succeeds, marks the karte
// as changed.
func (s *Session) edit(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	s.markEditedLocked()
	return nil
}

// change is edit for mutations that cannot fail.
func (s *Session) change(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.markEditedLocked()
}

func (s *Session) markEditedLocked() {
	s.dirty = true
	s.edits++
}

// SetBasic replaces the basic info section.
func (s *Session) SetBasic(b domain.BasicInfo) {
	s.change(func() { s.basic.Set(b) })
}

// SetPersonCountText sets the person count from typed input; "1,200"
// parses and garbage counts as 0.
func (s *Session) SetPersonCountText(text string) {
	s.change(func() { s.basic.SetPersonCountText(text) })
}

// AddPayment appends a payment line and returns its id.
func (s *Session) AddPayment(p domain.Payment) (id string) {
	s.change(func() { id = s.payments.Add(p) })
	return id
}

// UpdatePayment replaces the payment line with p's id.
func (s *Session) UpdatePayment(p domain.Payment) error {
	return s.edit(func() error { return s.payments.Update(p) })
}

// RemovePayment deletes a payment line.
func (s *Session) RemovePayment(id string) error {
	return s.edit(func() error { return s.payments.Remove(id) })
}

// AddExpense appends an expense line and returns its id.
func (s *Session) AddExpense(e domain.Expense) (id string) {
	s.change(func() { id = s.expenses.Add(e) })
	return id
}

// UpdateExpense replaces the expense line with e's id.
func (s *Session) UpdateExpense(e domain.Expense) error {
	return s.edit(func() error { return s.expenses.Update(e) })
}

// RemoveExpense deletes an expense line.
func (s *Session) RemoveExpense(id string) error {
	return s.edit(func() error { return s.expenses.Remove(id) })
}

// AddComment posts text to the comment log. The author is the staff name
// of the karte, or a generic label when none is set.
func (s *Session) AddComment(text string) domain.Comment {
	var c domain.Comment
	s.change(func() {
		author := strings.TrimSpace(s.basic.Info().StaffName)
		if author == "" {
			author = domain.DefaultCommentAuthor
		}
		c = domain.Comment{ID: domain.NewLineID(), Author: author, PostedAt: s.now().UTC(), Text: text}
		s.comments = append(s.comments, c)
	})
	return c
}

// SetMemo replaces the free-text memo.
func (s *Session) SetMemo(memo string) {
	s.change(func() { s.memo = memo })
}

// --- accessors ----------------------------------------------------------

// ID is the open record's id, uuid.Nil before the first save.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.KarteID()
}

// Snapshot returns the karte as currently shown, derived blocks included.
func (s *Session) Snapshot() domain.Karte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Basic returns the header fields.
func (s *Session) Basic() domain.BasicInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basic.Info()
}

// Payments returns a copy of the payment lines.
func (s *Session) Payments() []domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments.Items()
}

// Expenses returns a copy of the expense lines.
func (s *Session) Expenses() []domain.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.Items()
}

// Comments returns the comment log newest first.
func (s *Session) Comments() []domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NewestFirst(s.comments)
}

// Memo returns the free-text memo.
func (s *Session) Memo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memo
}

// Summary returns the figures of the summary section.
func (s *Session) Summary() domain.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary.Summary()
}

// RateText is the profit rate as the summary section displays it.
func (s *Session) RateText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary.RateText()
}

// Editors returns the presence view with stale entries removed.
func (s *Session) Editors() map[string]domain.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruned(s.editors)
}

// HasChanges reports whether there are edits not yet saved.
func (s *Session) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Identity is the local editor's presence identity.
func (s *Session) Identity() Identity { return s.identity }
