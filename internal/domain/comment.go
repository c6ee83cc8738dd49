package domain

import (
	"slices"
	"time"
)

// DefaultCommentAuthor is used when a comment is posted before a staff name
// has been entered.
const DefaultCommentAuthor = "担当者"

// NewestFirst returns the comments ordered by PostedAt descending.
// Storage order is irrelevant; the input slice is not modified.
func NewestFirst(comments []Comment) []Comment {
	out := slices.Clone(comments)
	slices.SortStableFunc(out, func(a, b Comment) int {
		return b.PostedAt.Compare(a.PostedAt)
	})
	return out
}

// CommentTime formats a comment timestamp for display.
func CommentTime(t time.Time) string {
	return t.Local().Format("2006/01/02 15:04")
}
