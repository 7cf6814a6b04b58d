package store

import "time"

// Index domain types

type File struct {
	ID          int64
	Path        string
	Hash        string
	LastIndexed time.Time
}

// Document is one document literal of a file. Text is the combined text
// when the literal resolved; Error holds the reasons it did not.
type Document struct {
	ID          int64
	FileID      int64
	Ordinal     int
	StartOffset int
	EndOffset   int
	Text        string
	Resolved    bool
	Error       string
}

type Fragment struct {
	ID            int64
	DocumentID    int64
	FileID        int64
	Name          string
	TypeCondition string
	TextOffset    int
	Body          string
}

type Spread struct {
	ID         int64
	DocumentID int64
	Name       string
}

// FragmentLocation is a fragment joined with the path of its file.
type FragmentLocation struct {
	Fragment
	Path string
}
