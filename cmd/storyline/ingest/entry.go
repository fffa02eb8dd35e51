package ingestcmder

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/papercomputeco/storyline/pkg/story"
)

// Entry is one contribution in an ingest file.
type Entry struct {
	AuthorID   string     `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Location   string     `json:"location"`
	OccurredAt *time.Time `json:"occurred_at"`
	ParentID   *string    `json:"parent_id"`
}

// Parse reads a single entry object or an array of entries.
func Parse(r io.Reader) ([]Entry, error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.DisallowUnknownFields()

	switch first {
	case '[':
		var entries []Entry
		if err := dec.Decode(&entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		var entry Entry
		if err := dec.Decode(&entry); err != nil {
			return nil, err
		}
		return []Entry{entry}, nil
	default:
		return nil, fmt.Errorf("expected a JSON object or array, found %q", first)
	}
}

// firstByte peeks at the first non-space byte without consuming it.
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, errors.New("empty file")
			}
			return 0, err
		}
		if !strings.ContainsRune(" \t\r\n", rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// Contribution builds the contribution for storyID. Entries without an
// author or body are rejected.
func (e Entry) Contribution(storyID string) (*story.Contribution, error) {
	if strings.TrimSpace(e.AuthorName) == "" {
		return nil, errors.New("author_name is required")
	}
	c, err := story.NewContribution(storyID, e.AuthorName, e.Body)
	if err != nil {
		return nil, err
	}
	c.AuthorID = e.AuthorID
	c.Subject = strings.TrimSpace(e.Subject)
	c.Location = strings.TrimSpace(e.Location)
	c.OccurredAt = e.OccurredAt
	c.ParentID = e.ParentID
	return c, nil
}
