// Package transcript reads exported message logs and condenses
// conversations into prompt-sized text.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Record is one line of a JSONL message export.
type Record struct {
	SenderID   int64           `json:"sender_id"`
	ReceiverID int64           `json:"receiver_id"`
	Message    string          `json:"message"`
	SentAt     json.RawMessage `json:"sent_at,omitempty"` // RFC 3339 string or Unix milliseconds
}

// ParsedMessage is a validated record. SentAt is Unix milliseconds, 0 when
// the export did not carry one.
type ParsedMessage struct {
	SenderID   int64
	ReceiverID int64
	Text       string
	SentAt     int64
}

// Batch is the outcome of parsing one export.
type Batch struct {
	Messages []ParsedMessage
	Skipped  int // malformed or unusable lines
}

// ParseFile reads a JSONL export file.
func ParseFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// ParseLines parses export content from a string (for testing).
func ParseLines(content string) (*Batch, error) {
	return Parse(strings.NewReader(content))
}

// Parse reads JSONL records from r, skipping blank lines and counting
// malformed ones.
func Parse(r io.Reader) (*Batch, error) {
	b := &Batch{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := parseLine(line)
		if err != nil {
			b.Skipped++
			continue
		}
		b.Messages = append(b.Messages, *msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan export: %w", err)
	}
	return b, nil
}

func parseLine(line []byte) (*ParsedMessage, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, err
	}
	return rec.Validate()
}

// Validate checks a record and converts it to a ParsedMessage.
func (rec Record) Validate() (*ParsedMessage, error) {
	switch {
	case rec.SenderID <= 0 || rec.ReceiverID <= 0:
		return nil, fmt.Errorf("missing user id")
	case rec.SenderID == rec.ReceiverID:
		return nil, fmt.Errorf("sender and receiver are both %d", rec.SenderID)
	}

	text := strings.TrimSpace(rec.Message)
	if text == "" {
		return nil, fmt.Errorf("empty message")
	}

	sentAt, err := parseSentAt(rec.SentAt)
	if err != nil {
		return nil, err
	}

	return &ParsedMessage{
		SenderID:   rec.SenderID,
		ReceiverID: rec.ReceiverID,
		Text:       text,
		SentAt:     sentAt,
	}, nil
}

// parseSentAt accepts a number of Unix milliseconds or an RFC 3339 string.
func parseSentAt(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return ms, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("sent_at: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, fmt.Errorf("sent_at: %w", err)
	}
	return t.UnixMilli(), nil
}
