// Package roadio reads road events from JSON and writes fitted tracks as
// JSON lines, using the per-attribute column layout of the road ntuples.
package roadio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/banshee-data/trackfit/internal/fit/l1hits"
)

// EventRecord is the on-disk form of one event.
type EventRecord struct {
	ID    *int64               `json:"id,omitempty"`
	Roads []l1hits.RoadColumns `json:"roads"`
}

// Event converts the record. Roads whose columns disagree in length are
// kept with DecodeErr set. fallbackID is used when the record has no id.
func (r EventRecord) Event(fallbackID int64) l1hits.Event {
	ev := l1hits.Event{ID: fallbackID}
	if r.ID != nil {
		ev.ID = *r.ID
	}
	for _, c := range r.Roads {
		road, err := c.Road()
		if err != nil {
			road.DecodeErr = err
		}
		ev.Roads = append(ev.Roads, road)
	}
	return ev
}

// RecordOf is the inverse of EventRecord.Event for well-formed events.
func RecordOf(ev l1hits.Event) EventRecord {
	id := ev.ID
	rec := EventRecord{ID: &id, Roads: make([]l1hits.RoadColumns, len(ev.Roads))}
	for i, r := range ev.Roads {
		rec.Roads[i] = r.Columns()
	}
	return rec
}

// ReadEvents decodes up to limit events (limit < 0 reads all) from r, which
// holds either a JSON array of event records or a stream of records such as
// JSON lines. Events without an id are numbered by position.
func ReadEvents(r io.Reader, limit int) ([]l1hits.Event, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	array := first == '['
	if array {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
	}

	var events []l1hits.Event
	for limit < 0 || len(events) < limit {
		if array && !dec.More() {
			break
		}
		var rec EventRecord
		if err := dec.Decode(&rec); err != nil {
			if !array && errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("event record %d: %w", len(events), err)
		}
		events = append(events, rec.Event(int64(len(events))))
	}
	return events, nil
}

// ReadEventsFile reads events from a .json or .jsonl file.
func ReadEventsFile(path string, limit int) ([]l1hits.Event, error) {
	switch ext := filepath.Ext(path); ext {
	case ".json", ".jsonl":
	default:
		return nil, fmt.Errorf("input file must have .json or .jsonl extension, got %q", ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEvents(f, limit)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
