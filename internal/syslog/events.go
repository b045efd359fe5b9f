package syslog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// event is the subset of a Windows event record that jolt prints.
type event struct {
	System struct {
		Provider struct {
			Name string `xml:"Name,attr"`
		} `xml:"Provider"`
		EventID     int `xml:"EventID"`
		TimeCreated struct {
			SystemTime string `xml:"SystemTime,attr"`
		} `xml:"TimeCreated"`
		Computer string `xml:"Computer"`
	} `xml:"System"`
	Data []eventData `xml:"EventData>Data"`
}

type eventData struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

// parseEvents decodes the sequence of <Event> elements wevtutil prints with /f:xml.
// The output has no enclosing root element.
func parseEvents(out []byte) ([]event, error) {
	events := []event{}

	dec := xml.NewDecoder(bytes.NewReader(out))

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return events, nil
		}

		if err != nil {
			return nil, fmt.Errorf("decoding event log: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Event" {
			continue
		}

		var ev event
		if err := dec.DecodeElement(&ev, &start); err != nil {
			return nil, fmt.Errorf("decoding event log: %w", err)
		}

		events = append(events, ev)
	}
}

// formatEvents renders one line per event, journalctl style.
func formatEvents(events []event) []string {
	lines := make([]string, 0, len(events))

	for _, ev := range events {
		values := make([]string, 0, len(ev.Data))

		for _, d := range ev.Data {
			if v := strings.TrimSpace(d.Value); v != "" {
				values = append(values, v)
			}
		}

		lines = append(lines, fmt.Sprintf("%s %s %s[%d]: %s",
			ev.System.TimeCreated.SystemTime, ev.System.Computer, ev.System.Provider.Name,
			ev.System.EventID, strings.Join(values, "; ")))
	}

	return lines
}
