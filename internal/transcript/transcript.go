package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Participant ids used throughout the corpus: C1 is always the customer,
// A1 the agent.
const (
	CustomerID = "C1"
	AgentID    = "A1"
)

const Version = "1.1.0"

type Participant struct {
	ParticipantID   string `json:"ParticipantId"`
	ParticipantRole string `json:"ParticipantRole"`
}

type ContentMetadata struct {
	RedactionTypes []string `json:"RedactionTypes"`
	Output         string   `json:"Output"`
}

type CustomerMetadata struct {
	ContactID string `json:"ContactId"`
}

type Entry struct {
	ParticipantID string `json:"ParticipantId"`
	ID            string `json:"Id"`
	Content       string `json:"Content"`
}

// Document is the fixed transcript schema shared with the contact-center
// transcript analysis tooling.
type Document struct {
	Participants     []Participant    `json:"Participants"`
	Version          string           `json:"Version"`
	ContentMetadata  ContentMetadata  `json:"ContentMetadata"`
	CustomerMetadata CustomerMetadata `json:"CustomerMetadata"`
	Transcript       []Entry          `json:"Transcript"`
}

// Turn is one speaker-tagged line of a conversation.
type Turn struct {
	Participant string
	Content     string
}

// Build assembles a Document from ordered turns.
func Build(contactID string, turns []Turn) Document {
	entries := make([]Entry, len(turns))
	for i, t := range turns {
		entries[i] = Entry{
			ParticipantID: t.Participant,
			ID:            fmt.Sprintf("T%06d", i+1),
			Content:       t.Content,
		}
	}
	return Document{
		Participants: []Participant{
			{ParticipantID: AgentID, ParticipantRole: "AGENT"},
			{ParticipantID: CustomerID, ParticipantRole: "CUSTOMER"},
		},
		Version: Version,
		ContentMetadata: ContentMetadata{
			RedactionTypes: []string{"PII"},
			Output:         "Raw",
		},
		CustomerMetadata: CustomerMetadata{ContactID: contactID},
		Transcript:       entries,
	}
}

// Parse decodes a transcript document from JSON.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse transcript: %w", err)
	}
	if len(doc.Transcript) == 0 {
		return doc, fmt.Errorf("transcript has no turns")
	}
	return doc, nil
}

// Turns returns the ordered (participant, content) pairs of the document.
func (d Document) Turns() []Turn {
	turns := make([]Turn, len(d.Transcript))
	for i, e := range d.Transcript {
		turns[i] = Turn{Participant: e.ParticipantID, Content: e.Content}
	}
	return turns
}

// PlainText joins turn contents line by line, the shape fed to graders.
func (d Document) PlainText() string {
	var b strings.Builder
	for _, e := range d.Transcript {
		b.WriteString(e.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

// Speaker maps a participant id to a display role.
func Speaker(participantID string) string {
	if participantID == CustomerID {
		return "Customer"
	}
	return "Agent"
}
