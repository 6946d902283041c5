package nats

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream holding lifecycle events.
	StreamName = "SHARECYCLE_EVENTS"
	// SubjectPrefix is prepended to the event type to build a subject.
	SubjectPrefix = "sharecycle.events."
	// AllSubjects matches every lifecycle event.
	AllSubjects = SubjectPrefix + ">"
)

func connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("sharecycle-be"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func SubjectFor(eventType string) string {
	return SubjectPrefix + eventType
}

// EventTypeFromSubject is the inverse of SubjectFor.
func EventTypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, SubjectPrefix)
}
