package api

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"autoops-api/domain"
)

func resetWelcomeSenderForTests() {
	shutdownWelcomeSender()
}

func waitForEmails(t *testing.T, store *mockStore, expected int) []domain.WelcomeEmail {
	t.Helper()
	deadline := time.Now().Add(200 * time.Millisecond)
	for {
		emails := store.Emails()
		if len(emails) == expected {
			return emails
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d emails, got %d", expected, len(emails))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWelcomeSenderDrainsQueue(t *testing.T) {
	resetWelcomeSenderForTests()
	t.Cleanup(resetWelcomeSenderForTests)

	store := newMockStore()
	initWelcomeSender(store, log.New())

	queueWelcomeEmail(store, log.New(), domain.WelcomeEmail{Email: "a@x.com", Name: "Alice"})
	queueWelcomeEmail(store, log.New(), domain.WelcomeEmail{Email: "b@x.com", Name: "Bob"})

	emails := waitForEmails(t, store, 2)
	seen := map[string]bool{}
	for _, m := range emails {
		seen[m.Email] = true
	}
	if !seen["a@x.com"] || !seen["b@x.com"] {
		t.Fatalf("unexpected emails: %+v", emails)
	}
}

func TestWelcomeSenderInlineFallback(t *testing.T) {
	resetWelcomeSenderForTests()
	t.Cleanup(resetWelcomeSenderForTests)

	// Sender never initialized: the enqueue must happen inline.
	store := newMockStore()
	queueWelcomeEmail(store, log.New(), domain.WelcomeEmail{Email: "a@x.com", Name: "Alice"})

	emails := store.Emails()
	if len(emails) != 1 || emails[0].Email != "a@x.com" {
		t.Fatalf("expected inline enqueue, got %+v", emails)
	}
}

func TestWelcomeSenderSwallowsFailures(t *testing.T) {
	resetWelcomeSenderForTests()
	t.Cleanup(resetWelcomeSenderForTests)

	store := newMockStore()
	store.err = domain.ErrUnavailable

	// Must not panic or propagate the failure.
	queueWelcomeEmail(store, log.New(), domain.WelcomeEmail{Email: "a@x.com", Name: "Alice"})
}
