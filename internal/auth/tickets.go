package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Default ticket lifetime. Browsers cannot set the Authorization header on
// WebSocket upgrades, so clients first exchange their JWT for a short-lived
// single-use ticket and pass it as a query parameter.
const defaultTicketTTL = 30 * time.Second

// ticketBytes is the number of random bytes per ticket (256-bit).
const ticketBytes = 32

// Ticket is a single-use WebSocket upgrade credential.
type Ticket struct {
	UserID    string
	Username  string
	Role      Role
	ExpiresAt time.Time
}

// TicketStore issues and redeems single-use WebSocket tickets.
// Tickets are held in memory only; a restart invalidates outstanding tickets,
// which merely forces clients to re-request one.
type TicketStore struct {
	mu      sync.Mutex
	tickets map[string]Ticket
	ttl     time.Duration

	// now is overridable for tests.
	now func() time.Time
}

// NewTicketStore creates a ticket store with the default TTL.
func NewTicketStore() *TicketStore {
	return &TicketStore{
		tickets: make(map[string]Ticket),
		ttl:     defaultTicketTTL,
		now:     time.Now,
	}
}

// Issue creates a new single-use ticket bound to the given identity.
// Expired tickets are swept opportunistically on each issue.
func (s *TicketStore) Issue(userID, username string, role Role) (string, error) {
	raw := make([]byte, ticketBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating ticket: %w", err)
	}
	id := hex.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, t := range s.tickets {
		if now.After(t.ExpiresAt) {
			delete(s.tickets, k)
		}
	}

	s.tickets[id] = Ticket{
		UserID:    userID,
		Username:  username,
		Role:      role,
		ExpiresAt: now.Add(s.ttl),
	}
	return id, nil
}

// Redeem consumes a ticket, returning the bound identity.
// A ticket can be redeemed exactly once; expired or unknown tickets
// return ErrTicketInvalid.
func (s *TicketStore) Redeem(id string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrTicketInvalid
	}
	delete(s.tickets, id)

	if s.now().After(t.ExpiresAt) {
		return nil, ErrTicketInvalid
	}
	return &t, nil
}

// TTL returns the ticket lifetime.
func (s *TicketStore) TTL() time.Duration {
	return s.ttl
}

// Len returns the number of outstanding tickets (expired included until swept).
func (s *TicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}
