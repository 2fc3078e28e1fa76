// Package session holds the per-conversation established facts a synthesized
// response is grounded in.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fact is a single conversation-scoped established datum.
type Fact struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`  // e.g. "likely_cause", "vehicle_identity"
	Topic         string    `json:"topic"` // the part or system the fact concerns
	Value         string    `json:"value"`
	Confidence    int       `json:"confidence"`
	EstablishedAt time.Time `json:"established_at"`
	RuledOut      bool      `json:"ruled_out"`
	RuledOutBy    string    `json:"ruled_out_by,omitempty"` // ID of the contradicting fact
}

// VehicleIdentity is the vehicle a conversation is about, once confirmed.
type VehicleIdentity struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
	VIN   string `json:"vin,omitempty"`
}

// Context is the established knowledge of one conversation. Facts are
// append-only; ruling out marks a fact rather than deleting it. The core
// never deletes a context.
type Context struct {
	ConversationID string           `json:"conversation_id"`
	Facts          []Fact           `json:"facts"`
	Vehicle        *VehicleIdentity `json:"vehicle,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewContext creates an empty context for a conversation.
func NewContext(conversationID string) *Context {
	now := time.Now().UTC()
	return &Context{
		ConversationID: conversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Append adds a fact and returns it with its assigned ID. Appending a fact
// whose type and value match a previously ruled-out fact re-admits that
// value: the newer fact is active regardless of the older one's state.
func (c *Context) Append(f Fact) Fact {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.EstablishedAt.IsZero() {
		f.EstablishedAt = time.Now().UTC()
	}
	c.Facts = append(c.Facts, f)
	c.UpdatedAt = time.Now().UTC()
	return f
}

// RuleOut marks every active fact matching type and value as ruled out,
// attributing the exclusion to the given fact ID.
func (c *Context) RuleOut(factType, value, byID string) {
	for i := range c.Facts {
		f := &c.Facts[i]
		if f.RuledOut || f.Type != factType {
			continue
		}
		if strings.EqualFold(f.Value, value) {
			f.RuledOut = true
			f.RuledOutBy = byID
		}
	}
	c.UpdatedAt = time.Now().UTC()
}

// IsRuledOut reports whether the latest fact matching type and value is
// ruled out. A later active fact re-admits the value.
func (c *Context) IsRuledOut(factType, value string) bool {
	for i := len(c.Facts) - 1; i >= 0; i-- {
		f := c.Facts[i]
		if f.Type == factType && strings.EqualFold(f.Value, value) {
			return f.RuledOut
		}
	}
	return false
}

// Active returns the facts not currently ruled out, in established order.
func (c *Context) Active() []Fact {
	var out []Fact
	for _, f := range c.Facts {
		if !f.RuledOut {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a deep copy safe for concurrent readers.
func (c *Context) Clone() *Context {
	cp := *c
	cp.Facts = append([]Fact(nil), c.Facts...)
	if c.Vehicle != nil {
		v := *c.Vehicle
		cp.Vehicle = &v
	}
	return &cp
}
