package authstate

import (
	"context"
	"time"

	internalaudit "github.com/variel/authstate/internal/audit"
	"github.com/variel/authstate/token"
)

// emit records a session lifecycle event. The subject comes from the token
// when it decodes; a failed decode still produces an event, just without
// an attributable subject.
func (m *Manager) emit(ctx context.Context, eventType, raw string, err error) {
	if m.audit == nil {
		return
	}

	event := internalaudit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		Success:   err == nil,
	}
	if raw != "" {
		if claims, ok := token.Decode(raw); ok {
			event.Subject = claims.Subject
		}
	}
	if err != nil {
		event.Error = err.Error()
	}

	m.audit.Emit(ctx, event)
}

func (m *Manager) emitRemote(ctx context.Context, eventType, raw, origin string) {
	if m.audit == nil {
		return
	}

	event := internalaudit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		Origin:    origin,
		Success:   true,
	}
	if raw != "" {
		if claims, ok := token.Decode(raw); ok {
			event.Subject = claims.Subject
		}
	}

	m.audit.Emit(ctx, event)
}

func (m *Manager) emitKey(ctx context.Context, eventType, key, origin string) {
	if m.audit == nil {
		return
	}
	m.audit.Emit(ctx, internalaudit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		Key:       key,
		Origin:    origin,
		Success:   false,
	})
}
