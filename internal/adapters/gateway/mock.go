package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockedGateway serves empty tracker payloads without any network
// access. Used in development when no solver instance is configured.
type mockedGateway struct {
	mutex    sync.Mutex
	sessions map[string]bool
}

func NewMockedGateway() Gateway {
	return &mockedGateway{
		sessions: make(map[string]bool),
	}
}

func (g *mockedGateway) CreateSession(ctx context.Context) (Session, error) {
	id := uuid.New().String()

	g.mutex.Lock()
	g.sessions[id] = true
	g.mutex.Unlock()

	return Session{
		ID:        id,
		UserAgent: userAgents[0],
		CreatedAt: time.Now(),
	}, nil
}

func (g *mockedGateway) Get(ctx context.Context, session Session, url string) (Response, error) {
	g.mutex.Lock()
	active := g.sessions[session.ID]
	g.mutex.Unlock()

	if !active {
		return Response{}, fmt.Errorf("unknown session %s", session.ID)
	}

	return Response{
		StatusCode: 200,
		Body:       []byte(`{"data": {}}`),
	}, nil
}

func (g *mockedGateway) DestroySession(ctx context.Context, session Session) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.sessions[session.ID] {
		return fmt.Errorf("unknown session %s", session.ID)
	}
	delete(g.sessions, session.ID)
	return nil
}
