package gateway

import (
	"context"
	"time"
)

// Session is a browser session held by the challenge-solving gateway.
// All requests in one update run share a session so the solved
// challenge cookies stay valid.
type Session struct {
	ID        string
	UserAgent string
	Proxy     string
	CreatedAt time.Time
}

type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Response struct {
	StatusCode int
	Body       []byte
	Cookies    []Cookie
}

type Gateway interface {
	CreateSession(ctx context.Context) (Session, error)
	Get(ctx context.Context, session Session, url string) (Response, error)
	DestroySession(ctx context.Context, session Session) error
}
