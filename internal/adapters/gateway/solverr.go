package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pedroanisio/tracker-gg-api/internal/config"
	"github.com/pedroanisio/tracker-gg-api/internal/logging"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const commandTimeout = 60 * time.Second

type command struct {
	Cmd        string `json:"cmd"`
	Session    string `json:"session,omitempty"`
	URL        string `json:"url,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	Proxy      string `json:"proxy,omitempty"`
	MaxTimeout int    `json:"maxTimeout,omitempty"`
}

type solution struct {
	Status   int      `json:"status"`
	Response string   `json:"response"`
	Cookies  []Cookie `json:"cookies"`
}

type commandResult struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Session  string    `json:"session"`
	Solution *solution `json:"solution"`
}

type flareSolverrGateway struct {
	httpClient HttpClient
	baseURL    string
	proxies    []string
	limiter    *rate.Limiter

	mutex sync.Mutex
	rng   *rand.Rand
}

// NewFlareSolverrGateway returns a Gateway backed by a FlareSolverr
// instance at baseURL. Commands are paced by an internal rate limiter
// so a bulk run can't hammer the solver.
func NewFlareSolverrGateway(httpClient HttpClient, baseURL string, proxies []string) Gateway {
	return &flareSolverrGateway{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		proxies:    proxies,
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (g *flareSolverrGateway) sendCommand(ctx context.Context, cmd command) (commandResult, error) {
	logger := logging.FromContext(ctx)

	if err := g.limiter.Wait(ctx); err != nil {
		return commandResult{}, fmt.Errorf("failed to wait for gateway rate limiter: %w", err)
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		err := fmt.Errorf("failed to marshal gateway command: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return commandResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1", bytes.NewReader(body))
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return commandResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return commandResult{}, fmt.Errorf("failed to send request: %w", err)
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("failed to read response body: %w", err)
		logger.Error(err.Error())
		reporting.Report(ctx, err)
		return commandResult{}, err
	}
	logger.Info("gateway command completed", "cmd", cmd.Cmd, "status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return commandResult{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var result commandResult
	if err := json.Unmarshal(data, &result); err != nil {
		return commandResult{}, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if result.Status != "ok" {
		return commandResult{}, fmt.Errorf("gateway command %q failed: %s", cmd.Cmd, result.Message)
	}

	return result, nil
}

func (g *flareSolverrGateway) CreateSession(ctx context.Context) (Session, error) {
	g.mutex.Lock()
	userAgent := randomUserAgent(g.rng)
	proxy := ""
	if len(g.proxies) > 0 {
		proxy = g.proxies[g.rng.IntN(len(g.proxies))]
	}
	g.mutex.Unlock()

	result, err := g.sendCommand(ctx, command{
		Cmd:        "sessions.create",
		UserAgent:  userAgent,
		Proxy:      proxy,
		MaxTimeout: int(commandTimeout.Milliseconds()),
	})
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	if result.Session == "" {
		return Session{}, fmt.Errorf("gateway returned no session id")
	}

	return Session{
		ID:        result.Session,
		UserAgent: userAgent,
		Proxy:     proxy,
		CreatedAt: time.Now(),
	}, nil
}

func (g *flareSolverrGateway) Get(ctx context.Context, session Session, url string) (Response, error) {
	result, err := g.sendCommand(ctx, command{
		Cmd:        "request.get",
		Session:    session.ID,
		URL:        url,
		MaxTimeout: int(commandTimeout.Milliseconds()),
	})
	if err != nil {
		return Response{}, err
	}
	if result.Solution == nil {
		return Response{}, fmt.Errorf("gateway returned no solution")
	}

	return Response{
		StatusCode: result.Solution.Status,
		Body:       extractPayload(result.Solution.Response),
		Cookies:    result.Solution.Cookies,
	}, nil
}

func (g *flareSolverrGateway) DestroySession(ctx context.Context, session Session) error {
	_, err := g.sendCommand(ctx, command{
		Cmd:     "sessions.destroy",
		Session: session.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to destroy session %s: %w", session.ID, err)
	}
	return nil
}

var preRx = regexp.MustCompile(`(?s)<pre[^>]*>(.*?)</pre>`)

// extractPayload unwraps the HTML document the headless browser wraps
// around JSON responses. Plain bodies pass through unchanged.
func extractPayload(response string) []byte {
	if match := preRx.FindStringSubmatch(response); match != nil {
		return []byte(strings.TrimSpace(match[1]))
	}
	return []byte(response)
}

func NewGatewayOrMock(conf config.Config, httpClient HttpClient) (Gateway, error) {
	if conf.FlareSolverrURL() != "" {
		return NewFlareSolverrGateway(httpClient, conf.FlareSolverrURL(), conf.ProxyList()), nil
	}
	if conf.IsDevelopment() {
		return NewMockedGateway(), nil
	}
	return nil, fmt.Errorf("Missing FlareSolverr URL in non-development environment")
}
