// Package console exposes the console actor over an authenticated
// websocket so operators can run commands without a player account.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"commandbook/internal/host"
	"commandbook/internal/target"
)

// Path is where the websocket endpoint is mounted.
const Path = "/console"

const frameSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["command"],
  "properties": {
    "id": {"type": "string", "maxLength": 64},
    "command": {"type": "string", "minLength": 1, "maxLength": 512}
  },
  "additionalProperties": false
}`

// Dispatcher runs one command line as actor.
type Dispatcher func(actor host.Actor, line string)

// Reply is written back for every frame.
type Reply struct {
	ID     string `json:"id,omitempty"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

var errUnauthorized = errors.New("unauthorized")

// Server accepts console connections.
type Server struct {
	console  *host.Console
	dispatch Dispatcher
	secret   []byte
	schema   *jsonschema.Schema
	logger   *log.Logger
	upgrader websocket.Upgrader

	// run serializes commands since they share one console sink.
	run sync.Mutex
}

// NewServer creates a console server. Tokens must be HS256-signed with
// secret and carry a subject.
func NewServer(console *host.Console, dispatch Dispatcher, secret string, logger *log.Logger) (*Server, error) {
	if secret == "" {
		return nil, errors.New("console secret is empty")
	}
	if logger == nil {
		logger = log.Default()
	}
	schema, err := jsonschema.CompileString("console-frame.json", frameSchema)
	if err != nil {
		return nil, fmt.Errorf("compile frame schema: %w", err)
	}
	return &Server{
		console:  console,
		dispatch: dispatch,
		secret:   []byte(secret),
		schema:   schema,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
	}, nil
}

// IssueToken signs a console token for subject valid for ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *Server) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errUnauthorized
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errUnauthorized
	}
	if claims.Subject == "" {
		return "", errUnauthorized
	}
	return claims.Subject, nil
}

// Handler upgrades authenticated requests and serves frames until the
// connection drops.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		subject, err := s.authenticate(r)
		if err != nil {
			s.logger.Printf("console: rejected connection from %s", r.RemoteAddr)
			http.Error(rw, "Unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.logger.Printf("console: %s connected from %s", subject, r.RemoteAddr)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := writeJSON(conn, s.handle(subject, msg)); err != nil {
				break
			}
		}
		s.logger.Printf("console: %s disconnected", subject)
	}
}

func (s *Server) handle(subject string, msg []byte) Reply {
	var doc any
	if err := json.Unmarshal(msg, &doc); err != nil {
		return Reply{Error: "frame is not JSON"}
	}
	id := gjson.GetBytes(msg, "id").String()
	if err := s.schema.Validate(doc); err != nil {
		return Reply{ID: id, Error: "invalid frame"}
	}
	line := strings.TrimSpace(gjson.GetBytes(msg, "command").String())
	if line == "" {
		return Reply{ID: id, Error: "empty command"}
	}
	s.logger.Printf("console: %s ran %q", subject, line)
	return Reply{ID: id, Output: s.Run(line)}
}

// Run dispatches line as the console and returns what it was told.
func (s *Server) Run(line string) string {
	s.run.Lock()
	defer s.run.Unlock()
	var out []string
	prev := s.console.Redirect(func(text string) {
		out = append(out, strings.Trim(target.StripColor(text), "\r\n"))
	})
	defer s.console.Redirect(prev)
	s.dispatch(s.console, line)
	return strings.Join(out, "\n")
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// ListenAndServe serves the console on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	s.logger.Printf("console listening on %s%s", addr, Path)

	select {
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
