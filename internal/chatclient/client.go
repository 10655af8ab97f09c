// Package chatclient is a Go client for the roomchat WebSocket protocol. It
// produces the same frames as the browser test page.
package chatclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/cockroachdb/errors"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// Config controls how Dial connects.
type Config struct {
	// URL is the server base, e.g. ws://localhost:8080. http(s) schemes are
	// accepted and converted.
	URL    string
	Room   string
	Origin string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Client is one connection bound to one room. Receive must be called from a
// single goroutine; the send methods may be used concurrently.
type Client struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// Dial opens a connection to /chat/{room}. The caller still has to Join.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	endpoint, err := roomURL(cfg.URL, cfg.Room)
	if err != nil {
		return nil, err
	}

	if cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
	}

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if cfg.Origin != "" {
		opts.HTTPHeader.Set("Origin", cfg.Origin)
	}

	conn, resp, err := websocket.Dial(ctx, endpoint, opts)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", endpoint)
	}

	return &Client{conn: conn, writeTimeout: cfg.WriteTimeout}, nil
}

func roomURL(base, room string) (string, error) {
	if room == "" {
		return "", errors.New("room is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "parse server url %q", base)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Newf("unsupported url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/chat/" + room
	u.RawPath = ""
	return u.String(), nil
}

// Join enters the room as name.
func (c *Client) Join(ctx context.Context, name string) error {
	return c.write(ctx, chat.Inbound{Type: chat.TypeJoin, Name: name})
}

// Chat broadcasts text to the room.
func (c *Client) Chat(ctx context.Context, text string) error {
	return c.write(ctx, chat.Inbound{Type: chat.TypeChat, Text: text})
}

// Joke asks for a joke delivered to this client only.
func (c *Client) Joke(ctx context.Context) error {
	return c.write(ctx, chat.Inbound{Type: chat.TypeGetJoke})
}

// Members asks for the names of everyone in the room.
func (c *Client) Members(ctx context.Context) error {
	return c.write(ctx, chat.Inbound{Type: chat.TypeGetMembers})
}

// Private sends text to the member called target.
func (c *Client) Private(ctx context.Context, target, text string) error {
	return c.write(ctx, chat.Inbound{Type: chat.TypePrivate, Text: "/priv " + target + " " + text})
}

// Rename changes this client's display name.
func (c *Client) Rename(ctx context.Context, name string) error {
	return c.write(ctx, chat.Inbound{Type: chat.TypeNewName, Text: "/name " + name})
}

// Send writes one inbound frame as is.
func (c *Client) Send(ctx context.Context, in chat.Inbound) error {
	return c.write(ctx, in)
}

// WriteRaw sends an arbitrary text frame.
func (c *Client) WriteRaw(ctx context.Context, payload []byte) error {
	ctx, cancel := c.writeContext(ctx)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// Receive blocks until the next server frame arrives.
func (c *Client) Receive(ctx context.Context) (chat.Outgoing, error) {
	var msg chat.Outgoing
	if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
		return chat.Outgoing{}, err
	}
	return msg, nil
}

// Close sends a normal closure and releases the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "client close")
}

func (c *Client) write(ctx context.Context, in chat.Inbound) error {
	ctx, cancel := c.writeContext(ctx)
	defer cancel()
	return wsjson.Write(ctx, c.conn, in)
}

func (c *Client) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.writeTimeout > 0 {
		return context.WithTimeout(ctx, c.writeTimeout)
	}
	return ctx, func() {}
}
