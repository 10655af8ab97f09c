// Command chatcli joins a roomchat room from the terminal. Lines typed on
// stdin are sent as chat; /joke, /members, /priv <user> <message> and
// /name <new name> map to the matching commands.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	flag "github.com/spf13/pflag"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/chatclient"
)

func main() {
	serverURL := flag.StringP("url", "u", "ws://localhost:8080", "server base URL")
	room := flag.StringP("room", "r", "lobby", "room to join")
	name := flag.StringP("name", "n", "", "display name (required)")
	origin := flag.String("origin", "http://localhost:8080", "Origin header sent on the handshake")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "chatcli: --name is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, chatclient.Config{
		URL:              *serverURL,
		Room:             *room,
		Origin:           *origin,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
	}, *name, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg chatclient.Config, name string, in io.Reader, out io.Writer) error {
	client, err := chatclient.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Join(ctx, name); err != nil {
		return errors.Wrap(err, "join")
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			msg, err := client.Receive(ctx)
			if err != nil {
				readErr <- err
				return
			}
			_, _ = fmt.Fprintln(out, render(msg))
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "connection lost")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			frame, send := frameFor(line)
			if !send {
				continue
			}
			if err := client.Send(ctx, frame); err != nil {
				return errors.Wrap(err, "send")
			}
		}
	}
}

// frameFor maps one input line to a protocol frame. Blank lines are skipped.
func frameFor(line string) (chat.Inbound, bool) {
	switch trimmed := strings.TrimSpace(line); {
	case trimmed == "":
		return chat.Inbound{}, false
	case trimmed == "/joke":
		return chat.Inbound{Type: chat.TypeGetJoke}, true
	case trimmed == "/members":
		return chat.Inbound{Type: chat.TypeGetMembers}, true
	case strings.HasPrefix(trimmed, "/priv "):
		return chat.Inbound{Type: chat.TypePrivate, Text: trimmed}, true
	case strings.HasPrefix(trimmed, "/name "):
		return chat.Inbound{Type: chat.TypeNewName, Text: trimmed}, true
	default:
		return chat.Inbound{Type: chat.TypeChat, Text: line}, true
	}
}

func render(msg chat.Outgoing) string {
	if msg.Type == chat.OutNote {
		return "* " + msg.Text
	}
	return msg.Name + ": " + msg.Text
}
