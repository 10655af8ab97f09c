package chat

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var validate = validator.New()

// Inbound command types.
const (
	TypeJoin       = "join"
	TypeChat       = "chat"
	TypeGetJoke    = "get-joke"
	TypeGetMembers = "get-members"
	TypePrivate    = "private"
	TypeNewName    = "new-name"
)

// Inbound is the wire shape of a client frame.
type Inbound struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// Command is a decoded inbound frame. The set of implementations is closed.
type Command interface {
	commandType() string
}

// JoinCommand sets the display name and enters the room.
type JoinCommand struct {
	Name string `validate:"required"`
}

// ChatCommand broadcasts Text to the room.
type ChatCommand struct {
	Text string
}

// JokeCommand asks the joke service for a joke for the caller only.
type JokeCommand struct{}

// MembersCommand asks for the names of everyone in the room.
type MembersCommand struct{}

// PrivateCommand sends Body to the member named Target. Either field may be
// empty when the client sent too few words; the command is then ignored.
type PrivateCommand struct {
	Target string
	Body   string
}

// RenameCommand changes the display name. NewName is empty when missing.
type RenameCommand struct {
	NewName string
}

func (JoinCommand) commandType() string    { return TypeJoin }
func (ChatCommand) commandType() string    { return TypeChat }
func (JokeCommand) commandType() string    { return TypeGetJoke }
func (MembersCommand) commandType() string { return TypeGetMembers }
func (PrivateCommand) commandType() string { return TypePrivate }
func (RenameCommand) commandType() string  { return TypeNewName }

// DecodeCommand parses a raw frame into a Command. Every failure is marked
// with ErrProtocol.
func DecodeCommand(raw []byte) (Command, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode inbound frame"), ErrProtocol)
	}

	switch in.Type {
	case TypeJoin:
		cmd := JoinCommand{Name: in.Name}
		if err := validate.Struct(cmd); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "join"), ErrProtocol)
		}
		return cmd, nil
	case TypeChat:
		return ChatCommand{Text: in.Text}, nil
	case TypeGetJoke:
		return JokeCommand{}, nil
	case TypeGetMembers:
		return MembersCommand{}, nil
	case TypePrivate:
		return parsePrivate(in.Text), nil
	case TypeNewName:
		return parseRename(in.Text), nil
	default:
		return nil, errors.Wrapf(ErrProtocol, "bad message type %q", in.Type)
	}
}

// parsePrivate splits "<cmd> <target> <words...>", discarding the command echo.
func parsePrivate(text string) PrivateCommand {
	fields := strings.Fields(text)
	var cmd PrivateCommand
	if len(fields) > 1 {
		cmd.Target = fields[1]
	}
	if len(fields) > 2 {
		cmd.Body = strings.Join(fields[2:], " ")
	}
	return cmd
}

// parseRename takes the second word of "<cmd> <newName>"; the rest is ignored.
func parseRename(text string) RenameCommand {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return RenameCommand{}
	}
	return RenameCommand{NewName: fields[1]}
}
