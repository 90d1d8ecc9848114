package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// Command names accepted in payloads.
const (
	NameAddController    = "db_add_ctrl_of"
	NameAddResponder     = "db_add_resp_of"
	NameDeleteController = "db_del_ctrl_of"
	NameDeleteResponder  = "db_del_resp_of"
	NameRefresh          = "refresh"
	NameRefreshAll       = "refresh_all"
	NameLinking          = "linking"
	NamePair             = "pair"
)

// Command is one decoded request. The concrete types below are the
// complete set.
type Command interface {
	Name() string
}

// AddLink adds a controller or responder record (db_add_ctrl_of / db_add_resp_of).
type AddLink struct {
	Request insteon.LinkRequest
}

// Name implements Command.
func (c AddLink) Name() string {
	if c.Request.IsController {
		return NameAddController
	}
	return NameAddResponder
}

// DeleteLink removes a controller or responder record (db_del_ctrl_of / db_del_resp_of).
type DeleteLink struct {
	Request insteon.LinkRequest
}

// Name implements Command.
func (c DeleteLink) Name() string {
	if c.Request.IsController {
		return NameDeleteController
	}
	return NameDeleteResponder
}

// Refresh downloads the target's link database.
type Refresh struct {
	Force bool
}

// Name implements Command.
func (Refresh) Name() string { return NameRefresh }

// RefreshAll downloads every database. Modem only.
type RefreshAll struct {
	Force bool
}

// Name implements Command.
func (RefreshAll) Name() string { return NameRefreshAll }

// Linking puts the modem into all-link mode. Modem only.
type Linking struct {
	Group uint8
}

// Name implements Command.
func (Linking) Name() string { return NameLinking }

// Pair links a remote device with the modem. Devices only.
type Pair struct{}

// Name implements Command.
func (Pair) Name() string { return NamePair }

// payload is the wire form of every command.
type payload struct {
	Cmd    string `json:"cmd"`
	Addr   string `json:"addr"`
	Group  *int   `json:"group"`
	Data   []int  `json:"data"`
	TwoWay *bool  `json:"two_way"`
	Force  bool   `json:"force"`
}

// Decode parses a JSON command payload.
//
// Link commands need "addr" and "group"; "data" (3 integers) is optional
// and "two_way" defaults to true. "linking" takes an optional "group"
// (default 1). "refresh" and "refresh_all" take an optional "force".
//
// Returns ErrUnknownCommand for an unrecognised "cmd" and
// ErrInvalidArguments for malformed or missing fields.
func Decode(data []byte) (Command, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}

	name := strings.ToLower(strings.TrimSpace(p.Cmd))
	switch name {
	case NameAddController, NameAddResponder, NameDeleteController, NameDeleteResponder:
		req, err := p.linkRequest(name == NameAddController || name == NameDeleteController)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if name == NameAddController || name == NameAddResponder {
			return AddLink{Request: req}, nil
		}
		return DeleteLink{Request: req}, nil

	case NameRefresh:
		return Refresh{Force: p.Force}, nil

	case NameRefreshAll:
		return RefreshAll{Force: p.Force}, nil

	case NameLinking:
		group := uint8(1)
		if p.Group != nil {
			g, err := toGroup(*p.Group)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			group = g
		}
		return Linking{Group: group}, nil

	case NamePair:
		return Pair{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing \"cmd\"", ErrInvalidArguments)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, p.Cmd)
	}
}

func (p payload) linkRequest(isController bool) (insteon.LinkRequest, error) {
	target := strings.TrimSpace(p.Addr)
	if target == "" {
		return insteon.LinkRequest{}, fmt.Errorf("%w: missing \"addr\"", ErrInvalidArguments)
	}
	if p.Group == nil {
		return insteon.LinkRequest{}, fmt.Errorf("%w: missing \"group\"", ErrInvalidArguments)
	}
	group, err := toGroup(*p.Group)
	if err != nil {
		return insteon.LinkRequest{}, err
	}

	req := insteon.LinkRequest{
		Target:       target,
		Group:        group,
		IsController: isController,
		TwoWay:       true,
	}
	if p.TwoWay != nil {
		req.TwoWay = *p.TwoWay
	}

	if p.Data != nil {
		if len(p.Data) != insteon.DataSize {
			return insteon.LinkRequest{}, fmt.Errorf("%w: \"data\" needs %d values, got %d",
				ErrInvalidArguments, insteon.DataSize, len(p.Data))
		}
		req.Data = make([]byte, insteon.DataSize)
		for i, v := range p.Data {
			if v < 0 || v > 0xff {
				return insteon.LinkRequest{}, fmt.Errorf("%w: \"data\"[%d] = %d out of range", ErrInvalidArguments, i, v)
			}
			req.Data[i] = byte(v)
		}
	}
	return req, nil
}

func toGroup(v int) (uint8, error) {
	if v < 0 || v > 0xff {
		return 0, fmt.Errorf("%w: group %d out of range", ErrInvalidArguments, v)
	}
	return uint8(v), nil
}
