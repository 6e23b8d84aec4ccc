package network

import (
	"encoding/json"

	"github.com/wfunc/jumpgame/world"
)

// 客户端 -> 服务器
const (
	MsgTypeHeartbeat = 1
	MsgTypeHello     = 100
	MsgTypeJoin      = 101
	MsgTypeLeave     = 102
	MsgTypeStart     = 103
	MsgTypeReset     = 104
	MsgTypeMoved     = 201
	MsgTypeDied      = 202
)

// 服务器 -> 客户端
const (
	MsgTypeNotify     = 301
	MsgTypeRelocate   = 302
	MsgTypeIgnite     = 303
	MsgTypeCellUpdate = 304
	MsgTypeWelcome    = 305
	MsgTypeError      = 399
)

// Notify scopes.
const (
	ScopePlayer = "player"
	ScopeMatch  = "match"
	ScopeServer = "server"
)

// HelloRequest names the player and picks an arena.
type HelloRequest struct {
	Name  string `json:"name"`
	Arena string `json:"arena,omitempty"`
}

type WelcomeMessage struct {
	SessionID string `json:"session_id"`
	Arena     string `json:"arena"`
}

type MovedRequest struct {
	Position world.Position `json:"position"`
}

type DiedRequest struct {
	Position world.Position `json:"position"`
}

type NotifyMessage struct {
	Scope string `json:"scope"`
	Text  string `json:"text"`
}

type RelocateMessage struct {
	Position world.Position `json:"position"`
}

type CellUpdateMessage struct {
	Cell     world.Cell `json:"cell"`
	Material string     `json:"material"`
}

type ErrorMessage struct {
	Request uint16 `json:"request"`
	Message string `json:"message"`
}

// Encode marshals a message body.
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals a message body. An empty body leaves v untouched.
func Decode(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
