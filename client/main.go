package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"
	"github.com/wfunc/jumpgame/network"
	"github.com/wfunc/jumpgame/world"
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	var data []byte
	if v != nil {
		var err error
		if data, err = network.Encode(v); err != nil {
			return err
		}
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func render(p *network.Packet) {
	switch p.MsgID {
	case network.MsgTypeWelcome:
		var m network.WelcomeMessage
		network.Decode(p.Data, &m)
		pterm.Success.Printfln("Connected as %s in arena %s", m.SessionID, pterm.LightCyan(m.Arena))
	case network.MsgTypeNotify:
		var m network.NotifyMessage
		network.Decode(p.Data, &m)
		switch m.Scope {
		case network.ScopePlayer:
			pterm.Info.Println(pterm.LightYellow(m.Text))
		default:
			pterm.Info.Println(m.Text)
		}
	case network.MsgTypeRelocate:
		var m network.RelocateMessage
		network.Decode(p.Data, &m)
		pterm.Info.Printfln("Teleported to %s", m.Position)
	case network.MsgTypeIgnite:
		pterm.Warning.Println(pterm.LightRed("You are on fire! Find water."))
	case network.MsgTypeCellUpdate:
		var m network.CellUpdateMessage
		network.Decode(p.Data, &m)
		pterm.Debug.Printfln("cell %s is now %s", m.Cell, m.Material)
	case network.MsgTypeError:
		var m network.ErrorMessage
		network.Decode(p.Data, &m)
		pterm.Error.Printfln("Request %d failed: %s", m.Request, m.Message)
	default:
		pterm.Printfln("<- RECV (ID: %d): %s", p.MsgID, string(p.Data))
	}
}

func parsePosition(fields []string) (world.Position, error) {
	if len(fields) != 3 {
		return world.Position{}, fmt.Errorf("expected x y z")
	}
	var xyz [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return world.Position{}, err
		}
		xyz[i] = v
	}
	return world.Position{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// command turns one input line into a request.
func command(line string) (uint16, interface{}, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, nil
	}
	switch fields[0] {
	case "hello":
		req := network.HelloRequest{}
		if len(fields) > 1 {
			req.Name = fields[1]
		}
		if len(fields) > 2 {
			req.Arena = fields[2]
		}
		return network.MsgTypeHello, req, nil
	case "join":
		return network.MsgTypeJoin, nil, nil
	case "leave":
		return network.MsgTypeLeave, nil, nil
	case "start":
		return network.MsgTypeStart, nil, nil
	case "reset":
		return network.MsgTypeReset, nil, nil
	case "move":
		p, err := parsePosition(fields[1:])
		if err != nil {
			return 0, nil, err
		}
		return network.MsgTypeMoved, network.MovedRequest{Position: p}, nil
	case "die":
		p, err := parsePosition(fields[1:])
		if err != nil {
			return 0, nil, err
		}
		return network.MsgTypeDied, network.DiedRequest{Position: p}, nil
	}
	return 0, nil, fmt.Errorf("unknown command %q", fields[0])
}

func main() {
	host := flag.String("addr", "localhost:8080", "game server address")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Connecting to %s ...", u.String()))
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		spinner.Fail(fmt.Sprintf("Dial failed: %v", err))
		os.Exit(1)
	}
	spinner.Stop()
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				pterm.Error.Println("Read error:", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				pterm.Error.Printfln("Received invalid packet of size %d", len(message))
				continue
			}
			render(packet)
		}
	}()

	pterm.DefaultBox.WithTitle(pterm.LightGreen("|JUMP GAME|")).WithHorizontalPadding(4).Println(
		"hello <name> [arena]\njoin | leave | start | reset\nmove <x> <y> <z>\ndie <x> <y> <z>")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// Write loop
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			msgID, body, err := command(line)
			if err != nil {
				pterm.Error.Println(err)
				continue
			}
			if msgID == 0 {
				continue
			}
			if err := send(c, msgID, body); err != nil {
				pterm.Error.Println("Write error:", err)
				return
			}
		}
	}
}
