package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/markusressel/vent2go/internal/controller"
	"github.com/markusressel/vent2go/internal/ui"
)

const (
	websocketUpdateInterval = 1 * time.Second
	websocketWriteTimeout   = 5 * time.Second

	messageTypeStates = "states"
	messageTypeResult = "result"
	messageTypeError  = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebsocketCommand is a device command sent by a websocket client
type WebsocketCommand struct {
	Device string `json:"device"`
	Action string `json:"action"`
	Level  *int   `json:"level,omitempty"`
}

// WebsocketMessage is sent to websocket clients
type WebsocketMessage struct {
	Type   string             `json:"type"`
	States []controller.State `json:"states,omitempty"`
	State  *controller.State  `json:"state,omitempty"`
	Error  *Result            `json:"error,omitempty"`
}

func registerWebsocketEndpoint(rest *echo.Echo) {
	rest.GET("/ws/", handleWebsocket)
}

// streams device states to the client and applies the commands it sends
func handleWebsocket(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replies := make(chan WebsocketMessage)
	go readCommands(ctx, cancel, ws, replies)

	ticker := time.NewTicker(websocketUpdateInterval)
	defer ticker.Stop()

	message := WebsocketMessage{Type: messageTypeStates, States: deviceStates()}
	for {
		if err := writeMessage(ws, message); err != nil {
			ui.Debug("websocket: unable to write to %s: %v", c.RealIP(), err)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case message = <-replies:
		case <-ticker.C:
			message = WebsocketMessage{Type: messageTypeStates, States: deviceStates()}
		}
	}
}

func writeMessage(ws *websocket.Conn, message WebsocketMessage) error {
	if err := ws.SetWriteDeadline(time.Now().Add(websocketWriteTimeout)); err != nil {
		return err
	}
	return ws.WriteJSON(message)
}

// reads commands until the connection is closed, cancel is called once it is
func readCommands(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, replies chan<- WebsocketMessage) {
	defer cancel()
	for {
		var request WebsocketCommand
		if err := ws.ReadJSON(&request); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ui.Debug("websocket: read failed: %v", err)
			}
			return
		}

		reply := handleCommand(ctx, request)
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func handleCommand(ctx context.Context, request WebsocketCommand) WebsocketMessage {
	command, err := commandFrom(request.Action, request.Level, originWebsocket)
	if err == nil {
		var state controller.State
		state, err = controller.Submit(ctx, request.Device, command)
		if err == nil {
			return WebsocketMessage{Type: messageTypeResult, State: &state}
		}
	}

	_, name := statusOf(err)
	return WebsocketMessage{
		Type: messageTypeError,
		Error: &Result{
			Name:    name,
			Message: err.Error(),
		},
	}
}
