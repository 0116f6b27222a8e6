package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/ts-31/agent-hub/logic"
	"github.com/ts-31/agent-hub/middleware"
	"github.com/ts-31/agent-hub/models"
	"github.com/ts-31/agent-hub/observability"
	"github.com/ts-31/agent-hub/ws"
)

// Handshake rejection reasons (connection-level failures).
const (
	reasonNoCookie       = "No auth cookie"
	reasonInvalidSession = "Invalid or expired session"
)

// Event-level error strings sent to the originating caller.
const (
	errMissingFields   = "Missing projectId or content"
	errUserNotFound    = "User record not found"
	errProjectNotFound = "Project not found"
	errForbidden       = "Not authorized for this project"
	errLLMFailed       = "LLM call failed"
	errInternal        = "Internal server error"
)

// SocketController is the connection gate plus the per-connection event loop.
// Every inbound connection is authenticated against the session cookie before
// the upgrade; admitted connections join their identity's routing group.
type SocketController struct {
	verifier   middleware.SessionVerifier
	hub        *ws.Hub
	relay      *logic.RelayLogic
	cookieName string
	upgrader   websocket.Upgrader
}

func NewSocketController(verifier middleware.SessionVerifier, hub *ws.Hub, relay *logic.RelayLogic, cookieName string) *SocketController {
	return &SocketController{
		verifier:   verifier,
		hub:        hub,
		relay:      relay,
		cookieName: cookieName,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handle handles GET /socket. The gate runs before the upgrade: no cookie and
// failed verification reject the handshake outright, and neither touches the
// database. Verification happens on every attempt; nothing is cached.
func (s *SocketController) Handle(ctx *gin.Context) {
	cookie, err := ctx.Request.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		ctx.String(http.StatusUnauthorized, reasonNoCookie)
		return
	}

	identity, err := s.verifier.VerifySessionToken(cookie.Value)
	if err != nil {
		ctx.String(http.StatusUnauthorized, reasonInvalidSession)
		return
	}

	conn, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		observability.Logger().Error("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(identity.SubjectID, conn)
	s.hub.Register(client)
	go client.WritePump()

	log := observability.WithFields("subject_id", identity.SubjectID)
	log.Info("client connected")

	s.readLoop(client)

	s.hub.Unregister(client)
	client.Close()
	log.Info("client disconnected")
}

// readLoop services frames in arrival order; each frame's relay sequence runs
// to completion before the next frame on this connection is read.
func (s *SocketController) readLoop(client *ws.Client) {
	for {
		data, err := client.Read()
		if err != nil {
			return
		}
		s.dispatch(client, data)
	}
}

func (s *SocketController) dispatch(client *ws.Client, data []byte) {
	// No failure here may take down the connection or the process.
	defer func() {
		if r := recover(); r != nil {
			observability.Logger().Error("panic handling socket event", "panic", r)
			s.emitError(client, errInternal)
		}
	}()

	var event ws.Event
	if err := json.Unmarshal(data, &event); err != nil {
		s.emitError(client, errMissingFields)
		return
	}

	switch event.Event {
	case ws.EventMessage:
		var payload ws.ChatPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			s.emitError(client, errMissingFields)
			return
		}
		s.handleChat(client, payload)
	default:
		observability.Logger().Info("ignoring unknown socket event", "event", event.Event)
	}
}

func (s *SocketController) handleChat(client *ws.Client, payload ws.ChatPayload) {
	// Deliberately not tied to the connection: a disconnect mid-generation
	// only makes the final delivery a no-op. The completion deadline is
	// enforced inside the relay.
	msg, err := s.relay.HandleMessage(context.Background(), client.SubjectID, payload.ProjectID, payload.Content)
	if err != nil {
		s.emitError(client, relayErrorString(err))
		return
	}

	frame, err := ws.EncodeEvent(ws.EventMessage, ws.ReplyPayload{
		ID:   strconv.FormatUint(msg.ID, 10),
		Text: msg.Content,
		Role: models.RoleAssistant,
	})
	if err != nil {
		observability.Logger().Error("failed to encode reply frame", "error", err)
		s.emitError(client, errInternal)
		return
	}

	// Fan out to every connection of this identity, not just the originator.
	s.hub.SendToIdentity(client.SubjectID, frame)
}

// emitError reports a failure to the originating connection only.
func (s *SocketController) emitError(client *ws.Client, message string) {
	frame, err := ws.EncodeEvent(ws.EventMessageError, ws.ErrorPayload{Error: message})
	if err != nil {
		observability.Logger().Error("failed to encode error frame", "error", err)
		return
	}
	client.Send(frame)
}

func relayErrorString(err error) string {
	switch {
	case errors.Is(err, logic.ErrMissingFields):
		return errMissingFields
	case errors.Is(err, logic.ErrUserNotFound):
		return errUserNotFound
	case errors.Is(err, logic.ErrProjectNotFound):
		return errProjectNotFound
	case errors.Is(err, logic.ErrForbidden):
		return errForbidden
	case errors.Is(err, logic.ErrLLMFailed):
		return errLLMFailed
	default:
		return errInternal
	}
}
