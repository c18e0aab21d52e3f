package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sel-lesson-service/internal/activity"
	"sel-lesson-service/internal/app"
	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/interaction"
	"sel-lesson-service/internal/logger"
)

type WSHandler struct {
	service  *app.PlayerService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PlayerService, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectLessonPayload struct {
	LessonID string `json:"lessonId"`
}

type mutePayload struct {
	Muted bool `json:"muted"`
}

type startActivityPayload struct {
	Name string `json:"name"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type speakPayload struct {
	Text string `json:"text"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one player session.
// sessionId resumes a session; without it a new id is issued. mute=true
// starts the session silent.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if len(sessionID) > 128 {
		http.Error(w, "sessionId too long", http.StatusBadRequest)
		return
	}
	var mute *bool
	if raw := r.URL.Query().Get("mute"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "invalid mute flag", http.StatusBadRequest)
			return
		}
		mute = &v
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := h.log.With("session_id", sessionID)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	h.service.Open(ctx, sessionID)
	if mute != nil {
		if _, err := h.service.SetMute(ctx, sessionID, *mute); err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
			return
		}
	}

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	defer func() {
		cancel()
		h.service.Leave(context.Background(), sessionID)
	}()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var loads sync.WaitGroup

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	// Send the session id before the subscription starts forwarding state.
	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{SessionID: sessionID}}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				msg := outboundMessage[any]{Type: string(ev.Type), Payload: ev.State}
				if ev.Type == domain.EventSpeak {
					msg.Payload = speakPayload{Text: ev.Text}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendErr := func(err error) {
		select {
		case send <- outboundMessage[any]{Type: "error", Payload: toErrorPayload(err)}:
		case <-closeSignals:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "selectLesson":
			var payload selectLessonPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.LessonID == "" {
				sendErr(errBadPayload)
				continue
			}
			// Queue in arrival order here; fetch beside the read loop so a
			// newer selection can supersede it.
			sel, err := h.service.BeginSelection(ctx, sessionID, payload.LessonID)
			if err != nil {
				sendErr(err)
				continue
			}
			loads.Add(1)
			go func() {
				defer loads.Done()
				if _, err := sel.Wait(); err != nil {
					sendErr(err)
				}
			}()
		case "next":
			if _, err := h.service.Next(ctx, sessionID); err != nil {
				sendErr(err)
			}
		case "back":
			if _, err := h.service.Back(ctx, sessionID); err != nil {
				sendErr(err)
			}
		case "interact":
			var action interaction.Action
			if err := json.Unmarshal(inbound.Payload, &action); err != nil || action.Type == "" {
				sendErr(errBadPayload)
				continue
			}
			if _, err := h.service.Interact(ctx, sessionID, action); err != nil {
				sendErr(err)
			}
		case "exitLesson":
			if _, err := h.service.ExitLesson(ctx, sessionID); err != nil {
				sendErr(err)
			}
		case "mute":
			var payload mutePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr(errBadPayload)
				continue
			}
			if _, err := h.service.SetMute(ctx, sessionID, payload.Muted); err != nil {
				sendErr(err)
			}
		case "startActivity":
			var payload startActivityPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Name == "" {
				sendErr(errBadPayload)
				continue
			}
			if _, err := h.service.StartActivity(ctx, sessionID, payload.Name); err != nil {
				sendErr(err)
			}
		default:
			sendErr(errUnsupportedMessage)
		}
	}

	stop()
	close(closeSignals)
	loads.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}

var (
	errBadPayload         = errors.New("invalid payload")
	errUnsupportedMessage = errors.New("unsupported message type")
)

func toErrorPayload(err error) errorPayload {
	return errorPayload{Code: errorCode(err), Message: err.Error()}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "sessionNotFound"
	case errors.Is(err, domain.ErrLessonNotFound):
		return "lessonNotFound"
	case errors.Is(err, domain.ErrNoActiveLesson):
		return "noActiveLesson"
	case errors.Is(err, domain.ErrNavigationLocked):
		return "navigationLocked"
	case errors.Is(err, domain.ErrContentDefect):
		return "contentDefect"
	case errors.Is(err, domain.ErrUnknownActivity):
		return "unknownActivity"
	case errors.Is(err, interaction.ErrAlreadySubmitted):
		return "alreadySubmitted"
	case errors.Is(err, interaction.ErrInvalidInput),
		errors.Is(err, interaction.ErrWordUnavailable),
		errors.Is(err, activity.ErrUnknownAction):
		return "invalidInput"
	case errors.Is(err, interaction.ErrUnsupportedAction), errors.Is(err, errUnsupportedMessage):
		return "unsupported"
	case errors.Is(err, errBadPayload):
		return "badPayload"
	default:
		return "internal"
	}
}
