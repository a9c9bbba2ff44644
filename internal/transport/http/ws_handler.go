package http

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type welcomePayload struct {
	Role   domain.Role `json:"role"`
	TeamID string      `json:"teamId,omitempty"`
}

// serveWS streams engine events to an authenticated dashboard. Participants
// only see their own team; staff see every team.
func (a *API) serveWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = bearerToken(r)
	}
	if token == "" {
		fail(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := a.auth.Authenticate(token)
	if err != nil {
		fail(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	teamID := ""
	if claims.Role == domain.RoleParticipant {
		if claims.TeamID == "" {
			fail(w, http.StatusForbidden, "participant token without team")
			return
		}
		teamID = claims.TeamID
	}

	updates, cancel, err := a.events.Subscribe(r.Context(), teamID)
	if err != nil {
		a.log.WithError(err).Error("ws subscribe failed")
		fail(w, http.StatusServiceUnavailable, "event feed unavailable")
		return
	}
	defer cancel()

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := a.log.WithFields(logrus.Fields{"account": claims.Username, "team_id": teamID})
	log.Debug("ws connected")

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "welcome", Payload: welcomePayload{Role: claims.Role, TeamID: teamID}}
	if teamID != "" {
		if last, found, err := a.events.LastEvent(r.Context(), teamID); err == nil && found {
			send <- outboundMessage[any]{Type: "event", Payload: last}
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, open := <-updates:
				if !open {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "ping":
			reply = outboundMessage[any]{Type: "pong", Payload: struct{}{}}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	log.Debug("ws disconnected")
}
