package main

import (
	"context"
	"log"

	"github.com/conectabot/inbox/services"
	"github.com/conectabot/inbox/ws"
)

// registerHubCallbacks connects client events on the hub to the services.
// The hub lives in ws and must not import services, so the wiring sits here.
//
// Callbacks run on their own goroutine, never on Hub.Run's.
func registerHubCallbacks(hub *ws.Hub, conversations services.ConversationService) {
	hub.OnConnect(func(clientID string) {
		hub.SendTo(clientID, ws.Event{
			Op: ws.OpReady,
			Data: ws.ReadyData{
				ClientID:      clientID,
				Conversations: conversations.List(),
				OpenID:        conversations.OpenID(),
			},
		})
	})

	hub.OnOpenConversation(func(clientID, conversationID string) {
		if _, err := conversations.Open(context.Background(), conversationID); err != nil {
			log.Printf("[ws] client %s failed to open %s: %v", clientID, conversationID, err)
		}
	})

	hub.OnCloseConversation(func(clientID string) {
		conversations.Close()
	})
}
