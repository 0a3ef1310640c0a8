package main

import (
	"github.com/conectabot/inbox/database"
	"github.com/conectabot/inbox/repository"
)

// Repositories holds the data access layer.
type Repositories struct {
	ConversationState repository.ConversationStateRepository
	Marker            repository.MarkerRepository
	NotificationLog   repository.NotificationLogRepository
}

// initRepositories creates every repository on the shared connection.
// Services that need a transaction build tx-scoped copies inside WithTx.
func initRepositories(db database.TxQuerier) *Repositories {
	return &Repositories{
		ConversationState: repository.NewSQLiteConversationStateRepo(db),
		Marker:            repository.NewSQLiteMarkerRepo(db),
		NotificationLog:   repository.NewSQLiteNotificationLogRepo(db),
	}
}
