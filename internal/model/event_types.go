package model

type EventType string

const (
	EventTypeCardCreated         EventType = "card.created"
	EventTypeCardConfirmed       EventType = "card.confirmed"
	EventTypeCardMoved           EventType = "card.moved"
	EventTypeCardUpdated         EventType = "card.updated"
	EventTypeCardCompleted       EventType = "card.completed"
	EventTypeCardDeleted         EventType = "card.deleted"
	EventTypeMovementAdded       EventType = "movement.added"
	EventTypeMovementUpdated     EventType = "movement.updated"
	EventTypeMovementDeleted     EventType = "movement.deleted"
	EventTypeSessionSwitched     EventType = "session.switched"
	EventTypeImpersonationBegan  EventType = "session.impersonation_began"
	EventTypeImpersonationEnded  EventType = "session.impersonation_ended"
)
