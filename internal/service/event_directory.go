package service

import "context"

//go:generate mockgen -source=event_directory.go -destination=mocks/mock_event_directory.go -package=mocks

// EventDirectory answers whether a user attends an event. Event membership is
// owned outside the messaging core.
type EventDirectory interface {
	IsEventAttendee(ctx context.Context, eventID, userID string) (bool, error)
}
