package model

// Event is the slice of the events collection this module reads. Events are
// owned elsewhere; only the attendee list matters here.
type Event struct {
	ID        string   `json:"id" bson:"_id"`
	Title     string   `json:"title,omitempty" bson:"title,omitempty"`
	Attendees []string `json:"attendees" bson:"attendees"`
}
