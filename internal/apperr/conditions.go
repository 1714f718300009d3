package apperr

var (
	// Validation
	ErrEmptyContent   = InvalidArg("EmptyContent", "message content cannot be empty")
	ErrContentTooLong = InvalidArg("ContentTooLong", "message content is too long")
	ErrMissingID      = InvalidArg("MissingID", "required id is missing")
	ErrInvalidUserID  = InvalidArg("InvalidUserID", "user id may not contain ':'")
	ErrInvalidRoom    = InvalidArg("InvalidRoom", "room key is not valid")
	ErrSelfConnection = InvalidArg("SelfConnection", "cannot connect to yourself")

	// Authorization
	ErrNotAttendee  = Forbidden("NotAttendee", "you must attend this event to use its chat")
	ErrNotConnected = Forbidden("NotConnected", "you must be connected to message this person")
	ErrNotInRoom    = Forbidden("NotInRoom", "you are not a participant of this room")

	// State conflict
	ErrAlreadyConnected        = AlreadyExists("AlreadyConnected", "already connected")
	ErrDuplicateRequest        = AlreadyExists("DuplicateRequest", "connection request already sent")
	ErrReciprocalRequestExists = FailedPrecondition("ReciprocalRequestExists", "this user already sent you a request; accept it instead")
	ErrRequestNotFound         = NotFound("RequestNotFound", "connection request not found")
	ErrUserNotFound            = NotFound("UserNotFound", "user not found")
)

// ErrStoreUnavailable wraps a transient store fault.
func ErrStoreUnavailable(cause error) error {
	return Unavailable("store temporarily unavailable", cause)
}
