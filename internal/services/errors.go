package services

import "errors"

var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrForbidden       = errors.New("not allowed")

	ErrGroupNotFound    = errors.New("group not found")
	ErrJoinCodeNotFound = errors.New("no group with that join code")
	ErrNotPrivate       = errors.New("group is not private")
	ErrAlreadyMember    = errors.New("already a member of this group")
	ErrNotMember        = errors.New("not a member of this group")
	ErrOwnerCannotLeave = errors.New("the group owner cannot leave; delete the group instead")
	ErrNotOwner         = errors.New("only the group owner can do this")

	ErrNotificationNotFound = errors.New("notification not found")
	ErrIdeaNotFound         = errors.New("idea not found")
	ErrCommentNotFound      = errors.New("comment not found")
	ErrNoteNotFound         = errors.New("note not found")
	ErrMoodboardNotFound    = errors.New("mood board item not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrUploadsDisabled      = errors.New("image uploads are not configured")

	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found or expired")
)
