package dialogue

import "errors"

var (
	// ErrDialogueExists is returned when registering a key already in use.
	ErrDialogueExists = errors.New("dialogue: key already in use")

	// ErrDialogueNotFound is returned for a key with no registered dialogue.
	ErrDialogueNotFound = errors.New("dialogue: key not found")

	// ErrDialogueClosed is returned when sending on a closed dialogue.
	ErrDialogueClosed = errors.New("dialogue: closed")

	// ErrGroupOpened is returned when a Group is opened twice.
	ErrGroupOpened = errors.New("dialogue: group already opened")

	// ErrNoPeers is returned when a Group is opened without counterparties.
	ErrNoPeers = errors.New("dialogue: group has no peers")
)
