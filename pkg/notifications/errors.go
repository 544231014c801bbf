package notifications

import "errors"

var (
	// ErrNotificationNotFound is returned when a notification does not
	// exist or belongs to another user.
	ErrNotificationNotFound = errors.New("notifications: notification not found")

	// ErrPreferencesNotFound is returned by PreferencesStore.Get when the
	// user has never saved preferences.
	ErrPreferencesNotFound = errors.New("notifications: preferences not found")

	// ErrNoChannelsAvailable is returned by Engine.Send when preference
	// filtering leaves no channel to deliver on. Nothing is persisted.
	ErrNoChannelsAvailable = errors.New("notifications: no channels available after preference filtering")

	// ErrInvalidPreferences is returned when a preferences update fails
	// validation.
	ErrInvalidPreferences = errors.New("notifications: invalid preferences")

	// ErrInvalidRequest is returned by Engine.Send for requests missing
	// required fields.
	ErrInvalidRequest = errors.New("notifications: invalid send request")

	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("notifications: storage cannot be nil")
)
