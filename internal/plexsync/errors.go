package plexsync

import "errors"

var (
	// ErrIntegrationNotConfigured is returned when a sync is requested for
	// a user with no enabled Plex connection.
	ErrIntegrationNotConfigured = errors.New("plex integration is not configured")

	// ErrNoLibrariesFound is returned when the connected server has no TV
	// show libraries.
	ErrNoLibrariesFound = errors.New("no TV libraries found on server")

	// ErrShowNotResolvable is returned when a reported show cannot be
	// matched to a TVDB series by GUID or title.
	ErrShowNotResolvable = errors.New("could not find show on TheTVDB")

	// ErrSyncInProgress is returned when a manual sync is requested while
	// one is already running for the same user.
	ErrSyncInProgress = errors.New("sync is already in progress")
)
