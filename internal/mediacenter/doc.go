// Package mediacenter polls a media center server's web service for
// playback status and raises device.PlaybackInfoChanged when it changes.
//
// The poller is a long-running service: Serve blocks until its context is
// cancelled, so it can run under the supervisor tree.
package mediacenter
