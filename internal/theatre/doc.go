// Package theatre is the home-theatre controller: it listens to the video
// processor, audio processor, media player and media center, and keeps the
// display, audio routing and on-screen messages in step with the source.
//
// Each event kind has a handler that recomputes its conditions from the
// event payload and declares edge-triggered rules (see internal/controller):
//
//   - display: input, picture mode, audio profile and processor memory
//     from the video processor's display mode
//   - audio: announces the decoded audio format
//   - selection: shows score and running time for the highlighted title
//   - playback: announces media center titles and clears the menu on stop
//
// Rule names are scoped per handler ("display/hdr", "audio/show-codec").
package theatre
