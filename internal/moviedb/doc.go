// Package moviedb is a minimal client for The Movie Database search API.
//
// Only movie search is implemented: the controller uses it to show the
// community score of the title highlighted in the media player library.
package moviedb
