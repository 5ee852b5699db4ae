// Package htpc switches the home-theater PC between its 2D and 3D
// presentation setups.
//
// Two implementations are provided. Remote posts to a small switcher
// service running on the PC. Local runs configured profile commands
// directly, for when the controller itself runs on the PC.
package htpc
