// Package supervisor runs the controller's long-lived services under a
// suture supervision tree.
//
// The tree has three branches:
//
//	theatre
//	├── core     the controller loop; its exit stops the whole tree
//	├── devices  pollers that feed events into the controller
//	└── api      the status API
//
// Pollers and the API are restarted with backoff when they fail. The
// controller is not: its lifecycle runs once, so a Terminal service ends
// the tree when it returns. Supervisor events are logged through slog.
package supervisor
