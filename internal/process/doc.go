// Package process runs short-lived helper commands.
//
// It is used to load presentation profiles on the home-theater PC when the
// controller runs on that machine. Each command runs in its own process
// group so that a timeout stops any children it spawned.
//
// Example usage:
//
//	r := process.NewRunner(logger)
//	res, err := r.Run(ctx, process.Command{
//	    Name:    "profile-3d",
//	    Binary:  "/usr/local/bin/display-profile",
//	    Args:    []string{"load", "3d"},
//	    Timeout: 10 * time.Second,
//	})
package process
