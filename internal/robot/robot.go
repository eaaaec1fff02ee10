// Package robot relays driving commands and computed paths to the EV3
// controller over its HTTP API.
//
// The interfaces are small so the relay depends only on what it uses.
package robot

import (
	"context"

	"github.com/pdrpinto/roboroute"
)

// CommandSender relays a single driving command such as "forward".
type CommandSender interface {
	SendCommand(ctx context.Context, command string) error
}

// PathSender relays a computed path.
type PathSender interface {
	SendPath(ctx context.Context, path []roboroute.Cell) error
}

// Dispatcher is everything the relay sends to the robot.
type Dispatcher interface {
	CommandSender
	PathSender
}
