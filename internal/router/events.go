package router

import "github.com/nemoria/mavrouter/internal/mavlink"

type commandKind int

const (
	cmdPublish commandKind = iota
)

// command is how a local in-process producer injects a frame into the
// router's single coordinator goroutine, rather than racing the route
// table or driver map directly.
type command struct {
	kind  commandKind
	frame mavlink.Frame
}
