// Package endpoint ties the receive-path components (header parsing,
// crypto gate, dispatch, path management, FEC) into the Connection type
// and its state machine (§3, §4.4-§4.7), and exposes the
// IncomingPacket entry point (§6). Grounded on vuva-MAppLE's session.go
// for the state-machine shape, with congestion control, the multipath
// scheduler, and stream multiplexing dropped as out of scope (§1).
package endpoint

import (
	"github.com/quicfec/qfec/internal/wire"
)

// Config is the per-endpoint configuration consulted by header parsing,
// dispatch, and the FEC framework, adapted from vuva-MAppLE's quic.Config
// (Config.go), trimmed to the fields the receive pipeline in scope here
// actually reads.
type Config struct {
	// SupportedVersions is consulted by ParseHeader and by version
	// negotiation.
	SupportedVersions []wire.VersionInfo

	// LocalCIDLength is the connection ID length this endpoint expects on
	// short headers it receives (0 means "resolve by peer address").
	LocalCIDLength int

	// EnforceRetryToken makes the server require a valid retry token on
	// every Initial before accepting it (§4.4).
	EnforceRetryToken bool

	// FECScheme names the coding scheme new connections default to; the
	// concrete Coder is resolved by the caller wiring up FECState.
	FECScheme string

	// MaxFECBlocksInFlight bounds the receive-side block ring
	// (MAX_FEC_BLOCKS if zero).
	MaxFECBlocksInFlight int
}
