// Command qfec-endpoint is a minimal wiring example: it listens on a
// UDP socket via netio.Listener and feeds every datagram through
// endpoint.IncomingPacket, adapted from vuva-MAppLE's
// example/main.go/example/client/main.go command-line shape. The TLS
// handshake driver and frame decoder are out of scope (§1) and are left
// unset, so this command demonstrates dispatch and FEC wiring rather
// than a runnable QUIC peer.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quicfec/qfec/endpoint"
	"github.com/quicfec/qfec/eventlog"
	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/fecframework"
	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/internal/wire"
	"github.com/quicfec/qfec/netio"
	"github.com/quicfec/qfec/qlog"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4433", "UDP address to listen on")
	scheme := flag.String("fec-scheme", string(fecframework.SchemeRSBlock), "fec scheme: xor-block, rs-block, xor-window, rs-window")
	sourceSymbols := flag.Int("fec-source-symbols", 10, "source symbols per FEC block/batch")
	repairSymbols := flag.Int("fec-repair-symbols", 3, "repair symbols per FEC block/batch")
	logPrefix := flag.String("log-prefix", "qfec", "prefix for eventlog CSV files")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		qlog.SetLevel(qlog.LevelDebug)
	} else {
		qlog.SetLevel(qlog.LevelInfo)
	}

	events, err := eventlog.New(*logPrefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "eventlog:", err)
		os.Exit(1)
	}
	defer events.Close()

	cfg := &endpoint.Config{
		SupportedVersions: []wire.VersionInfo{
			{Version: 0xff00001d, Class: wire.VersionClassDraft29},
		},
		LocalCIDLength:       8,
		EnforceRetryToken:    true,
		FECScheme:            *scheme,
		MaxFECBlocksInFlight: protocol.MaxFECBlocks,
	}

	ep, err := endpoint.New(cfg, 30*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, "endpoint:", err)
		os.Exit(1)
	}

	controller := fec.ConstantController{SourceSymbols: *sourceSymbols, RepairSymbols: *repairSymbols}
	obs := &fecEventLogger{events: events}

	ep.NewConnection = func(clientMode bool, initialCID protocol.ConnectionID) *endpoint.Connection {
		cnx := endpoint.NewConnection(cfg, clientMode, initialCID)
		reinject := func(blockNumber protocol.FECBlockNumber, packetNumber uint64, payload []byte) {
			qlog.Infof("recovered packet %d from block %d (%d bytes)", packetNumber, blockNumber, len(payload))
			events.FECEvent(blockNumber, "recovered")
		}
		state, err := endpoint.NewFECState(fecframework.Scheme(*scheme), controller, cfg.MaxFECBlocksInFlight, obs, reinject)
		if err != nil {
			qlog.Errorf("fec state: %v", err)
			return cnx
		}
		cnx.FEC = state
		return cnx
	}

	listener, err := netio.Listen(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen:", err)
		os.Exit(1)
	}
	defer listener.Close()

	ep.Send = func(d endpoint.Datagram) {
		if _, err := listener.WriteTo(d.Data, d.To); err != nil {
			qlog.Errorf("send: %v", err)
		}
	}

	qlog.Infof("listening on %s", listener.LocalAddr())

	buf := make([]byte, 65535)
	for {
		n, addrFrom, addrTo, ifIndex, err := listener.ReadFrom(buf)
		if err != nil {
			qlog.Errorf("read: %v", err)
			continue
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		events.Packet(n, addrFrom, false)

		status, created := endpoint.IncomingPacket(ep, datagram, addrFrom, addrTo, ifIndex, time.Now())
		if status != endpoint.StatusOK {
			qlog.Debugf("dropped datagram from %s", addrFrom)
		}
		if created {
			qlog.Infof("new connection from %s", addrFrom)
		}
	}
}

// fecEventLogger adapts fecframework.EvictionObserver onto eventlog.
type fecEventLogger struct {
	events *eventlog.Logger
}

func (o *fecEventLogger) FECBlockEvicted(blockNumber protocol.FECBlockNumber) {
	o.events.FECEvent(blockNumber, "evicted")
}

func (o *fecEventLogger) FECPacketRecovered(blockNumber protocol.FECBlockNumber) {
	o.events.FECEvent(blockNumber, "recovered")
}
