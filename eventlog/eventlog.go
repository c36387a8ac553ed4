// Package eventlog records receive-path and FEC lifecycle events to
// per-topic CSV files, adapted from vuva-MAppLE's
// logger.experimentationLogger (src/logger/experiment_logger.go). The
// original's stream-gap/cwnd/delay-estimator topics are replaced with
// this module's own: FEC block lifecycle, SACK growth, and received
// packet accounting.
package eventlog

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/quicfec/qfec/internal/protocol"
)

// Logger writes CSV rows to a set of topic files sharing a filename
// prefix, one bufio.Writer per topic exactly as the teacher's
// experimentationLogger does.
type Logger struct {
	mu sync.Mutex

	fecLog    *bufio.Writer
	sackLog   *bufio.Writer
	packetLog *bufio.Writer

	files []*os.File
}

func newTopic(prefix, name, heading string) (*bufio.Writer, *os.File, error) {
	f, err := os.OpenFile(prefix+"_"+name+".csv", os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, err
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(heading + "\n"); err != nil {
		f.Close()
		return nil, nil, err
	}
	return w, f, nil
}

// New opens the topic files under prefix (prefix_fec.csv,
// prefix_sack.csv, prefix_packet.csv).
func New(prefix string) (*Logger, error) {
	fecLog, fecFile, err := newTopic(prefix, "fec", "blockNumber,event,timestamp")
	if err != nil {
		return nil, err
	}
	sackLog, sackFile, err := newTopic(prefix, "sack", "context,endOfRange,timestamp")
	if err != nil {
		return nil, err
	}
	packetLog, packetFile, err := newTopic(prefix, "packet", "size,peer,fec,timestamp")
	if err != nil {
		return nil, err
	}
	return &Logger{
		fecLog:    fecLog,
		sackLog:   sackLog,
		packetLog: packetLog,
		files:     []*os.File{fecFile, sackFile, packetFile},
	}, nil
}

// FECEvent records a block lifecycle transition (created, decoded,
// evicted, recovered), mirroring ExpLogInsertFECEvent.
func (l *Logger) FECEvent(blockNumber protocol.FECBlockNumber, event string) {
	line := fmt.Sprintf("%d,%s,%d\n", blockNumber, event, time.Now().UnixNano())
	l.mu.Lock()
	l.fecLog.WriteString(line)
	l.mu.Unlock()
}

// SACKGrowth records the high-water mark of one packet-number space
// advancing.
func (l *Logger) SACKGrowth(pc protocol.PacketContext, endOfRange protocol.PacketNumber) {
	line := fmt.Sprintf("%s,%d,%d\n", pc, endOfRange, time.Now().UnixNano())
	l.mu.Lock()
	l.sackLog.WriteString(line)
	l.mu.Unlock()
}

// Packet records one received or sent datagram's size, peer, and
// whether it carried an FEC frame.
func (l *Logger) Packet(size int, peer net.Addr, fec bool) {
	line := fmt.Sprintf("%d,%s,%t,%d\n", size, peer.String(), fec, time.Now().UnixNano())
	l.mu.Lock()
	l.packetLog.WriteString(line)
	l.mu.Unlock()
}

// Flush writes all buffered rows to disk.
func (l *Logger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fecLog.Flush()
	l.sackLog.Flush()
	l.packetLog.Flush()
}

// Close flushes and closes every topic file.
func (l *Logger) Close() error {
	l.Flush()
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
