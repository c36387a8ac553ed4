package endpoint

import (
	"crypto/subtle"
	"net"
	"time"

	"github.com/quicfec/qfec/cryptoctx"
	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/internal/wire"
	"github.com/quicfec/qfec/pathmanager"
	"github.com/quicfec/qfec/pnrecovery"
	"github.com/quicfec/qfec/qerr"
	"github.com/quicfec/qfec/statelessresponder"
)

// processSegment implements §4.4 steps 1-4 for one already-delimited
// wire segment.
func (e *Endpoint) processSegment(segment []byte, hdr *wire.PacketHeader, addrFrom, addrTo net.Addr, ifIndex int, now time.Time) (created bool, err error) {
	conn, _ := e.Table.Lookup(hdr.DestCID, addrFrom)
	cnx, _ := conn.(*Connection)

	if cnx == nil {
		return e.dispatchNoConnection(segment, hdr, addrFrom)
	}

	switch hdr.Type {
	case protocol.PacketTypeVersionNegotiation:
		return false, e.handleVersionNegotiation(cnx, hdr)
	case protocol.PacketTypeInitial:
		return e.handleInitial(cnx, segment, hdr, addrFrom, addrTo, ifIndex, now)
	case protocol.PacketTypeRetry:
		return false, e.handleRetry(cnx, segment, hdr)
	case protocol.PacketTypeHandshake:
		return false, e.handleHandshake(cnx, segment, hdr, addrFrom, addrTo, ifIndex, now)
	case protocol.PacketType0RTT:
		return false, e.handleZeroRTT(cnx, segment, hdr, addrFrom, addrTo, ifIndex, now)
	case protocol.PacketTypeOneRTTPhase0, protocol.PacketTypeOneRTTPhase1:
		return false, e.handleEncrypted(cnx, segment, hdr, addrFrom, addrTo, ifIndex, now)
	default:
		return false, qerr.ErrUnexpectedPacket
	}
}

// dispatchNoConnection implements §4.4 step 2: when no connection
// matches, either a Version Negotiation or a Stateless Reset may be
// enqueued, or (for the common case of a fresh Initial) a connection is
// created.
func (e *Endpoint) dispatchNoConnection(segment []byte, hdr *wire.PacketHeader, addrFrom net.Addr) (bool, error) {
	if hdr.Type == protocol.PacketTypeError {
		if hdr.Version != protocol.VersionNegotiation && len(hdr.DestCID) > 0 {
			e.sendVersionNegotiation(hdr, addrFrom)
		}
		return false, qerr.ErrMalformedHeader
	}

	if hdr.Type == protocol.PacketTypeInitial {
		return e.acceptInitial(segment, hdr, addrFrom)
	}

	if hdr.Type == protocol.PacketTypeOneRTTPhase0 || hdr.Type == protocol.PacketTypeOneRTTPhase1 {
		if len(hdr.DestCID) > 0 && len(segment) >= protocol.ResetPacketMinSize && e.Responder != nil {
			reset, err := e.Responder.BuildStatelessReset(hdr.DestCID, len(segment), hdr.Type == protocol.PacketTypeOneRTTPhase1)
			if err == nil && e.Send != nil {
				e.Send(Datagram{To: addrFrom, Data: reset})
			}
		}
		return false, qerr.ErrConnectionDeleted
	}

	return false, qerr.ErrCnxidCheck
}

func (e *Endpoint) sendVersionNegotiation(hdr *wire.PacketHeader, addrFrom net.Addr) {
	if e.Responder == nil || e.Send == nil {
		return
	}
	versions := make([]protocol.VersionNumber, len(e.Config.SupportedVersions))
	for i, v := range e.Config.SupportedVersions {
		versions[i] = v.Version
	}
	pkt, err := statelessresponder.BuildVersionNegotiation(hdr, versions)
	if err == nil {
		e.Send(Datagram{To: addrFrom, Data: pkt})
	}
}

func (e *Endpoint) acceptInitial(segment []byte, hdr *wire.PacketHeader, addrFrom net.Addr) (bool, error) {
	if len(segment) < protocol.EnforcedInitialMTU {
		return false, qerr.ErrInitialTooShort
	}
	if e.NewConnection == nil {
		return false, qerr.ErrConnectionDeleted
	}

	cnx := e.NewConnection(false, hdr.DestCID)
	cnx.RemoteCID = hdr.SrceCID
	cnx.VersionIndex = hdr.VersionIndex
	cnx.Version = hdr.Version

	if e.Config.EnforceRetryToken && e.Responder != nil {
		token := tokenBytes(segment, hdr)
		if !e.Responder.ValidateRetryToken(token, peerIP(addrFrom)) {
			return e.issueRetry(cnx, hdr, addrFrom)
		}
	}

	if err := e.finishInitial(cnx, segment, hdr, addrFrom); err != nil {
		return false, err
	}
	e.Table.Add(hdr.DestCID, addrFrom, cnx)
	cnx.State = protocol.StateServerHandshake
	return true, nil
}

func tokenBytes(segment []byte, hdr *wire.PacketHeader) []byte {
	if hdr.TokenLength <= 0 || hdr.TokenOffset+hdr.TokenLength > len(segment) {
		return nil
	}
	return segment[hdr.TokenOffset : hdr.TokenOffset+hdr.TokenLength]
}

func (e *Endpoint) issueRetry(cnx *Connection, hdr *wire.PacketHeader, addrFrom net.Addr) (bool, error) {
	newSrceCID := randomCID(8)
	want := e.Responder.RetryToken(peerIP(addrFrom))
	pkt, err := statelessresponder.BuildRetry(cnx.Version, hdr, newSrceCID, want[:])
	if err == nil && e.Send != nil {
		e.Send(Datagram{To: addrFrom, Data: pkt})
	}
	return false, qerr.ErrRetry
}

func (e *Endpoint) finishInitial(cnx *Connection, segment []byte, hdr *wire.PacketHeader, addrFrom net.Addr) error {
	path := cnx.Paths.Resolve(addrFrom, hdr.DestCID, func() *pathmanager.Path {
		return pathmanager.NewPath(addrFrom, nil, 0, hdr.SrceCID, hdr.DestCID)
	})

	plaintext, pn64, err := e.decryptSegment(cnx, segment, hdr, path)
	if err != nil {
		return err
	}
	if !path.PktCtx[hdr.PacketContext].Sack.Record(pn64) {
		path.PktCtx[hdr.PacketContext].AckNeeded = true
		return qerr.ErrDuplicate
	}
	if e.FrameDecoder != nil {
		_ = e.FrameDecoder.Decode(cnx, plaintext, hdr.Epoch, time.Now(), path)
	}
	if e.TLS != nil {
		_ = e.TLS.StreamProcess(cnx)
	}
	return nil
}

// handleInitial handles an Initial for an already-known connection
// (§4.4's Initial dispatch for the non-fresh case).
func (e *Endpoint) handleInitial(cnx *Connection, segment []byte, hdr *wire.PacketHeader, addrFrom, addrTo net.Addr, ifIndex int, now time.Time) (bool, error) {
	if !hdr.DestCID.Equal(cnx.InitialCID) && !hdr.DestCID.Equal(cnx.LocalCID) {
		return false, qerr.ErrCnxidCheck
	}
	if !cnx.AdoptOrCheckRemoteCID(hdr.SrceCID) {
		return false, qerr.ErrCnxidCheck
	}
	if e.Config.EnforceRetryToken && e.Responder != nil {
		token := tokenBytes(segment, hdr)
		if !e.Responder.ValidateRetryToken(token, peerIP(addrFrom)) {
			return e.issueRetry(cnx, hdr, addrFrom)
		}
	}
	return false, e.finishInitial(cnx, segment, hdr, addrFrom)
}

// handleVersionNegotiation implements §4.4's VN dispatch: valid only in
// ClientInitSent, and only if destCID matches the local CID and
// version is the reserved zero.
func (e *Endpoint) handleVersionNegotiation(cnx *Connection, hdr *wire.PacketHeader) error {
	if cnx.State != protocol.StateClientInitSent {
		return qerr.ErrUnexpectedPacket
	}
	if !hdr.DestCID.Equal(cnx.LocalCID) || hdr.Version != protocol.VersionNegotiation {
		return qerr.ErrUnexpectedPacket
	}
	for _, offered := range hdr.SupportedVersions {
		for i, vi := range e.Config.SupportedVersions {
			if vi.Version == offered {
				cnx.ResetToVersion(i, offered)
				return nil
			}
		}
	}
	return qerr.ErrUnexpectedPacket
}

// handleRetry implements §4.4's Retry dispatch.
func (e *Endpoint) handleRetry(cnx *Connection, segment []byte, hdr *wire.PacketHeader) error {
	if cnx.State != protocol.StateClientInitSent && cnx.State != protocol.StateClientInitResent {
		return qerr.ErrUnexpectedPacket
	}
	if hdr.Version != cnx.Version {
		return qerr.ErrUnexpectedPacket
	}
	if hdr.PN != 0 {
		return qerr.ErrUnexpectedPacket
	}
	payload := segment[hdr.Offset:]
	if len(payload) < 1 {
		return qerr.ErrMalformedHeader
	}
	odcil := int(payload[0] & 0x0f)
	if 1+odcil > len(payload) {
		return qerr.ErrMalformedHeader
	}
	odcid := protocol.ConnectionID(payload[1 : 1+odcil])
	if !odcid.Equal(cnx.InitialCID) {
		return qerr.ErrUnexpectedPacket
	}
	cnx.RetryToken = append([]byte(nil), payload[1+odcil:]...)
	cnx.InitialCID = hdr.SrceCID
	cnx.LocalCID = hdr.SrceCID
	cnx.State = protocol.StateClientInitResent
	return qerr.ErrRetry
}

// handleHandshake implements §4.4's Handshake dispatch for both roles.
func (e *Endpoint) handleHandshake(cnx *Connection, segment []byte, hdr *wire.PacketHeader, addrFrom, addrTo net.Addr, ifIndex int, now time.Time) error {
	if cnx.ClientMode {
		if !cnx.AdoptOrCheckRemoteCID(hdr.SrceCID) {
			return qerr.ErrCnxidCheck
		}
	} else if !cnx.RemoteCID.Equal(hdr.SrceCID) {
		return qerr.ErrCnxidCheck
	}
	cnx.TransitionOnHandshakeReceived()

	path := cnx.Paths.Resolve(addrFrom, hdr.DestCID, func() *pathmanager.Path {
		return pathmanager.NewPath(addrFrom, addrTo, ifIndex, hdr.SrceCID, hdr.DestCID)
	})
	plaintext, pn64, err := e.decryptSegment(cnx, segment, hdr, path)
	if err != nil {
		return err
	}
	if !path.PktCtx[hdr.PacketContext].Sack.Record(pn64) {
		path.PktCtx[hdr.PacketContext].AckNeeded = true
		return qerr.ErrDuplicate
	}
	if e.FrameDecoder != nil {
		_ = e.FrameDecoder.Decode(cnx, plaintext, hdr.Epoch, now, path)
	}
	if e.TLS != nil {
		_ = e.TLS.StreamProcess(cnx)
	}
	if e.TLS != nil && e.TLS.IsHandshakeComplete(cnx) && !cnx.HandshakeDone {
		cnx.MarkReady()
	}
	return nil
}

// handleZeroRTT implements §4.4's 0-RTT dispatch.
func (e *Endpoint) handleZeroRTT(cnx *Connection, segment []byte, hdr *wire.PacketHeader, addrFrom, addrTo net.Addr, ifIndex int, now time.Time) error {
	if !hdr.DestCID.Equal(cnx.InitialCID) && !hdr.DestCID.Equal(cnx.LocalCID) {
		return qerr.ErrCnxidCheck
	}
	if !cnx.RemoteCID.Equal(hdr.SrceCID) {
		return qerr.ErrCnxidCheck
	}
	if cnx.State != protocol.StateServerAlmostReady && cnx.State != protocol.StateServerReady {
		return qerr.ErrUnexpectedPacket
	}
	if hdr.Version != cnx.Version {
		// §7: 0-RTT with a mismatched version is a protocol violation, not
		// a benign drop — it closes the connection.
		cnx.CloseOnProtocolViolation()
		return qerr.ErrProtocolViolation
	}
	path := cnx.Paths.Resolve(addrFrom, hdr.DestCID, func() *pathmanager.Path {
		return pathmanager.NewPath(addrFrom, addrTo, ifIndex, hdr.SrceCID, hdr.DestCID)
	})
	plaintext, pn64, err := e.decryptSegment(cnx, segment, hdr, path)
	if err != nil {
		return err
	}
	if !path.PktCtx[hdr.PacketContext].Sack.Record(pn64) {
		path.PktCtx[hdr.PacketContext].AckNeeded = true
		return qerr.ErrDuplicate
	}
	if e.FrameDecoder != nil {
		_ = e.FrameDecoder.Decode(cnx, plaintext, hdr.Epoch, now, path)
	}
	if e.TLS != nil {
		_ = e.TLS.StreamProcess(cnx)
	}
	return nil
}

// handleEncrypted implements §4.6's incoming_encrypted handler for
// OneRTTPhase0/OneRTTPhase1 packets.
func (e *Endpoint) handleEncrypted(cnx *Connection, segment []byte, hdr *wire.PacketHeader, addrFrom, addrTo net.Addr, ifIndex int, now time.Time) error {
	if cnx.State < protocol.StateClientAlmostReady || cnx.State == protocol.StateDisconnected {
		return qerr.ErrUnexpectedPacket
	}

	path := cnx.Paths.Resolve(addrFrom, hdr.DestCID, func() *pathmanager.Path {
		return pathmanager.NewPath(addrFrom, addrTo, ifIndex, cnx.RemoteCID, hdr.DestCID)
	})
	if path == nil {
		return qerr.ErrCnxidCheck
	}

	plaintext, pn64, err := e.decryptSegment(cnx, segment, hdr, path)
	if err != nil {
		if err == qerr.ErrAeadCheck && isInboundStatelessReset(cnx, segment) {
			cnx.ResetOnStatelessReset()
			return qerr.ErrStatelessReset
		}
		return err
	}

	if pn64 > path.PktCtx[hdr.PacketContext].Sack.EndOfSackRange() {
		path.UpdateSpinEdge(hdr.PacketContext, pn64, hdr.Spin, cnx.ClientMode)
	}

	if cnx.IsClosingOrBeyond() {
		if cnx.State != protocol.StateClosing {
			return qerr.ErrUnexpectedPacket
		}
		closingReceived, err := e.FrameDecoder.DecodeClosing(cnx, plaintext)
		if err != nil {
			return err
		}
		if closingReceived {
			if cnx.ClientMode {
				cnx.State = protocol.StateDisconnected
			} else {
				cnx.State = protocol.StateDraining
			}
		} else {
			path.PktCtx[hdr.PacketContext].AckNeeded = true
		}
		return nil
	}

	if err := path.MaybeMigrate(addrFrom, now, e.PathObs); err != nil {
		return err
	}
	path.RecordReceived(protocol.ByteCount(len(segment)), now)

	if !path.PktCtx[hdr.PacketContext].Sack.Record(pn64) {
		path.PktCtx[hdr.PacketContext].AckNeeded = true
		return qerr.ErrDuplicate
	}
	path.PktCtx[hdr.PacketContext].AckNeeded = true

	if e.FrameDecoder != nil {
		if err := e.FrameDecoder.Decode(cnx, plaintext, hdr.Epoch, now, path); err != nil {
			return err
		}
	}
	if e.TLS != nil {
		_ = e.TLS.StreamProcess(cnx)
	}
	return nil
}

// isInboundStatelessReset checks segment's trailing ResetSecretSize bytes
// against cnx's registered peer reset secret (§4.7, §8 Scenario 4). Only
// called after AEAD has already rejected the packet, matching picoquic's
// order of operations.
func isInboundStatelessReset(cnx *Connection, segment []byte) bool {
	if !cnx.HasPeerResetSecret || len(segment) < protocol.ResetPacketMinSize {
		return false
	}
	trailing := segment[len(segment)-protocol.ResetSecretSize:]
	return subtle.ConstantTimeCompare(trailing, cnx.PeerResetSecret[:]) == 1
}

// decryptSegment runs the CryptoGate (§4.3) over segment using cnx's
// crypto context for hdr's epoch, recovering the 64-bit packet number
// against the path's high-water mark for the matching packet context.
func (e *Endpoint) decryptSegment(cnx *Connection, segment []byte, hdr *wire.PacketHeader, path *pathmanager.Path) ([]byte, protocol.PacketNumber, error) {
	ctx := cnx.CryptoContexts[hdr.Epoch]
	if ctx == nil {
		return nil, 0, qerr.ErrAeadCheck
	}
	if err := cryptoctx.RemoveHeaderProtection(segment, hdr, ctx.HPDecrypt); err != nil {
		return nil, 0, qerr.ErrAeadCheck
	}
	// §4.2's contract wants the packet number one past the highest seen so
	// far, not the high-water mark itself; EndOfSackRange returns
	// InvalidPacketNumber (-1) before anything's been recorded, which
	// already lands on 0 here.
	highWater := path.PktCtx[hdr.PacketContext].Sack.EndOfSackRange()
	pn64 := pnrecovery.DecodePacketNumber(highWater+1, hdr.PNMask, hdr.PN)

	plaintext, err := cryptoctx.Decrypt(segment, hdr, pn64, highWater, ctx.AEADDecrypt)
	if err != nil {
		return nil, 0, err
	}
	return plaintext, pn64, nil
}
