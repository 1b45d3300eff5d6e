package render

import "github.com/coreman2200/funtimes-octostrip/internal/pool"

// frameBuffer holds one frame's worth of packets for zero-copy access
// plus the time the frame completed. Every slot holds a valid owned
// packet at all times, so a partially received frame is still safe to
// render: missing packets simply keep their previous contents.
type frameBuffer struct {
	packets []*pool.Packet
	time    uint64 // microseconds, stamped when the last packet arrives
}

func (fb *frameBuffer) alloc(p *pool.Pool, packetsPerFrame int) {
	fb.packets = make([]*pool.Packet, packetsPerFrame)
	for i := range fb.packets {
		pkt := p.Alloc()
		pkt.Buf = [pool.PacketSize]byte{}
		fb.packets[i] = pkt
	}
}

func (fb *frameBuffer) release(p *pool.Pool) {
	for _, pkt := range fb.packets {
		p.Free(pkt)
	}
	fb.packets = nil
}

// storeFramePacket swaps the incoming packet into its slot and frees
// the previous occupant, so storage is O(1), allocation-free, and safe
// to call from the packet-arrival context. An out-of-range index frees
// the packet and reports nothing. A frame counts as complete when its
// last index arrives; earlier indices are not tracked, and a resent
// packet just displaces the old copy.
func (fb *frameBuffer) storeFramePacket(p *pool.Pool, packetIndex int, pkt *pool.Packet, now uint64) bool {
	if packetIndex >= len(fb.packets) {
		p.Free(pkt)
		return false
	}
	pkt, fb.packets[packetIndex] = fb.packets[packetIndex], pkt
	p.Free(pkt)
	if packetIndex == len(fb.packets)-1 {
		fb.time = now
		return true
	}
	return false
}
