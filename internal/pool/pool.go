// Package pool provides the fixed-size packet buffer pool that backs
// frame ingestion. Buffers have exactly one owner at a time; ownership
// moves by handing the pointer over, never by copying.
package pool

import (
	"fmt"
	"math/bits"
	"sync"
)

// PacketSize is the wire size of one transport packet.
const PacketSize = 64

// Packet is one transport buffer. Buf[0] is the header byte, the rest is
// payload in whatever representation the active color format uses.
type Packet struct {
	Buf [PacketSize]byte

	idx int32
}

// Pool hands out packets from a fixed arena. Running out of packets is a
// fatal condition: the system is sized so that it never allocates more
// buffers than exist, so exhaustion means the ownership discipline has
// been violated and continuing would corrupt data.
type Pool struct {
	mu      sync.Mutex
	packets []Packet
	avail   []uint32 // one bit per packet, 1 = free
}

// New creates a pool of n packets.
func New(n int) *Pool {
	if n <= 0 {
		panic("pool: size must be positive")
	}
	p := &Pool{
		packets: make([]Packet, n),
		avail:   make([]uint32, (n+31)/32),
	}
	for i := range p.packets {
		p.packets[i].idx = int32(i)
	}
	for i := range p.avail {
		p.avail[i] = 0xffffffff
	}
	// Mask off the bits past n so the scan never hands them out.
	if rem := n % 32; rem != 0 {
		p.avail[len(p.avail)-1] = 0xffffffff << (32 - rem)
	}
	return p
}

// Alloc returns a free packet. The contents are whatever the previous
// owner left there; callers that care must clear it. Panics when the
// pool is exhausted.
func (p *Pool) Alloc() *Packet {
	pkt := p.TryAlloc()
	if pkt == nil {
		panic("pool: out of packets")
	}
	return pkt
}

// TryAlloc is Alloc for callers that can apply backpressure instead:
// it returns nil when no packet is free.
func (p *Pool) TryAlloc() *Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.avail {
		if w == 0 {
			continue
		}
		bit := bits.LeadingZeros32(w)
		n := i*32 + bit
		p.avail[i] &^= 0x80000000 >> bit
		return &p.packets[n]
	}
	return nil
}

// Free returns a packet to the pool. Panics on double-free or on a
// packet that did not come from this pool.
func (p *Pool) Free(pkt *Packet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := int(pkt.idx)
	if n < 0 || n >= len(p.packets) || &p.packets[n] != pkt {
		panic(fmt.Sprintf("pool: free of foreign packet %d", n))
	}
	mask := uint32(0x80000000) >> (n % 32)
	if p.avail[n/32]&mask != 0 {
		panic(fmt.Sprintf("pool: double free of packet %d", n))
	}
	p.avail[n/32] |= mask
}

// Available reports how many packets are currently free.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, w := range p.avail {
		n += bits.OnesCount32(w)
	}
	return n
}
