package core

// FrameArena is a reset-per-frame scratch allocator. Stages borrow spans for
// the duration of one frame and reference them by index, never by long-lived
// pointer; Reset reclaims everything at once without freeing the backing
// slabs.
type FrameArena struct {
	bytes []byte
	u32   []uint32
	f32   []float32
}

// Span addresses an arena allocation by offset and length. Spans stay valid
// until the next Reset.
type Span struct {
	Off int
	Len int
}

func NewFrameArena() *FrameArena {
	return &FrameArena{
		bytes: make([]byte, 0, 64*1024),
		u32:   make([]uint32, 0, 16*1024),
		f32:   make([]float32, 0, 4*1024),
	}
}

// Reset reclaims all allocations. Capacity is retained across frames.
func (a *FrameArena) Reset() {
	a.bytes = a.bytes[:0]
	a.u32 = a.u32[:0]
	a.f32 = a.f32[:0]
}

func (a *FrameArena) AllocBytes(n int) Span {
	off := len(a.bytes)
	if off+n <= cap(a.bytes) {
		a.bytes = a.bytes[:off+n]
		clear(a.bytes[off:])
	} else {
		a.bytes = append(a.bytes, make([]byte, n)...)
	}
	return Span{Off: off, Len: n}
}

func (a *FrameArena) AllocU32(n int) Span {
	off := len(a.u32)
	if off+n <= cap(a.u32) {
		a.u32 = a.u32[:off+n]
		clear(a.u32[off:])
	} else {
		a.u32 = append(a.u32, make([]uint32, n)...)
	}
	return Span{Off: off, Len: n}
}

func (a *FrameArena) AllocF32(n int) Span {
	off := len(a.f32)
	if off+n <= cap(a.f32) {
		a.f32 = a.f32[:off+n]
		clear(a.f32[off:])
	} else {
		a.f32 = append(a.f32, make([]float32, n)...)
	}
	return Span{Off: off, Len: n}
}

// Bytes resolves a byte span. The returned slice aliases arena storage and
// must not be held across Reset.
func (a *FrameArena) Bytes(s Span) []byte { return a.bytes[s.Off : s.Off+s.Len] }

func (a *FrameArena) U32(s Span) []uint32 { return a.u32[s.Off : s.Off+s.Len] }

func (a *FrameArena) F32(s Span) []float32 { return a.f32[s.Off : s.Off+s.Len] }
