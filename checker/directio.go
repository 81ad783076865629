package checker

import (
	"context"
	"sync/atomic"

	"github.com/ncw/directio"
	"github.com/sharedcode/multipathd"
)

// directioClass is the built-in "directio" checker: issues an O_DIRECT
// read of the first sector and treats success as UP. Unlike "tur" it is
// asynchronous: Check kicks off the read on a goroutine and immediately
// returns PENDING, Pending polls for the result, and NeedWait reports
// true until it lands — exercising the async half of spec.md section
// 4.2 the "tur" checker doesn't.
type directioClass struct {
	BaseClass
}

type directioState struct {
	pending int32 // 1 while a read is in flight
	result  multipath.PathState
}

func (directioClass) Name() string { return "directio" }

func (directioClass) Close(*Context) error { return nil }

func (directioClass) Check(ctx context.Context, c *Context) multipath.PathState {
	st, _ := c.MapPriv.(*directioState)
	if st == nil {
		st = &directioState{}
		c.MapPriv = st
	}
	if !atomic.CompareAndSwapInt32(&st.pending, 0, 1) {
		return multipath.PathPending
	}

	fd := c.Fd
	go func() {
		defer atomic.StoreInt32(&st.pending, 0)
		block := directio.AlignedBlock(directio.BlockSize)
		if _, err := fd.ReadAt(block, 0); err != nil {
			st.result = multipath.PathDown
			return
		}
		st.result = multipath.PathUp
	}()
	return multipath.PathPending
}

func (directioClass) Pending(_ context.Context, c *Context) (multipath.PathState, bool) {
	st, _ := c.MapPriv.(*directioState)
	if st == nil || atomic.LoadInt32(&st.pending) == 1 {
		return multipath.PathPending, false
	}
	return st.result, true
}

func (directioClass) NeedWait(c *Context) bool {
	st, _ := c.MapPriv.(*directioState)
	return st != nil && atomic.LoadInt32(&st.pending) == 1
}

func init() {
	Register(directioClass{})
}
