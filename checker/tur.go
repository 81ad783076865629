package checker

import (
	"context"

	"github.com/sharedcode/multipathd"
	"golang.org/x/sys/unix"
)

// turClass is the built-in "tur" checker: issues a SCSI TEST UNIT READY
// via SG_IO and maps the result to a path state. Grounded on
// original_source/libmultipath/checkers.c's checker_class contract;
// multipathd has no dynamic-loading story (spec.md section 9), so this
// and the other built-ins register themselves from init().
type turClass struct {
	BaseClass
}

func (turClass) Name() string { return "tur" }

func (turClass) Close(*Context) error { return nil }

func (turClass) Check(_ context.Context, c *Context) multipath.PathState {
	if c.Fd == nil {
		return multipath.PathDown
	}
	if err := sendTestUnitReady(c.Fd.Fd()); err != nil {
		if err == unix.EAGAIN || err == unix.EBUSY {
			return multipath.PathGhost
		}
		return multipath.PathDown
	}
	return multipath.PathUp
}

func (turClass) Message(id int) string {
	switch id {
	case FirstMsgID:
		return "sg_io failed"
	case FirstMsgID + 1:
		return "unit not ready"
	default:
		return ""
	}
}

func init() {
	Register(turClass{})
}
