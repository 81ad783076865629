package checker

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// sgIO is the Linux SCSI generic ioctl request code (<scsi/sg.h>).
const sgIO = 0x2285

// sgIOHdr mirrors struct sg_io_hdr on amd64 Linux: the subset of fields
// needed to issue a TEST UNIT READY and read back sense/status.
type sgIOHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uint64
	cmdp           uint64
	sbp            uint64
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uint64
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

const (
	sgDxferNone = -1
	sgInfoOKMask = 0x1
)

// sendTestUnitReady issues SCSI TEST UNIT READY (opcode 0x00) on fd and
// reports the drive's readiness. Grounded on the SG_IO contract the
// reference tur checker drives through libsgutils; this is a direct
// ioctl rather than a wrapper library, since no pack example exercises
// SCSI generic I/O and the ioctl surface is a handful of fields.
func sendTestUnitReady(fd uintptr) error {
	cdb := [6]byte{}
	sense := [32]byte{}

	hdr := sgIOHdr{
		interfaceID:    'S',
		dxferDirection: sgDxferNone,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		cmdp:           uint64(uintptr(unsafe.Pointer(&cdb[0]))),
		sbp:            uint64(uintptr(unsafe.Pointer(&sense[0]))),
		timeout:        5000,
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, sgIO, uintptr(unsafe.Pointer(&hdr)))
	if errno != 0 {
		return errno
	}
	if hdr.info&sgInfoOKMask != 0 {
		return unix.EIO
	}
	return nil
}
