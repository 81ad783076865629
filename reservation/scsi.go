package reservation

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sgIO is the Linux SCSI generic ioctl request code (<scsi/sg.h>). This
// package issues PERSISTENT RESERVE IN/OUT (opcodes 0x5E/0x5F) over the
// same SG_IO contract the checker package's tur checker drives for TEST
// UNIT READY; the struct is redefined here rather than imported from
// checker, which keeps it unexported, since the two command sets (one
// read-only status query, one read/write reservation state change with a
// parameter list) are different enough callers that sharing the type
// across packages would just be an unrelated coupling.
const sgIO = 0x2285

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
	sgDxferNone    = -1
	sgDxferToDev   = -2
	sgDxferFromDev = -3
	sgInfoOKMask   = 0x1
	prInOpcode     = 0x5e
	prOutOpcode    = 0x5f
	prOutParamLen  = 24
)

// ServiceAction is the PERSISTENT RESERVE OUT service action field
// (SPC-5 table), named the way spec.md section 4.9 refers to them.
type ServiceAction uint8

const (
	Register          ServiceAction = 0x00
	Reserve           ServiceAction = 0x01
	Release           ServiceAction = 0x02
	Clear             ServiceAction = 0x03
	Preempt           ServiceAction = 0x04
	PreemptAndAbort   ServiceAction = 0x05
	RegisterAndIgnore ServiceAction = 0x06
	RegisterAndMove   ServiceAction = 0x07
)

// isRegisterAction reports whether sa is one of the two registration
// service actions that must be reflected into the prkeys file (spec.md
// section 4.9: "for register/register-and-ignore service actions,
// updates the persistent prkeys file").
func (sa ServiceAction) isRegisterAction() bool {
	return sa == Register || sa == RegisterAndIgnore
}

func sgExecute(fd uintptr, cdb []byte, data []byte, toDevice bool, timeoutMS uint32) error {
	sense := [32]byte{}
	dir := int32(sgDxferFromDev)
	if toDevice {
		dir = sgDxferToDev
	}
	if len(data) == 0 {
		dir = sgDxferNone
	}

	hdr := sgIOHdr{
		interfaceID:    'S',
		dxferDirection: dir,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		cmdp:           uint64(uintptr(unsafe.Pointer(&cdb[0]))),
		sbp:            uint64(uintptr(unsafe.Pointer(&sense[0]))),
		timeout:        timeoutMS,
	}
	if len(data) > 0 {
		hdr.dxferLen = uint32(len(data))
		hdr.dxferp = uint64(uintptr(unsafe.Pointer(&data[0])))
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

// prOut issues a PERSISTENT RESERVE OUT with the given service action,
// reservation key, service-action reservation key (meaningful for
// Register/RegisterAndMove), and scope/type byte.
func prOut(fd uintptr, sa ServiceAction, key, sakey uint64, scopeType byte) error {
	cdb := [10]byte{}
	cdb[0] = prOutOpcode
	cdb[1] = byte(sa) & 0x1f
	cdb[2] = scopeType
	binary.BigEndian.PutUint16(cdb[7:9], prOutParamLen)

	param := make([]byte, prOutParamLen)
	binary.BigEndian.PutUint64(param[0:8], key)
	binary.BigEndian.PutUint64(param[8:16], sakey)

	return sgExecute(fd, cdb[:], param, true, 10000)
}

// prInReadKeys issues PERSISTENT RESERVE IN / Read Keys, returning the
// reported generation and registered key list.
func prInReadKeys(fd uintptr) (generation uint32, keys []uint64, err error) {
	cdb := [10]byte{}
	cdb[0] = prInOpcode
	cdb[1] = 0x00 // Read Keys service action
	allocLen := uint16(4096)
	binary.BigEndian.PutUint16(cdb[7:9], allocLen)

	data := make([]byte, allocLen)
	if err := sgExecute(fd, cdb[:], data, false, 10000); err != nil {
		return 0, nil, err
	}

	generation = binary.BigEndian.Uint32(data[0:4])
	addLen := binary.BigEndian.Uint32(data[4:8])
	n := int(addLen / 8)
	keys = make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		off := 8 + i*8
		if off+8 > len(data) {
			break
		}
		keys = append(keys, binary.BigEndian.Uint64(data[off:off+8]))
	}
	return generation, keys, nil
}
