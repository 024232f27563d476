package serial

// Numeric enum wire values that cross the boundary into the Native
// Adapter and must keep their literal integer values; never renumber
// them even if that would read more naturally in Go.

// Baud is the requested line speed. Most values are the conventional
// POSIX baud constants; BaudCustom (251) signals the adapter to use
// the CustomBaud field of Config instead.
type Baud int

const (
	Baud50      Baud = 50
	Baud75      Baud = 75
	Baud110     Baud = 110
	Baud134     Baud = 134
	Baud150     Baud = 150
	Baud200     Baud = 200
	Baud300     Baud = 300
	Baud600     Baud = 600
	Baud1200    Baud = 1200
	Baud1800    Baud = 1800
	Baud2400    Baud = 2400
	Baud4800    Baud = 4800
	Baud9600    Baud = 9600
	Baud19200   Baud = 19200
	Baud38400   Baud = 38400
	Baud57600   Baud = 57600
	Baud115200  Baud = 115200
	Baud230400  Baud = 230400
	Baud460800  Baud = 460800
	Baud921600  Baud = 921600
	Baud1000000 Baud = 1000000
	Baud2000000 Baud = 2000000

	// BaudCustom is a fixed sentinel literal; do not re-derive it from
	// an enum ordinal.
	BaudCustom Baud = 251
)

// DataBits is a raw bit count, 5 through 8.
type DataBits int

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

// StopBits uses a non-contiguous wire encoding: 1, 4 (meaning 1.5
// stop bits), 2.
type StopBits int

const (
	StopBits1   StopBits = 1
	StopBits1_5 StopBits = 4
	StopBits2   StopBits = 2
)

// Parity encodes None=1, Odd=2, Even=3, Mark=4, Space=5.
type Parity int

const (
	ParityNone  Parity = 1
	ParityOdd   Parity = 2
	ParityEven  Parity = 3
	ParityMark  Parity = 4
	ParitySpace Parity = 5
)

// FlowControl encodes None=1, Hardware=2, Software=3.
type FlowControl int

const (
	FlowNone     FlowControl = 1
	FlowHardware FlowControl = 2
	FlowSoftware FlowControl = 3
)

// Endian selects byte order for write_int/write_int_array/read helpers.
// EndianDefault resolves to big-endian.
type Endian int

const (
	EndianLittle  Endian = 1
	EndianBig     Endian = 2
	EndianDefault Endian = 3 // big-endian
)

// FileTransferProtocol identifies the protocol used by send_file /
// receive_file.
type FileTransferProtocol int

const (
	ProtocolXMODEM FileTransferProtocol = 1
)

// ModemLine is a bitset over the modem-control signals plus LOOP.
type ModemLine uint8

const (
	ModemCTS  ModemLine = 0x01
	ModemDSR  ModemLine = 0x02
	ModemDCD  ModemLine = 0x04
	ModemRI   ModemLine = 0x08
	ModemLOOP ModemLine = 0x10
	ModemRTS  ModemLine = 0x20
	ModemDTR  ModemLine = 0x40
)

// EventMask is the bitset consulted by the Looper before delivering a
// line event to a listener. It reuses ModemLine's bit positions plus
// reserved high bits for adapter-reported errors.
type EventMask uint32

const (
	EventCTS       EventMask = EventMask(ModemCTS)
	EventDSR       EventMask = EventMask(ModemDSR)
	EventDCD       EventMask = EventMask(ModemDCD)
	EventRI        EventMask = EventMask(ModemRI)
	EventLOOP      EventMask = EventMask(ModemLOOP)
	EventRTS       EventMask = EventMask(ModemRTS)
	EventDTR       EventMask = EventMask(ModemDTR)
	EventFrameErr  EventMask = 0x0100
	EventOverrun   EventMask = 0x0200
	EventParityErr EventMask = 0x0400
	EventBreak     EventMask = 0x0800

	// EventMaskAll is a convenience mask matching every known bit;
	// new registrations default to it so callers opt in to narrowing
	// rather than silently dropping events they didn't know to mask for.
	EventMaskAll EventMask = EventCTS | EventDSR | EventDCD | EventRI |
		EventLOOP | EventRTS | EventDTR | EventFrameErr | EventOverrun |
		EventParityErr | EventBreak
)

// PortMonitorEvent codes: 1=add, 2=remove.
type PortMonitorEvent int

const (
	PortAdded   PortMonitorEvent = 1
	PortRemoved PortMonitorEvent = 2
)

// Platform identifies the host OS, derived at package init from
// runtime.GOOS via a substring match against a captured OS name, not
// recomputed per call.
type Platform int

const (
	PlatformUnknown Platform = 0
	PlatformLinux   Platform = 1
	PlatformWindows Platform = 2
	PlatformSolaris Platform = 3
	PlatformMacOSX  Platform = 4
)

// DefaultReadSize is the default `n` for read_bytes/read_string when
// the caller doesn't specify one.
const DefaultReadSize = 1024

// InterruptCounts is the fixed-order vector returned by
// Manager.InterruptCounts: CTS, DSR, RING, DCD, RX-buf, TX-buf,
// frame-err, overrun, parity, break, buffer-overrun.
type InterruptCounts [11]int

// LineStatus is the fixed-order vector returned by Manager.LineStatus:
// CTS, DSR, DCD, RI, LOOP, RTS, DTR.
type LineStatus [7]int
