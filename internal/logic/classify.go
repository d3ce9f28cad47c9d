package logic

// Usage codes sent by the BT13 remote.
const (
	UsageIdle           uint16 = 0x0000 // all buttons up
	UsageLongIncrement  uint16 = 0x0001
	UsageLongDecrement  uint16 = 0x0002
	UsageShortIncrement uint16 = 0x0004
	UsageShortDecrement uint16 = 0x0008
	UsageStop           uint16 = 0x0010
)

var usageTable = map[uint16]Command{
	UsageShortIncrement: ShortIncrement,
	UsageShortDecrement: ShortDecrement,
	UsageStop:           Stop,
	UsageLongIncrement:  LongIncrementTick,
	UsageLongDecrement:  LongDecrementTick,
}

// Classify maps a usage code to a command. Every code not in the table,
// including UsageIdle, is Unknown.
func Classify(usage uint16) Command {
	if c, ok := usageTable[usage]; ok {
		return c
	}
	return Unknown
}

// ParseReport extracts the little-endian usage code from the first two bytes
// of an input report. Reports shorter than two bytes are rejected.
func ParseReport(report []byte) (uint16, bool) {
	if len(report) < 2 {
		return 0, false
	}
	return uint16(report[1])<<8 | uint16(report[0]), true
}
