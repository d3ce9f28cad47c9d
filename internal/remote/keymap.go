package remote

// Linux input event codes used by the key mapper. Kept local so the mapping
// builds and tests on every platform.
const (
	evKey   = 0x01
	evMsc   = 0x04
	mscScan = 0x04

	keyUp     = 0
	keyDown   = 1
	keyRepeat = 2
)

// keyMapper turns the kernel's HID input stream into 2-byte usage reports.
//
// hid-input sends MSC_SCAN(usage) before EV_KEY on both press and release,
// and autorepeat sends EV_KEY value 2 alone. The scan is remembered and only
// key transitions produce reports: down and repeat resend the usage, up sends
// the idle report. One press is therefore one report, and a hold keeps
// refreshing the long-press tracker at the repeat period.
type keyMapper struct {
	usage    uint16
	haveScan bool
}

func (m *keyMapper) mapEvent(typ, code uint16, value int32) ([]byte, bool) {
	switch {
	case typ == evMsc && code == mscScan:
		m.usage = uint16(value)
		m.haveScan = true
	case typ == evKey && value == keyUp:
		m.haveScan = false
		return []byte{0x00, 0x00}, true
	case typ == evKey && (value == keyDown || value == keyRepeat):
		if !m.haveScan {
			return nil, false
		}
		return []byte{byte(m.usage), byte(m.usage >> 8)}, true
	}
	return nil, false
}
