package remote

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// DefaultBaud is the UART speed of the HID bridge.
const DefaultBaud = 115200

// serialReadTimeout bounds each read so ctx is observed between reads.
const serialReadTimeout = 200 * time.Millisecond

// maxLineLen caps a bridge line. Longer lines are discarded up to the next
// newline.
const maxLineLen = 4096

// SerialSource reads a HID bridge over a UART. The bridge prints one line
// per event:
//
//	OPEN           the remote link came up
//	CLOSE          the remote link went down
//	04 00          one input report, as hex bytes
//
// A report line seen while waiting for OPEN also counts as the link being up,
// so a bridge that was already connected when the port opened is picked up.
type SerialSource struct {
	path   string
	open   func() (io.ReadCloser, error)
	logger *zap.SugaredLogger

	port     io.ReadCloser
	buf      []byte
	chunk    [256]byte
	skipping bool   // discarding the rest of an overlong line
	pending  []byte // report seen during Open
}

// NewSerialSource creates a source for the bridge on path at baud.
func NewSerialSource(path string, baud int, logger *zap.SugaredLogger) *SerialSource {
	return &SerialSource{
		path:   path,
		logger: logger,
		open: func() (io.ReadCloser, error) {
			port, err := serial.Open(path, &serial.Mode{
				BaudRate: baud,
				DataBits: 8,
				Parity:   serial.NoParity,
				StopBits: serial.OneStopBit,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "open %s", path)
			}
			if err := port.SetReadTimeout(serialReadTimeout); err != nil {
				port.Close()
				return nil, errors.Wrap(err, "set read timeout")
			}
			return port, nil
		},
	}
}

// Name returns the port path.
func (s *SerialSource) Name() string {
	return s.path
}

// Open opens the port and waits for the bridge to report the link up.
func (s *SerialSource) Open(ctx context.Context) error {
	port, err := s.open()
	if err != nil {
		return err
	}
	s.port = port
	s.buf = s.buf[:0]
	s.skipping = false
	s.pending = nil

	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		kind, report, err := parseLine(line)
		if err != nil {
			s.logger.Debugw("ignoring bridge line", "line", line, "error", err)
			continue
		}
		switch kind {
		case lineOpen:
			return nil
		case lineReport:
			s.pending = report
			return nil
		}
	}
}

// Run forwards report lines until CLOSE, a read error, or ctx is done.
func (s *SerialSource) Run(ctx context.Context, q *Queue) error {
	if s.port == nil {
		return errors.New("serial source not open")
	}
	if s.pending != nil {
		s.push(q, s.pending)
		s.pending = nil
	}

	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		kind, report, err := parseLine(line)
		if err != nil {
			s.logger.Debugw("ignoring bridge line", "line", line, "error", err)
			continue
		}
		switch kind {
		case lineClose:
			return nil
		case lineReport:
			s.push(q, report)
		}
	}
}

func (s *SerialSource) push(q *Queue, report []byte) {
	if !q.PushReport(s.path, report) {
		s.logger.Warnw("event queue full, dropping report", "source", s.path, "dropped", q.Dropped())
	}
}

// Close closes the port.
func (s *SerialSource) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return errors.Wrap(err, "close serial port")
}

// readLine returns the next trimmed line. Reads that time out with no data
// are retried until ctx is done. A line longer than maxLineLen is dropped
// whole.
func (s *SerialSource) readLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(s.buf, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.buf[:i]))
			s.buf = s.buf[i+1:]
			if s.skipping {
				s.skipping = false
				continue
			}
			return line, nil
		}
		if len(s.buf) > maxLineLen {
			if !s.skipping {
				s.logger.Warnw("serial line too long, discarding", "source", s.path, "limit", maxLineLen)
				s.skipping = true
			}
			s.buf = s.buf[:0]
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := s.port.Read(s.chunk[:])
		if n > 0 {
			s.buf = append(s.buf, s.chunk[:n]...)
		}
		if err != nil {
			return "", errors.Wrap(err, "read serial")
		}
	}
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineOpen
	lineClose
	lineReport
)

// parseLine decodes one bridge line.
func parseLine(line string) (lineKind, []byte, error) {
	switch strings.ToUpper(line) {
	case "":
		return lineBlank, nil, nil
	case "OPEN":
		return lineOpen, nil, nil
	case "CLOSE":
		return lineClose, nil, nil
	}

	fields := strings.Fields(line)
	report := make([]byte, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(strings.TrimPrefix(f, "0x"), 16, 8)
		if err != nil {
			return lineBlank, nil, errors.Wrapf(err, "bad report byte %q", f)
		}
		report = append(report, byte(v))
	}
	return lineReport, report, nil
}
