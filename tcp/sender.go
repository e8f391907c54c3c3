package tcp

import (
	"bufio"
	"net"
	"sync"
)

// lineSender is the serialized write side of one connection. The mutex
// keeps lines whole: the session's command loop and asynchronous room
// deliveries both write here, so without it a [SYSTEM] push could tear
// through the middle of a history block.
type lineSender struct {
	mu   sync.Mutex
	conn net.Conn
	w    *bufio.Writer
}

func newLineSender(conn net.Conn) *lineSender {
	return &lineSender{conn: conn, w: bufio.NewWriter(conn)}
}

func (s *lineSender) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *lineSender) Close() error {
	return s.conn.Close()
}
