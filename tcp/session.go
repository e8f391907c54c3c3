// Package tcp exposes the chat system over a line-oriented TCP protocol:
// one connection per client, one goroutine per connection, `\n`-terminated
// UTF-8 commands in and plain text lines out.
package tcp

import (
	"bufio"
	"log/slog"
	"net"
	"strings"
	"sync"

	"chat-server/contract"
	"chat-server/domain"
	"chat-server/moderation"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const welcomeBanner = "WELCOME SimpleChatServer. Please JOIN <roomId> <username>"

var validate = validator.New()

type joinRequest struct {
	RoomID   string `validate:"required"`
	Username string `validate:"required"`
}

// sessionState makes the command preconditions explicit instead of
// scattering nil checks through the handlers.
type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
	stateClosed
)

// Session handles one client connection: it parses commands, tracks the
// session's identity and room membership, and is the delivery target for
// notifications pushed by the Room when other sessions act.
//
// The command loop owns all writes to the state fields; Notify reads
// them from room goroutines, hence the RWMutex. Multi-line replies such
// as HISTORY are serialized line by line through the sender but are not
// atomic against concurrent room pushes; ordering there is best effort.
type Session struct {
	log       *slog.Logger
	registry  contract.IRoomRegistry
	moderator *moderation.Moderator
	conn      net.Conn
	sender    contract.MessageSender

	mu       sync.RWMutex
	state    sessionState
	username string
	room     *domain.Room
}

func NewSession(log *slog.Logger, registry contract.IRoomRegistry, moderator *moderation.Moderator, conn net.Conn) *Session {
	return &Session{
		log:       log,
		registry:  registry,
		moderator: moderator,
		conn:      conn,
		sender:    newLineSender(conn),
	}
}

// Run reads commands until the client quits or the transport fails.
// One command is processed fully before the next line is read, so state
// transitions are atomic with respect to handler execution.
func (s *Session) Run() {
	defer s.cleanup()

	s.log.Info("Client connected", "remote", s.conn.RemoteAddr().String())
	if err := s.sender.Send(welcomeBanner); err != nil {
		s.log.Warn("Failed to send welcome banner", "err", err)
		return
	}

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !s.handleCommand(line) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Warn("Transport fault, terminating session", "remote", s.conn.RemoteAddr().String(), "err", err)
	}
}

// handleCommand dispatches one protocol line. It returns false when the
// session must stop reading (QUIT or an unrecoverable write failure).
func (s *Session) handleCommand(line string) bool {
	parts := strings.SplitN(line, " ", 3)
	cmd := strings.ToUpper(parts[0])

	// Short command aliases.
	switch cmd {
	case "/JN":
		cmd = "JOIN"
	case "/PM":
		cmd = "PM"
	case "/U":
		cmd = "USERS"
	case "/H":
		cmd = "HISTORY"
	case "/PMH":
		cmd = "PMH"
	case "/Q":
		cmd = "QUIT"
	}

	switch cmd {
	case "JOIN":
		if len(parts) < 3 {
			s.reply("ERROR Usage: JOIN <roomId> <username>")
			return true
		}
		s.handleJoin(parts[1], parts[2])
	case "MSG":
		room, username, joined := s.current()
		if !joined {
			s.reply("ERROR join a room first")
			return true
		}
		text := ""
		if idx := strings.IndexByte(line, ' '); idx >= 0 {
			text = line[idx+1:]
		}
		msg, err := domain.NewMessage(username, "", s.censor(text), false)
		if err != nil {
			s.log.Error("Rejected broadcast from validated session", "err", err)
			return true
		}
		room.Broadcast(msg)
	case "PM":
		room, username, joined := s.current()
		if !joined {
			s.reply("ERROR join a room first")
			return true
		}
		if len(parts) < 3 {
			s.reply("ERROR Usage: PM <toUsername> <text>")
			return true
		}
		if err := room.SendPrivate(username, parts[1], s.censor(parts[2])); err != nil {
			s.log.Error("Rejected private send from validated session", "err", err)
		}
	case "USERS":
		room, _, joined := s.current()
		if !joined {
			s.reply("ERROR join a room first")
			return true
		}
		s.reply("[USERS] " + strings.Join(room.ActiveUsers(), ","))
	case "HISTORY":
		room, _, joined := s.current()
		if !joined {
			s.reply("ERROR join a room first")
			return true
		}
		for _, line := range displayLines(room.History()) {
			s.reply(line)
		}
	case "PMH":
		room, username, joined := s.current()
		if !joined {
			s.reply("ERROR join a room first")
			return true
		}
		if len(parts) < 2 {
			s.reply("ERROR Usage: PMH <username>")
			return true
		}
		other := parts[1]
		history := room.PrivateHistory(username, other)
		if len(history) == 0 {
			s.reply("[SYSTEM] No private history with " + other)
			return true
		}
		s.reply("=== Private History with " + other + " start ===")
		for _, line := range displayLines(history) {
			s.reply(line)
		}
		s.reply("=== Private History end ===")
	case "QUIT":
		return false
	default:
		s.reply("ERROR Unknown command: " + cmd)
	}
	return true
}

// handleJoin binds the session to a room. The new membership is secured
// first; the previous room is only left on success, so a duplicate
// username leaves the session's prior state fully unchanged.
func (s *Session) handleJoin(roomID, username string) {
	if err := validate.Struct(joinRequest{RoomID: roomID, Username: username}); err != nil {
		s.reply("ERROR Usage: JOIN <roomId> <username>")
		return
	}

	room := s.registry.GetOrCreate(roomID)
	if !room.AddUser(username, s) {
		s.reply("ERROR username already in use in room")
		return
	}

	s.mu.Lock()
	prevRoom, prevUser := s.room, s.username
	s.room, s.username, s.state = room, username, stateJoined
	s.mu.Unlock()

	if prevRoom != nil {
		prevRoom.RemoveUser(prevUser)
	}

	s.log.Info("User joined room", "user", username, "room", roomID)
	s.reply("JOINED " + roomID)
	s.reply("=== History start ===")
	for _, line := range displayLines(room.History()) {
		s.reply(line)
	}
	s.reply("=== History end ===")
}

func displayLines(history []domain.Message) []string {
	return lo.Map(history, func(m domain.Message, _ int) string {
		return m.DisplayString()
	})
}

// Notify implements domain.Member. Private messages reach this session
// only when its identity is the sender or the recipient; broadcast and
// system messages are delivered unconditionally.
func (s *Session) Notify(msg domain.Message) error {
	if msg.Private {
		s.mu.RLock()
		me := s.username
		s.mu.RUnlock()
		if msg.From != me && msg.To != me {
			return nil
		}
	}
	return s.sender.Send(msg.DisplayString())
}

// Push implements domain.Member for raw protocol lines.
func (s *Session) Push(line string) error {
	return s.sender.Send(line)
}

// current snapshots the joined state for one command.
func (s *Session) current() (*domain.Room, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room, s.username, s.state == stateJoined
}

func (s *Session) censor(text string) string {
	if s.moderator == nil {
		return text
	}
	return s.moderator.Censor(text)
}

// reply writes one line back to this session's own client. A failed
// write is a transport fault on our side only, so it is logged and the
// read loop is left to observe the broken connection.
func (s *Session) reply(line string) {
	if err := s.sender.Send(line); err != nil {
		s.log.Warn("Failed to write reply", "err", err)
	}
}

// cleanup releases membership and the connection. Safe to reach from
// both QUIT and transport faults.
func (s *Session) cleanup() {
	s.mu.Lock()
	room, username := s.room, s.username
	s.room, s.username, s.state = nil, "", stateClosed
	s.mu.Unlock()

	if room != nil {
		room.RemoveUser(username)
	}
	_ = s.sender.Close()
	s.log.Info("Client disconnected", "remote", s.conn.RemoteAddr().String())
}
