package test

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"chat-server/runtime"
	"chat-server/tcp"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// startServer boots a real chat server on an ephemeral port and returns
// its address plus a shutdown function that asserts a clean stop.
func startServer(t *testing.T) (string, func()) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRoomRegistry(log)
	server := tcp.NewServer(log, registry, nil, "127.0.0.1:0", 500*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	// Wait for the listener to bind
	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = server.Addr()
		return addr != nil
	}, 2*time.Second, 10*time.Millisecond)

	return addr.String(), func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			require.Fail(t, "server did not stop within the grace period")
		}
	}
}

type chatClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *chatClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &chatClient{t: t, conn: conn, r: bufio.NewReader(conn)}
	require.True(t, strings.HasPrefix(c.readLine(), "WELCOME"))
	return c
}

func (c *chatClient) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *chatClient) readLine() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimSuffix(line, "\n")
}

// join sends a JOIN and consumes the whole reply block.
func (c *chatClient) join(roomID, username string) {
	c.t.Helper()
	c.send("JOIN " + roomID + " " + username)
	for c.readLine() != "=== History end ===" {
	}
}

// expectPushes consumes the two lines every member receives when the
// room membership changes.
func (c *chatClient) expectPushes(systemText, usersList string) {
	c.t.Helper()
	require.Equal(c.t, "[SYSTEM] "+systemText, c.readLine())
	require.Equal(c.t, "[USERS] "+usersList, c.readLine())
}

func TestScenario_LobbyBroadcastAndHistory(t *testing.T) {
	req := require.New(t)
	addr, shutdown := startServer(t)
	defer shutdown()

	alice := dial(t, addr)
	alice.join("lobby", "alice")

	bob := dial(t, addr)
	bob.join("lobby", "bob")
	alice.expectPushes("bob joined the room", "alice,bob")

	// When alice broadcasts
	alice.send("MSG hello")

	// Then both members receive the same chat line
	req.True(strings.HasSuffix(alice.readLine(), "alice: hello"))
	req.True(strings.HasSuffix(bob.readLine(), "alice: hello"))

	// And HISTORY replays the two join notices plus the one chat line
	bob.send("HISTORY")
	req.Contains(bob.readLine(), "SYSTEM: alice joined the room")
	req.Contains(bob.readLine(), "SYSTEM: bob joined the room")
	req.True(strings.HasSuffix(bob.readLine(), "alice: hello"))
}

func TestScenario_PrivateMessageReachesOnlyTheParties(t *testing.T) {
	req := require.New(t)
	addr, shutdown := startServer(t)
	defer shutdown()

	alice := dial(t, addr)
	alice.join("lobby", "alice")

	bob := dial(t, addr)
	bob.join("lobby", "bob")
	alice.expectPushes("bob joined the room", "alice,bob")

	carol := dial(t, addr)
	carol.join("lobby", "carol")
	alice.expectPushes("carol joined the room", "alice,bob,carol")
	bob.expectPushes("carol joined the room", "alice,bob,carol")

	// When alice messages bob privately
	alice.send("PM bob secret")

	// Then recipient and sender both see the line
	req.Contains(bob.readLine(), "(private) alice -> bob: secret")
	req.Contains(alice.readLine(), "(private) alice -> bob: secret")

	// And carol, not a party, receives nothing: her next line is the
	// direct reply to her own command
	carol.send("USERS")
	req.Equal("[USERS] alice,bob,carol", carol.readLine())
}

func TestScenario_PrivateMessageToAbsentUser(t *testing.T) {
	req := require.New(t)
	addr, shutdown := startServer(t)
	defer shutdown()

	alice := dial(t, addr)
	alice.join("lobby", "alice")

	// When messaging a user who never joined
	alice.send("PM dave hi")

	// Then the call succeeds and the sender gets her echo
	req.Contains(alice.readLine(), "(private) alice -> dave: hi")

	// And the pair history holds exactly one entry
	alice.send("PMH dave")
	req.Equal("=== Private History with dave start ===", alice.readLine())
	req.Contains(alice.readLine(), "(private) alice -> dave: hi")
	req.Equal("=== Private History end ===", alice.readLine())
}

func TestScenario_DisconnectBroadcastsLeaveNotice(t *testing.T) {
	addr, shutdown := startServer(t)
	defer shutdown()

	alice := dial(t, addr)
	alice.join("lobby", "alice")

	bob := dial(t, addr)
	bob.join("lobby", "bob")
	alice.expectPushes("bob joined the room", "alice,bob")

	// When bob quits
	bob.send("QUIT")

	// Then alice is told and the user list shrinks
	alice.expectPushes("bob left the room", "alice")
}

func TestScenario_GracefulShutdownClosesClients(t *testing.T) {
	req := require.New(t)
	addr, shutdown := startServer(t)

	alice := dial(t, addr)
	alice.join("lobby", "alice")

	// When the server shuts down, the connection ends up closed and the
	// listener stops cleanly within the grace period
	shutdown()

	_ = alice.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, err := alice.r.ReadString('\n')
	req.Error(err)
}
