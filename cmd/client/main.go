// Console client for the chat server. It speaks the line protocol
// directly: stdin lines go to the server as commands, server lines are
// printed as they arrive, colorized by prefix class.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDR" default:"localhost:9090"`
	Colours    bool   `envconfig:"COLOURS" default:"true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := envconfig.Process("chat", &cfg); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	conn, err := net.Dial("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.ServerAddr, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			printServerLine(scanner.Text(), cfg.Colours)
		}
	}()

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
			break
		}
		if strings.EqualFold(line, "QUIT") || strings.EqualFold(line, "/q") {
			break
		}
	}

	<-done
	return nil
}

func printServerLine(line string, colours bool) {
	if !colours {
		fmt.Println(line)
		return
	}
	switch {
	case strings.HasPrefix(line, "[SYSTEM]"):
		color.Yellow.Println(line)
	case strings.HasPrefix(line, "[USERS]"):
		color.Cyan.Println(line)
	case strings.HasPrefix(line, "ERROR"):
		color.Red.Println(line)
	case strings.Contains(line, "(private)"):
		color.Magenta.Println(line)
	default:
		fmt.Println(line)
	}
}
