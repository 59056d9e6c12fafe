// A headless collaboration client: opens a document room, keeps the local
// cache in sync and applies edits typed on stdin. Useful for exercising the
// sync engine against a running server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projecthub-be/internal/config"
	"projecthub-be/internal/pkg/logger"
	"projecthub-be/pkg/syncengine"

	"github.com/fatih/color"
)

type consoleSink struct{}

func (consoleSink) Render(state []byte) {
	fmt.Printf("\n--- document (%d bytes) ---\n%s\n---\n", len(state), state)
}

func main() {
	cfg := config.Load()

	roomFlag := flag.String("room", "", "room id, e.g. wiki:9f1c...")
	serverFlag := flag.String("server", cfg.Agent.ServerURL, "server base URL")
	tokenFlag := flag.String("token", cfg.Agent.Token, "JWT for the handshake")
	storeFlag := flag.String("store", cfg.Agent.StorePath, "local cache file")
	flag.Parse()

	if *roomFlag == "" {
		log.Fatal("Error: -room is required")
	}
	room, err := syncengine.ParseRoomID(*roomFlag)
	if err != nil {
		log.Fatalf("Error: invalid room id: %v", err)
	}

	agentLogger := logger.NewIsolatedLogger("logs/agent.log")

	bridge := syncengine.NewBridge(syncengine.BridgeConfig{
		StorePath:   *storeFlag,
		Transport:   syncengine.NewWebSocketTransport(*serverFlag, *tokenFlag),
		Fetcher:     syncengine.NewHTTPFetcher(*serverFlag, *tokenFlag),
		Logger:      agentLogger,
		GraceWindow: cfg.Agent.NavigationGrace,
		MaxRetries:  cfg.Agent.MaxReconnects,
		BaseWait:    cfg.Agent.ReconnectBaseWait,
		OnConflict: func(room syncengine.RoomID, dropped [][]byte) {
			color.Red("Conflict: %d local edit(s) on %s were discarded after a remote overwrite", len(dropped), room)
		},
	})
	defer bridge.Close()

	view, err := bridge.OnNavigateTo(context.Background(), room)
	if err != nil {
		log.Fatalf("Error: could not open room: %v", err)
	}

	if view.Snapshot != nil {
		color.Yellow("Cached copy from %s (version %d)", view.Snapshot.UpdatedAt.Format("15:04:05"), view.Snapshot.Version)
	}

	session := view.Session
	session.Attach(consoleSink{})

	printStatus(session.Status())
	go watchStatus(session)

	// Edits: one line of stdin = one delta.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := session.ApplyLocalEdit([]byte(line + "\n")); err != nil {
				color.Red("Edit rejected: %v", err)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println("\nShutting down...")
}

func watchStatus(s *syncengine.Session) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	last := s.Status()
	for range ticker.C {
		st := s.Status()
		if st != last {
			last = st
			printStatus(st)
		}
		if st == syncengine.StatusClosed {
			return
		}
	}
}

func printStatus(st syncengine.Status) {
	switch st {
	case syncengine.StatusSaved:
		color.Green("Status: %s", st)
	case syncengine.StatusSaving, syncengine.StatusCached, syncengine.StatusConnecting:
		color.Yellow("Status: %s", st)
	case syncengine.StatusDisconnected, syncengine.StatusError, syncengine.StatusNoOffline:
		color.Red("Status: %s", st)
	default:
		fmt.Printf("Status: %s\n", st)
	}
}
