package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/froghopperjacob/FredBoat/internal/akinator"
	"github.com/froghopperjacob/FredBoat/internal/chatio"
)

// chatcheck probes the chat server endpoints and, optionally, the guess
// service, so deployments can be verified without starting the bot.
func main() {
	baseURL := os.Getenv("CHAT_BASE_URL")
	wsURL := os.Getenv("CHAT_WS_URL")
	akiURL := os.Getenv("AKINATOR_BASE_URL")

	if baseURL == "" {
		log.Fatal("CHAT_BASE_URL is required")
	}

	client := chatio.NewClient(baseURL, chatio.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg, err := client.GetConfig(ctx)
	if err != nil {
		log.Printf("/config error: %v", err)
	} else {
		log.Printf("/config ok: port=%d polling=%d rate=%d endpoint=%s", cfg.Port, cfg.PollingSpeed, cfg.MessageRate, cfg.WebserverEndpoint)
	}

	if akiURL != "" {
		akCtx, akCancel := context.WithTimeout(context.Background(), 20*time.Second)
		ak := akinator.NewClient(akiURL)
		info, err := ak.StartSession(akCtx, akinator.NewPlayerToken())
		akCancel()
		if err != nil {
			log.Printf("guess service error: %v", err)
		} else {
			log.Printf("guess service ok: step=%d question=%q", info.Step, info.Question)
		}
	}

	if wsURL == "" {
		log.Println("CHAT_WS_URL not set; skipping WS check")
		return
	}

	ws := chatio.NewWebSocket(wsURL, 5, time.Second)
	ws.OnStateChange(func(state chatio.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *chatio.Message) {
		from := "?"
		if msg.Sender != nil {
			from = *msg.Sender
		}
		fmt.Printf("WS msg room=%s from=%s text=%q\n", msg.Room, from, msg.Msg)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
