// Command chatprobe is a small WebSocket client for smoke-testing the
// realtime surface: it trades a bearer token for a ticket, opens either
// the notification stream or a connection's chat stream, and prints every
// event it receives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:8460", "server base URL")
		token        = flag.String("token", "", "bearer token (required)")
		connectionID = flag.Uint("connection", 0, "connection id; 0 follows the notification stream")
	)
	flag.Parse()

	if *token == "" {
		log.Fatal("a bearer token is required (-token)")
	}

	ticket, err := fetchTicket(*baseURL, *token)
	if err != nil {
		log.Fatalf("ticket request failed: %v", err)
	}

	wsURL, err := buildWSURL(*baseURL, *connectionID, ticket)
	if err != nil {
		log.Fatalf("invalid url: %v", err)
	}

	log.Printf("connecting to %s", wsURL)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			printEvent(message)
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("closing connection")
			err := conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("close write: %v", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}

func fetchTicket(baseURL, token string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/ws/ticket", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.Ticket == "" {
		return "", fmt.Errorf("empty ticket in response: %s", body)
	}
	return out.Ticket, nil
}

func buildWSURL(baseURL string, connectionID uint, ticket string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if connectionID > 0 {
		u.Path = fmt.Sprintf("/api/ws/chat/%d", connectionID)
	} else {
		u.Path = "/api/ws"
	}
	u.RawQuery = "ticket=" + url.QueryEscape(ticket)
	return u.String(), nil
}

func printEvent(raw []byte) {
	var event map[string]interface{}
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Printf("<- %s", strings.TrimSpace(string(raw)))
		return
	}
	pretty, _ := json.MarshalIndent(event, "", "  ")
	log.Printf("<-\n%s", pretty)
}
