// Package main provides a command-line watcher for the live recipe feed.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipeexchange/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	secure := flag.Bool("tls", false, "Use https/wss")
	email := flag.String("email", "", "Sign in as this user first (optional)")
	password := flag.String("password", "", "Password for -email")
	flag.Parse()

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}

	httpScheme, wsScheme := "http", "ws"
	if *secure {
		httpScheme, wsScheme = "https", "wss"
	}
	base := url.URL{Scheme: httpScheme, Host: *host}

	if *email != "" {
		if err := login(jar, base, *email, *password); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		log.Printf("Signed in as %s", *email)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second, Jar: jar}
	wsURL := url.URL{Scheme: wsScheme, Host: *host, Path: "/api/ws/recipes"}
	conn, resp, err := dialer.Dial(wsURL.String(), http.Header{"Origin": []string{base.String()}})
	if err != nil {
		if resp != nil {
			log.Fatalf("Dial %s failed with status %d: %v", wsURL.String(), resp.StatusCode, err)
		}
		log.Fatalf("Dial %s failed: %v", wsURL.String(), err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("Watching %s", wsURL.String())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("read: %v", err)
				}
				return
			}
			var event notifications.RecipeEvent
			if err := json.Unmarshal(data, &event); err != nil {
				log.Printf("unrecognized message: %s", data)
				continue
			}
			fmt.Println(describe(event))
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(jar http.CookieJar, base url.URL, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}
	loginURL := base
	loginURL.Path = "/api/auth/login"
	resp, err := client.Post(loginURL.String(), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
	}
	return nil
}

func describe(e notifications.RecipeEvent) string {
	ts := time.Now().Format(time.TimeOnly)
	if e.VoteScore != nil {
		return fmt.Sprintf("%s %-8s %s score=%d", ts, e.Type, e.RecipeID, *e.VoteScore)
	}
	return fmt.Sprintf("%s %-8s %s", ts, e.Type, e.RecipeID)
}
