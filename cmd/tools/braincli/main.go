package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// braincli is a terminal client for the brain API. It sends queries over the
// cli interface, either one-shot via -query or as an interactive loop.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env, using system environment: %v", err)
	}

	server := flag.String("server", "http://localhost:8080", "brain API base URL")
	room := flag.String("room", "default", "room to attach the conversation to")
	userID := flag.String("user", "cli-user", "user id recorded on turns")
	userName := flag.String("name", "", "display name recorded on turns")
	query := flag.String("query", "", "one-shot query; empty starts an interactive session")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")

	flag.Parse()

	client := &queryClient{
		baseURL:  strings.TrimRight(*server, "/"),
		http:     &http.Client{Timeout: *timeout},
		roomID:   *room,
		userID:   *userID,
		userName: *userName,
	}

	if *query != "" {
		if err := client.ask(context.Background(), *query); err != nil {
			log.Fatalf("query failed: %v", err)
		}
		return
	}

	fmt.Printf("connected to %s (room %q), empty line quits\n", client.baseURL, client.roomID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		if err := client.ask(context.Background(), line); err != nil {
			log.Printf("query failed: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("stdin read failed: %v", err)
	}
}

type queryClient struct {
	baseURL  string
	http     *http.Client
	roomID   string
	userID   string
	userName string
}

type queryResult struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId"`
	Citations      []struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Source string `json:"source"`
	} `json:"citations"`
	UsedExternalSources bool `json:"usedExternalSources"`
}

func (c *queryClient) ask(ctx context.Context, query string) error {
	payload, err := json.Marshal(map[string]string{
		"query":         query,
		"roomId":        c.roomID,
		"interfaceType": "cli",
		"userId":        c.userID,
		"userName":      c.userName,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var result queryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Println(result.Answer)
	if len(result.Citations) > 0 {
		fmt.Println("sources:")
		for _, c := range result.Citations {
			if c.Source != "" {
				fmt.Printf("  - [%s] %s (%s)\n", c.Type, c.Title, c.Source)
				continue
			}
			fmt.Printf("  - [%s] %s\n", c.Type, c.Title)
		}
	}
	if result.UsedExternalSources {
		fmt.Println("(answer used external sources)")
	}
	return nil
}
