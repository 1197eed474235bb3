// queuectl is a small operator tool for inspecting the live queue and
// agent status over the REST surface.
//
// Usage:
//
//	queuectl -addr http://localhost:8080 -token <agent JWT> waiting
//	queuectl -addr http://localhost:8080 -token <agent JWT> status
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type waitingSession struct {
	SessionID    string    `json:"sessionId"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customerName"`
	CreatedAt    time.Time `json:"createdAt"`
}

type agentStatus struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	token := flag.String("token", os.Getenv("HELPDESK_TOKEN"), "agent JWT")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: queuectl [flags] waiting|status")
		os.Exit(2)
	}

	var err error
	switch flag.Arg(0) {
	case "waiting":
		err = showWaiting(*addr, *token)
	case "status":
		err = showStatus(*addr, *token)
	default:
		err = fmt.Errorf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "queuectl: %v\n", err)
		os.Exit(1)
	}
}

func showWaiting(addr, token string) error {
	var sessions []waitingSession
	if err := get(addr+"/api/chat/waiting-customers", token, &sessions); err != nil {
		return err
	}

	color.Bold.Printf("%d customer(s) waiting\n", len(sessions))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Session", "Customer", "Waiting since"})
	for i, session := range sessions {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			session.SessionID,
			session.CustomerName,
			session.CreatedAt.Local().Format(time.RFC822),
		})
	}
	table.Render()
	return nil
}

func showStatus(addr, token string) error {
	var status agentStatus
	if err := get(addr+"/api/agent/status", token, &status); err != nil {
		return err
	}

	availability := color.Red.Sprint("unavailable")
	if status.Available {
		availability = color.Green.Sprint("available")
	}
	fmt.Printf("%s <%s>: %s\n", status.Username, status.Email, availability)
	return nil
}

func get(url, token string, out any) error {
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(response.Body).Decode(&payload)
		return fmt.Errorf("%s: %s", response.Status, payload.Error)
	}
	return json.NewDecoder(response.Body).Decode(out)
}
