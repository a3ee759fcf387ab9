// callrouter is the AGI program the Asterisk dialplan runs on every inbound
// call. It asks the API who is on call and publishes the routing plan as
// channel variables. When the API is unreachable it degrades to reading
// oncall.json directly so calls still route.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/internal/agi"
)

const apiTimeout = 5 * time.Second

func main() {
	// Asterisk reads stdout; everything diagnostic goes to stderr.
	log.SetOutput(os.Stderr)
	log.SetPrefix("[CallRouter] ")

	session, err := agi.New(os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("AGI handshake failed: %v", err)
	}

	if err := run(session); err != nil {
		log.Fatalf("AGI error: %v", err)
	}
}

func run(session *agi.Session) error {
	callerID := session.Env["agi_callerid"]
	if callerID == "" {
		callerID = "Unknown"
	}
	if err := session.Verbose(fmt.Sprintf("Call Router AGI: Processing call from %s", callerID)); err != nil {
		return err
	}

	baseURL := os.Getenv("ONCALL_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	client := &http.Client{Timeout: apiTimeout}

	number := currentNumber(client, baseURL)
	if number != "" {
		session.Verbose(fmt.Sprintf("Call Router AGI: Primary routing to %s", number))
	} else {
		session.Verbose("Call Router AGI: No on-call number found")
	}
	if err := session.SetVariable("ONCALL_NUMBER", number); err != nil {
		return err
	}
	if err := session.SetVariable("ONCALL_LEVEL1", number); err != nil {
		return err
	}

	return setEscalationVariables(session, client, baseURL)
}

// currentNumber resolves the number to ring first: the API's enriched
// resolution, then the raw config file when the API is down.
func currentNumber(client *http.Client, baseURL string) string {
	var body struct {
		OnCall *db.Assignment `json:"oncall"`
	}
	if err := getJSON(client, baseURL+"/api/oncall/current", &body); err == nil && body.OnCall != nil {
		if body.OnCall.User != nil && body.OnCall.User.Phone != "" {
			return body.OnCall.User.Phone
		}
		if body.OnCall.Number != "" {
			return body.OnCall.Number
		}
		return ""
	}

	log.Println("API unreachable, falling back to config file")
	return numberFromConfigFile(time.Now())
}

// numberFromConfigFile re-implements only the legacy schedule plus fallback
// lookup; rotations and overrides need the API.
func numberFromConfigFile(now time.Time) string {
	path := os.Getenv("ONCALL_CONFIG")
	if path == "" {
		dataDir := os.Getenv("ONCALL_DATA_DIR")
		if dataDir == "" {
			dataDir = "./data"
		}
		path = filepath.Join(dataDir, "oncall.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Failed to read %s: %v", path, err)
		return ""
	}
	var cfg db.OnCallConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Printf("Failed to parse %s: %v", path, err)
		return ""
	}

	day := strings.ToLower(now.Weekday().String())
	hour := now.Hour()
	for _, entry := range cfg.Schedule {
		if strings.ToLower(entry.Day) != day {
			continue
		}
		endHour := entry.EndHour
		if endHour == 0 {
			endHour = 24
		}
		if entry.StartHour <= hour && hour < endHour {
			return entry.Number
		}
	}

	if cfg.Primary != "" {
		return cfg.Primary
	}
	return cfg.Default
}

// setEscalationVariables publishes the escalation plan. The dialplan tries
// ONCALL_LEVEL1 first, then ONCALL_LEVEL2.. with their per-level timeouts.
func setEscalationVariables(session *agi.Session, client *http.Client, baseURL string) error {
	var chain db.Chain
	err := getJSON(client, baseURL+"/api/escalation-chain", &chain)
	if err != nil || !chain.EscalationEnabled {
		if err != nil {
			log.Printf("Escalation chain unavailable: %v", err)
		}
		session.Verbose("Call Router AGI: Escalation disabled")
		if err := session.SetVariable("ESCALATION_ENABLED", "0"); err != nil {
			return err
		}
		return session.SetVariable("ESCALATION_LEVELS", "1")
	}

	session.Verbose(fmt.Sprintf("Call Router AGI: Escalation enabled with %d levels", len(chain.Levels)))
	if err := session.SetVariable("ESCALATION_ENABLED", "1"); err != nil {
		return err
	}
	if err := session.SetVariable("ESCALATION_LEVELS", fmt.Sprintf("%d", len(chain.Levels))); err != nil {
		return err
	}

	// Levels start at 2; level 1 is the primary set above.
	idx := 2
	for _, level := range chain.Levels {
		if level.User == nil || level.User.Phone == "" {
			continue
		}
		session.Verbose(fmt.Sprintf("Call Router AGI: Level %d = %s (timeout: %ds)", idx, level.User.Phone, level.Timeout))
		if err := session.SetVariable(fmt.Sprintf("ONCALL_LEVEL%d", idx), level.User.Phone); err != nil {
			return err
		}
		if err := session.SetVariable(fmt.Sprintf("ONCALL_TIMEOUT%d", idx), fmt.Sprintf("%d", level.Timeout)); err != nil {
			return err
		}
		idx++
	}

	return nil
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
