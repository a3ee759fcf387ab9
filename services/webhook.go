package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/soctel/oncall/db"
	"github.com/soctel/oncall/store"
)

// deliveryTimeout is the only bound on a single delivery; there is no retry
// and no cancellation of in-flight requests.
const deliveryTimeout = 10 * time.Second

// WebhookService owns webhook registrations and the notification dispatcher.
// Dispatch is fire-and-forget: each matching endpoint gets its own goroutine,
// and the triggering request never waits on or observes delivery outcomes.
type WebhookService struct {
	Store  *store.Store
	Client *http.Client

	wg sync.WaitGroup
}

func NewWebhookService(st *store.Store) *WebhookService {
	return &WebhookService{
		Store:  st,
		Client: &http.Client{Timeout: deliveryTimeout},
	}
}

// ===========================
// DISPATCH
// ===========================

// Dispatch fans an event out to every enabled webhook subscribed to it.
// A burst of events produces a matching burst of concurrent deliveries;
// there is deliberately no queueing or rate limiting on this path.
func (s *WebhookService) Dispatch(eventType string, data map[string]interface{}) {
	for _, webhook := range s.Store.ListWebhooks() {
		if !webhook.Enabled {
			continue
		}
		if !subscribed(webhook.Events, eventType) {
			continue
		}

		s.wg.Add(1)
		go func(w db.Webhook) {
			defer s.wg.Done()
			s.deliver(w, eventType, data)
		}(webhook)
	}
}

// Wait blocks until all in-flight deliveries finish. Used by graceful
// shutdown and tests; callers on the dispatch path never wait.
func (s *WebhookService) Wait() {
	s.wg.Wait()
}

func subscribed(events []string, eventType string) bool {
	for _, e := range events {
		if e == eventType {
			return true
		}
	}
	return false
}

// deliver shapes the payload for one endpoint, posts it and records the
// outcome. Failures are terminal for the attempt: logged, never requeued,
// never surfaced to the caller, and never allowed to affect other endpoints.
func (s *WebhookService) deliver(webhook db.Webhook, eventType string, data map[string]interface{}) {
	payload := BuildPayload(webhook.Type, eventType, data)

	body, err := json.Marshal(payload)
	if err != nil {
		s.recordDelivery(webhook, eventType, false, 0, err.Error())
		return
	}

	resp, err := s.Client.Post(webhook.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Dispatch] Webhook %s delivery failed: %v", webhook.ID, err)
		s.recordDelivery(webhook, eventType, false, 0, err.Error())
		return
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if success {
		log.Printf("[Dispatch] Webhook %s delivered: %s", webhook.ID, eventType)
	} else {
		log.Printf("[Dispatch] Webhook %s returned status %d for %s", webhook.ID, resp.StatusCode, eventType)
	}
	s.recordDelivery(webhook, eventType, success, resp.StatusCode, "")
}

func (s *WebhookService) recordDelivery(webhook db.Webhook, eventType string, success bool, statusCode int, errText string) {
	entry := db.DeliveryLogEntry{
		WebhookID:  webhook.ID,
		EventType:  eventType,
		Timestamp:  time.Now().Format(time.RFC3339),
		Success:    success,
		StatusCode: statusCode,
		Error:      errText,
		URL:        webhook.URL,
	}
	if err := s.Store.AppendDelivery(entry); err != nil {
		log.Printf("[Dispatch] Failed to record delivery for webhook %s: %v", webhook.ID, err)
	}
}

// ===========================
// PAYLOAD SHAPING
// ===========================

var titleCaser = cases.Title(language.English)

// eventTitle turns "user_created" into "User Created".
func eventTitle(eventType string) string {
	return titleCaser.String(strings.ReplaceAll(eventType, "_", " "))
}

// sortedKeys gives the payload fields a deterministic order; Go map
// iteration order would otherwise shuffle them per delivery.
func sortedKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildPayload renders the target-specific payload for one webhook kind.
// Unknown kinds fall back to the generic envelope.
func BuildPayload(webhookType, eventType string, data map[string]interface{}) map[string]interface{} {
	switch webhookType {
	case db.WebhookSlack:
		return slackPayload(eventType, data)
	case db.WebhookDiscord:
		return discordPayload(eventType, data)
	case db.WebhookTeams:
		return teamsPayload(eventType, data)
	default:
		return genericPayload(eventType, data)
	}
}

func createdEvent(eventType string) bool {
	return strings.Contains(eventType, "created")
}

func slackPayload(eventType string, data map[string]interface{}) map[string]interface{} {
	color := "warning"
	if createdEvent(eventType) {
		color = "good"
	}

	fields := make([]map[string]interface{}, 0, len(data))
	for _, k := range sortedKeys(data) {
		fields = append(fields, map[string]interface{}{
			"title": k,
			"value": fmt.Sprintf("%v", data[k]),
			"short": true,
		})
	}

	return map[string]interface{}{
		"text": fmt.Sprintf("🔔 %s", eventTitle(eventType)),
		"attachments": []map[string]interface{}{
			{"color": color, "fields": fields},
		},
	}
}

func discordPayload(eventType string, data map[string]interface{}) map[string]interface{} {
	color := 16744192
	if createdEvent(eventType) {
		color = 65280
	}

	lines := make([]string, 0, len(data))
	for _, k := range sortedKeys(data) {
		lines = append(lines, fmt.Sprintf("**%s:** %v", k, data[k]))
	}

	return map[string]interface{}{
		"content": fmt.Sprintf("**%s**", eventTitle(eventType)),
		"embeds": []map[string]interface{}{
			{"description": strings.Join(lines, "\n"), "color": color},
		},
	}
}

func teamsPayload(eventType string, data map[string]interface{}) map[string]interface{} {
	themeColor := "FFA500"
	if createdEvent(eventType) {
		themeColor = "00FF00"
	}

	facts := make([]map[string]interface{}, 0, len(data))
	for _, k := range sortedKeys(data) {
		facts = append(facts, map[string]interface{}{
			"name":  k,
			"value": fmt.Sprintf("%v", data[k]),
		})
	}

	title := eventTitle(eventType)
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "https://schema.org/extensions",
		"summary":    title,
		"themeColor": themeColor,
		"title":      title,
		"sections": []map[string]interface{}{
			{"facts": facts},
		},
	}
}

func genericPayload(eventType string, data map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"event":     eventType,
		"timestamp": time.Now().Format(time.RFC3339),
		"data":      data,
	}
}

// ===========================
// WEBHOOK CRUD
// ===========================

var validWebhookTypes = map[string]bool{
	db.WebhookSlack:   true,
	db.WebhookDiscord: true,
	db.WebhookTeams:   true,
	db.WebhookGeneric: true,
}

func (s *WebhookService) ListWebhooks() []db.Webhook {
	return s.Store.ListWebhooks()
}

func (s *WebhookService) CreateWebhook(req db.CreateWebhookRequest) (db.Webhook, error) {
	if !validWebhookTypes[req.Type] {
		return db.Webhook{}, fmt.Errorf("invalid webhook type %q: must be slack, discord, teams or generic", req.Type)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	webhook := db.Webhook{
		ID:        uuid.New().String(),
		Name:      req.Name,
		URL:       req.URL,
		Type:      req.Type,
		Events:    req.Events,
		Enabled:   enabled,
		CreatedAt: time.Now().Format(time.RFC3339),
	}

	webhooks := append(s.Store.ListWebhooks(), webhook)
	if err := s.Store.PutWebhooks(webhooks); err != nil {
		return db.Webhook{}, err
	}

	s.Store.AppendAudit("webhook_created", "admin", map[string]interface{}{"webhook": webhook})
	return webhook, nil
}

func (s *WebhookService) UpdateWebhook(id string, req db.CreateWebhookRequest) (db.Webhook, error) {
	webhooks := s.Store.ListWebhooks()
	for i := range webhooks {
		if webhooks[i].ID != id {
			continue
		}
		if req.Name != "" {
			webhooks[i].Name = req.Name
		}
		if req.URL != "" {
			webhooks[i].URL = req.URL
		}
		if req.Type != "" {
			if !validWebhookTypes[req.Type] {
				return db.Webhook{}, fmt.Errorf("invalid webhook type %q", req.Type)
			}
			webhooks[i].Type = req.Type
		}
		if req.Events != nil {
			webhooks[i].Events = req.Events
		}
		if req.Enabled != nil {
			webhooks[i].Enabled = *req.Enabled
		}

		if err := s.Store.PutWebhooks(webhooks); err != nil {
			return db.Webhook{}, err
		}
		s.Store.AppendAudit("webhook_updated", "admin", map[string]interface{}{"webhook_id": id})
		return webhooks[i], nil
	}
	return db.Webhook{}, ErrNotFound
}

func (s *WebhookService) DeleteWebhook(id string) error {
	webhooks := s.Store.ListWebhooks()
	kept := webhooks[:0]
	for _, w := range webhooks {
		if w.ID != id {
			kept = append(kept, w)
		}
	}
	if err := s.Store.PutWebhooks(kept); err != nil {
		return err
	}
	s.Store.AppendAudit("webhook_deleted", "admin", map[string]interface{}{"webhook_id": id})
	return nil
}

// TestWebhook fires a webhook_test event. The target must subscribe to
// webhook_test (and be enabled) to receive it, same as any other event.
func (s *WebhookService) TestWebhook(id string) error {
	if _, ok := s.Store.GetWebhook(id); !ok {
		return ErrNotFound
	}
	s.Dispatch("webhook_test", map[string]interface{}{
		"message":   "This is a test webhook from the on-call manager",
		"timestamp": time.Now().Format(time.RFC3339),
		"test":      true,
	})
	return nil
}

func (s *WebhookService) DeliveryLog(limit int) []db.DeliveryLogEntry {
	return s.Store.ListDeliveries(limit)
}
