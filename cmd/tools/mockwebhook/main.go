package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/TylerPac/SolaceStudio/internal/stripe"
)

func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/stripe", "Webhook URL")
	secret := flag.String("secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "Webhook signing secret")
	eventID := flag.String("event-id", "evt_"+randomHex(12), "Event ID")
	eventType := flag.String("type", "checkout.session.completed", "Event type (checkout.session.completed, checkout.session.expired, payment_intent.payment_failed, charge.failed)")
	sessionID := flag.String("session-id", "cs_"+randomHex(12), "Checkout session ID (for checkout.* events)")
	intentID := flag.String("intent-id", "pi_"+randomHex(12), "Payment intent ID")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and STRIPE_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	body, err := json.Marshal(buildEvent(*eventID, *eventType, *sessionID, *intentID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	sigHeader := stripe.SignatureHeader(*secret, time.Now().Unix(), body)

	fmt.Printf("Stripe-Signature: %s\n", sigHeader)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", sigHeader)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response: %s\n%s\n", resp.Status, string(respBody))
}

func buildEvent(eventID, eventType, sessionID, intentID string) map[string]any {
	var object map[string]any
	switch eventType {
	case "checkout.session.completed":
		object = map[string]any{
			"id":             sessionID,
			"payment_intent": intentID,
			"payment_status": "paid",
			"status":         "complete",
		}
	case "checkout.session.expired":
		object = map[string]any{
			"id":             sessionID,
			"payment_status": "unpaid",
			"status":         "expired",
		}
	case "payment_intent.payment_failed":
		object = map[string]any{
			"id":     intentID,
			"status": "requires_payment_method",
		}
	case "charge.failed":
		object = map[string]any{
			"id":             "ch_" + randomHex(12),
			"payment_intent": intentID,
		}
	default:
		object = map[string]any{"id": sessionID}
	}

	return map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{"object": object},
	}
}

func randomHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
