package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/nurture/internal/payment/domain"
	"github.com/spf13/cobra"
)

type simulateOptions struct {
	url          string
	secret       string
	userID       string
	customerID   string
	subscription string
	email        string
}

func newSimulateWebhookCmd() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate-webhook",
		Short: "Sign and post a checkout.session.completed event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.secret) == "" {
				opts.secret = config.Load().Stripe.WebhookSecret
			}
			if strings.TrimSpace(opts.secret) == "" {
				return errors.New("webhook secret is required (--secret or STRIPE_WEBHOOK_SECRET)")
			}
			if strings.TrimSpace(opts.userID) == "" {
				return errors.New("--user-id is required")
			}

			now := time.Now()
			payload, err := checkoutCompletedPayload(opts, now)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, opts.url, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Stripe-Signature", stripe.SignatureHeader(opts.secret, payload, now))

			client := &http.Client{Timeout: 15 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("webhook rejected with status %d", resp.StatusCode)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "http://localhost:8080/api/webhooks/stripe", "webhook endpoint")
	flags.StringVar(&opts.secret, "secret", "", "webhook signing secret, defaults to STRIPE_WEBHOOK_SECRET")
	flags.StringVar(&opts.userID, "user-id", "", "user id carried as client_reference_id")
	flags.StringVar(&opts.customerID, "customer", "cus_simulated", "provider customer id")
	flags.StringVar(&opts.subscription, "subscription", "sub_simulated", "provider subscription id")
	flags.StringVar(&opts.email, "email", "", "customer email")
	return cmd
}

func checkoutCompletedPayload(opts simulateOptions, now time.Time) ([]byte, error) {
	sessionID := "cs_sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return json.Marshal(map[string]any{
		"id":      "evt_sim_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		"type":    paymentdomain.EventCheckoutCompleted,
		"created": now.Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":                  sessionID,
				"client_reference_id": opts.userID,
				"customer":            opts.customerID,
				"customer_email":      opts.email,
				"subscription":        opts.subscription,
				"created":             now.Unix(),
			},
		},
	})
}
