// Command nightoutctl is a development helper: it mints GoTrue-shaped sessions
// and injects identity notifications into the Kafka or NATS relay.
// Tokens are signed with the local dev secret and will not work against a real platform.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"nightout/internal/auth/models"
	"nightout/internal/identity/gotrue"
	"nightout/internal/identity/wire"
)

const devJWTSecret = "super-secret-jwt-token-with-at-least-32-characters-long"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type sessionFlags struct {
	secret   string
	userID   string
	email    string
	provider string
	fullName string
	ttl      time.Duration
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.secret, "secret", envOr("GOTRUE_JWT_SECRET", devJWTSecret), "HS256 signing secret")
	cmd.Flags().StringVar(&f.userID, "user-id", "", "user id (UUID); generated when empty")
	cmd.Flags().StringVar(&f.email, "email", "dev@nightout.local", "user email")
	cmd.Flags().StringVar(&f.provider, "provider", "email", "sign-in provider recorded in app metadata")
	cmd.Flags().StringVar(&f.fullName, "full-name", "", "full_name user metadata")
	cmd.Flags().DurationVar(&f.ttl, "ttl", time.Hour, "access token lifetime")
}

func (f *sessionFlags) build(now time.Time) (*models.Session, error) {
	id := uuid.New()
	if f.userID != "" {
		parsed, err := uuid.Parse(f.userID)
		if err != nil {
			return nil, fmt.Errorf("invalid --user-id: %w", err)
		}
		id = parsed
	}
	user := &models.User{
		ID:          id,
		Email:       f.email,
		AppMetadata: map[string]any{"provider": f.provider},
	}
	if f.fullName != "" {
		user.UserMetadata = map[string]any{"full_name": f.fullName}
	}

	expiresAt := now.Add(f.ttl)
	token, err := gotrue.SignAccessToken(f.secret, user, now, expiresAt)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
		User:         user,
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nightoutctl",
		Short:         "Development helpers for the nightout service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTokenCmd())
	root.AddCommand(newEmitCmd())
	return root
}

func newTokenCmd() *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed session document as the GoTrue client stores it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := flags.build(time.Now())
			if err != nil {
				return err
			}
			raw, err := wire.EncodeSession(session)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newEmitCmd() *cobra.Command {
	var (
		flags     sessionFlags
		transport string
		event     string
		target    emitTarget
	)
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Publish an identity notification to the configured relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n := models.Notification{Event: models.Event(event)}
			if !n.Event.IsValid() {
				return fmt.Errorf("unknown event %q", event)
			}
			if n.Event != models.EventSignedOut {
				session, err := flags.build(time.Now())
				if err != nil {
					return err
				}
				n.Session = session
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if err := target.emit(ctx, transport, n); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "published %s via %s\n", n.Event, transport)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&transport, "transport", envOr("AUTH_EVENTS_TRANSPORT", "kafka"), "kafka or nats")
	cmd.Flags().StringVar(&event, "event", string(models.EventSignedIn), "notification event")
	cmd.Flags().StringVar(&target.brokers, "brokers", envOr("KAFKA_BROKERS", "localhost:9092"), "kafka brokers")
	cmd.Flags().StringVar(&target.topic, "topic", envOr("KAFKA_AUTH_TOPIC", "auth.events"), "kafka topic")
	cmd.Flags().StringVar(&target.natsURL, "nats-url", envOr("NATS_URL", "nats://localhost:4222"), "nats server url")
	cmd.Flags().StringVar(&target.subject, "subject", envOr("NATS_AUTH_SUBJECT", "auth.events"), "nats subject")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
