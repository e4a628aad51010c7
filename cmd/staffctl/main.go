// Command staffctl manages staff accounts directly against the Postgres store
// and mints bearer tokens for scripted access to the registration API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	jwttoken "dsnap/internal/jwt_token"
	"dsnap/internal/platform/config"
	"dsnap/internal/platform/database"
	staffservice "dsnap/internal/staff/service"
	staffstore "dsnap/internal/staff/store"
	id "dsnap/pkg/domain"
	"dsnap/pkg/secrets"
)

var (
	cfgFile  string
	username string
	password string
	scopes   []string
	asJSON   bool
)

var rootCmd = &cobra.Command{
	Use:           "staffctl",
	Short:         "Manage DSNAP staff accounts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an active staff account",
	Long: `Create an active staff account. When --password is omitted a random
password is generated and printed once.`,
	RunE: runCreate,
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate STAFF_ID",
	Short: "Block a staff account and its outstanding tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeactivate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Authenticate and mint a bearer token",
	Long: `Authenticate with a staff username and password and print a bearer token.
Repeat --scope to narrow the token; without it the token carries every scope.`,
	RunE: runToken,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file")

	createCmd.Flags().StringVarP(&username, "username", "u", "", "staff username")
	createCmd.Flags().StringVarP(&password, "password", "p", "", "staff password (generated if empty)")
	_ = createCmd.MarkFlagRequired("username")

	tokenCmd.Flags().StringVarP(&username, "username", "u", "", "staff username")
	tokenCmd.Flags().StringVarP(&password, "password", "p", "", "staff password (or DSNAP_STAFF_PASSWORD)")
	tokenCmd.Flags().StringSliceVar(&scopes, "scope", nil, "scope to grant: "+strings.Join(id.AllStaffScopes(), ", "))
	tokenCmd.Flags().BoolVar(&asJSON, "json", false, "print the token response as JSON")
	_ = tokenCmd.MarkFlagRequired("username")

	rootCmd.AddCommand(createCmd, deactivateCmd, tokenCmd)
}

type session struct {
	staff *staffservice.Service
	close func() error
}

// open connects to the configured database. Staff commands are meaningless
// against the in-memory store, so a database URL is required.
func open() (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required (set DSNAP_DATABASE_URL)")
	}
	pool, err := database.New(cfg.Database)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	svc := staffservice.New(staffstore.NewPostgres(pool.DB()), secrets.NewHasher(cfg.Auth.PasswordCost), logger,
		staffservice.WithTokenIssuer(jwt),
	)
	return &session{staff: svc, close: pool.Close}, nil
}

func runCreate(cmd *cobra.Command, _ []string) error {
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()

	generated := password == ""
	if generated {
		if password, err = secrets.Generate(); err != nil {
			return err
		}
	}
	staff, err := s.staff.Create(cmd.Context(), username, password)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created %s (%s)\n", staff.Username, staff.ID)
	if generated {
		fmt.Fprintf(out, "password: %s\n", password)
	}
	return nil
}

func runDeactivate(cmd *cobra.Command, args []string) error {
	staffID, err := id.ParseStaffID(args[0])
	if err != nil {
		return fmt.Errorf("invalid staff id %q", args[0])
	}
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.staff.Deactivate(cmd.Context(), staffID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s\n", staffID)
	return nil
}

type tokenOutput struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Scope       []string  `json:"scope"`
}

func runToken(cmd *cobra.Command, _ []string) error {
	if password == "" {
		password = os.Getenv("DSNAP_STAFF_PASSWORD")
	}
	s, err := open()
	if err != nil {
		return err
	}
	defer s.close()

	ctx := cmd.Context()
	actor, err := s.staff.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}
	token, err := s.staff.IssueToken(ctx, actor, scopes)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !asJSON {
		fmt.Fprintln(out, token.AccessToken)
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenOutput{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   token.ExpiresAt,
		Scope:       token.Scopes,
	})
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
