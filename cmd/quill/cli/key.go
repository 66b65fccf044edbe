package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillnotes/quill/internal/auth"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke API keys used to authenticate against the Quill API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		email string
		label string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key bound to a user. The raw key is shown once and cannot be retrieved again.",
		Example: `  quill key create --email jo@example.com --label "CLI sync"
  quill key create --email jo@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(email, label)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the user to bind the key to (required)")
	cmd.Flags().StringVar(&label, "label", "", "Human-readable label for the key")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runKeyCreate(email, label string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user %q not found", email)
	}

	authSvc := auth.NewService(st, "")
	cred, rawKey, err := authSvc.IssueKey(ctx, user.ID, label)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:    %s\n", rawKey)
	fmt.Printf("  Prefix: %s\n", cred.KeyPrefix)
	fmt.Printf("  User:   %s\n", email)
	if label != "" {
		fmt.Printf("  Label:  %s\n", label)
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		email      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a user's API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(email, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the key owner (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runKeyList(email string, jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user %q not found", email)
	}

	keys, err := st.ListCredentials(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	type keyRow struct {
		ID       string `json:"id"`
		Prefix   string `json:"prefix"`
		Label    string `json:"label"`
		Created  string `json:"created"`
		LastUsed string `json:"last_used,omitempty"`
	}

	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		rows[i] = keyRow{
			ID:      k.ID,
			Prefix:  k.KeyPrefix,
			Label:   k.Label,
			Created: k.CreatedAt.Format(time.DateOnly),
		}
		if k.LastUsedAt != nil {
			rows[i].LastUsed = k.LastUsedAt.Format(time.DateOnly)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No API keys for this user. Use 'quill key create' to create one.")
		return nil
	}

	fmt.Printf("%-38s %-14s %-24s %-12s %-12s\n", "ID", "PREFIX", "LABEL", "CREATED", "LAST USED")
	fmt.Printf("%-38s %-14s %-24s %-12s %-12s\n", "--", "------", "-----", "-------", "---------")
	for _, k := range rows {
		lastUsed := k.LastUsed
		if lastUsed == "" {
			lastUsed = "never"
		}
		fmt.Printf("%-38s %-14s %-24s %-12s %-12s\n", k.ID, k.Prefix, k.Label, k.Created, lastUsed)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key by its ID",
		Long:  "Delete an API key, preventing any further authenticated requests using that key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(email, args[0])
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the key owner (required)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runKeyRevoke(email, keyID string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user %q not found", email)
	}

	authSvc := auth.NewService(st, "")
	removed, err := authSvc.RevokeKey(ctx, user.ID, keyID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if !removed {
		return fmt.Errorf("no API key %q owned by %q", keyID, email)
	}

	fmt.Printf("Revoked API key %s\n", keyID)
	return nil
}
