package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// --- session ---

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in as the given email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/session", map[string]string{"email": args[0]})
		if err != nil {
			return err
		}

		var user struct {
			Email string `json:"email"`
		}
		if err := decodeJSON(resp, &user); err != nil {
			return err
		}

		printSuccess("Logged in as %s", user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out the current user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/session")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Logged out")
		return nil
	},
}

// --- batches ---

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Manage document batches",
}

type batchListItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	DocumentType string `json:"documentType"`
	ModifiedDate string `json:"modifiedDate"`
	Documents    []struct {
		Status string `json:"status"`
	} `json:"documents"`
}

var batchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/batches")
		if err != nil {
			return err
		}

		var batches []batchListItem
		if err := decodeJSON(resp, &batches); err != nil {
			return err
		}

		if len(batches) == 0 {
			fmt.Println("No batches found.")
			return nil
		}

		for _, b := range batches {
			completed := 0
			for _, d := range b.Documents {
				if d.Status == "completed" {
					completed++
				}
			}
			fmt.Printf("%s  %-30s  %-15s  %d/%d completed\n",
				colorize(colorCyan, b.ID),
				b.Name,
				b.DocumentType,
				completed,
				len(b.Documents),
			)
		}
		return nil
	},
}

var batchesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single batch as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/batches/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var batch any
		if err := decodeJSON(resp, &batch); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	},
}

var batchesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new pretrained batch",
	Long: `Create a new pretrained batch with generated documents.

Examples:
  kieview batches create "Q2 Invoices" --document-type Invoice
  kieview batches create "Travel Docs" --document-type Passport --count 20 --model local`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docType, _ := cmd.Flags().GetString("document-type")
		extractionModel, _ := cmd.Flags().GetString("model")
		count, _ := cmd.Flags().GetInt("count")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"name":          args[0],
			"type":          "pretrained",
			"documentType":  docType,
			"model":         extractionModel,
			"documentCount": count,
		}
		resp, err := client.post(cmd.Context(), "/api/batches", req)
		if err != nil {
			return err
		}

		var batch struct {
			ID        string `json:"id"`
			Documents []any  `json:"documents"`
		}
		if err := decodeJSON(resp, &batch); err != nil {
			return err
		}

		printSuccess("Created batch %s with %d documents", batch.ID, len(batch.Documents))
		return nil
	},
}

var batchesRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a batch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/api/batches/"+url.PathEscape(args[0]), map[string]string{"name": args[1]})
		if err != nil {
			return err
		}

		var batch struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := decodeJSON(resp, &batch); err != nil {
			return err
		}

		printSuccess("Renamed batch %s to %q", batch.ID, batch.Name)
		return nil
	},
}

var batchesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a batch and its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/batches/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted batch %s", args[0])
		return nil
	},
}

func init() {
	batchesCreateCmd.Flags().String("document-type", "Invoice", "document type, e.g. Passport, Invoice, Receipt")
	batchesCreateCmd.Flags().String("model", "flagship", "extraction model: flagship or local")
	batchesCreateCmd.Flags().Int("count", 10, "number of documents to generate")

	batchesCmd.AddCommand(batchesListCmd)
	batchesCmd.AddCommand(batchesShowCmd)
	batchesCmd.AddCommand(batchesCreateCmd)
	batchesCmd.AddCommand(batchesRenameCmd)
	batchesCmd.AddCommand(batchesDeleteCmd)
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <batch-id>",
	Short: "Export a batch's completed results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		if format != "csv" && format != "xlsx" {
			return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/api/batches/%s/export?format=%s", url.PathEscape(args[0]), format)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var writer *os.File
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		} else {
			writer = os.Stdout
		}

		if _, err := io.Copy(writer, resp.Body); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}

		if output != "" {
			printSuccess("Exported to %s", output)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "csv", "export format: csv or xlsx")
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
}

// --- rerun ---

var rerunCmd = &cobra.Command{
	Use:   "rerun <batch-id>",
	Short: "Regenerate a batch's extraction results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/batches/"+url.PathEscape(args[0])+"/rerun", nil)
		if err != nil {
			return err
		}

		var batch struct {
			ID        string `json:"id"`
			Documents []any  `json:"documents"`
		}
		if err := decodeJSON(resp, &batch); err != nil {
			return err
		}

		printSuccess("Reran extraction for batch %s (%d documents)", batch.ID, len(batch.Documents))
		return nil
	},
}
