package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/courtlens/internal/config"
)

// --- resolve ---

var resolveCmd = &cobra.Command{
	Use:   "resolve <case-number>",
	Short: "Resolve a case number to its canonical docket",
	Long: `Resolve a case number to its canonical docket, filed documents,
and court authority.

Examples:
  courtlens resolve 2:23-cv-11111
  courtlens resolve 2:23-cv-11111 --court mied --court miwd
  courtlens resolve 2:23-cv-11111 --limit 25 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courts, _ := cmd.Flags().GetStringArray("court")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"caseNumber": args[0]}
		if len(courts) > 0 {
			req["courts"] = courts
		}
		if limit > 0 {
			req["limit"] = limit
		}

		resp, err := client.post(cmd.Context(), "/v1/cases/resolve", req)
		if err != nil {
			return err
		}

		var result struct {
			Docket *struct {
				ID           string `json:"id"`
				CaseName     string `json:"caseName"`
				CourtID      string `json:"courtId"`
				DocketNumber string `json:"docketNumber"`
				DateFiled    string `json:"dateFiled"`
				URL          string `json:"url"`
			} `json:"docket"`
			Authority *struct {
				Score   int    `json:"score"`
				Binding bool   `json:"binding"`
				Level   string `json:"level"`
			} `json:"authority"`
			Recap []struct {
				Description    string `json:"description"`
				DocumentNumber string `json:"documentNumber"`
				DownloadURL    string `json:"downloadUrl"`
			} `json:"recap"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		if result.Docket == nil {
			fmt.Println("No docket found.")
			return nil
		}

		fmt.Printf("%s\n", colorize(colorBold, result.Docket.CaseName))
		printStatus("Docket", "%s (%s)", result.Docket.DocketNumber, result.Docket.ID)
		printStatus("Court", "%s", result.Docket.CourtID)
		if result.Docket.DateFiled != "" {
			printStatus("Filed", "%s", result.Docket.DateFiled)
		}
		if result.Authority != nil {
			binding := "persuasive"
			if result.Authority.Binding {
				binding = "binding"
			}
			printStatus("Authority", "%d (%s, %s)", result.Authority.Score, result.Authority.Level, binding)
		}
		printStatus("Documents", "%d", len(result.Recap))
		for _, d := range result.Recap {
			desc := d.Description
			if len(desc) > 80 {
				desc = desc[:80] + "..."
			}
			fmt.Printf("    #%s  %s\n", d.DocumentNumber, desc)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringArray("court", nil, "restrict search to a CourtListener court ID (repeatable)")
	resolveCmd.Flags().Int("limit", 0, "maximum candidates per upstream query (default 10, max 50)")
	resolveCmd.Flags().Bool("json", false, "print raw JSON result")
}

// --- authority ---

var authorityCmd = &cobra.Command{
	Use:   "authority <court-id>",
	Short: "Show the authority record for a court",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/courts/"+url.PathEscape(args[0])+"/authority")
		if err != nil {
			return err
		}

		var record struct {
			CourtID string `json:"courtId"`
			Known   bool   `json:"known"`
			Score   int    `json:"score"`
			Binding bool   `json:"binding"`
			Level   string `json:"level"`
		}
		if err := decodeJSON(resp, &record); err != nil {
			return err
		}

		printStatus("Court", "%s", record.CourtID)
		printStatus("Score", "%d", record.Score)
		printStatus("Binding", "%t", record.Binding)
		printStatus("Level", "%s", record.Level)
		if !record.Known {
			printWarning("court is not in the authority table; showing the unclassified default")
		}
		return nil
	},
}

// --- lookups ---

var lookupsCmd = &cobra.Command{
	Use:   "lookups",
	Short: "Manage case resolution history",
}

var lookupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/v1/lookups?limit=%d", limit))
		if err != nil {
			return err
		}

		var listResp struct {
			Lookups []struct {
				ID         string `json:"id"`
				CaseNumber string `json:"caseNumber"`
				OK         bool   `json:"ok"`
				ErrorKind  string `json:"errorKind"`
				CreatedAt  string `json:"createdAt"`
			} `json:"lookups"`
		}
		if err := decodeJSON(resp, &listResp); err != nil {
			return err
		}

		if len(listResp.Lookups) == 0 {
			fmt.Println("No lookups found.")
			return nil
		}

		for _, l := range listResp.Lookups {
			outcome := colorize(colorGreen, "ok")
			if !l.OK {
				outcome = colorize(colorRed, l.ErrorKind)
			}
			fmt.Printf("%s  %s  %-20s %s\n",
				colorize(colorCyan, l.ID[:8]),
				l.CreatedAt,
				l.CaseNumber,
				outcome,
			)
		}
		return nil
	},
}

var lookupsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single lookup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/lookups/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var lookup any
		if err := decodeJSON(resp, &lookup); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lookup)
	},
}

var lookupsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a lookup from the history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/v1/lookups/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted lookup %s", args[0])
		return nil
	},
}

func init() {
	lookupsListCmd.Flags().Int("limit", 20, "maximum number of lookups to list")
	lookupsCmd.AddCommand(lookupsListCmd)
	lookupsCmd.AddCommand(lookupsShowCmd)
	lookupsCmd.AddCommand(lookupsDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
