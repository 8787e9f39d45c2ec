package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/tinyleap/internal/quadrant"
	"github.com/hyperengineering/tinyleap/internal/snapshot"
	"github.com/hyperengineering/tinyleap/internal/store"
)

var (
	workshopJSONOutput bool
	createVision       string
	deleteForce        bool
	exportOut          string
)

var workshopCmd = &cobra.Command{
	Use:   "workshop",
	Short: "Inspect and manage workshops",
	Long:  "List, show, create, and delete workshops directly in the configured store without running the server.",
}

var workshopListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all workshops",
	Args:  cobra.NoArgs,
	RunE:  runWorkshopList,
}

var workshopShowCmd = &cobra.Command{
	Use:   "show <workshop-id>",
	Short: "Show a workshop and its behaviors",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkshopShow,
}

var workshopCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty workshop",
	Args:  cobra.NoArgs,
	RunE:  runWorkshopCreate,
}

var workshopDeleteCmd = &cobra.Command{
	Use:   "delete <workshop-id>",
	Short: "Delete a workshop",
	Long:  "Permanently delete a workshop. Requires --force or interactive confirmation.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkshopDelete,
}

var workshopExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every workshop as a JSON snapshot",
	Long:  "Write a snapshot archive of every workshop to stdout, or into the directory given by --dir.",
	Args:  cobra.NoArgs,
	RunE:  runWorkshopExport,
}

func init() {
	workshopCmd.PersistentFlags().BoolVar(&workshopJSONOutput, "json", false,
		"Output in JSON format")
	workshopCreateCmd.Flags().StringVar(&createVision, "vision", "",
		"Initial vision")
	workshopDeleteCmd.Flags().BoolVar(&deleteForce, "force", false,
		"Skip confirmation prompt")
	workshopExportCmd.Flags().StringVar(&exportOut, "dir", "",
		"Write the archive into this directory instead of stdout")

	workshopCmd.AddCommand(workshopListCmd)
	workshopCmd.AddCommand(workshopShowCmd)
	workshopCmd.AddCommand(workshopCreateCmd)
	workshopCmd.AddCommand(workshopDeleteCmd)
	workshopCmd.AddCommand(workshopExportCmd)
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, fn func(db store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runWorkshopList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(db store.Store) error {
		list, err := db.List(ctx)
		if err != nil {
			return fmt.Errorf("list workshops: %w", err)
		}

		if workshopJSONOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"workshops": list,
				"total":     len(list),
			})
		}

		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No workshops found.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.AppendHeader(table.Row{"ID", "Vision", "Updated"})
		for _, w := range list {
			vision := truncate(w.Vision, 48)
			if vision == "" {
				vision = "-"
			}
			tw.AppendRow(table.Row{w.ID, vision, w.UpdatedAt.Format("2006-01-02 15:04")})
		}
		tw.Render()
		return nil
	})
}

func runWorkshopShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(db store.Store) error {
		ws, err := db.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get workshop %q: %w", args[0], err)
		}

		if workshopJSONOutput {
			return printJSON(cmd.OutOrStdout(), ws)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Workshop %s\n", ws.ID)
		fmt.Fprintf(out, "Vision:  %s\n", ws.Vision)
		fmt.Fprintf(out, "Updated: %s\n", ws.UpdatedAt.Format("2006-01-02 15:04"))
		if ws.SOPData != nil {
			fmt.Fprintf(out, "SOP:     %s (%d sections)\n", ws.SOPData.Title, len(ws.SOPData.Sections))
		}

		if len(ws.Behaviors) == 0 {
			fmt.Fprintln(out, "No behaviors.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(out)
		tw.AppendHeader(table.Row{"Behavior", "Ability", "Impact", "Quadrant", "Evaluated", "Source"})
		for i := range ws.Behaviors {
			b := &ws.Behaviors[i]
			score := b.ActiveScore()
			tw.AppendRow(table.Row{
				truncate(b.Text, 40),
				fmt.Sprintf("%.0f", score.Ability),
				fmt.Sprintf("%.0f", score.Impact),
				quadrant.Classify(score),
				b.IsEvaluated,
				b.Source,
			})
		}
		tw.Render()
		return nil
	})
}

func runWorkshopCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(db store.Store) error {
		ws, err := db.Create(ctx, strings.TrimSpace(createVision))
		if err != nil {
			return fmt.Errorf("create workshop: %w", err)
		}
		if workshopJSONOutput {
			return printJSON(cmd.OutOrStdout(), ws)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created workshop %s\n", ws.ID)
		return nil
	})
}

func runWorkshopDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	if !deleteForce {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "WARNING: This will permanently delete workshop %q.\n", id)
		fmt.Fprint(errOut, "Type the workshop ID to confirm: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		input, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.TrimSpace(input) != id {
			fmt.Fprintln(errOut, "Aborted. Workshop ID did not match.")
			return nil
		}
	}

	ctx := cmd.Context()
	return withStore(ctx, func(db store.Store) error {
		if err := db.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete workshop: %w", err)
		}
		if workshopJSONOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"id":      id,
				"deleted": true,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted workshop %q\n", id)
		return nil
	})
}

func runWorkshopExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(db store.Store) error {
		archive, err := snapshot.Build(ctx, db, time.Now())
		if err != nil {
			return err
		}
		if exportOut == "" {
			return snapshot.Write(cmd.OutOrStdout(), archive)
		}
		path, err := snapshot.WriteFile(exportOut, archive)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d workshops to %s\n", len(archive.Workshops), path)
		return nil
	})
}
