package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/schedlab/kairos/recording"
)

// Row shapes matching the tables a recorded run writes.
type sessionRow struct {
	TableName    string
	SessionStart uint64
	SessionEnd   uint64
}

type spanRow struct {
	ID        string
	Kind      string
	What      string
	Processor string
	Handle    int64
	StartTime uint64
	EndTime   uint64
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.sqlite3>",
	Short: "Summarize a recorded scheduler run.",
	Long: `inspect reads the SQLite file a run recorded and prints its ` +
		`execution metadata and a summary of every trace session.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	// Opening a missing file would create an empty database.
	_, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", args[0], err)
	}

	reader := recording.NewReader(args[0])
	defer reader.Close()

	printExecInfo(reader)

	return printTraceSessions(reader)
}

func printExecInfo(reader recording.Reader) {
	reader.MapTable("exec_info", recording.ExecInfo{})

	rows, _, err := reader.Query(
		context.Background(), "exec_info", recording.QueryParams{})
	if err != nil {
		fmt.Println("No execution metadata recorded.")
		return
	}

	fmt.Println("Execution:")
	for _, row := range rows {
		info := row.(*recording.ExecInfo)
		fmt.Printf("  %-20s %s\n", info.Property, info.Value)
	}
}

func printTraceSessions(reader recording.Reader) error {
	reader.MapTable("trace", sessionRow{})

	sessions, _, err := reader.Query(context.Background(), "trace",
		recording.QueryParams{OrderBy: "SessionStart"})
	if err != nil {
		fmt.Println("No trace sessions recorded.")
		return nil
	}

	for _, s := range sessions {
		err := printSession(reader, s.(*sessionRow))
		if err != nil {
			return err
		}
	}

	return nil
}

func printSession(reader recording.Reader, session *sessionRow) error {
	reader.MapTable(session.TableName, spanRow{})

	spans, total, err := reader.Query(context.Background(),
		session.TableName, recording.QueryParams{})
	if err != nil {
		return err
	}

	byWhat := make(map[string]int)
	processors := make(map[string]struct{})

	for _, s := range spans {
		span := s.(*spanRow)
		byWhat[span.What]++
		processors[span.Processor] = struct{}{}
	}

	fmt.Printf("\nSession %s: window [%d, %d] ms, %d spans, %d processors\n",
		session.TableName, session.SessionStart, session.SessionEnd,
		total, len(processors))

	whats := make([]string, 0, len(byWhat))
	for what := range byWhat {
		whats = append(whats, what)
	}
	sort.Strings(whats)

	for _, what := range whats {
		fmt.Printf("  %-10s %d\n", what, byWhat[what])
	}

	return nil
}
