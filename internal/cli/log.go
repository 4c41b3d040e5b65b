package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gzhole/hardenedsuite/internal/logger"
)

var (
	logPath          string
	logFilterVerdict string
	logFilterAttack  string
	logLast          int
	logSummary       bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the verdict audit trail",
	Long: `View the JSONL audit trail written by "hardenedsuite serve --audit-log".

Examples:
  hardenedsuite log --audit-log verdicts.jsonl
  hardenedsuite log --last 20
  hardenedsuite log --verdict failed
  hardenedsuite log --attack xss
  hardenedsuite log --summary`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logPath, "audit-log", "", "Audit trail path (default: SIMULATOR_AUDIT_LOG)")
	logCmd.Flags().StringVar(&logFilterVerdict, "verdict", "", "Filter by verdict (success, failed, error)")
	logCmd.Flags().StringVar(&logFilterAttack, "attack", "", "Filter by attack (sql_injection, xss, broken_auth, login)")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	path := appCfg.Simulator.AuditLogPath
	override(&path, logPath)
	if path == "" {
		return errors.New("no audit trail configured: pass --audit-log or set SIMULATOR_AUDIT_LOG")
	}

	events, err := readAuditLog(path)
	if err != nil {
		return errors.Wrap(err, "failed to read audit log")
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events)
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(out, events)
		return nil
	}
	printEvents(out, filtered)
	return nil
}

func readAuditLog(path string) ([]logger.AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []logger.AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event logger.AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func filterEvents(events []logger.AuditEvent) []logger.AuditEvent {
	if logFilterVerdict == "" && logFilterAttack == "" {
		return events
	}

	var filtered []logger.AuditEvent
	for _, e := range events {
		if logFilterVerdict != "" && !strings.EqualFold(e.Verdict, logFilterVerdict) {
			continue
		}
		if logFilterAttack != "" && !strings.EqualFold(e.Attack, logFilterAttack) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.AuditEvent) {
	for _, e := range events {
		fmt.Fprintf(w, "%s %s %-13s %s\n", verdictIcon(e.Verdict), formatTimestamp(e.Timestamp), e.Attack, e.URL)
		if e.StatusCode != 0 {
			fmt.Fprintf(w, "     Status: %d (expected %d)\n", e.StatusCode, e.ExpectedStatus)
		}
		if e.Message != "" {
			fmt.Fprintf(w, "     Message: %s\n", firstLine(e.Message))
		}
		if e.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", e.Error)
		}
		fmt.Fprintf(w, "     ID: %s\n", e.ID)
		fmt.Fprintln(w)
	}
}

func printSummary(w io.Writer, all []logger.AuditEvent) {
	verdicts := map[string]int{}
	attacks := map[string]int{}
	for _, e := range all {
		verdicts[e.Verdict]++
		attacks[e.Attack]++
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintln(w, "  hardenedsuite Verdict Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintf(w, "  Total attacks:   %d\n", len(all))
	fmt.Fprintf(w, "  success:         %d\n", verdicts["success"])
	fmt.Fprintf(w, "  failed:          %d\n", verdicts["failed"])
	fmt.Fprintf(w, "  error:           %d\n", verdicts["error"])
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	for _, kind := range []string{"sql_injection", "xss", "broken_auth", "login"} {
		if n := attacks[kind]; n > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", kind+":", n)
		}
	}

	fmt.Fprintf(w, "  First attack:    %s\n", formatTimestamp(all[0].Timestamp))
	fmt.Fprintf(w, "  Last attack:     %s\n", formatTimestamp(all[len(all)-1].Timestamp))

	var failed []logger.AuditEvent
	for _, e := range all {
		if e.Verdict == "failed" {
			failed = append(failed, e)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Failed defenses:")
		limit := len(failed)
		if limit > 10 {
			limit = 10
		}
		for _, e := range failed[len(failed)-limit:] {
			fmt.Fprintf(w, "    %s %s %s\n", formatTimestamp(e.Timestamp), e.Attack, e.URL)
		}
	}
	fmt.Fprintln(w)
}

func verdictIcon(verdict string) string {
	switch verdict {
	case "success":
		return "✅"
	case "failed":
		return "❌"
	case "error":
		return "⚠️"
	default:
		return "❓"
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
