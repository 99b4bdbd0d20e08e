package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"nairawise/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)

	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	danger  = color.New(color.FgRed, color.Bold)
	dim     = color.New(color.FgHiBlack)
)

func printSuccess(msg string) { success.Fprintln(os.Stdout, msg) }
func printWarn(msg string)    { warn.Fprintln(os.Stdout, msg) }
func printError(msg string)   { danger.Fprintln(os.Stderr, "error: "+msg) }

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		line, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
		printWarn("a value is required")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptInt(label string, fallback int64) (int64, error) {
	for {
		line, err := promptOptional(label)
		if err != nil {
			return 0, err
		}
		if line == "" {
			return fallback, nil
		}
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil || n < 0 {
			printWarn("enter a non-negative number")
			continue
		}
		return n, nil
	}
}

// formatNaira renders whole naira with thousands separators.
func formatNaira(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	out := "₦"
	if neg {
		out = "-₦"
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out += ","
		}
		out += string(d)
	}
	return out
}

func formatTrigger(v *int64) string {
	if v == nil {
		return "none"
	}
	return formatNaira(*v)
}

func renderDashboard(d game.DashboardView) {
	accent.Printf("\n%s - Week %d (%s)\n", d.Player.Name, d.Player.Week, d.Era)
	dim.Printf("%s in %s, challenge: %s\n\n", d.Player.Job, d.Player.City, d.Player.Challenge)

	fmt.Printf("  %-12s %s\n", "Balance", colorNaira(d.Player.Balance))
	fmt.Printf("  %-12s %s\n", "Savings", formatNaira(d.Player.Savings))
	fmt.Printf("  %-12s %s\n", "Debt", formatNaira(d.Player.Debt))
	fmt.Printf("  %-12s %d/100\n", "Happiness", d.Player.Happiness)
	fmt.Printf("  %-12s %s\n", "Net assets", colorNaira(d.NetAssets))

	if len(d.Positions) > 0 {
		accent.Println("\nPortfolio")
		fmt.Printf("  %-14s %8s %12s %12s %12s %12s\n", "ASSET", "SHARES", "AVG", "PRICE", "VALUE", "P/L")
		for _, p := range d.Positions {
			fmt.Printf("  %-14s %8d %12s %12s %12s %12s\n",
				truncate(p.AssetID, 14), p.Shares, formatNaira(p.AvgPrice),
				formatNaira(p.Price), formatNaira(p.Value), colorNaira(p.Unrealized))
		}
	}

	if len(d.Goals) > 0 {
		accent.Println("\nGoals")
		for _, g := range d.Goals {
			mark := " "
			if g.Completed {
				mark = "x"
			}
			fmt.Printf("  [%s] %-28s %s (%d%%)\n", mark, truncate(g.Title, 28), formatNaira(g.Target), g.ProgressPct)
		}
	}
	fmt.Println()
}

func renderTurn(t game.TurnView) {
	switch {
	case t.Scenario != nil:
		renderScenario(*t.Scenario)
	case t.Outcome != nil:
		renderOutcome(*t.Outcome)
	default:
		printWarn("nothing to show for this turn yet")
	}
}

func renderScenario(sc game.Scenario) {
	accent.Printf("\n%s\n", sc.Title)
	fmt.Println(sc.Description)
	fmt.Println()
	for i, c := range sc.Choices {
		marker := ""
		if c.InvestmentID != "" {
			marker = warn.Sprint(" [invest]")
		}
		fmt.Printf("  %d. %s%s\n", i+1, c.Text, marker)
	}
	dim.Println("\nPick with `nw choose <n>`")
}

func renderOutcome(out game.TurnOutcome) {
	accent.Printf("\nWeek %d: %s\n", out.Week, out.Title)
	for _, r := range out.Results {
		fmt.Printf("  %s\n", r.Decision)
		dim.Printf("    %s\n", r.Consequence)
	}
	if out.SalaryPaid > 0 {
		printSuccess(fmt.Sprintf("  Payday! Salary of %s hit your account.", formatNaira(out.SalaryPaid)))
	}
	fmt.Printf("  Balance: %s\n", colorNaira(out.Balance))
	if out.GivingOffer > 0 {
		warn.Printf("  You received %s this week. Give some away with `nw give <percent>`.\n", formatNaira(out.GivingOffer))
	}
	if out.Ruined {
		renderRuin(out.Report)
		return
	}
	dim.Println("  Move on with `nw next`")
}

func renderRuin(report string) {
	danger.Println("\nGAME OVER. Sapa don finish you.")
	if report != "" {
		fmt.Println(report)
	}
	dim.Println("Start again with `nw new`")
}

func renderMarket(assets []game.Asset) {
	accent.Println("\nMarket")
	fmt.Printf("  %-14s %-22s %-8s %12s  %s\n", "ID", "NAME", "CLASS", "PRICE", "RECENT")
	for _, a := range assets {
		fmt.Printf("  %-14s %-22s %-8s %12s  %s\n",
			a.ID, truncate(a.Name, 22), a.Class, formatNaira(a.Price), historyTrend(a.History))
	}
	fmt.Println()
}

func renderHistory(entries []game.LogEntry) {
	if len(entries) == 0 {
		printWarn("no history yet")
		return
	}
	accent.Println("\nGame log")
	for _, e := range entries {
		fmt.Printf("  W%-3d %s\n", e.Week, e.Title)
		if e.Decision != "" {
			fmt.Printf("       %s\n", e.Decision)
		}
		if e.Consequence != "" {
			dim.Printf("       %s\n", e.Consequence)
		}
	}
	fmt.Println()
}

func colorNaira(v int64) string {
	if v < 0 {
		return danger.Sprint(formatNaira(v))
	}
	return success.Sprint(formatNaira(v))
}

// historyTrend shows the last few closes, oldest first.
func historyTrend(history []int64) string {
	const keep = 5
	if len(history) > keep {
		history = history[len(history)-keep:]
	}
	parts := make([]string, 0, len(history))
	for _, p := range history {
		parts = append(parts, strconv.FormatInt(p, 10))
	}
	return strings.Join(parts, " > ")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
