package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "nairawise/internal/cli"
	"nairawise/internal/config"
	"nairawise/internal/game"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "nw",
		Short:        "NairaWise CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newNewCmd(&apiBase),
		newDashCmd(&apiBase),
		newScenarioCmd(&apiBase),
		newChooseCmd(&apiBase),
		newGiveCmd(&apiBase),
		newNextCmd(&apiBase),
		newMarketCmd(&apiBase),
		newOrderCmd(&apiBase, "buy"),
		newOrderCmd(&apiBase, "sell"),
		newTriggerCmd(&apiBase),
		newHistoryCmd(&apiBase),
		newQuitCmd(&apiBase),
	)

	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	if err := root.Execute(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func loadGame() (cl.Session, error) {
	return cl.LoadSession()
}

func newNewCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new hustle",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := promptRequired("Name")
			if err != nil {
				return err
			}
			job, err := promptOptional("Job [Digital Hustler]")
			if err != nil {
				return err
			}
			if job == "" {
				job = "Digital Hustler"
			}
			salary, err := promptInt("Monthly salary [150000]", 150_000)
			if err != nil {
				return err
			}
			city, err := promptOptional("City [Lagos]")
			if err != nil {
				return err
			}
			if city == "" {
				city = "Lagos"
			}
			marital, err := promptOptional("Marital status (single/married) [single]")
			if err != nil {
				return err
			}
			dependents, err := promptInt("Dependents [0]", 0)
			if err != nil {
				return err
			}
			challenge, err := promptOptional("Challenge (sapa-max/black-tax/inflation/silver-spoon) [sapa-max]")
			if err != nil {
				return err
			}
			if challenge == "" {
				challenge = "sapa-max"
			}
			goal, err := promptOptional("Goal (survive/lekki/japa) [survive]")
			if err != nil {
				return err
			}
			if goal == "" {
				goal = "survive"
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.NewGame(ctx, game.SetupInput{
				Name:          name,
				Job:           job,
				City:          city,
				MaritalStatus: marital,
				Dependents:    int(dependents),
				Salary:        salary,
				ChallengeID:   challenge,
				GoalID:        goal,
			})
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				GameID:     out.GameID,
				PlayerName: name,
				APIBaseURL: *apiBase,
			}); err != nil {
				return err
			}
			printSuccess("New hustle started. Good luck out there.")
			renderDashboard(out.Dashboard)
			renderTurn(out.Turn)
			return nil
		},
	}
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Dashboard(ctx, sess.GameID)
			if err != nil {
				return err
			}
			renderDashboard(out)
			return nil
		},
	}
}

func newScenarioCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Show this week's scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Turn(ctx, sess.GameID)
			if err != nil {
				return err
			}
			renderTurn(out)
			return nil
		},
	}
}

func newChooseCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "choose <n> [n...]",
		Short: "Confirm your choice(s) for the week (1-based)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			indexes := make([]int, 0, len(args))
			for _, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil || n < 1 {
					return fmt.Errorf("choice must be a positive number, got %q", a)
				}
				indexes = append(indexes, n-1)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 90*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Choose(ctx, sess.GameID, indexes, uuid.NewString())
			if err != nil {
				return err
			}
			renderOutcome(out)
			return nil
		},
	}
}

func newGiveCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "give <percent>",
		Short: "Give away a share of this week's inflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			percent, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("percent must be a number, got %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 90*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Give(ctx, sess.GameID, percent, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("You gave away %s. Happiness +%d.", formatNaira(out.Amount), out.HappinessGain))
			if out.Ruined {
				renderRuin(out.Report)
			}
			return nil
		},
	}
}

func newNextCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Close the week and move to the next scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 90*time.Second)
			defer cancel()
			sc, err := newClient(apiBase).Proceed(ctx, sess.GameID)
			if err != nil {
				return err
			}
			renderScenario(sc)
			return nil
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show the asset market",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			assets, err := newClient(apiBase).Market(ctx, sess.GameID)
			if err != nil {
				return err
			}
			renderMarket(assets)
			return nil
		},
	}
}

func newOrderCmd(apiBase *string, side string) *cobra.Command {
	short := "Buy shares at the current price"
	if side == "sell" {
		short = "Sell shares at the current price"
	}
	return &cobra.Command{
		Use:   side + " <asset-id> [quantity]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			qty := int64(1)
			if len(args) == 2 {
				qty, err = strconv.ParseInt(args[1], 10, 64)
				if err != nil || qty < 1 {
					return fmt.Errorf("quantity must be a positive number, got %q", args[1])
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).PlaceOrder(ctx, sess.GameID, args[0], side, qty, uuid.NewString())
			if err != nil {
				return err
			}
			verb := "Bought"
			if out.Side == "sell" {
				verb = "Sold"
			}
			printSuccess(fmt.Sprintf("%s %d x %s at %s (total %s). Balance: %s",
				verb, out.Quantity, out.AssetID, formatNaira(out.Price), formatNaira(out.Total), formatNaira(out.Balance)))
			return nil
		},
	}
}

func newTriggerCmd(apiBase *string) *cobra.Command {
	var stopLoss, takeProfit int64
	cmd := &cobra.Command{
		Use:   "trigger <asset-id>",
		Short: "Set stop-loss/take-profit on a position (omitted bounds are cleared)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			var sl, tp *int64
			if cmd.Flags().Changed("stop-loss") {
				sl = &stopLoss
			}
			if cmd.Flags().Changed("take-profit") {
				tp = &takeProfit
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pos, err := newClient(apiBase).SetTriggers(ctx, sess.GameID, args[0], sl, tp)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Triggers on %s: stop-loss %s, take-profit %s",
				pos.AssetID, formatTrigger(pos.StopLoss), formatTrigger(pos.TakeProfit)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&stopLoss, "stop-loss", 0, "liquidate when price falls to this level")
	cmd.Flags().Int64Var(&takeProfit, "take-profit", 0, "liquidate when price rises to this level")
	return cmd
}

func newHistoryCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the game log",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			entries, err := newClient(apiBase).History(ctx, sess.GameID)
			if err != nil {
				return err
			}
			renderHistory(entries)
			return nil
		},
	}
}

func newQuitCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Abandon the current run",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadGame()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := newClient(apiBase).DeleteGame(ctx, sess.GameID); err != nil {
				printWarn("Server forgot the game already: " + err.Error())
			}
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Run abandoned. Start fresh with `nw new`.")
			return nil
		},
	}
}
