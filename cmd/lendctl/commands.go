// cmd/lendctl/commands.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/export"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/storage"
)

var (
	errNoWallet       = errors.New("wallet_address is not configured")
	errUnknownCommand = errors.New("unknown command")
	errUnknownAction  = errors.New("unknown action")
)

// chainReader is the part of lending.Reader the commands use
type chainReader interface {
	Snapshot(ctx context.Context, owner string) (*lending.Snapshot, error)
	Price(ctx context.Context) lending.Price
	ProtocolStats(ctx context.Context, price decimal.Decimal) (lending.Stats, error)
}

type cli struct {
	out      io.Writer
	reader   chainReader
	store    storage.Storage
	exporter *export.TransactionExporter
	policy   config.Policy
	owner    string
	logger   *zap.Logger
}

func (c *cli) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	c.logger.Debug("Running command", zap.String("command", cmd))

	switch cmd {
	case "position":
		return c.position(ctx)
	case "price":
		return c.price(ctx)
	case "stats":
		return c.stats(ctx)
	case "validate":
		if len(rest) != 2 {
			return errors.New("usage: validate <action> <amount>")
		}
		return c.validate(ctx, rest[0], rest[1])
	case "max":
		if len(rest) != 1 {
			return errors.New("usage: max <action>")
		}
		return c.max(ctx, rest[0])
	case "history":
		return c.history(ctx, rest)
	case "export":
		return c.export(ctx, rest)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

func (c *cli) snapshot(ctx context.Context) (*lending.Snapshot, error) {
	if c.owner == "" {
		return nil, errNoWallet
	}
	return c.reader.Snapshot(ctx, c.owner)
}

func (c *cli) position(ctx context.Context) error {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return err
	}
	m := snap.Metrics
	fmt.Fprintf(c.out, "Wallet:       %s\n", snap.Owner)
	fmt.Fprintf(c.out, "Collateral:   %s SUI ($%s)\n", snap.Position.Collateral, m.CollateralValue.StringFixed(2))
	fmt.Fprintf(c.out, "Debt:         %s SUSD\n", snap.Position.Debt)
	fmt.Fprintf(c.out, "LTV:          %s%%\n", m.LTV.StringFixed(2))
	fmt.Fprintf(c.out, "Health:       %s (%s)\n", m.Health, m.Status)
	if !m.LiquidationPrice.IsZero() {
		fmt.Fprintf(c.out, "Liquidation:  $%s\n", m.LiquidationPrice.StringFixed(4))
	}
	fmt.Fprintf(c.out, "Max borrow:   %s SUSD\n", m.MaxBorrow)
	fmt.Fprintf(c.out, "Max withdraw: %s SUI\n", m.MaxWithdraw)
	fmt.Fprintf(c.out, "Balances:     %s SUI, %s SUSD\n", snap.Balances.SUI, snap.Balances.SUSD)
	c.printPrice(snap.Price)
	return nil
}

func (c *cli) price(ctx context.Context) error {
	c.printPrice(c.reader.Price(ctx))
	return nil
}

func (c *cli) printPrice(p lending.Price) {
	if p.Stale {
		fmt.Fprintf(c.out, "Price:        $%s (fallback: %v)\n", p.Value, p.Cause)
		return
	}
	fmt.Fprintf(c.out, "Price:        $%s\n", p.Value)
}

func (c *cli) stats(ctx context.Context) error {
	p := c.reader.Price(ctx)
	stats, err := c.reader.ProtocolStats(ctx, p.Value)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "TVL:          $%s\n", stats.TotalValueLocked.StringFixed(2))
	fmt.Fprintf(c.out, "Deposits:     %s SUI\n", stats.TotalDeposits)
	fmt.Fprintf(c.out, "Borrowed:     %s SUSD\n", stats.TotalBorrowed)
	fmt.Fprintf(c.out, "Utilization:  %s%%\n", stats.Utilization.StringFixed(2))
	return nil
}

func parseAction(name string) (risk.Action, error) {
	for _, a := range risk.Actions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errUnknownAction, name)
}

// limitFor falls back to the policy minimum without an upper bound when no
// wallet is configured
func (c *cli) limitFor(ctx context.Context, action risk.Action) (lending.Limit, bool, error) {
	if c.owner == "" {
		return lending.Limit{Token: action.Token(), Min: c.minimum(action)}, false, nil
	}
	snap, err := c.reader.Snapshot(ctx, c.owner)
	if err != nil {
		return lending.Limit{}, false, err
	}
	return lending.Limits(snap, c.policy)[action], true, nil
}

func (c *cli) minimum(action risk.Action) amount.TokenAmount {
	switch action {
	case risk.ActionDeposit:
		return c.policy.MinDeposit
	case risk.ActionBorrow:
		return c.policy.MinBorrow
	case risk.ActionRepay:
		return c.policy.MinRepay
	default:
		return c.policy.MinWithdraw
	}
}

func (c *cli) validate(ctx context.Context, actionName, input string) error {
	action, err := parseAction(actionName)
	if err != nil {
		return err
	}
	limit, bounded, err := c.limitFor(ctx, action)
	if err != nil {
		return err
	}

	var outcome amount.Outcome
	if bounded {
		outcome = limit.Validate(input)
	} else {
		outcome = limit.Token.Validate(input, limit.Min, nil)
	}
	if !outcome.Valid() {
		fmt.Fprintf(c.out, "invalid (%s): %s\n", outcome.Code, outcome.Reason)
		return outcome.Err()
	}
	fmt.Fprintf(c.out, "valid: %s %s (%s %s)\n",
		outcome.Amount, limit.Token.Symbol, outcome.Amount.RawUnits().String(), limit.Token.Unit)
	return nil
}

func (c *cli) max(ctx context.Context, actionName string) error {
	action, err := parseAction(actionName)
	if err != nil {
		return err
	}
	if c.owner == "" {
		return errNoWallet
	}
	limit, _, err := c.limitFor(ctx, action)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, limit.Max.String())
	return nil
}

func (c *cli) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.out)
	limit := fs.Int("limit", 20, "Number of records")
	offset := fs.Int("offset", 0, "Records to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.owner == "" {
		return errNoWallet
	}

	txs, err := c.store.ListTransactions(ctx, c.owner, *limit, *offset)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Fprintln(c.out, "no transactions")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "ACTION", "AMOUNT", "STATUS", "DIGEST")
	for _, tx := range txs {
		t.Row(
			tx.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			tx.Action,
			tx.Amount+" "+tx.Token,
			tx.Status,
			tx.Digest,
		)
	}
	fmt.Fprintln(c.out, t.String())
	return nil
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.out)
	format := fs.String("format", string(export.FormatCSV), "csv or json")
	out := fs.String("out", "exports", "Output directory, - for stdout")
	action := fs.String("action", "", "Only this action")
	status := fs.String("status", "", "Only this status")
	since := fs.String("since", "", "Start date, YYYY-MM-DD")
	until := fs.String("until", "", "End date, YYYY-MM-DD")
	all := fs.Bool("all", false, "Include every wallet")
	if err := fs.Parse(args); err != nil {
		return err
	}

	options := export.ExportOptions{
		Format:       export.ExportFormat(*format),
		ActionFilter: *action,
		StatusFilter: *status,
		OutputDir:    *out,
	}
	if !*all {
		if c.owner == "" {
			return errNoWallet
		}
		options.WalletFilter = c.owner
	}
	var err error
	if options.StartTime, err = parseDate(*since); err != nil {
		return err
	}
	if options.EndTime, err = parseDate(*until); err != nil {
		return err
	}

	if *out == "-" {
		txs, err := export.Load(ctx, c.store, options)
		if err != nil {
			return err
		}
		return c.exporter.Write(c.out, txs, options)
	}

	path, err := c.exporter.ExportFromStore(ctx, c.store, options)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "exported to %s\n", path)
	return nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}
