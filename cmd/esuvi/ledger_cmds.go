package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"esuvi/internal/core"
	"esuvi/internal/ledger"
)

const dateLayout = "2006-01-02"

var (
	flagType        string
	flagAmount      string
	flagDescription string
	flagCategory    string
	flagDate        string
	flagAsOf        string
	flagYes         bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a transaction",
	Example: `  esuvi add --user alice --type expense --amount 12.50 --description Lunch --category food
  esuvi add -u alice -t income -a 2500 -d Salary -c salary --date 2024-06-01`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored transactions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show balance and monthly totals",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every stored transaction of the user",
	Args:  cobra.NoArgs,
	RunE:  runPurge,
}

func init() {
	addCmd.Flags().StringVarP(&flagType, "type", "t", "", "income or expense")
	addCmd.Flags().StringVarP(&flagAmount, "amount", "a", "", "Positive decimal amount")
	addCmd.Flags().StringVarP(&flagDescription, "description", "d", "", "Description")
	addCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "Category allowed for the type")
	addCmd.Flags().StringVar(&flagDate, "date", "", "Date as YYYY-MM-DD (default now)")
	for _, name := range []string{"type", "amount", "description", "category"} {
		_ = addCmd.MarkFlagRequired(name)
	}

	summaryCmd.Flags().StringVar(&flagAsOf, "as-of", "", "Month reference date as YYYY-MM-DD (default today)")
	purgeCmd.Flags().BoolVar(&flagYes, "yes", false, "Confirm deletion")

	rootCmd.AddCommand(addCmd, listCmd, summaryCmd, purgeCmd)
}

func runAdd(cmd *cobra.Command, _ []string) error {
	date, err := parseDate(flagDate)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	tx, err := a.ledger(cliIdentity()).Add(cmd.Context(), ledger.Entry{
		Type:        flagType,
		Amount:      flagAmount,
		Description: flagDescription,
		Category:    flagCategory,
		Date:        date,
	})
	if err != nil {
		return userError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s %s (%s) id=%s\n",
		tx.Type, tx.Amount, tx.Description, tx.Category, tx.ID)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	txs, err := a.ledger(cliIdentity()).LoadAll(cmd.Context())
	if err != nil {
		return userError(err)
	}
	writeTransactions(cmd.OutOrStdout(), txs)
	return nil
}

func runSummary(cmd *cobra.Command, _ []string) error {
	asOf, err := parseDate(flagAsOf)
	if err != nil {
		return err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	engine := a.ledger(cliIdentity())
	if _, err := engine.LoadAll(cmd.Context()); err != nil {
		return userError(err)
	}
	s := engine.Summarize(asOf)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Balance:          %s\n", s.Balance)
	fmt.Fprintf(w, "Income %s:   %s\n", asOf.Format("2006-01"), s.MonthlyIncome)
	fmt.Fprintf(w, "Expenses %s: %s\n", asOf.Format("2006-01"), s.MonthlyExpense)
	return nil
}

func runPurge(cmd *cobra.Command, _ []string) error {
	if !flagYes {
		return errors.New("refusing to delete without --yes")
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ledger(cliIdentity()).Purge(cmd.Context()); err != nil {
		return userError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All transactions deleted.")
	return nil
}

func writeTransactions(w io.Writer, txs []core.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.Date.Local().Format(dateLayout), tx.Type, tx.Amount, tx.Category, tx.Description)
	}
	_ = tw.Flush()
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// userError keeps the cause for logs but leads with the user-facing message.
func userError(err error) error {
	return fmt.Errorf("%s (%w)", core.UserMessage(err), err)
}
