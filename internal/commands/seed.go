package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tinoosan/bookkeeping/internal/config"
	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
	"github.com/tinoosan/bookkeeping/internal/service/account"
	"github.com/tinoosan/bookkeeping/internal/service/fiscal"
)

// devBusinessID is used when no seed.business_id is configured so repeated
// seeds land on the same tenant.
var devBusinessID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("bookkeeping.dev-seed"))

func newSeedCommand(configPath *string) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a development business with a chart template and one fiscal year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			sc := e.cfg.Seed
			if year > 0 {
				sc.FiscalYear = year
			}
			res, err := seedTenant(cmd.Context(), e.store, sc, e.log)
			if err != nil {
				return err
			}
			res.log(e.log, e.backend)
			res.print(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "fiscal year to open, overrides seed.fiscal_year")
	return cmd
}

type seedResult struct {
	Business ledger.Business
	Groups   int
	Year     ledger.FiscalYear
	Periods  []ledger.FiscalPeriod
}

// seedTenant is idempotent: rerunning it finds the existing year and
// periods instead of failing.
func seedTenant(ctx context.Context, store backend, sc config.SeedConfig, logger *slog.Logger) (seedResult, error) {
	id := devBusinessID
	if sc.BusinessID != "" {
		parsed, err := uuid.Parse(sc.BusinessID)
		if err != nil {
			return seedResult{}, fmt.Errorf("seed business id: %w", err)
		}
		id = parsed
	}
	month := sc.StartMonth
	if month == 0 {
		month = 1
	}
	biz := ledger.Business{
		ID:                   id,
		Name:                 sc.Name,
		Currency:             strings.ToUpper(sc.Currency),
		FiscalYearStartMonth: month,
		Active:               true,
	}
	if err := store.SeedBusiness(ctx, biz); err != nil {
		return seedResult{}, fmt.Errorf("seed business: %w", err)
	}
	res := seedResult{Business: biz}

	groups, err := account.New(store, logger).ApplyTemplate(ctx, biz.ID)
	if err != nil {
		return res, fmt.Errorf("apply chart template: %w", err)
	}
	res.Groups = len(groups)

	fs := fiscal.New(store, logger)
	start := ledger.Date(sc.FiscalYear, time.Month(month), 1)
	end := start.AddDate(1, 0, -1)
	y, err := fs.CreateYear(ctx, biz.ID, sc.FiscalYear, start, end)
	if errors.Is(err, errs.ErrConflict) {
		y, err = findYear(ctx, fs, biz.ID, sc.FiscalYear)
	}
	if err != nil {
		return res, fmt.Errorf("fiscal year %d: %w", sc.FiscalYear, err)
	}
	res.Year = y

	periods, err := fs.ListPeriods(ctx, biz.ID, y.ID)
	if err != nil {
		return res, err
	}
	if len(periods) == 0 {
		if periods, err = fs.CreateMonthlyPeriods(ctx, biz.ID, y.ID); err != nil {
			return res, fmt.Errorf("monthly periods: %w", err)
		}
	}
	res.Periods = periods
	return res, nil
}

func findYear(ctx context.Context, fs fiscal.Service, businessID uuid.UUID, year int) (ledger.FiscalYear, error) {
	years, err := fs.ListYears(ctx, businessID)
	if err != nil {
		return ledger.FiscalYear{}, err
	}
	for _, y := range years {
		if y.Year == year {
			return y, nil
		}
	}
	return ledger.FiscalYear{}, errs.NotFound("fiscal year", year)
}

func (r seedResult) log(l *slog.Logger, backend string) {
	l.Info("DEV seed ("+backend+")",
		"business_id", r.Business.ID.String(),
		"fiscal_year_id", r.Year.ID.String(),
		"groups_created", r.Groups,
		"periods", len(r.Periods))
}

// print writes the ids a developer needs to start calling the API.
func (r seedResult) print(w io.Writer) {
	fmt.Fprintln(w, "==================== DEV SEED ====================")
	fmt.Fprintf(w, "business_id: %s\n", r.Business.ID)
	fmt.Fprintf(w, "currency: %s\n", r.Business.Currency)
	fmt.Fprintf(w, "fiscal_year: %d (%s)\n", r.Year.Year, r.Year.ID)
	for _, p := range r.Periods {
		fmt.Fprintf(w, "period %2d: %s %s\n", p.Number, p.DisplayName(r.Year), p.ID)
	}
	fmt.Fprintln(w, "==================================================")
}
