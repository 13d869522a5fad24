package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

// ReconcileFlags are the flags of the reconcile command
type ReconcileFlags struct {
	ConfigPath    string
	Flavor        string
	Apply         bool
	MinConfidence float64
	MaxDays       int
	Tolerance     float64
	Verbose       bool
}

// ParseReconcileFlags parses reconcile flags from the command line
func ParseReconcileFlags() (ReconcileFlags, error) {
	return parseReconcileFlags(flag.CommandLine, os.Args[1:])
}

func parseReconcileFlags(fs *flag.FlagSet, args []string) (ReconcileFlags, error) {
	var flags ReconcileFlags
	fs.StringVar(&flags.ConfigPath, "config", "", "Configuration file path (default: config.yaml, then environment)")
	fs.StringVar(&flags.Flavor, "flavor", "", "Flavor to reconcile: reimbursement, transfer or duplicate (empty = all)")
	fs.BoolVar(&flags.Apply, "apply", false, "Apply proposed matches (default is a dry run)")
	fs.Float64Var(&flags.MinConfidence, "min-confidence", 0, "Only apply matches at or above this confidence")
	fs.IntVar(&flags.MaxDays, "max-days", -1, "Override the flavor's date window in days")
	fs.Float64Var(&flags.Tolerance, "tolerance", -1, "Override the flavor's amount tolerance (0.05 = 5%)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return flags, err
	}
	if flags.MinConfidence < 0 || flags.MinConfidence > 1 {
		return flags, fmt.Errorf("-min-confidence must be within [0,1], got %.2f", flags.MinConfidence)
	}
	return flags, nil
}

// Flavors returns the flavors selected by -flavor
func (f ReconcileFlags) Flavors() ([]matcher.Flavor, error) {
	if f.Flavor == "" {
		return matcher.AllFlavors, nil
	}
	flavor, err := matcher.ParseFlavor(f.Flavor)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, f.Flavor)
	}
	return []matcher.Flavor{flavor}, nil
}

// Profile applies the -max-days and -tolerance overrides to cfg
func (f ReconcileFlags) Profile(cfg matcher.Config) matcher.Config {
	if f.MaxDays >= 0 {
		cfg.MaxDaysDifference = f.MaxDays
	}
	if f.Tolerance >= 0 {
		cfg.TolerancePercentage = f.Tolerance
	}
	return cfg
}
