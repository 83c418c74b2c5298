// Command phonodielec runs the effective-medium frequency scan for a
// phonon dataset and a scenario configuration, both supplied as YAML
// files, and prints the per-frequency results as an aligned table.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/materialsim/phonodielec/scan"
)

var (
	dataPath   string
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "phonodielec",
	Short: "Effective-medium dielectric response from phonon data",
	Long: `phonodielec computes the frequency-dependent effective permittivity,
refractive index and absorption of a composite (host matrix plus
dispersed crystal inclusions) from first-principles phonon data.

The phonon dataset (masses, frequencies, mass-weighted normal modes,
Born charges, optional epsilon-infinity) and the scan configuration
(shapes, volume fractions, homogenisation methods, frequency grid) are
YAML files; see the scan package for the schema.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&dataPath, "data", "d", "", "phonon dataset YAML file (required)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "scan configuration YAML file (required)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	_ = rootCmd.MarkFlagRequired("data")
	_ = rootCmd.MarkFlagRequired("config")
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ds, err := scan.LoadDataset(dataPath)
	if err != nil {
		return err
	}
	cfg, err := scan.LoadConfig(configPath)
	if err != nil {
		return err
	}

	runner := scan.NewRunner(logger)

	if los, err := runner.LongitudinalModes(ds, cfg); err != nil {
		return err
	} else if len(los) > 0 {
		printLongitudinal(cmd, los)
	}

	results, err := runner.Run(cmd.Context(), ds, cfg)
	if err != nil {
		return err
	}
	for _, res := range results {
		printScenario(cmd, res)
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func printLongitudinal(cmd *cobra.Command, los []scan.LOResult) {
	for _, lo := range los {
		fmt.Fprintf(cmd.OutOrStdout(), "LO frequencies (cm-1) for q = [%g %g %g]:\n",
			lo.Direction[0], lo.Direction[1], lo.Direction[2])
		for _, f := range lo.Frequencies {
			fmt.Fprintf(cmd.OutOrStdout(), "  %10.2f\n", f)
		}
	}
}

func printScenario(cmd *cobra.Command, res scan.ScenarioResult) {
	sc := res.Scenario
	fmt.Fprintf(cmd.OutOrStdout(), "\nmethod=%s shape=%s vf=%g\n", res.Method, res.Shape, sc.VolumeFraction)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "freq/cm-1\tRe(eps)\tIm(eps)\tn\tk\tabs/cm-1\tmolar abs\t")
	for _, p := range res.Points {
		if p.Err != nil {
			fmt.Fprintf(w, "%.2f\tfailed: %v\t\t\t\t\t\t\n", p.Frequency, p.Err)
			continue
		}
		flag := ""
		if !p.Converged {
			flag = "*"
		}
		fmt.Fprintf(w, "%.2f\t%.6f\t%.6f\t%.6f\t%.6f\t%.4f\t%.4f%s\t\n",
			p.Frequency,
			real(p.Trace), imag(p.Trace),
			real(p.RefractiveIndex), imag(p.RefractiveIndex),
			p.Absorption, p.MolarAbsorption, flag)
	}
	w.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
