package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/pulse/internal/runtime"
	"github.com/aretw0/pulse/pkg/expr"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate, differentiate or integrate an expression",
	Long: `Parses a symbolic expression, optionally differentiates or integrates it,
substitutes the given parameters and prints the result. When every variable
is bound the exact value is printed as well.`,
	Example: `  pulse eval "amp * sin(f * t)" --derive t
  pulse eval "a * pow(t, 2)" --integrate t -p a=3 -p t=1/2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := expr.Parse(args[0])
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("derive"); v != "" {
			if e, err = expr.Derive(e, v); err != nil {
				return err
			}
		}
		if v, _ := cmd.Flags().GetString("integrate"); v != "" {
			if e, err = expr.Integrate(e, v); err != nil {
				return err
			}
		}
		pairs, _ := cmd.Flags().GetStringArray("param")
		params, err := runtime.ParseBindings(pairs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		e = expr.SubstituteNumbers(e, params)
		fmt.Fprintf(out, "expression: %s\n", e)
		if free := expr.FreeVariables(e); len(free) > 0 {
			fmt.Fprintf(out, "free: %v\n", free)
			return nil
		}
		n, err := expr.Evaluate(e, nil)
		if err != nil {
			return err
		}
		digits, _ := cmd.Flags().GetInt("digits")
		fmt.Fprintf(out, "value: %s\n", n)
		fmt.Fprintf(out, "approx: %s\n", expr.Format(n, digits))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().String("derive", "", "Differentiate with respect to this variable")
	evalCmd.Flags().String("integrate", "", "Integrate with respect to this variable")
	evalCmd.Flags().StringArrayP("param", "p", nil, "Parameter value as name=value (repeatable)")
	evalCmd.Flags().Int("digits", 15, "Significant digits of the approximate value")
}
