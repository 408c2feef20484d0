package variance

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"stockledger/internal/core/apperror"
)

// Rule is a CEL boolean expression deciding whether a variance raises an NCR.
//
// Available variables (all double): variance, variance_percent, variance_amount,
// abs_variance_percent, abs_variance_amount, unit_price, period_price, quantity.
//
//	abs_variance_percent > 5.0 || abs_variance_amount > 250.0
type Rule struct {
	source  string
	program cel.Program
}

var ruleVariables = []string{
	"variance", "variance_percent", "variance_amount",
	"abs_variance_percent", "abs_variance_amount",
	"unit_price", "period_price", "quantity",
}

// CompileRule parses and type-checks expr.
func CompileRule(expr string) (*Rule, error) {
	opts := make([]cel.EnvOption, 0, len(ruleVariables))
	for _, name := range ruleVariables {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewFieldValidation("variance.rule", "is not a valid expression").
			WithDetail("error", iss.Err().Error())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewFieldValidation("variance.rule", "must evaluate to a boolean").
			WithDetail("type", ast.OutputType().String())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build cel program: %w", err)
	}
	return &Rule{source: expr, program: prg}, nil
}

// String returns the rule source.
func (r *Rule) String() string {
	return r.source
}

// Evaluate runs the rule against a computed variance.
func (r *Rule) Evaluate(res Result, in Input) (bool, error) {
	out, _, err := r.program.Eval(map[string]any{
		"variance":             res.Variance.InexactFloat64(),
		"variance_percent":     res.VariancePercent.InexactFloat64(),
		"variance_amount":      res.VarianceAmount.InexactFloat64(),
		"abs_variance_percent": res.VariancePercent.Abs().InexactFloat64(),
		"abs_variance_amount":  res.VarianceAmount.Abs().InexactFloat64(),
		"unit_price":           in.UnitPrice.InexactFloat64(),
		"period_price":         in.PeriodPrice.InexactFloat64(),
		"quantity":             in.Quantity.InexactFloat64(),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate variance rule %q: %w", r.source, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("variance rule %q returned %T", r.source, out.Value())
	}
	return b, nil
}
