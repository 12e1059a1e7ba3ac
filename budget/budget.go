// Package budget implements the admissibility predicate and budget law
// (CANONICAL spec §4.5): the rule linking a record's risk delta, the
// fixed risk coefficient kappa, and the budget change it must produce.
package budget

import (
	"errors"

	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
)

// ErrNegativeBudget is returned when budget_before or budget_after is
// negative, regardless of risk_delta.
var ErrNegativeBudget = errors.New("budget: negative budget")

// ErrBudgetNotConserved is returned when risk_delta <= 0 but
// budget_after != budget_before (no refund may be credited on a
// non-positive delta).
var ErrBudgetNotConserved = errors.New("budget: budget not conserved on non-positive risk delta")

// ErrInsufficientBudget is returned when risk_delta > 0 and
// budget_before is less than the UP-rounded required debit.
var ErrInsufficientBudget = errors.New("budget: insufficient budget")

// ErrBudgetNotDebited is returned when risk_delta > 0 and budget_after
// does not equal budget_before minus the required debit exactly.
var ErrBudgetNotDebited = errors.New("budget: budget not debited correctly")

// Required computes the UP-rounded debit mul(kappa, riskDelta, UP) for a
// positive risk_delta. Callers with risk_delta <= 0 never need this.
func Required(kappa, riskDelta q18.Q) (q18.Q, error) {
	return q18.Mul(kappa, riskDelta, q18.Up)
}

// Admit applies the budget law to one record's fields, in the fixed
// order the spec prescribes: the non-negativity check first, then the
// branch on the sign of riskDelta.
func Admit(riskDelta, budgetBefore, budgetAfter, kappa q18.Q) error {
	if budgetBefore < 0 || budgetAfter < 0 {
		return ErrNegativeBudget
	}

	if riskDelta <= 0 {
		if budgetAfter != budgetBefore {
			return ErrBudgetNotConserved
		}
		return nil
	}

	required, err := Required(kappa, riskDelta)
	if err != nil {
		return err
	}
	if budgetBefore < required {
		return ErrInsufficientBudget
	}
	want, err := q18.Sub(budgetBefore, required)
	if err != nil {
		return err
	}
	if budgetAfter != want {
		return ErrBudgetNotDebited
	}
	return nil
}
