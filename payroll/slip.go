/*
Package payroll builds per-driver payroll slips on top of the fleet core.

PURPOSE:
  Given one driver's trips for a billing period plus the operator-entered
  CN deduction, computes the final net-pay figure and the line-item
  breakdown for presentation.

FORMULA:
  net = Σ(wage + basketShare - staffShare) + allowance - cnDeduction

  This is the same per-driver term the aggregation engine uses for
  remaining pay, re-derived independently here. Both computations must
  agree exactly for the same inputs; fleet_test and payroll_test pin the
  shared worked example.

CALLER CONTRACT:
  Trips must already be pre-filtered to the target driver and period; this
  package does not filter. The human-readable period label is supplied by
  the caller, not computed here.
*/
package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/fleet"
)

// SlipLine is one contributing trip on a slip.
type SlipLine struct {
	Date        fleet.Date
	Route       string
	Wage        decimal.Decimal
	BasketShare decimal.Decimal
	Advance     decimal.Decimal // staffShare drawn against this trip
}

// Slip is the rendered payroll breakdown for one driver in one period.
type Slip struct {
	DriverName  string
	PeriodLabel string
	Lines       []SlipLine

	TotalWage        decimal.Decimal
	TotalBasketShare decimal.Decimal
	TotalAdvance     decimal.Decimal
	Allowance        decimal.Decimal
	CNDeduction      decimal.Decimal

	// NetPay = TotalWage + TotalBasketShare + Allowance - TotalAdvance - CNDeduction
	NetPay decimal.Decimal
}

// BuildSlip folds the given trips into a slip. The driver name is used
// as-is (empty renders as the unspecified sentinel); cnDeduction of zero
// means no manual deduction this period.
func BuildSlip(driverName string, trips []fleet.Trip, cnDeduction decimal.Decimal, periodLabel string) Slip {
	slip := Slip{
		DriverName:       fleet.DisplayName(driverName),
		PeriodLabel:      periodLabel,
		Lines:            make([]SlipLine, 0, len(trips)),
		TotalWage:        decimal.Zero,
		TotalBasketShare: decimal.Zero,
		TotalAdvance:     decimal.Zero,
		Allowance:        fleet.PeriodAllowance,
		CNDeduction:      cnDeduction,
	}

	for _, t := range trips {
		slip.Lines = append(slip.Lines, SlipLine{
			Date:        t.Date,
			Route:       t.Route,
			Wage:        t.Wage,
			BasketShare: t.BasketShare,
			Advance:     t.StaffShare,
		})
		slip.TotalWage = slip.TotalWage.Add(t.Wage)
		slip.TotalBasketShare = slip.TotalBasketShare.Add(t.BasketShare)
		slip.TotalAdvance = slip.TotalAdvance.Add(t.StaffShare)
	}

	slip.NetPay = slip.TotalWage.
		Add(slip.TotalBasketShare).
		Add(slip.Allowance).
		Sub(slip.TotalAdvance).
		Sub(slip.CNDeduction)
	return slip
}

// GroupByDriver buckets trips by driver name, empty names under the
// unspecified sentinel. Callers feed one bucket at a time to BuildSlip.
func GroupByDriver(trips []fleet.Trip) map[string][]fleet.Trip {
	buckets := make(map[string][]fleet.Trip)
	for _, t := range trips {
		name := fleet.DisplayName(t.DriverName)
		buckets[name] = append(buckets[name], t)
	}
	return buckets
}
