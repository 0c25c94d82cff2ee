/*
aggregate.go - Derived field recomputation

PURPOSE:
  Recomputes every derived field on an ExpensePeriodRecord from its inputs:
  per-category totals, the FOT total, total expenses, and margin percent.
  Pure and total: any missing numeric field is treated as zero, nil maps are
  tolerated, and the function never fails - the dashboard must always render
  a number.

FORMULA:
  totalExpenses = sum(dynamic expense costs by category)
                + sum(FOT shares)
                + modelsExpenses + otherExpenses
                + legacy rollups ONLY while DynamicExpenses is empty
                  (avoids double counting across the migration boundary)
  marginPercent = revenue > 0 ? (revenue - totalExpenses)/revenue * 100 : 0

Every dynamic entry's cost is recomputed as count x rate on the way in;
stored cost values are never trusted.
*/
package finance

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Aggregate recomputes all derived fields in place and returns the record
// for chaining. Safe on sparse, partially populated records.
func Aggregate(record *ExpensePeriodRecord) *ExpensePeriodRecord {
	totals := make(map[CategoryID]Money)
	dynamicTotal := ZeroMoney()
	for id, e := range record.DynamicExpenses {
		e.RecomputeCost()
		record.DynamicExpenses[id] = e
		cat := e.Category
		if cat == "" {
			cat = CategoryContent
		}
		totals[cat] = totals[cat].Add(e.Cost)
		dynamicTotal = dynamicTotal.Add(e.Cost)
	}
	record.CategoryTotals = totals

	fot := ZeroMoney()
	for _, calc := range record.FOTCalculations {
		fot = fot.Add(calc.ShareForThisProject)
	}
	record.FOTTotal = fot

	total := dynamicTotal.Add(fot).Add(record.ModelsExpenses).Add(record.OtherExpenses)
	if !record.HasDynamicExpenses() {
		// Legacy-only record: the fixed rollups are still the live figures.
		total = total.Add(record.SMMExpenses).Add(record.ProductionExpenses)
	}
	record.TotalExpenses = total

	if record.Revenue.IsPositive() {
		record.MarginPercent = record.Revenue.Sub(total).Value.
			Div(record.Revenue.Value).
			Mul(hundred).
			Round(2)
	} else {
		record.MarginPercent = decimal.Zero
	}
	return record
}
