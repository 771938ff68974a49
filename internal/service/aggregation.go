package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/target-setting-api/internal/models"
)

var (
	decimalHalf     = decimal.NewFromFloat(0.5)
	decimalTen      = decimal.NewFromInt(10)
	decimalThousand = decimal.NewFromInt(1000)
)

// quarterOfMonth maps fiscal months to quarters 1..4 (Apr-Jun is Q1).
var quarterOfMonth = map[string]int{
	"apr": 1, "may": 1, "jun": 1,
	"jul": 2, "aug": 2, "sep": 2,
	"oct": 3, "nov": 3, "dec": 3,
	"jan": 4, "feb": 4, "mar": 4,
}

type decimalTotals struct {
	lyQty, cyQty, lyRev, cyRev decimal.Decimal
}

func (d decimalTotals) add(v models.MonthValues) decimalTotals {
	d.lyQty = d.lyQty.Add(decimal.NewFromFloat(v.LastYearQty))
	d.cyQty = d.cyQty.Add(decimal.NewFromFloat(v.ThisYearQty))
	d.lyRev = d.lyRev.Add(decimal.NewFromFloat(v.LastYearRevenue))
	d.cyRev = d.cyRev.Add(decimal.NewFromFloat(v.ThisYearRevenue))
	return d
}

func (d decimalTotals) totals() models.Totals {
	return models.Totals{
		LastYearQty:     d.lyQty.InexactFloat64(),
		ThisYearQty:     d.cyQty.InexactFloat64(),
		LastYearRevenue: d.lyRev.InexactFloat64(),
		ThisYearRevenue: d.cyRev.InexactFloat64(),
	}
}

// AggregateMonthlyTargets sums all twelve months across commitments. Missing months count as zero.
func AggregateMonthlyTargets(commitments []models.Commitment) models.Totals {
	var acc decimalTotals
	for _, c := range commitments {
		for _, month := range models.FiscalMonths {
			acc = acc.add(c.MonthlyTargets.Month(month))
		}
	}
	return acc.totals()
}

// GrowthPercent returns the year-over-year change in percent rounded to one decimal, 0 when last is 0.
func GrowthPercent(last, this float64) float64 {
	if last == 0 {
		return 0
	}
	l := decimal.NewFromFloat(last)
	t := decimal.NewFromFloat(this)
	return roundTenths(t.Sub(l).Div(l)).InexactFloat64()
}

// roundTenths turns a ratio into a percentage with one decimal, rounding halves upward.
func roundTenths(ratio decimal.Decimal) decimal.Decimal {
	return ratio.Mul(decimalThousand).Add(decimalHalf).Floor().Div(decimalTen)
}

// GrowthOf computes quantity and revenue growth for totals.
func GrowthOf(t models.Totals) models.Growth {
	return models.Growth{
		Quantity: GrowthPercent(t.LastYearQty, t.ThisYearQty),
		Revenue:  GrowthPercent(t.LastYearRevenue, t.ThisYearRevenue),
	}
}

// QuarterlyRollup sums each category's figures per fiscal quarter, ordered by category.
func QuarterlyRollup(commitments []models.Commitment) []models.QuarterTotals {
	buckets := make(map[string]*[4]decimalTotals)
	for _, c := range commitments {
		b, ok := buckets[c.CategoryID]
		if !ok {
			b = &[4]decimalTotals{}
			buckets[c.CategoryID] = b
		}
		for _, month := range models.FiscalMonths {
			q := quarterOfMonth[month] - 1
			b[q] = b[q].add(c.MonthlyTargets.Month(month))
		}
	}

	out := make([]models.QuarterTotals, 0, len(buckets))
	for category, b := range buckets {
		out = append(out, models.QuarterTotals{
			CategoryID: category,
			Q1:         b[0].totals(),
			Q2:         b[1].totals(),
			Q3:         b[2].totals(),
			Q4:         b[3].totals(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// MonthlyTrend sums each fiscal month across commitments, in fiscal order starting with April.
func MonthlyTrend(commitments []models.Commitment) []models.MonthTrend {
	out := make([]models.MonthTrend, len(models.FiscalMonths))
	for i, month := range models.FiscalMonths {
		var acc decimalTotals
		for _, c := range commitments {
			acc = acc.add(c.MonthlyTargets.Month(month))
		}
		totals := acc.totals()
		out[i] = models.MonthTrend{Month: month, Totals: totals, Growth: GrowthOf(totals)}
	}
	return out
}

// ZoneRollup groups commitments by zone, ordered by zone code. Commitments without a zone are skipped.
// The achievement rate is the approved share of the zone's commitments as a whole percentage.
func ZoneRollup(commitments []models.Commitment) []models.ZonePerformance {
	type bucket struct {
		totals   decimalTotals
		count    int
		approved int
	}
	buckets := make(map[string]*bucket)
	for _, c := range commitments {
		if c.ZoneCode == nil || *c.ZoneCode == "" {
			continue
		}
		b, ok := buckets[*c.ZoneCode]
		if !ok {
			b = &bucket{}
			buckets[*c.ZoneCode] = b
		}
		b.count++
		if c.Status == models.CommitmentApproved {
			b.approved++
		}
		for _, month := range models.FiscalMonths {
			b.totals = b.totals.add(c.MonthlyTargets.Month(month))
		}
	}

	out := make([]models.ZonePerformance, 0, len(buckets))
	for zone, b := range buckets {
		totals := b.totals.totals()
		out = append(out, models.ZonePerformance{
			ZoneCode:        zone,
			Totals:          totals,
			Growth:          GrowthOf(totals),
			Commitments:     b.count,
			Approved:        b.approved,
			AchievementRate: int(decimal.NewFromInt(int64(b.approved * 100)).Div(decimal.NewFromInt(int64(b.count))).Round(0).IntPart()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneCode < out[j].ZoneCode })
	return out
}

// StatusCounts partitions commitments by status.
func StatusCounts(commitments []models.Commitment) models.StatusCounts {
	counts := models.StatusCounts{Total: len(commitments)}
	for _, c := range commitments {
		switch c.Status {
		case models.CommitmentNotStarted:
			counts.NotStarted++
		case models.CommitmentDraft:
			counts.Draft++
		case models.CommitmentSubmitted:
			counts.Submitted++
		case models.CommitmentApproved:
			counts.Approved++
		}
	}
	return counts
}

// CategoryPerformance reports per-category totals, growth and share of this year's revenue,
// ordered by revenue descending.
func CategoryPerformance(commitments []models.Commitment, categoryNames map[string]string) []models.CategoryPerformance {
	type bucket struct {
		totals decimalTotals
		count  int
	}
	buckets := make(map[string]*bucket)
	var grand decimal.Decimal
	for _, c := range commitments {
		b, ok := buckets[c.CategoryID]
		if !ok {
			b = &bucket{}
			buckets[c.CategoryID] = b
		}
		b.count++
		for _, month := range models.FiscalMonths {
			v := c.MonthlyTargets.Month(month)
			b.totals = b.totals.add(v)
			grand = grand.Add(decimal.NewFromFloat(v.ThisYearRevenue))
		}
	}

	out := make([]models.CategoryPerformance, 0, len(buckets))
	for category, b := range buckets {
		totals := b.totals.totals()
		var contribution float64
		if !grand.IsZero() {
			contribution = roundTenths(b.totals.cyRev.Div(grand)).InexactFloat64()
		}
		name := categoryNames[category]
		if name == "" {
			name = category
		}
		out = append(out, models.CategoryPerformance{
			CategoryID:   category,
			CategoryName: name,
			Totals:       totals,
			Growth:       GrowthOf(totals),
			Contribution: contribution,
			Commitments:  b.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Totals.ThisYearRevenue != out[j].Totals.ThisYearRevenue {
			return out[i].Totals.ThisYearRevenue > out[j].Totals.ThisYearRevenue
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}
