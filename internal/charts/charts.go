// Package charts renders budget summaries as PNG images.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"finbudget/internal/core"
)

// RenderSummary draws the month's plan-vs-actual bar chart. Returns nil
// bytes when there is nothing to draw.
func RenderSummary(summary core.BudgetSummary) ([]byte, error) {
	if summary.TotalIncome.IsZero() && summary.TotalPlannedExpenses.IsZero() {
		return nil, nil
	}

	income, _ := summary.TotalIncome.Float64()
	planned, _ := summary.TotalPlannedExpenses.Float64()
	actual, _ := summary.TotalActualExpenses.Float64()
	plannedSavings, _ := summary.PlannedSavings.Float64()
	actualSavings, _ := summary.ActualSavings.Float64()

	labelStyle := chart.Style{
		FontSize:  12,
		FontColor: chart.ColorBlack,
	}
	bars := []chart.Value{
		{
			Label: fmt.Sprintf("Income: %.2f", income),
			Value: income,
			Style: chart.Style{
				StrokeColor: chart.ColorGreen,
				FillColor:   chart.ColorGreen,
				FontSize:    labelStyle.FontSize,
				FontColor:   labelStyle.FontColor,
			},
		},
		{
			Label: fmt.Sprintf("Planned expenses: %.2f", planned),
			Value: planned,
			Style: chart.Style{
				StrokeColor: chart.ColorRed,
				FillColor:   chart.ColorRed.WithAlpha(100),
				FontSize:    labelStyle.FontSize,
				FontColor:   labelStyle.FontColor,
			},
		},
		{
			Label: fmt.Sprintf("Actual expenses: %.2f", actual),
			Value: actual,
			Style: chart.Style{
				StrokeColor: chart.ColorRed,
				FillColor:   chart.ColorRed,
				FontSize:    labelStyle.FontSize,
				FontColor:   labelStyle.FontColor,
			},
		},
		{
			Label: fmt.Sprintf("Planned savings: %.2f", plannedSavings),
			Value: plannedSavings,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   chart.ColorBlue.WithAlpha(100),
				FontSize:    labelStyle.FontSize,
				FontColor:   labelStyle.FontColor,
			},
		},
		{
			Label: fmt.Sprintf("Actual savings: %.2f", actualSavings),
			Value: actualSavings,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   chart.ColorBlue,
				FontSize:    labelStyle.FontSize,
				FontColor:   labelStyle.FontColor,
			},
		},
	}

	graph := chart.BarChart{
		Title: "Budget " + summary.Month,
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    1200,
		Height:   600,
		BarWidth: 80,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render summary chart: %w", err)
	}

	return buffer.Bytes(), nil
}
