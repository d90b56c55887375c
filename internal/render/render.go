// Package render draws weather reports for the terminal.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/weather-cli/internal/weather"
)

const barWidth = 30

// Renderer writes styled output to w. Colors are only emitted when w is a terminal.
type Renderer struct {
	w  io.Writer
	lg *lipgloss.Renderer

	title   lipgloss.Style
	muted   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	panel   lipgloss.Style
	warm    lipgloss.Style
	cold    lipgloss.Style
	errText lipgloss.Style
	okText  lipgloss.Style
}

func New(w io.Writer) *Renderer {
	lg := lipgloss.NewRenderer(w)

	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	subtle := lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}

	return &Renderer{
		w:       w,
		lg:      lg,
		title:   lg.NewStyle().Foreground(highlight).Bold(true),
		muted:   lg.NewStyle().Foreground(lipgloss.Color("240")),
		label:   lg.NewStyle().Foreground(lipgloss.Color("245")).Width(14),
		value:   lg.NewStyle().Foreground(lipgloss.Color("252")).Bold(true),
		panel:   lg.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(subtle).Padding(0, 2),
		warm:    lg.NewStyle().Foreground(lipgloss.Color("#F29F05")),
		cold:    lg.NewStyle().Foreground(lipgloss.Color("#3C8AFF")),
		errText: lg.NewStyle().Foreground(lipgloss.Color("#E05252")).Bold(true),
		okText:  lg.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}),
	}
}

// Report renders a current conditions panel or an hourly chart depending on the kind.
func (r *Renderer) Report(rep weather.WeatherReport) error {
	if len(rep.Points) == 0 {
		return fmt.Errorf("report from %s has no data points", rep.Provider)
	}
	if rep.Kind == weather.KindCurrent {
		return r.current(rep)
	}
	return r.hourly(rep)
}

func (r *Renderer) current(rep weather.WeatherReport) error {
	pt := rep.Points[0]

	rows := []string{
		r.title.Render(rep.LocationLabel),
		r.muted.Render(fmt.Sprintf("%s · %s · %s", rep.Provider, rep.Coordinates, pt.Timestamp.Format("Mon 02 Jan 15:04 MST"))),
		"",
		r.row("Temperature", fmt.Sprintf("%.1f °C", pt.TemperatureC)),
		r.row("Condition", string(pt.Condition)),
		r.row("Wind", formatWind(pt)),
		r.row("Humidity", formatOptional(pt.HumidityPct, "%.0f %%")),
		r.row("Precipitation", formatOptional(pt.PrecipitationMM, "%.1f mm")),
	}

	_, err := fmt.Fprintln(r.w, r.panel.Render(strings.Join(rows, "\n")))
	return err
}

func (r *Renderer) row(name, value string) string {
	return r.label.Render(name) + r.value.Render(value)
}

func (r *Renderer) hourly(rep weather.WeatherReport) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pt := range rep.Points {
		lo = math.Min(lo, pt.TemperatureC)
		hi = math.Max(hi, pt.TemperatureC)
	}

	day := rep.Points[0].Timestamp.Format("Monday 02 January 2006")
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n",
		r.title.Render(fmt.Sprintf("%s · %s", rep.LocationLabel, day)),
		r.muted.Render(fmt.Sprintf("%s %s · %s", rep.Provider, rep.Kind, rep.Coordinates)))

	for _, pt := range rep.Points {
		n := scale(pt.TemperatureC, lo, hi, barWidth)
		bar := strings.Repeat("█", n) + strings.Repeat(" ", barWidth-n)
		style := r.warm
		if pt.TemperatureC < 0 {
			style = r.cold
		}

		fmt.Fprintf(&b, "%s  %s %s  %s  %s\n",
			r.muted.Render(pt.Timestamp.Format("15:04")),
			style.Render(bar),
			r.value.Render(fmt.Sprintf("%6.1f °C", pt.TemperatureC)),
			fmt.Sprintf("%-7s", pt.Condition),
			r.muted.Render(formatWind(pt)))
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// scale maps v from [lo, hi] onto a bar of 1..width cells.
func scale(v, lo, hi float64, width int) int {
	if hi-lo < 1e-9 {
		return width
	}
	n := 1 + int(math.Round((v-lo)/(hi-lo)*float64(width-1)))
	if n > width {
		n = width
	}
	return n
}

func formatWind(pt weather.WeatherPoint) string {
	if pt.WindSpeedMS == nil {
		return "n/a"
	}
	s := fmt.Sprintf("%.1f m/s", *pt.WindSpeedMS)
	if pt.WindDirectionDeg != nil {
		s += " " + weather.CompassPoint(*pt.WindDirectionDeg)
	}
	return s
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

// ProviderInfo is one row of the providers table.
type ProviderInfo struct {
	Name         string                       `json:"name"`
	Capabilities weather.CapabilityDescriptor `json:"capabilities"`
	Default      bool                         `json:"default"`
}

// Providers renders the capability table.
func (r *Renderer) Providers(infos []ProviderInfo) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", r.title.Render("Providers"))

	header := fmt.Sprintf("%-12s %-30s %-10s %s", "NAME", "KINDS", "HORIZON", "HISTORY")
	fmt.Fprintln(&b, r.muted.Render(header))

	for _, info := range infos {
		c := info.Capabilities
		kinds := make([]string, len(c.Supports))
		for i, k := range c.Supports {
			kinds[i] = string(k)
		}

		history := "none"
		if c.HistoricalAllowed {
			history = "any past date"
			if !c.HistoricalSince.IsZero() {
				history = "since " + c.HistoricalSince.Format(time.DateOnly)
			}
		}

		name := fmt.Sprintf("%-12s", info.Name)
		if info.Default {
			name = r.okText.Render(name)
		}
		fmt.Fprintf(&b, "%s %-30s %-10s %s\n", name, strings.Join(kinds, ", "),
			fmt.Sprintf("%d days", int(c.MaxForecastHorizon.Hours()/24)), history)
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// Error prints a styled error headline followed by a hint.
func (r *Renderer) Error(headline, hint string) {
	fmt.Fprintln(r.w, r.errText.Render("✗ "+headline))
	if hint != "" {
		fmt.Fprintln(r.w, r.muted.Render("  "+hint))
	}
}

// Success prints a styled confirmation.
func (r *Renderer) Success(msg string) {
	fmt.Fprintln(r.w, r.okText.Render("✓ "+msg))
}
