package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vsinha/ordercalc/pkg/application/dto"
)

// HTMLFile is the report written to the output directory
const HTMLFile = "order_calculation.html"

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Order calculation {{.RunID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; }
th { background: #f0f0f0; text-align: left; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.warn { color: #b35900; }
</style>
</head>
<body>
<h1>Order calculation</h1>
<p>Run {{.RunID}} · generated {{.GeneratedAt}} · {{.Targets}} target(s) · took {{.Duration}}</p>
<h2>Parts to order ({{len .Orders}})</h2>
{{if .Orders}}<table>
<tr><th>ID</th><th>Name</th><th>Required</th><th>Available</th><th>Saldo</th><th>To order</th><th>Used in</th><th>Open purchase orders</th></tr>
{{range .Orders}}<tr><td>{{.ID}}</td><td>{{.Name}}</td><td class="num">{{.Required}}</td><td class="num">{{.Available}}</td><td class="num">{{.Saldo}}</td><td class="num">{{.Amount}}</td><td>{{.For}}</td><td>{{.PurchaseOrders}}</td></tr>
{{end}}</table>{{else}}<p>Nothing to order.</p>{{end}}
<h2>Sub-assemblies to build ({{len .Builds}})</h2>
{{if .Builds}}<table>
<tr><th>ID</th><th>Name</th><th>Needed</th><th>Available</th><th>Free</th><th>To build</th><th>For</th></tr>
{{range .Builds}}<tr><td>{{.ID}}</td><td>{{.Name}}</td><td class="num">{{.Required}}</td><td class="num">{{.Available}}</td><td class="num">{{.Saldo}}</td><td class="num">{{.Amount}}</td><td>{{.For}}</td></tr>
{{end}}</table>{{else}}<p>Nothing to build.</p>{{end}}
{{if .Warnings}}<h2>Warnings</h2>
<ul class="warn">{{range .Warnings}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>
`))

type reportRow struct {
	ID             int
	Name           string
	Required       string
	Available      string
	Saldo          string
	Amount         string
	For            string
	PurchaseOrders string
}

type reportData struct {
	RunID       string
	GeneratedAt string
	Targets     int
	Duration    string
	Orders      []reportRow
	Builds      []reportRow
	Warnings    []string
}

// WriteHTML renders result as a standalone HTML page
func WriteHTML(w io.Writer, result *dto.CalculationResult) error {
	data := reportData{
		RunID:       result.RunID,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Targets:     result.Stats.Targets,
		Duration:    formatDuration(result.Stats.Duration),
		Orders:      make([]reportRow, 0, len(result.OrderLines)),
		Builds:      make([]reportRow, 0, len(result.BuildLines)),
		Warnings:    result.Warnings,
	}
	for _, l := range result.OrderLines {
		data.Orders = append(data.Orders, reportRow{
			ID:             int(l.PartID),
			Name:           l.Name,
			Required:       qty(l.TotalRequired),
			Available:      qty(l.AvailableStock),
			Saldo:          qty(l.Saldo),
			Amount:         qty(l.ToOrder),
			For:            l.UsedInAssemblies,
			PurchaseOrders: l.PurchaseOrdersSummary(),
		})
	}
	for _, l := range result.BuildLines {
		data.Builds = append(data.Builds, reportRow{
			ID:        int(l.PartID),
			Name:      l.Name,
			Required:  qty(l.Quantity),
			Available: qty(l.AvailableStock),
			Saldo:     qty(l.Verfuegbar),
			Amount:    qty(l.ToBuild),
			For:       l.ForAssembly,
		})
	}

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// generateHTMLOutput writes the report to the output directory, or to the
// writer when no directory is set
func generateHTMLOutput(result *dto.CalculationResult, config Config) error {
	if config.OutputDir == "" {
		return WriteHTML(config.writer(), result)
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, HTMLFile)
	if err := writeFile(filename, func(w io.Writer) error { return WriteHTML(w, result) }); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "🌐 HTML report saved to: %s\n", filename)
	}
	return nil
}

// formatDuration formats a time duration into human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
