package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vsinha/ordercalc/pkg/application/dto"
	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// File names written to the output directory
const (
	OrdersCSVFile = "parts_to_order.csv"
	BuildsCSVFile = "subassemblies_to_build.csv"
	JSONFile      = "order_calculation.json"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	// Writer receives stdout output. Defaults to os.Stdout.
	Writer io.Writer
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// Generate creates output in the specified format
func Generate(result *dto.CalculationResult, config Config) error {
	switch config.Format {
	case "", "text":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	case "html":
		return generateHTMLOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(result *dto.CalculationResult, config Config) error {
	w := config.writer()

	fmt.Fprintf(w, "📊 Order Calculation Summary\n")
	fmt.Fprintf(w, "============================\n\n")
	fmt.Fprintf(w, "Targets: %d (skipped %d)\n", result.Stats.Targets, result.Stats.SkippedTargets)
	fmt.Fprintf(w, "Parts to order: %d\n", len(result.OrderLines))
	fmt.Fprintf(w, "Sub-assemblies to build: %d\n", len(result.BuildLines))
	fmt.Fprintf(w, "Duration: %v\n\n", result.Stats.Duration)

	if len(result.OrderLines) > 0 {
		fmt.Fprintf(w, "🛒 Parts to Order:\n")
		fmt.Fprintf(w, "%-8s %-32s %-10s %-10s %-10s %-10s %s\n",
			"ID", "Name", "Required", "Available", "Saldo", "To Order", "Open POs")
		fmt.Fprintf(w, "%-8s %-32s %-10s %-10s %-10s %-10s %s\n",
			"--------", "--------------------------------", "----------", "----------", "----------", "----------", "--------")
		for _, line := range result.OrderLines {
			fmt.Fprintf(w, "%-8d %-32s %-10s %-10s %-10s %-10s %s\n",
				line.PartID,
				truncate(line.Name, 32),
				qty(line.TotalRequired),
				qty(line.AvailableStock),
				qty(line.Saldo),
				qty(line.ToOrder),
				line.PurchaseOrdersSummary())
			if config.Verbose && line.UsedInAssemblies != "" {
				fmt.Fprintf(w, "%-8s used in: %s\n", "", line.UsedInAssemblies)
			}
		}
		fmt.Fprintln(w)
	}

	if len(result.BuildLines) > 0 {
		fmt.Fprintf(w, "🔧 Sub-assemblies to Build:\n")
		fmt.Fprintf(w, "%-8s %-32s %-10s %-10s %-10s %-10s %s\n",
			"ID", "Name", "Needed", "Available", "Free", "To Build", "For")
		fmt.Fprintf(w, "%-8s %-32s %-10s %-10s %-10s %-10s %s\n",
			"--------", "--------------------------------", "----------", "----------", "----------", "----------", "---")
		for _, line := range result.BuildLines {
			fmt.Fprintf(w, "%-8d %-32s %-10s %-10s %-10s %-10s %s\n",
				line.PartID,
				truncate(line.Name, 32),
				qty(line.Quantity),
				qty(line.AvailableStock),
				qty(line.Verfuegbar),
				qty(line.ToBuild),
				line.ForAssembly)
		}
		fmt.Fprintln(w)
	}

	if result.Empty() {
		fmt.Fprintf(w, "✅ Nothing to order or build.\n\n")
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "⚠️  Warnings:\n")
		for _, msg := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(result *dto.CalculationResult, config Config) error {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.writer(), string(jsonData))
		return nil
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, JSONFile)
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one file per list
func generateCSVOutput(result *dto.CalculationResult, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ordersFile := filepath.Join(config.OutputDir, OrdersCSVFile)
	if err := writeFile(ordersFile, func(w io.Writer) error { return WriteOrdersCSV(w, result.OrderLines) }); err != nil {
		return fmt.Errorf("failed to write orders CSV: %w", err)
	}
	buildsFile := filepath.Join(config.OutputDir, BuildsCSVFile)
	if err := writeFile(buildsFile, func(w io.Writer) error { return WriteBuildsCSV(w, result.BuildLines) }); err != nil {
		return fmt.Errorf("failed to write builds CSV: %w", err)
	}

	if config.Verbose {
		w := config.writer()
		fmt.Fprintf(w, "💾 CSV results saved to:\n")
		fmt.Fprintf(w, "  Parts to order: %s\n", ordersFile)
		fmt.Fprintf(w, "  Sub-assemblies: %s\n", buildsFile)
	}
	return nil
}

func writeFile(filename string, write func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PrintParts lists category parts as a table
func PrintParts(w io.Writer, parts []entities.PartSummary) {
	fmt.Fprintf(w, "%-8s %s\n", "ID", "Name")
	fmt.Fprintf(w, "%-8s %s\n", "--------", "----")
	for _, p := range parts {
		fmt.Fprintf(w, "%-8d %s\n", p.ID, p.Name)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
