package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/ordercalc/pkg/application/dto"
	"github.com/vsinha/ordercalc/pkg/application/services/calculation"
	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/domain/repositories"
	"github.com/vsinha/ordercalc/pkg/infrastructure/repositories/csv"
	testhelpers "github.com/vsinha/ordercalc/pkg/infrastructure/testing"
)

const snapshot = "testdata/robot"

// execute runs the CLI against the robot snapshot with an isolated
// selection store
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ORDERCALC_SELECTIONS_PATH", filepath.Join(t.TempDir(), "selections.yaml"))
	return executeShared(t, args...)
}

func executeShared(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeResult(t *testing.T, out string) *dto.CalculationResult {
	t.Helper()
	var result dto.CalculationResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	return &result
}

func orderFor(result *dto.CalculationResult, id entities.PartID) *entities.OrderLine {
	for i := range result.OrderLines {
		if result.OrderLines[i].PartID == id {
			return &result.OrderLines[i]
		}
	}
	return nil
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    entities.TargetRequest
		wantErr bool
	}{
		{in: "12=3", want: entities.TargetRequest{PartID: 12, Quantity: entities.Qty(3)}},
		{in: " 12 = 2.5 ", want: entities.TargetRequest{PartID: 12, Quantity: entities.QtyFromFloat(2.5)}},
		{in: "7", want: entities.TargetRequest{PartID: 7, Quantity: entities.Qty(1)}},
		{in: "abc=1", wantErr: true},
		{in: "12=x", wantErr: true},
		{in: "12=0", wantErr: true},
		{in: "0=1", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTarget(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.PartID, got.PartID)
			assert.True(t, tt.want.Quantity.Equal(got.Quantity), "got %s", got.Quantity)
		})
	}
}

func TestLoadTargetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- part_id: 1\n  quantity: 4\n- part_id: 6\n  quantity: \"1.5\"\n"), 0o644))

	targets, err := loadTargetsFile(path)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, entities.PartID(6), targets[1].PartID)
	assert.Equal(t, "1.5", targets[1].Quantity.String())

	_, err = loadTargetsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCalculateCommand_JSON(t *testing.T) {
	out, err := execute(t, "--snapshot", snapshot, "calculate", "-t", "1=10", "--format", "json")
	require.NoError(t, err)

	result := decodeResult(t, out)
	require.Len(t, result.BuildLines, 1)
	assert.Equal(t, "13", result.BuildLines[0].ToBuild.String())

	names := make([]string, 0, len(result.OrderLines))
	for _, l := range result.OrderLines {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"Grease", "Motor", "Screw M3"}, names)

	screw := orderFor(result, 3)
	require.NotNil(t, screw)
	assert.Equal(t, "39", screw.ToOrder.String())
	assert.Equal(t, "PO-0042 (Placed): 25", screw.PurchaseOrdersSummary())
	assert.Equal(t, "3", orderFor(result, 4).ToOrder.String())
}

func TestCalculateCommand_FlagOverrides(t *testing.T) {
	out, err := execute(t, "--snapshot", snapshot, "calculate", "-t", "1=10", "-f", "json",
		"--include-consumables=false", "--exclude-supplier", "Würth Elektronik")
	require.NoError(t, err)

	result := decodeResult(t, out)
	require.Len(t, result.OrderLines, 1)
	assert.Equal(t, "Motor", result.OrderLines[0].Name)
}

func TestCalculateCommand_Text(t *testing.T) {
	out, err := execute(t, "--snapshot", snapshot, "calculate", "-t", "1=10", "-t", "6=1")
	require.NoError(t, err)
	assert.Contains(t, out, "Targets: 2")
	assert.Contains(t, out, "Parts to order: 3")
	assert.Contains(t, out, "Screw M3")
}

func TestCalculateCommand_CSV(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--snapshot", snapshot, "calculate", "-t", "1=10", "-f", "csv", "-o", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "parts_to_order.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "3,Screw M3,39,0,0,39,Robot,PO-0042 (Placed): 25")
}

func TestCalculateCommand_Errors(t *testing.T) {
	_, err := execute(t, "--snapshot", snapshot, "calculate")
	assert.ErrorContains(t, err, "no targets")

	_, err = execute(t, "--snapshot", snapshot, "calculate", "-t", "x")
	assert.Error(t, err)

	_, err = execute(t, "--snapshot", snapshot, "calculate", "--selection", "missing")
	assert.Error(t, err)

	_, err = execute(t, "--snapshot", filepath.Join(t.TempDir(), "nowhere"), "calculate", "-t", "1")
	assert.ErrorContains(t, err, "failed to load snapshot")

	_, err = execute(t, "--source", "ftp", "calculate", "-t", "1")
	assert.ErrorContains(t, err, "configuration error")
}

func TestSelectionsCommands(t *testing.T) {
	t.Setenv("ORDERCALC_SELECTIONS_PATH", filepath.Join(t.TempDir(), "selections.yaml"))

	out, err := executeShared(t, "--snapshot", snapshot, "selections", "save", "spring", "-t", "1=10")
	require.NoError(t, err)
	assert.Contains(t, out, `Saved selection "spring" with 1 target(s)`)

	_, err = executeShared(t, "--snapshot", snapshot, "calculate", "-t", "6=2", "--save-as", "grippers", "-f", "json")
	require.NoError(t, err)

	out, err = executeShared(t, "--snapshot", snapshot, "selections", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "spring")
	assert.Contains(t, out, "grippers")

	out, err = executeShared(t, "--snapshot", snapshot, "selections", "show", "spring")
	require.NoError(t, err)
	assert.Contains(t, out, "1=10")

	out, err = executeShared(t, "--snapshot", snapshot, "calculate", "--selection", "spring", "-f", "json")
	require.NoError(t, err)
	assert.Equal(t, "39", orderFor(decodeResult(t, out), 3).ToOrder.String())

	_, err = executeShared(t, "--snapshot", snapshot, "selections", "delete", "spring")
	require.NoError(t, err)
	_, err = executeShared(t, "--snapshot", snapshot, "selections", "delete", "spring")
	assert.ErrorContains(t, err, "no selection named")

	out, err = executeShared(t, "--snapshot", snapshot, "selections", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "spring")
}

func TestPartsCommand(t *testing.T) {
	out, err := execute(t, "--snapshot", snapshot, "parts")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "Gripper")
	assert.Contains(t, lines[3], "Robot")

	out, err = execute(t, "--snapshot", snapshot, "parts", "191", "--json")
	require.NoError(t, err)
	var parts []entities.PartSummary
	require.NoError(t, json.Unmarshal([]byte(out), &parts))
	assert.Len(t, parts, 2)

	_, err = execute(t, "--snapshot", snapshot, "parts", "abc")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "--snapshot", snapshot, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "BOM is consistent")

	dir := t.TempDir()
	parts, err := os.ReadFile(filepath.Join(snapshot, "parts.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parts.csv"), parts, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bom.csv"),
		[]byte("parent,sub_part,quantity,allow_variants,consumable\n1,2,1,,\n2,1,1,,\n2,42,1,,\n"), 0o644))

	out, err = execute(t, "--snapshot", dir, "validate")
	assert.ErrorContains(t, err, "BOM problem")
	assert.Contains(t, out, "cycle")
	assert.Contains(t, out, "unknown parts")
}

func TestSnapshotMatchesRobotFixture(t *testing.T) {
	loaded, err := csv.NewLoader().LoadGateway(snapshot)
	require.NoError(t, err)

	targets := []entities.TargetRequest{
		{PartID: testhelpers.RobotID, Quantity: entities.Qty(10)},
		{PartID: testhelpers.GripperID, Quantity: entities.Qty(2)},
	}
	run := func(gw repositories.InventoryGateway) (string, string) {
		result, err := calculation.NewCalculator(gw, nil, nil).Calculate(context.Background(), targets, calculation.DefaultOptions())
		require.NoError(t, err)
		orders, err := json.Marshal(result.OrderLines)
		require.NoError(t, err)
		builds, err := json.Marshal(result.BuildLines)
		require.NoError(t, err)
		return string(orders), string(builds)
	}

	wantOrders, wantBuilds := run(testhelpers.BuildRobotScenario())
	gotOrders, gotBuilds := run(loaded)
	assert.JSONEq(t, wantOrders, gotOrders)
	assert.JSONEq(t, wantBuilds, gotBuilds)
}
