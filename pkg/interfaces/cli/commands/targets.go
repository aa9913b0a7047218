package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// parseTarget reads "ID" or "ID=QTY"; a bare id asks for one unit
func parseTarget(s string) (entities.TargetRequest, error) {
	idPart, qtyPart, hasQty := strings.Cut(strings.TrimSpace(s), "=")

	id, err := strconv.Atoi(strings.TrimSpace(idPart))
	if err != nil {
		return entities.TargetRequest{}, fmt.Errorf("invalid target %q: part id must be an integer", s)
	}

	quantity := entities.Qty(1)
	if hasQty {
		quantity, err = entities.ParseQty(strings.TrimSpace(qtyPart))
		if err != nil {
			return entities.TargetRequest{}, fmt.Errorf("invalid target %q: %w", s, err)
		}
	}

	t := entities.TargetRequest{PartID: entities.PartID(id), Quantity: quantity}
	if err := t.Validate(); err != nil {
		return entities.TargetRequest{}, err
	}
	return t, nil
}

func parseTargets(values []string) ([]entities.TargetRequest, error) {
	targets := make([]entities.TargetRequest, 0, len(values))
	for _, v := range values {
		t, err := parseTarget(v)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// loadTargetsFile reads a YAML list of {part_id, quantity}
func loadTargetsFile(path string) ([]entities.TargetRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}
	var targets []entities.TargetRequest
	if err := yaml.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("failed to parse targets file %s: %w", path, err)
	}
	return targets, nil
}
