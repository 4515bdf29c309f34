package sholl

import (
	"fmt"
	"strings"
)

// CenterPolicy chooses which primary paths contribute their root node to
// the profile center.
type CenterPolicy int

const (
	// PrimaryNodesAny averages the roots of all primary paths.
	PrimaryNodesAny CenterPolicy = iota
	PrimaryNodesApicalDendrite
	PrimaryNodesAxon
	PrimaryNodesCustom
	PrimaryNodesDendrite
	PrimaryNodesSoma
	PrimaryNodesUndefined
)

var policyNames = map[CenterPolicy]string{
	PrimaryNodesAny:            "any",
	PrimaryNodesApicalDendrite: "apical-dendrite",
	PrimaryNodesAxon:           "axon",
	PrimaryNodesCustom:         "custom",
	PrimaryNodesDendrite:       "dendrite",
	PrimaryNodesSoma:           "soma",
	PrimaryNodesUndefined:      "undefined",
}

// String returns the flag name of c.
func (c CenterPolicy) String() string {
	if s, ok := policyNames[c]; ok {
		return s
	}
	return fmt.Sprintf("CenterPolicy(%d)", int(c))
}

// ParseCenterPolicy maps a flag name such as "soma" to its policy.
func ParseCenterPolicy(s string) (CenterPolicy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "_", "-")
	for c, n := range policyNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownPolicy)
}

// swcType returns the path tag a policy filters on; ok is false for "any".
func (c CenterPolicy) swcType() (t SWCType, ok bool, err error) {
	switch c {
	case PrimaryNodesAny:
		return 0, false, nil
	case PrimaryNodesApicalDendrite:
		return SWCApicalDendrite, true, nil
	case PrimaryNodesAxon:
		return SWCAxon, true, nil
	case PrimaryNodesCustom:
		return SWCCustom, true, nil
	case PrimaryNodesDendrite:
		return SWCDendrite, true, nil
	case PrimaryNodesSoma:
		return SWCSoma, true, nil
	case PrimaryNodesUndefined:
		return SWCUndefined, true, nil
	}
	return 0, false, fmt.Errorf("%v: %w", c, ErrUnknownPolicy)
}

// SelectCenter averages the first node of every primary path of s that
// matches policy. Under PrimaryNodesAny a structure without primary paths
// falls back to the first node of its first path.
func SelectCenter(s Structure, policy CenterPolicy) (Point3D, error) {
	if isEmpty(s) {
		return Point3D{}, fmt.Errorf("structure is empty: %w", ErrInvalidState)
	}
	want, filtered, err := policy.swcType()
	if err != nil {
		return Point3D{}, err
	}

	paths := s.TracedPaths()
	var roots []Point3D
	for _, p := range paths {
		if !p.Primary || len(p.Nodes) == 0 {
			continue
		}
		if filtered && p.Type != want {
			continue
		}
		roots = append(roots, p.Nodes[0])
	}
	if len(roots) > 0 {
		return AveragePoint(roots), nil
	}

	if !filtered {
		for _, p := range paths {
			if len(p.Nodes) > 0 {
				diagf("no primary paths; center falls back to first node of first path")
				return p.Nodes[0], nil
			}
		}
	}
	return Point3D{}, fmt.Errorf("policy %v: %w", policy, ErrInvalidSelection)
}
