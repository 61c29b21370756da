package compat

import (
	"fmt"
	"strconv"

	"pc-build-advisor-be/internal/constant"
	"pc-build-advisor-be/internal/entity"
)

// Config tunes the budget check.
type Config struct {
	// BudgetTolerance is the fraction of the total budget a candidate may
	// overshoot the remaining amount by before the warning becomes a fail.
	BudgetTolerance float64
}

func DefaultConfig() Config {
	return Config{BudgetTolerance: 0.10}
}

// Filter runs the fixed, ordered set of compatibility checks between a
// candidate and the session's current selections. It is pure evaluation:
// no I/O, no mutation.
type Filter struct {
	config Config
}

func NewFilter(config Config) *Filter {
	if config.BudgetTolerance <= 0 {
		config.BudgetTolerance = DefaultConfig().BudgetTolerance
	}
	return &Filter{config: config}
}

// Evaluate returns one verdict per applicable check. Missing data
// downgrades a check to unknown instead of blocking; catalog rows are
// frequently sparse and absence must never reject a candidate.
func (f *Filter) Evaluate(candidate entity.Component, session *entity.BuildSession) []entity.CompatibilityVerdict {
	selected := session.SelectedComponents()

	var verdicts []entity.CompatibilityVerdict
	verdicts = append(verdicts, f.socketCheck(candidate, selected)...)
	verdicts = append(verdicts, f.memoryTypeCheck(candidate, selected)...)
	verdicts = append(verdicts, f.formFactorCheck(candidate, selected)...)
	verdicts = append(verdicts, f.powerCheck(candidate, selected)...)
	verdicts = append(verdicts, f.clearanceCheck(candidate, selected)...)
	verdicts = append(verdicts, f.budgetCheck(candidate, session))
	return verdicts
}

// EvaluateAll re-runs pairwise checks across every selected component,
// used for the final whole-build verdict when a session completes.
func (f *Filter) EvaluateAll(session *entity.BuildSession) []entity.CompatibilityVerdict {
	var verdicts []entity.CompatibilityVerdict
	seen := make(map[string]bool)
	for _, step := range session.Steps {
		if step.Status != entity.StepSelected || step.Selected == nil {
			continue
		}
		partial := *session
		partial.Steps = nil
		for _, other := range session.Steps {
			if other.Category != step.Category {
				partial.Steps = append(partial.Steps, other)
			}
		}
		for _, v := range f.Evaluate(*step.Selected, &partial) {
			if v.Check == "budget" {
				continue // budget was already enforced per step
			}
			key := v.Check + "|" + v.Candidate + "|" + v.Against
			rev := v.Check + "|" + v.Against + "|" + v.Candidate
			if seen[key] || seen[rev] {
				continue
			}
			seen[key] = true
			verdicts = append(verdicts, v)
		}
	}
	return verdicts
}

// Headroom is the absolute amount a candidate may exceed the remaining
// budget by before it is rejected outright. Retrieval uses it to widen
// the price ceiling so warning-band candidates still surface.
func (f *Filter) Headroom(budget int) int {
	return int(float64(budget) * f.config.BudgetTolerance)
}

// Blocks reports whether any verdict carries fail severity.
func Blocks(verdicts []entity.CompatibilityVerdict) bool {
	for _, v := range verdicts {
		if v.Severity == entity.SeverityFail {
			return true
		}
	}
	return false
}

// socketCheck: CPU and motherboard must share a socket. Fail severity.
func (f *Filter) socketCheck(candidate entity.Component, selected map[string]*entity.Component) []entity.CompatibilityVerdict {
	var other *entity.Component
	switch candidate.Category {
	case constant.CategoryCPU:
		other = selected[constant.CategoryMotherboard]
	case constant.CategoryMotherboard:
		other = selected[constant.CategoryCPU]
	default:
		return nil
	}
	if other == nil {
		return nil
	}
	return []entity.CompatibilityVerdict{equalityVerdict(
		"socket", constant.SpecSocket, candidate, other, entity.SeverityFail,
	)}
}

// memoryTypeCheck: motherboard and RAM must agree on the memory family
// (DDR4 vs DDR5). Fail severity.
func (f *Filter) memoryTypeCheck(candidate entity.Component, selected map[string]*entity.Component) []entity.CompatibilityVerdict {
	var other *entity.Component
	switch candidate.Category {
	case constant.CategoryMemory:
		other = selected[constant.CategoryMotherboard]
	case constant.CategoryMotherboard:
		other = selected[constant.CategoryMemory]
	default:
		return nil
	}
	if other == nil {
		return nil
	}
	return []entity.CompatibilityVerdict{equalityVerdict(
		"memory_type", constant.SpecMemoryType, candidate, other, entity.SeverityFail,
	)}
}

// formFactorCheck: the case must fit the motherboard form factor.
func (f *Filter) formFactorCheck(candidate entity.Component, selected map[string]*entity.Component) []entity.CompatibilityVerdict {
	var other *entity.Component
	switch candidate.Category {
	case constant.CategoryCase:
		other = selected[constant.CategoryMotherboard]
	case constant.CategoryMotherboard:
		other = selected[constant.CategoryCase]
	default:
		return nil
	}
	if other == nil {
		return nil
	}
	return []entity.CompatibilityVerdict{equalityVerdict(
		"form_factor", constant.SpecFormFactor, candidate, other, entity.SeverityFail,
	)}
}

// powerCheck: PSU wattage against the estimated load of the selected CPU
// and GPU. Warning severity; TDP data is advisory.
func (f *Filter) powerCheck(candidate entity.Component, selected map[string]*entity.Component) []entity.CompatibilityVerdict {
	var psu *entity.Component
	parts := selected

	if candidate.Category == constant.CategoryPSU {
		psu = &candidate
	} else if candidate.Category == constant.CategoryCPU || candidate.Category == constant.CategoryGPU {
		psu = selected[constant.CategoryPSU]
		parts = map[string]*entity.Component{candidate.Category: &candidate}
		for k, v := range selected {
			if k != candidate.Category {
				parts[k] = v
			}
		}
	}
	if psu == nil {
		return nil
	}

	wattageStr, ok := psu.Spec(constant.SpecWattage)
	if !ok {
		return []entity.CompatibilityVerdict{{
			Check:     "power",
			Severity:  entity.SeverityUnknown,
			Reason:    "PSU wattage not listed",
			Candidate: candidate.Name,
			Against:   psu.Name,
		}}
	}
	wattage, err := strconv.Atoi(wattageStr)
	if err != nil {
		return []entity.CompatibilityVerdict{{
			Check:     "power",
			Severity:  entity.SeverityUnknown,
			Reason:    "PSU wattage not parseable",
			Candidate: candidate.Name,
			Against:   psu.Name,
		}}
	}

	// Rough load estimate: CPU + GPU TDP plus headroom for the rest.
	load := 100
	known := false
	for _, cat := range []string{constant.CategoryCPU, constant.CategoryGPU} {
		part := parts[cat]
		if part == nil {
			continue
		}
		if tdpStr, ok := part.Spec(constant.SpecTDP); ok {
			if tdp, err := strconv.Atoi(tdpStr); err == nil {
				load += tdp
				known = true
			}
		}
	}
	if !known {
		return []entity.CompatibilityVerdict{{
			Check:     "power",
			Severity:  entity.SeverityUnknown,
			Reason:    "no TDP data for selected parts",
			Candidate: candidate.Name,
			Against:   psu.Name,
		}}
	}

	if wattage < load {
		return []entity.CompatibilityVerdict{{
			Check:     "power",
			Severity:  entity.SeverityWarning,
			Reason:    fmt.Sprintf("PSU %dW below estimated load %dW", wattage, load),
			Candidate: candidate.Name,
			Against:   psu.Name,
		}}
	}
	return []entity.CompatibilityVerdict{{
		Check:     "power",
		Severity:  entity.SeverityPass,
		Reason:    fmt.Sprintf("PSU %dW covers estimated load %dW", wattage, load),
		Candidate: candidate.Name,
		Against:   psu.Name,
	}}
}

// clearanceCheck: GPU length against the case's clearance, when both
// dimensions exist. Warning severity, dimensional data is often missing.
func (f *Filter) clearanceCheck(candidate entity.Component, selected map[string]*entity.Component) []entity.CompatibilityVerdict {
	var gpu, pcCase *entity.Component
	switch candidate.Category {
	case constant.CategoryGPU:
		gpu, pcCase = &candidate, selected[constant.CategoryCase]
	case constant.CategoryCase:
		gpu, pcCase = selected[constant.CategoryGPU], &candidate
	default:
		return nil
	}
	if gpu == nil || pcCase == nil {
		return nil
	}

	lengthStr, okLen := gpu.Spec(constant.SpecLengthMM)
	maxStr, okMax := pcCase.Spec(constant.SpecMaxGPULength)
	if !okLen || !okMax {
		return []entity.CompatibilityVerdict{{
			Check:     "clearance",
			Severity:  entity.SeverityUnknown,
			Reason:    "dimensional data missing",
			Candidate: candidate.Name,
			Against:   otherName(candidate, gpu, pcCase),
		}}
	}

	length, err1 := strconv.Atoi(lengthStr)
	max, err2 := strconv.Atoi(maxStr)
	if err1 != nil || err2 != nil {
		return []entity.CompatibilityVerdict{{
			Check:     "clearance",
			Severity:  entity.SeverityUnknown,
			Reason:    "dimensional data not parseable",
			Candidate: candidate.Name,
			Against:   otherName(candidate, gpu, pcCase),
		}}
	}

	if length > max {
		return []entity.CompatibilityVerdict{{
			Check:     "clearance",
			Severity:  entity.SeverityWarning,
			Reason:    fmt.Sprintf("GPU length %dmm exceeds case clearance %dmm", length, max),
			Candidate: candidate.Name,
			Against:   otherName(candidate, gpu, pcCase),
		}}
	}
	return []entity.CompatibilityVerdict{{
		Check:     "clearance",
		Severity:  entity.SeverityPass,
		Reason:    fmt.Sprintf("GPU length %dmm fits case clearance %dmm", length, max),
		Candidate: candidate.Name,
		Against:   otherName(candidate, gpu, pcCase),
	}}
}

// budgetCheck: inside remaining budget passes; a small overshoot warns;
// far over fails. Unknown price is unknown, never a block.
func (f *Filter) budgetCheck(candidate entity.Component, session *entity.BuildSession) entity.CompatibilityVerdict {
	if candidate.Price == nil {
		return entity.CompatibilityVerdict{
			Check:     "budget",
			Severity:  entity.SeverityUnknown,
			Reason:    "price unknown",
			Candidate: candidate.Name,
		}
	}

	price := *candidate.Price
	remaining := session.Remaining()
	if price <= remaining {
		return entity.CompatibilityVerdict{
			Check:     "budget",
			Severity:  entity.SeverityPass,
			Reason:    fmt.Sprintf("price %d within remaining budget %d", price, remaining),
			Candidate: candidate.Name,
		}
	}

	tolerance := int(float64(session.Budget) * f.config.BudgetTolerance)
	if price-remaining <= tolerance {
		return entity.CompatibilityVerdict{
			Check:     "budget",
			Severity:  entity.SeverityWarning,
			Reason:    fmt.Sprintf("price %d exceeds remaining budget %d by %d (within tolerance)", price, remaining, price-remaining),
			Candidate: candidate.Name,
		}
	}
	return entity.CompatibilityVerdict{
		Check:     "budget",
		Severity:  entity.SeverityFail,
		Reason:    fmt.Sprintf("price %d far exceeds remaining budget %d", price, remaining),
		Candidate: candidate.Name,
	}
}

func equalityVerdict(check, specKey string, candidate entity.Component, other *entity.Component, failSeverity entity.VerdictSeverity) entity.CompatibilityVerdict {
	v := entity.CompatibilityVerdict{
		Check:     check,
		Candidate: candidate.Name,
		Against:   other.Name,
	}

	left, okLeft := candidate.Spec(specKey)
	right, okRight := other.Spec(specKey)
	if !okLeft || !okRight {
		v.Severity = entity.SeverityUnknown
		v.Reason = specKey + " not listed for both parts"
		return v
	}
	if left == right {
		v.Severity = entity.SeverityPass
		v.Reason = fmt.Sprintf("%s matches (%s)", specKey, left)
		return v
	}
	v.Severity = failSeverity
	v.Reason = fmt.Sprintf("%s mismatch: %s vs %s", specKey, left, right)
	return v
}

func otherName(candidate entity.Component, gpu, pcCase *entity.Component) string {
	if candidate.Category == constant.CategoryGPU {
		return pcCase.Name
	}
	return gpu.Name
}
