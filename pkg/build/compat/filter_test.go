package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pc-build-advisor-be/internal/constant"
	"pc-build-advisor-be/internal/entity"
)

func intPtr(v int) *int { return &v }

func sessionWith(budget, spent int, parts ...entity.Component) *entity.BuildSession {
	session := &entity.BuildSession{
		Budget: budget,
		Spent:  spent,
		Phase:  entity.PhaseStepping,
	}
	for _, def := range constant.BuildStepOrder {
		step := entity.BuildStep{Category: def.Category, Optional: def.Optional, Status: entity.StepPending}
		for i := range parts {
			if parts[i].Category == def.Category {
				p := parts[i]
				step.Status = entity.StepSelected
				step.Selected = &p
			}
		}
		session.Steps = append(session.Steps, step)
	}
	return session
}

func findVerdict(t *testing.T, verdicts []entity.CompatibilityVerdict, check string) entity.CompatibilityVerdict {
	t.Helper()
	for _, v := range verdicts {
		if v.Check == check {
			return v
		}
	}
	require.Failf(t, "verdict missing", "no %q verdict in %+v", check, verdicts)
	return entity.CompatibilityVerdict{}
}

func TestEvaluate_SocketMismatchFails(t *testing.T) {
	filter := NewFilter(DefaultConfig())
	cpu := entity.Component{
		Category: constant.CategoryCPU, Name: "Ryzen 5 7600",
		Price: intPtr(300000),
		Specs: map[string]string{constant.SpecSocket: "AM5"},
	}
	board := entity.Component{
		Category: constant.CategoryMotherboard, Name: "B760M Gaming",
		Price: intPtr(150000),
		Specs: map[string]string{constant.SpecSocket: "LGA1700"},
	}

	verdicts := filter.Evaluate(board, sessionWith(1000000, 300000, cpu))

	socket := findVerdict(t, verdicts, "socket")
	assert.Equal(t, entity.SeverityFail, socket.Severity)
	assert.Contains(t, socket.Reason, "mismatch")
	assert.True(t, Blocks(verdicts))
}

func TestEvaluate_SocketMatchPasses(t *testing.T) {
	filter := NewFilter(DefaultConfig())
	cpu := entity.Component{
		Category: constant.CategoryCPU, Name: "Ryzen 5 7600",
		Specs: map[string]string{constant.SpecSocket: "AM5"},
	}
	board := entity.Component{
		Category: constant.CategoryMotherboard, Name: "B650M Pro",
		Price: intPtr(150000),
		Specs: map[string]string{constant.SpecSocket: "AM5"},
	}

	verdicts := filter.Evaluate(board, sessionWith(1000000, 300000, cpu))

	assert.Equal(t, entity.SeverityPass, findVerdict(t, verdicts, "socket").Severity)
	assert.False(t, Blocks(verdicts))
}

func TestEvaluate_MissingSocketIsUnknownNotFail(t *testing.T) {
	filter := NewFilter(DefaultConfig())
	cpu := entity.Component{
		Category: constant.CategoryCPU, Name: "Mystery CPU",
		Specs: map[string]string{},
	}
	board := entity.Component{
		Category: constant.CategoryMotherboard, Name: "B650M Pro",
		Price: intPtr(150000),
		Specs: map[string]string{constant.SpecSocket: "AM5"},
	}

	verdicts := filter.Evaluate(board, sessionWith(1000000, 0, cpu))

	assert.Equal(t, entity.SeverityUnknown, findVerdict(t, verdicts, "socket").Severity)
	assert.False(t, Blocks(verdicts))
}

func TestEvaluate_MemoryTypeMismatchFails(t *testing.T) {
	filter := NewFilter(DefaultConfig())
	board := entity.Component{
		Category: constant.CategoryMotherboard, Name: "B650M Pro",
		Specs: map[string]string{constant.SpecMemoryType: "DDR5"},
	}
	ram := entity.Component{
		Category: constant.CategoryMemory, Name: "Vengeance DDR4",
		Price: intPtr(60000),
		Specs: map[string]string{constant.SpecMemoryType: "DDR4"},
	}

	verdicts := filter.Evaluate(ram, sessionWith(1000000, 200000, board))

	assert.Equal(t, entity.SeverityFail, findVerdict(t, verdicts, "memory_type").Severity)
}

func TestEvaluate_PowerShortfallWarns(t *testing.T) {
	filter := NewFilter(DefaultConfig())
	cpu := entity.Component{
		Category: constant.CategoryCPU, Name: "Ryzen 9 7950X",
		Specs: map[string]string{constant.SpecTDP: "170"},
	}
	gpu := entity.Component{
		Category: constant.CategoryGPU, Name: "RTX 4080",
		Specs: map[string]string{constant.SpecTDP: "320"},
	}
	psu := entity.Component{
		Category: constant.CategoryPSU, Name: "Weak 450W",
		Price: intPtr(50000),
		Specs: map[string]string{constant.SpecWattage: "450"},
	}

	verdicts := filter.Evaluate(psu, sessionWith(2000000, 800000, cpu, gpu))

	power := findVerdict(t, verdicts, "power")
	assert.Equal(t, entity.SeverityWarning, power.Severity)
	assert.False(t, Blocks(verdicts), "power shortfall warns, never blocks")
}

func TestEvaluate_PowerSufficientPasses(t *testing.T) {
	filter := NewFilter(DefaultConfig())
	cpu := entity.Component{
		Category: constant.CategoryCPU, Name: "Ryzen 5 7600",
		Specs: map[string]string{constant.SpecTDP: "65"},
	}
	psu := entity.Component{
		Category: constant.CategoryPSU, Name: "Solid 650W",
		Price: intPtr(80000),
		Specs: map[string]string{constant.SpecWattage: "650"},
	}

	verdicts := filter.Evaluate(psu, sessionWith(1000000, 300000, cpu))

	assert.Equal(t, entity.SeverityPass, findVerdict(t, verdicts, "power").Severity)
}

func TestEvaluate_GPUClearanceWarns(t *testing.T) {
	filter := NewFilter(DefaultConfig())
	pcCase := entity.Component{
		Category: constant.CategoryCase, Name: "Compact ITX",
		Specs: map[string]string{constant.SpecMaxGPULength: "280"},
	}
	gpu := entity.Component{
		Category: constant.CategoryGPU, Name: "RTX 4080 Triple Fan",
		Price: intPtr(900000),
		Specs: map[string]string{constant.SpecLengthMM: "336"},
	}

	verdicts := filter.Evaluate(gpu, sessionWith(3000000, 500000, pcCase))

	clearance := findVerdict(t, verdicts, "clearance")
	assert.Equal(t, entity.SeverityWarning, clearance.Severity)
	assert.Contains(t, clearance.Reason, "exceeds")
}

func TestEvaluate_BudgetBands(t *testing.T) {
	filter := NewFilter(Config{BudgetTolerance: 0.10})
	session := sessionWith(1000000, 300000) // remaining 700000, tolerance 100000

	tests := []struct {
		name     string
		price    *int
		expected entity.VerdictSeverity
	}{
		{"within remaining", intPtr(650000), entity.SeverityPass},
		{"exactly remaining", intPtr(700000), entity.SeverityPass},
		{"inside tolerance", intPtr(780000), entity.SeverityWarning},
		{"at tolerance edge", intPtr(800000), entity.SeverityWarning},
		{"beyond tolerance", intPtr(800001), entity.SeverityFail},
		{"unknown price", nil, entity.SeverityUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			candidate := entity.Component{
				Category: constant.CategoryGPU, Name: "Some GPU",
				Price: tc.price,
				Specs: map[string]string{},
			}
			verdicts := filter.Evaluate(candidate, session)
			assert.Equal(t, tc.expected, findVerdict(t, verdicts, "budget").Severity)
		})
	}
}

func TestEvaluateAll_FinalReviewFindsMismatch(t *testing.T) {
	filter := NewFilter(DefaultConfig())
	cpu := entity.Component{
		Category: constant.CategoryCPU, Name: "i5-13400F",
		Price: intPtr(250000),
		Specs: map[string]string{constant.SpecSocket: "LGA1700"},
	}
	board := entity.Component{
		Category: constant.CategoryMotherboard, Name: "B650M Pro",
		Price: intPtr(180000),
		Specs: map[string]string{constant.SpecSocket: "AM5"},
	}
	session := sessionWith(1000000, 430000, cpu, board)

	verdicts := filter.EvaluateAll(session)

	socket := findVerdict(t, verdicts, "socket")
	assert.Equal(t, entity.SeverityFail, socket.Severity)
	for _, v := range verdicts {
		assert.NotEqual(t, "budget", v.Check, "final review skips per-step budget checks")
	}
	// each pair reported once, not once per direction
	count := 0
	for _, v := range verdicts {
		if v.Check == "socket" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
