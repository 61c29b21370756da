package constant

// Canonical category codes. Dump table names are normalized onto these so
// the rest of the system never sees vendor table naming.
const (
	CategoryCPU         = "cpu"
	CategoryMotherboard = "motherboard"
	CategoryMemory      = "memory"
	CategoryGPU         = "gpu"
	CategorySSD         = "ssd"
	CategoryHDD         = "hdd"
	CategoryPSU         = "psu"
	CategoryCase        = "case"
	CategoryCooler      = "cooler"
)

// TableCategory maps dump table names to canonical categories. Unknown
// tables fall through and keep their own name as the category.
var TableCategory = map[string]string{
	"cpu":           CategoryCPU,
	"processor":     CategoryCPU,
	"mainboard":     CategoryMotherboard,
	"motherboard":   CategoryMotherboard,
	"ram":           CategoryMemory,
	"memory":        CategoryMemory,
	"vga":           CategoryGPU,
	"gpu":           CategoryGPU,
	"graphics_card": CategoryGPU,
	"ssd":           CategorySSD,
	"hdd":           CategoryHDD,
	"power":         CategoryPSU,
	"psu":           CategoryPSU,
	"case":          CategoryCase,
	"chassis":       CategoryCase,
	"cooler":        CategoryCooler,
	"cooling":       CategoryCooler,
}

// BuildStepDef declares one category step of the guided flow.
type BuildStepDef struct {
	Category string
	Optional bool
}

// BuildStepOrder is the fixed category sequence for a guided build.
// Optional steps may be skipped explicitly or auto-skipped when no
// candidate survives filtering.
var BuildStepOrder = []BuildStepDef{
	{Category: CategoryCPU},
	{Category: CategoryMotherboard},
	{Category: CategoryMemory},
	{Category: CategoryGPU},
	{Category: CategorySSD},
	{Category: CategoryPSU},
	{Category: CategoryHDD, Optional: true},
	{Category: CategoryCooler, Optional: true},
	{Category: CategoryCase, Optional: true},
}

// CategoryDescription gives a canonical query text per category, used when
// a retrieval is filter-only (no free text) so pure-filter lookups still
// embed something meaningful.
var CategoryDescription = map[string]string{
	CategoryCPU:         "desktop processor for a custom PC build",
	CategoryMotherboard: "desktop motherboard compatible with modern processors",
	CategoryMemory:      "desktop RAM memory module kit",
	CategoryGPU:         "graphics card for gaming and content creation",
	CategorySSD:         "solid state drive for primary storage",
	CategoryHDD:         "hard disk drive for bulk storage",
	CategoryPSU:         "power supply unit for a desktop PC",
	CategoryCase:        "PC case tower enclosure",
	CategoryCooler:      "CPU cooler for thermal management",
}

// Spec field keys the compatibility filter reads. The ingestor normalizes
// column names to lowercase, so these match dump columns directly.
const (
	SpecSocket       = "socket"
	SpecMemoryType   = "memory_type"
	SpecFormFactor   = "form_factor"
	SpecTDP          = "tdp"
	SpecWattage      = "wattage"
	SpecLengthMM     = "length_mm"
	SpecMaxGPULength = "max_gpu_length_mm"
)
