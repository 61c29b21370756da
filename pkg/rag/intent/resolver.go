package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/pkg/llm"
)

// Intent is the resolved meaning of one chat message.
type Intent struct {
	Action     string  `json:"action"`
	Query      string  `json:"query"`      // retrieval text for ASK_RECOMMENDATION
	Purpose    string  `json:"purpose"`    // what the machine is for
	Budget     int     `json:"budget"`     // 0 = not stated
	Category   string  `json:"category"`   // set when the user asks about one part type
	Confidence float32 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

const (
	// ActionAskRecommendation: one-shot question about parts, answered with
	// retrieval plus generation.
	ActionAskRecommendation = "ASK_RECOMMENDATION"

	// ActionStartBuild: the user wants the guided step-by-step flow.
	ActionStartBuild = "START_BUILD"

	// ActionProvideRequirements: the user is supplying budget or purpose
	// for a session that is still collecting.
	ActionProvideRequirements = "PROVIDE_REQUIREMENTS"

	ActionClarify = "CLARIFY"
)

// Resolver classifies chat messages with the LLM, falling back to
// deterministic heuristics when the model is unavailable or returns
// garbage. Resolution never fails outright.
type Resolver struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewResolver(llmProvider llm.LLMProvider, logger *log.Logger) *Resolver {
	return &Resolver{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Resolve analyzes the message. A non-nil session means a guided build is
// in flight, which biases classification toward requirement updates.
func (r *Resolver) Resolve(ctx context.Context, message string, session *entity.BuildSession) (*Intent, error) {
	prompt := r.buildPrompt(message, session)

	response, err := r.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		r.logger.Printf("[ERROR] Intent resolution failed: %v", err)
		return r.fallbackIntent(message, session), nil
	}

	intent, err := r.parseIntent(response)
	if err != nil {
		r.logger.Printf("[WARN] Intent parsing failed, using fallback: %v", err)
		return r.fallbackIntent(message, session), nil
	}

	// The model is unreliable with large numbers; trust the regex when it
	// finds an amount in the raw text.
	if amount, ok := ParseBudget(message); ok {
		intent.Budget = amount
	}

	r.logger.Printf("[INTENT] Resolved: %s (budget=%d category=%q confidence=%.2f)",
		intent.Action, intent.Budget, intent.Category, intent.Confidence)
	return intent, nil
}

func (r *Resolver) buildPrompt(message string, session *entity.BuildSession) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are an intent analyzer for a PC-part recommendation assistant.\n")
	prompt.WriteString("You do NOT answer questions. You only classify intent.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<session_state>\n")
	switch {
	case session == nil:
		prompt.WriteString("NO_SESSION: The user has no build session.\n")
	case session.Phase == entity.PhaseCollecting:
		prompt.WriteString("COLLECTING: A build session exists but budget or purpose is still missing.\n")
	case session.Phase == entity.PhaseStepping:
		prompt.WriteString(fmt.Sprintf("STEPPING: A guided build is in progress (budget %d, spent %d).\n",
			session.Budget, session.Spent))
	default:
		prompt.WriteString("COMPLETE: The previous guided build finished.\n")
	}
	prompt.WriteString("</session_state>\n\n")

	prompt.WriteString("<user_message>\n")
	prompt.WriteString(message)
	prompt.WriteString("\n</user_message>\n\n")

	prompt.WriteString("<intent_definitions>\n")
	prompt.WriteString("Choose ONE intent:\n\n")
	prompt.WriteString("ASK_RECOMMENDATION: User asks a question about parts or wants a suggestion\n")
	prompt.WriteString("  - e.g. 'what is a good GPU for video editing', 'recommend a quiet cooler'\n")
	prompt.WriteString("  - Requires: query (search terms), category if one part type is named\n\n")
	prompt.WriteString("START_BUILD: User wants to assemble a full machine step by step\n")
	prompt.WriteString("  - e.g. 'build me a gaming PC for 1500000', 'help me pick all the parts'\n")
	prompt.WriteString("  - Requires: purpose, budget if stated\n\n")
	prompt.WriteString("PROVIDE_REQUIREMENTS: User supplies budget or purpose for the session\n")
	prompt.WriteString("  - Only valid when session_state is COLLECTING\n")
	prompt.WriteString("  - e.g. 'my budget is 2 million', 'it is for streaming'\n\n")
	prompt.WriteString("CLARIFY: Message is gibberish or unrelated to PC hardware\n")
	prompt.WriteString("</intent_definitions>\n\n")

	prompt.WriteString("<categories>\n")
	prompt.WriteString("cpu, motherboard, memory, gpu, ssd, hdd, psu, case, cooler\n")
	prompt.WriteString("</categories>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"action\": \"ASK_RECOMMENDATION|START_BUILD|PROVIDE_REQUIREMENTS|CLARIFY\",\n")
	prompt.WriteString("  \"query\": \"search terms, otherwise empty\",\n")
	prompt.WriteString("  \"purpose\": \"what the build is for, otherwise empty\",\n")
	prompt.WriteString("  \"budget\": 0,\n")
	prompt.WriteString("  \"category\": \"one category code or empty\",\n")
	prompt.WriteString("  \"confidence\": 0.95,\n")
	prompt.WriteString("  \"reasoning\": \"Brief explanation\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func (r *Resolver) parseIntent(response string) (*Intent, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var intent Intent
	if err := json.Unmarshal([]byte(jsonContent), &intent); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	intent.Action = strings.ToUpper(intent.Action)
	intent.Category = strings.ToLower(intent.Category)
	switch intent.Action {
	case ActionAskRecommendation, ActionStartBuild, ActionProvideRequirements, ActionClarify:
	default:
		return nil, fmt.Errorf("unknown action %q", intent.Action)
	}
	return &intent, nil
}

func (r *Resolver) fallbackIntent(message string, session *entity.BuildSession) *Intent {
	budget, _ := ParseBudget(message)

	if session != nil && session.Phase == entity.PhaseCollecting {
		return &Intent{
			Action:     ActionProvideRequirements,
			Purpose:    message,
			Budget:     budget,
			Confidence: 0.5,
			Reasoning:  "Fallback: session is collecting, treating message as requirements",
		}
	}

	lowered := strings.ToLower(message)
	if strings.Contains(lowered, "build") || strings.Contains(lowered, "rakit") {
		return &Intent{
			Action:     ActionStartBuild,
			Purpose:    message,
			Budget:     budget,
			Confidence: 0.5,
			Reasoning:  "Fallback: message mentions building",
		}
	}

	return &Intent{
		Action:     ActionAskRecommendation,
		Query:      message,
		Budget:     budget,
		Confidence: 0.5,
		Reasoning:  "Fallback: defaulting to recommendation lookup",
	}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}

// budgetPattern matches an amount with optional thousand separators and an
// optional scale suffix: "1500000", "1,500,000", "1.5m", "750k", "2 juta".
var budgetPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:[.,]\d{3})+|\d+(?:[.,]\d+)?)\s*(juta|jt|m|k|rb|ribu)?\b`)

var groupedDigits = regexp.MustCompile(`[.,]\d{3}(\D|$)`)

// ParseBudget extracts a monetary amount from free text. It returns the
// largest amount found, since messages often contain other small numbers
// ("a 2 fan cooler within 500k").
func ParseBudget(text string) (int, bool) {
	best := 0
	for _, match := range budgetPattern.FindAllStringSubmatch(text, -1) {
		raw, suffix := match[1], strings.ToLower(match[2])

		var amount float64
		if groupedDigits.MatchString(raw + " ") {
			// separator-grouped integer
			digits := strings.NewReplacer(",", "", ".", "").Replace(raw)
			v, err := strconv.ParseFloat(digits, 64)
			if err != nil {
				continue
			}
			amount = v
		} else {
			v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				continue
			}
			amount = v
		}

		switch suffix {
		case "juta", "jt", "m":
			amount *= 1_000_000
		case "k", "rb", "ribu":
			amount *= 1_000
		}

		value := int(amount)
		// bare small numbers ("2 fans") are not budgets
		if suffix == "" && value < 10_000 {
			continue
		}
		if value > best {
			best = value
		}
	}
	return best, best > 0
}
