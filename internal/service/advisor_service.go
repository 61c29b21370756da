package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"pc-build-advisor-be/internal/dto"
	"pc-build-advisor-be/internal/entity"
	"pc-build-advisor-be/pkg/build/session"
	"pc-build-advisor-be/pkg/document"
	"pc-build-advisor-be/pkg/rag/generator"
	"pc-build-advisor-be/pkg/rag/intent"
	"pc-build-advisor-be/pkg/rag/retriever"
)

type IAdvisorService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	GetSession(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	SelectComponent(ctx context.Context, id uuid.UUID, req *dto.SelectComponentRequest) (*dto.SelectComponentResponse, error)
	SkipStep(ctx context.Context, id uuid.UUID) (*dto.SkipStepResponse, error)
}

type advisorService struct {
	resolver  *intent.Resolver
	retriever *retriever.Retriever
	generator *generator.Generator
	manager   *session.Manager
	logger    *log.Logger
}

func NewAdvisorService(
	resolver *intent.Resolver,
	ret *retriever.Retriever,
	gen *generator.Generator,
	manager *session.Manager,
	logger *log.Logger,
) IAdvisorService {
	return &advisorService{
		resolver:  resolver,
		retriever: ret,
		generator: gen,
		manager:   manager,
		logger:    logger,
	}
}

func (s *advisorService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	var sess *entity.BuildSession
	if req.SessionId != "" {
		id, err := uuid.Parse(req.SessionId)
		if err != nil {
			return nil, fmt.Errorf("invalid session id: %w", err)
		}
		sess, err = s.manager.Get(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	resolved, err := s.resolver.Resolve(ctx, req.Message, sess)
	if err != nil {
		return nil, err
	}

	switch resolved.Action {
	case intent.ActionStartBuild:
		return s.chatStartBuild(ctx, resolved)
	case intent.ActionProvideRequirements:
		if sess == nil {
			return s.chatStartBuild(ctx, resolved)
		}
		return s.chatProvideRequirements(ctx, sess.Id, resolved)
	case intent.ActionClarify:
		return &dto.ChatResponse{
			Analysis: "I can help with PC parts and full builds. Tell me what you want to build or ask about a specific component.",
		}, nil
	default:
		return s.chatRecommend(ctx, resolved)
	}
}

// chatRecommend is the one-shot Q&A path: retrieve, then generate a
// grounded answer over the hits.
func (s *advisorService) chatRecommend(ctx context.Context, resolved *intent.Intent) (*dto.ChatResponse, error) {
	query := retriever.Query{
		Text:     resolved.Query,
		Category: resolved.Category,
	}
	if resolved.Budget > 0 {
		query.MaxPrice = &resolved.Budget
	}

	results, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &dto.ChatResponse{
			Analysis: "I could not find anything matching that in the catalog. Try different wording or a wider budget.",
		}, nil
	}

	rec, err := s.generator.Generate(ctx, resolved.Query, results, nil)
	if err != nil {
		return nil, err
	}

	return &dto.ChatResponse{
		Analysis:   rec.Analysis,
		Components: toRecommendedViews(rec.Components),
	}, nil
}

func (s *advisorService) chatStartBuild(ctx context.Context, resolved *intent.Intent) (*dto.ChatResponse, error) {
	sess, err := s.manager.Start(ctx, resolved.Purpose, resolved.Budget, nil)
	if err != nil {
		return nil, err
	}

	if sess.Phase == entity.PhaseCollecting {
		return &dto.ChatResponse{
			Analysis:  "Happy to help with a build. What budget are you working with?",
			SessionId: &sess.Id,
		}, nil
	}

	step, err := s.stepView(ctx, sess.Id)
	if err != nil {
		return nil, err
	}
	return &dto.ChatResponse{
		Analysis:  fmt.Sprintf("Let's build it step by step, starting with the %s.", step.Category),
		SessionId: &sess.Id,
		Step:      step,
		IsFinal:   step.Category == "",
	}, nil
}

func (s *advisorService) chatProvideRequirements(ctx context.Context, id uuid.UUID, resolved *intent.Intent) (*dto.ChatResponse, error) {
	if resolved.Budget <= 0 {
		return &dto.ChatResponse{
			Analysis:  "I still need a budget number to plan the build.",
			SessionId: &id,
		}, nil
	}

	sess, err := s.manager.SetRequirements(ctx, id, resolved.Purpose, resolved.Budget)
	if err != nil {
		return nil, err
	}

	step, err := s.stepView(ctx, sess.Id)
	if err != nil {
		return nil, err
	}
	return &dto.ChatResponse{
		Analysis:  fmt.Sprintf("Budget noted. First up: the %s.", step.Category),
		SessionId: &sess.Id,
		Step:      step,
		IsFinal:   step.Category == "",
	}, nil
}

func (s *advisorService) StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	sess, err := s.manager.Start(ctx, req.Purpose, req.Budget, req.Preferences)
	if err != nil {
		return nil, err
	}

	step, err := s.stepView(ctx, sess.Id)
	if err != nil {
		return nil, err
	}
	return &dto.StartSessionResponse{
		SessionId: sess.Id,
		Phase:     string(sess.Phase),
		Budget:    sess.Budget,
		Step:      step,
	}, nil
}

func (s *advisorService) GetSession(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := toSessionResponse(sess)
	if sess.Phase == entity.PhaseComplete {
		summary, err := s.manager.Summarize(ctx, id)
		if err != nil {
			return nil, err
		}
		res.Verdicts = toVerdictViews(summary.Verdicts)
	}
	return &res, nil
}

func (s *advisorService) SelectComponent(ctx context.Context, id uuid.UUID, req *dto.SelectComponentRequest) (*dto.SelectComponentResponse, error) {
	sess, verdicts, err := s.manager.Select(ctx, id, req.ComponentId)
	if err != nil {
		return nil, err
	}

	res := &dto.SelectComponentResponse{
		Session:  toSessionResponse(sess),
		Verdicts: toVerdictViews(verdicts),
	}
	if sess.Phase == entity.PhaseComplete {
		res.IsFinal = true
		return res, nil
	}

	step, err := s.stepView(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Step = step
	res.IsFinal = step.Category == ""
	if res.IsFinal {
		// candidate walk completed the remaining optional steps
		sess, err = s.manager.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		res.Session = toSessionResponse(sess)
	}
	return res, nil
}

func (s *advisorService) SkipStep(ctx context.Context, id uuid.UUID) (*dto.SkipStepResponse, error) {
	sess, err := s.manager.Skip(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &dto.SkipStepResponse{Session: toSessionResponse(sess)}
	if sess.Phase == entity.PhaseComplete {
		res.IsFinal = true
		return res, nil
	}

	step, err := s.stepView(ctx, id)
	if err != nil {
		return nil, err
	}
	res.Step = step
	res.IsFinal = step.Category == ""
	return res, nil
}

// stepView fetches the current step's candidates and decorates them with a
// best-effort generated commentary. A Category of "" means the walk just
// completed the session.
func (s *advisorService) stepView(ctx context.Context, id uuid.UUID) (*dto.StepView, error) {
	view, err := s.manager.Candidates(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &dto.StepView{
		Category:    view.Category,
		Optional:    view.Optional,
		Index:       view.Index,
		Total:       view.Total,
		Candidates:  make([]dto.CandidateView, len(view.Candidates)),
		AutoSkipped: view.AutoSkipped,
	}
	for i, c := range view.Candidates {
		res.Candidates[i] = dto.CandidateView{
			Id:       c.Component.Id,
			Category: c.Component.Category,
			Name:     c.Component.Name,
			Price:    c.Component.Price,
			Specs:    c.Component.Specs,
			Score:    c.Score,
			Verdicts: toVerdictViews(c.Verdicts),
		}
	}

	if view.Category != "" && len(view.Candidates) > 0 {
		res.Analysis = s.stepAnalysis(ctx, id, view)
	}
	return res, nil
}

// stepAnalysis asks the generator to comment on the step's options. The
// commentary is decoration: any failure degrades to no analysis rather
// than failing the step.
func (s *advisorService) stepAnalysis(ctx context.Context, id uuid.UUID, view *session.StepView) string {
	sess, err := s.manager.Get(ctx, id)
	if err != nil {
		return ""
	}

	results := make([]retriever.Result, len(view.Candidates))
	for i, c := range view.Candidates {
		results[i] = retriever.Result{
			Document: document.Build(c.Component),
			Score:    c.Score,
			Rank:     i + 1,
		}
	}

	query := fmt.Sprintf("Which %s fits best for %s with %d left to spend?",
		view.Category, sess.Purpose, sess.Remaining())
	rec, err := s.generator.Generate(ctx, query, results, nil)
	if err != nil {
		var malformed *generator.MalformedError
		if !errors.As(err, &malformed) {
			s.logger.Printf("[WARN] Step commentary generation failed: %v", err)
		}
		return ""
	}
	return rec.Analysis
}

func toRecommendedViews(components []generator.RecommendedComponent) []dto.RecommendedView {
	views := make([]dto.RecommendedView, len(components))
	for i, c := range components {
		views[i] = dto.RecommendedView{
			Category: c.Category,
			Name:     c.Name,
			Price:    c.Price,
			Features: c.Features,
		}
	}
	return views
}

func toVerdictViews(verdicts []entity.CompatibilityVerdict) []dto.VerdictView {
	if len(verdicts) == 0 {
		return nil
	}
	views := make([]dto.VerdictView, len(verdicts))
	for i, v := range verdicts {
		views[i] = dto.VerdictView{
			Check:    v.Check,
			Severity: string(v.Severity),
			Reason:   v.Reason,
			Against:  v.Against,
		}
	}
	return views
}

func toSessionResponse(sess *entity.BuildSession) dto.SessionResponse {
	res := dto.SessionResponse{
		SessionId: sess.Id,
		Phase:     string(sess.Phase),
		Purpose:   sess.Purpose,
		Budget:    sess.Budget,
		Spent:     sess.Spent,
		Remaining: sess.Remaining(),
		Steps:     make([]dto.StepStateView, len(sess.Steps)),
	}
	for i, step := range sess.Steps {
		view := dto.StepStateView{
			Category: step.Category,
			Optional: step.Optional,
			Status:   string(step.Status),
		}
		if step.Selected != nil {
			view.Selected = &dto.CandidateView{
				Id:       step.Selected.Id,
				Category: step.Selected.Category,
				Name:     step.Selected.Name,
				Price:    step.Selected.Price,
				Specs:    step.Selected.Specs,
			}
		}
		res.Steps[i] = view
	}
	return res
}
