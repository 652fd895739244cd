package server

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/biodoia/contentfactory/internal/agents"
	"github.com/biodoia/contentfactory/internal/factory"
	"github.com/biodoia/contentfactory/pkg/config"
	"github.com/gofiber/fiber/v3"
)

// GenerateRequest corpo di POST /v1/generate
type GenerateRequest struct {
	Topic     string   `json:"topic"`
	Platforms []string `json:"platforms,omitempty"`
	Tone      string   `json:"tone,omitempty"`
	Review    *bool    `json:"review,omitempty"`
}

// GenerateResponse risposta di POST /v1/generate
type GenerateResponse struct {
	RunID            string               `json:"run_id"`
	Topic            string               `json:"topic"`
	Text             string               `json:"text"`
	Stages           []agents.StageOutput `json:"stages"`
	FallbacksUsed    []string             `json:"fallbacks_used"`
	FallbackReasons  map[string]string    `json:"fallback_reasons,omitempty"`
	DurationMS       int64                `json:"duration_ms"`
	PostProcessError string               `json:"post_process_error,omitempty"`
}

// handleHealth endpoint di health check
func (s *Server) handleHealth(c fiber.Ctx) error {
	body := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"version":   Version,
	}

	if st, ok := s.service.CacheStats(); ok {
		body["cache"] = fiber.Map{
			"hits":     st.Hits,
			"misses":   st.Misses,
			"hit_rate": st.HitRate(),
		}
	}

	return c.JSON(body)
}

// handlePersonas elenca le persona del preset
func (s *Server) handlePersonas(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"personas": agents.ViralPersonas(),
		"defaults": s.service.DefaultOptions(),
	})
}

// handleGenerate esegue la pipeline sul topic richiesto
func (s *Server) handleGenerate(c fiber.Ctx) error {
	var req GenerateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return fiber.NewError(fiber.StatusBadRequest, "topic is required")
	}
	if limit := s.config.MaxTopicLength; limit > 0 && utf8.RuneCountInString(topic) > limit {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("topic exceeds %d characters", limit))
	}

	opts, err := s.requestOptions(req)
	if err != nil {
		return err
	}

	ctx := c.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	out, err := s.service.Generate(ctx, factory.Request{Topic: topic, Options: opts})
	if err != nil {
		return err
	}

	if fiber.Query[bool](c, "download") {
		c.Attachment(out.Result.Filename())
		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
		return c.SendString(out.Document())
	}

	resp := GenerateResponse{
		RunID:         out.Result.RunID,
		Topic:         out.Result.Topic,
		Text:          out.Text,
		Stages:        out.Result.PerTaskOutputs,
		FallbacksUsed:   out.Result.FallbacksUsed,
		FallbackReasons: out.FallbackReasons,
		DurationMS:    out.Result.Duration.Milliseconds(),
	}
	if out.PostProcessErr != nil {
		resp.PostProcessError = out.PostProcessErr.Error()
	}

	return c.JSON(resp)
}

// requestOptions applica gli override della richiesta alla selezione di
// default; nil se la richiesta non ne contiene
func (s *Server) requestOptions(req GenerateRequest) (*agents.Options, error) {
	if len(req.Platforms) == 0 && req.Tone == "" && req.Review == nil {
		return nil, nil
	}

	defaults := s.service.DefaultOptions()
	pc := config.PipelineConfig{
		Platforms: req.Platforms,
		Tone:      req.Tone,
		Review:    defaults.Review,
	}
	if len(pc.Platforms) == 0 {
		for _, p := range defaults.Platforms {
			pc.Platforms = append(pc.Platforms, string(p))
		}
	}
	if pc.Tone == "" {
		pc.Tone = string(defaults.Tone)
	}
	if req.Review != nil {
		pc.Review = *req.Review
	}

	opts, err := factory.PipelineOptions(pc)
	if err != nil {
		return nil, err
	}
	return &opts, nil
}
