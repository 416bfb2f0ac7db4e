package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// htmlTagPattern matches structural HTML tags. A lone angle bracket or
// a pseudo-tag like <thing> is not enough to trigger conversion.
var htmlTagPattern = regexp.MustCompile(`(?i)</?(html|body|div|p|span|table|ul|ol|li|h[1-6]|br|a)\b`)

// NewTransformMiddleware returns a middleware that rewrites HTML in
// user text content to Markdown before dispatch. Models handle Markdown
// more reliably than raw markup and the conversion shrinks the prompt.
// Every rewritten block is recorded as a content-transformed warning;
// blocks that fail to convert are passed through unchanged.
func NewTransformMiddleware(logger *slog.Logger) Middleware {
	return Middleware{
		Name: "transform",
		Chat: func(next Handler) Handler {
			return func(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
				return next(ctx, transformHTML(req, logger))
			}
		},
		Stream: func(next StreamHandler) StreamHandler {
			return func(ctx context.Context, req *ir.ChatRequest) (<-chan *ir.StreamChunk, error) {
				return next(ctx, transformHTML(req, logger))
			}
		},
	}
}

// transformHTML converts HTML user text blocks to Markdown, returning
// the request unchanged when nothing needed converting. The original
// request is never mutated; the first conversion switches to a clone.
func transformHTML(req *ir.ChatRequest, logger *slog.Logger) *ir.ChatRequest {
	out := req
	for i := range req.Messages {
		if req.Messages[i].Role != ir.RoleUser {
			continue
		}
		for j := range req.Messages[i].Content {
			block := &req.Messages[i].Content[j]
			if block.Type != ir.ContentTypeText || !htmlTagPattern.MatchString(block.Text) {
				continue
			}
			markdown, err := htmltomarkdown.ConvertString(block.Text)
			if err != nil {
				logger.Debug("html conversion failed, keeping original content",
					"request_id", req.Metadata.RequestID,
					"error", err,
				)
				continue
			}
			if out == req {
				out = req.Clone()
			}
			out.Messages[i].Content[j].Text = markdown
			out.Metadata.AddWarning(ir.Warning{
				Category: ir.WarnContentTransformed,
				Severity: ir.SeverityInfo,
				Message:  "HTML content converted to Markdown",
				Field:    fmt.Sprintf("messages[%d].content[%d]", i, j),
				Source:   "transform",
			})
		}
	}
	return out
}
