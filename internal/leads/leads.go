// Package leads copies funnel applications to the systems downstream of the
// funnel: the Postgres archive, the search index, email and the CRM.
// None of them is on the critical path of a submission.
package leads

import (
	"context"
	"errors"
	"fmt"

	"loan-funnel/internal/common/logger"
	"loan-funnel/internal/models"
)

// Stage is the point in the funnel a record is being copied at.
type Stage string

const (
	StageSubmitted Stage = "submitted"
	StageDecided   Stage = "decided"
)

type Recorder interface {
	Record(ctx context.Context, stage Stage, rec *models.ApplicationRecord) error
}

type sink struct {
	name     string
	recorder Recorder
}

// Pipeline fans a record out to every registered sink. A failing sink does
// not stop the others.
type Pipeline struct {
	sinks  []sink
	logger logger.Logger
}

func NewPipeline(log logger.Logger) *Pipeline {
	return &Pipeline{logger: logger.ForComponent(log, "leads")}
}

func (p *Pipeline) Add(name string, r Recorder) *Pipeline {
	p.sinks = append(p.sinks, sink{name: name, recorder: r})
	return p
}

// Len reports the number of sinks.
func (p *Pipeline) Len() int {
	return len(p.sinks)
}

func (p *Pipeline) Record(ctx context.Context, stage Stage, rec *models.ApplicationRecord) error {
	if rec == nil {
		return nil
	}

	var errs []error
	for _, s := range p.sinks {
		if err := s.recorder.Record(ctx, stage, rec); err != nil {
			p.logger.Warn("lead sink failed", map[string]interface{}{
				"sink":          s.name,
				"stage":         string(stage),
				"applicationId": rec.ApplicationID,
				"error":         err,
			})
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
