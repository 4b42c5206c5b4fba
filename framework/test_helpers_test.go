package framework

import (
	"context"
	"fmt"
)

type stubRunner struct {
	results  []ProcessResult
	err      error
	requests []CommandRequest
}

func (s *stubRunner) Run(ctx context.Context, req CommandRequest) (ProcessResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return ProcessResult{}, s.err
	}
	if len(s.results) == 0 {
		return ProcessResult{}, fmt.Errorf("unexpected command %v", req.Args)
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next, nil
}
