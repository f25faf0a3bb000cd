package service

import (
	"context"
	"errors"
	"time"

	"github.com/deppfellow/meta-dispatcher/internal/backend"
	"github.com/deppfellow/meta-dispatcher/internal/errs"
	"github.com/deppfellow/meta-dispatcher/internal/gate"
	"github.com/deppfellow/meta-dispatcher/internal/logger"
	"github.com/deppfellow/meta-dispatcher/internal/metrics"
	"github.com/deppfellow/meta-dispatcher/internal/payload"
	"github.com/deppfellow/meta-dispatcher/internal/schema"
)

// Client-facing messages. Downstream details never reach the caller.
const (
	MsgDecodeFailed  = "Failed to parse JSON data."
	MsgInvalidFormat = "Invalid request format."
	MsgBackendStatus = "Internal service returned an error."
	MsgUnexpected    = "Unexpected error occurred."
	MsgGateCancelled = "Request cancelled while waiting for dispatch."
)

const (
	codeUndecodable     = "UNDECODABLE_BODY"
	codeNoMatchedSchema = "NO_MATCHING_SCHEMA"
)

// DispatchService runs one request through the dispatch pipeline.
type DispatchService struct {
	gate       gate.Gate
	classifier *schema.Classifier
	clients    map[backend.Kind]backend.Client
	metrics    *metrics.Metrics
}

// NewDispatchService wires the pipeline. m may be nil.
func NewDispatchService(g gate.Gate, classifier *schema.Classifier, clients map[backend.Kind]backend.Client, m *metrics.Metrics) *DispatchService {
	return &DispatchService{
		gate:       g,
		classifier: classifier,
		clients:    clients,
		metrics:    m,
	}
}

// Dispatch decodes body, picks a backend and forwards the payload to it.
//
// body is the complete request body. Callers read it before calling
// Dispatch so that a request queued behind the gate does not leave its
// upload unread on the connection. The decode, classify and forward
// sequence runs while holding the gate. The gate is released on
// every exit path, panics included. Once the gate is held the request runs
// to completion even if the caller goes away; only waiting for the gate is
// cancellable.
func (s *DispatchService) Dispatch(ctx context.Context, contentType string, body []byte) (*backend.Response, error) {
	log := logger.FromContext(ctx)

	doneWaiting := s.metrics.WaitingForGate()
	release, err := s.gate.Acquire(ctx)
	doneWaiting()

	if err != nil {
		s.metrics.RecordDispatch("", metrics.OutcomeCancelled)
		log.Warn().Err(err).Msg("gave up waiting for the dispatch gate")
		return nil, errs.NewServiceUnavailableError(MsgGateCancelled)
	}
	defer release()
	defer s.metrics.HoldingGate()()

	p, source, err := payload.Decode(contentType, body)
	if err != nil {
		s.metrics.RecordDispatch("", metrics.OutcomeDecodeError)
		log.Debug().Err(err).Str("content_type", contentType).Int("body_bytes", len(body)).Msg("request body could not be decoded")
		code := codeUndecodable
		return nil, errs.NewBadRequestError(MsgDecodeFailed, &code)
	}

	kind, ok := s.classifier.Classify(ctx, p)
	if !ok {
		s.metrics.RecordDispatch("", metrics.OutcomeNoMatch)
		log.Info().Str("source", string(source)).Strs("fields", p.Keys()).Msg("payload matched no schema")
		code := codeNoMatchedSchema
		return nil, errs.NewBadRequestError(MsgInvalidFormat, &code)
	}

	client, ok := s.clients[kind]
	if !ok {
		s.metrics.RecordDispatch(string(kind), metrics.OutcomeBackendError)
		log.Error().Str("backend", string(kind)).Msg("no client configured for matched backend")
		return nil, errs.NewInternalServerError(MsgUnexpected)
	}

	log.Info().
		Str("backend", string(kind)).
		Str("source", string(source)).
		Strs("fields", p.Keys()).
		Msg("dispatching payload")

	start := time.Now()
	resp, err := client.Send(context.WithoutCancel(ctx), p)
	elapsed := time.Since(start)
	s.metrics.ObserveBackend(string(kind), elapsed)

	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			s.metrics.RecordDispatch(string(kind), metrics.OutcomeStatusError)
			log.Warn().
				Str("backend", string(kind)).
				Int("backend_status", statusErr.Status).
				Bytes("backend_body", truncate(statusErr.Body, 512)).
				Dur("duration", elapsed).
				Msg("backend returned an error status")
			return nil, errs.NewStatusError(statusErr.Status, MsgBackendStatus)
		}

		s.metrics.RecordDispatch(string(kind), metrics.OutcomeBackendError)
		log.Error().Err(err).Str("backend", string(kind)).Dur("duration", elapsed).Msg("backend call failed")
		return nil, errs.NewInternalServerError(MsgUnexpected)
	}

	s.metrics.RecordDispatch(string(kind), metrics.OutcomeSuccess)
	log.Info().
		Str("backend", string(kind)).
		Int("backend_status", resp.Status).
		Dur("duration", elapsed).
		Msg("backend call succeeded")

	return resp, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
